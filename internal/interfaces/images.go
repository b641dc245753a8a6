package interfaces

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrImageNotFound is returned when an image id has no stored bytes.
var ErrImageNotFound = errors.New("image not found")

// ImageStorage stores opaque image bytes keyed by identifier. No ordering
// or consistency guarantees beyond read-your-writes within one caller.
type ImageStorage interface {
	// Save stores the bytes under a fresh identifier and returns it.
	Save(ctx context.Context, data []byte) (uuid.UUID, error)
	// SaveTo stores (or overwrites) the bytes under a caller-chosen id.
	SaveTo(ctx context.Context, data []byte, id uuid.UUID) error
	// Get returns the stored bytes, or ErrImageNotFound.
	Get(ctx context.Context, id uuid.UUID) ([]byte, error)
	// Delete removes the bytes. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}
