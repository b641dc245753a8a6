package interfaces

import (
	"context"

	"github.com/ternarybob/scribo/internal/models"
)

// StateCallback receives running-state updates from the generator. It runs
// in the scheduler's serialization domain and must return quickly.
type StateCallback func(state models.RunningState)

// WordCallback receives exactly one GeneratedWord per character of the
// input, in input order. It runs in the scheduler's serialization domain
// and must return quickly.
type WordCallback func(word models.GeneratedWord)

// TextGenerator renders each character of the input to an image.
//
// Generate blocks until every character has been reported or the context is
// cancelled. A cancelled run returns an error satisfying
// errors.Is(err, context.Canceled). Empty input returns nil immediately
// with zero callbacks. A per-character miss (whitespace, missing glyph) is
// reported as a GeneratedWord without image bytes, not as an error.
type TextGenerator interface {
	Generate(ctx context.Context, input models.JobInput, onState StateCallback, onWord WordCallback) error
}
