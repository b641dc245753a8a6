package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scribo/internal/interfaces"
)

// ImageRecord is the stored shape of one generated image.
type ImageRecord struct {
	ID        string `badgerhold:"key"`
	Data      []byte
	CreatedAt time.Time
}

// ImageStorage implements the interfaces.ImageStorage port on Badger.
type ImageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewImageStorage creates a new ImageStorage instance
func NewImageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ImageStorage {
	return &ImageStorage{
		db:     db,
		logger: logger,
	}
}

// Save stores the bytes under a fresh identifier and returns it.
func (s *ImageStorage) Save(ctx context.Context, data []byte) (uuid.UUID, error) {
	id := uuid.New()
	if err := s.SaveTo(ctx, data, id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// SaveTo stores (or overwrites) the bytes under a caller-chosen id.
func (s *ImageStorage) SaveTo(ctx context.Context, data []byte, id uuid.UUID) error {
	record := ImageRecord{
		ID:        id.String(),
		Data:      data,
		CreatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(record.ID, &record); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// Get returns the stored bytes, or interfaces.ErrImageNotFound.
func (s *ImageStorage) Get(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var record ImageRecord
	err := s.db.Store().Get(id.String(), &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return record.Data, nil
}

// Delete removes the bytes. Deleting an absent id is a no-op.
func (s *ImageStorage) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.Store().Delete(id.String(), &ImageRecord{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
