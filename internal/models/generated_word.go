package models

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GeneratedWord is one character's output from the generator: the character
// plus the encoded image bytes, or nil bytes for a benign miss (whitespace,
// glyph absent from the face). A miss is not a job failure.
type GeneratedWord struct {
	Word  string
	Image []byte
}

// NewGeneratedWord validates that word is exactly one character.
func NewGeneratedWord(word string, image []byte) (GeneratedWord, error) {
	if utf8.RuneCountInString(word) != 1 {
		return GeneratedWord{}, fmt.Errorf("word must be a single character, got %q", word)
	}
	return GeneratedWord{Word: word, Image: image}, nil
}

// Success reports whether image bytes were produced for this character.
func (w GeneratedWord) Success() bool {
	return w.Image != nil
}

// GeneratedWordLocation records where one character's image ended up.
// Invariant: Success is true exactly when ImageID is non-nil.
type GeneratedWordLocation struct {
	Word    string
	Success bool
	ImageID *uuid.UUID
}

// NewGeneratedWordLocation derives Success from the presence of imageID.
// The id is copied, so the location does not alias the caller's variable.
func NewGeneratedWordLocation(word string, imageID *uuid.UUID) (GeneratedWordLocation, error) {
	if utf8.RuneCountInString(word) != 1 {
		return GeneratedWordLocation{}, fmt.Errorf("word must be a single character, got %q", word)
	}
	if imageID != nil {
		id := *imageID
		imageID = &id
	}
	return GeneratedWordLocation{
		Word:    word,
		Success: imageID != nil,
		ImageID: imageID,
	}, nil
}

// JobResult is the ordered, append-only sequence of per-character results.
// Entries match the prefix of the job input's characters, in order.
type JobResult struct {
	WordLocations []GeneratedWordLocation
}

// ImageIDs returns the ids of all successfully stored images, in order.
func (r JobResult) ImageIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.WordLocations))
	for _, loc := range r.WordLocations {
		if loc.ImageID != nil {
			ids = append(ids, *loc.ImageID)
		}
	}
	return ids
}
