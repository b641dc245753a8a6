package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/interfaces"
)

// fakeImageStorage serves canned bytes for handler tests.
type fakeImageStorage struct {
	images map[uuid.UUID][]byte
}

func (f *fakeImageStorage) Save(ctx context.Context, data []byte) (uuid.UUID, error) {
	id := uuid.New()
	f.images[id] = data
	return id, nil
}

func (f *fakeImageStorage) SaveTo(ctx context.Context, data []byte, id uuid.UUID) error {
	f.images[id] = data
	return nil
}

func (f *fakeImageStorage) Get(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, ok := f.images[id]
	if !ok {
		return nil, interfaces.ErrImageNotFound
	}
	return data, nil
}

func (f *fakeImageStorage) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.images, id)
	return nil
}

func newImageHandler(images map[uuid.UUID][]byte) *ImageHandler {
	return NewImageHandler(&fakeImageStorage{images: images}, arbor.NewLogger())
}

func TestGetImageHandler(t *testing.T) {
	pngBytes := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, 1, 2, 3)
	jpegBytes := append([]byte{0xFF, 0xD8, 0xFF}, 4, 5, 6)

	t.Run("serves PNG bytes with sniffed content type", func(t *testing.T) {
		id := uuid.New()
		h := newImageHandler(map[uuid.UUID][]byte{id: pngBytes})

		req := httptest.NewRequest("GET", "/get_image?image_id="+id.String(), nil)
		rec := httptest.NewRecorder()
		h.GetImageHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, pngBytes, rec.Body.Bytes())
	})

	t.Run("serves JPEG bytes with sniffed content type", func(t *testing.T) {
		id := uuid.New()
		h := newImageHandler(map[uuid.UUID][]byte{id: jpegBytes})

		req := httptest.NewRequest("GET", "/get_image?image_id="+id.String(), nil)
		rec := httptest.NewRecorder()
		h.GetImageHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	})

	t.Run("rejects an invalid id format", func(t *testing.T) {
		h := newImageHandler(nil)

		req := httptest.NewRequest("GET", "/get_image?image_id=nope", nil)
		rec := httptest.NewRecorder()
		h.GetImageHandler(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unknown image is 404", func(t *testing.T) {
		h := newImageHandler(map[uuid.UUID][]byte{})

		req := httptest.NewRequest("GET", "/get_image?image_id="+uuid.New().String(), nil)
		rec := httptest.NewRecorder()
		h.GetImageHandler(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("undetectable media type is 500", func(t *testing.T) {
		id := uuid.New()
		h := newImageHandler(map[uuid.UUID][]byte{id: []byte("not an image")})

		req := httptest.NewRequest("GET", "/get_image?image_id="+id.String(), nil)
		rec := httptest.NewRecorder()
		h.GetImageHandler(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestDetectImageMediaType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0}, "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"truncated", []byte{0x89}, ""},
		{"empty", nil, ""},
		{"text", []byte("hello"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectImageMediaType(tt.data))
		})
	}
}
