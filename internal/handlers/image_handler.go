package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/interfaces"
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// ImageHandler serves generated image bytes
type ImageHandler struct {
	images interfaces.ImageStorage
	logger arbor.ILogger
}

// NewImageHandler creates a new image handler
func NewImageHandler(images interfaces.ImageStorage, logger arbor.ILogger) *ImageHandler {
	return &ImageHandler{
		images: images,
		logger: logger,
	}
}

// GetImageHandler returns raw image bytes with a sniffed Content-Type.
// GET /get_image?image_id=<id>
func (h *ImageHandler) GetImageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	imageID, err := uuid.Parse(r.URL.Query().Get("image_id"))
	if err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid ID format")
		return
	}

	data, err := h.images.Get(r.Context(), imageID)
	if err != nil {
		if errors.Is(err, interfaces.ErrImageNotFound) {
			WriteDetail(w, http.StatusNotFound, "Image not found")
			return
		}
		h.logger.Error().Err(err).Str("image_id", imageID.String()).Msg("Failed to read image")
		WriteDetail(w, http.StatusInternalServerError, "Failed to read image")
		return
	}

	mediaType := detectImageMediaType(data)
	if mediaType == "" {
		WriteDetail(w, http.StatusInternalServerError, "Could not determine image media type")
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// detectImageMediaType sniffs the magic bytes of the supported formats.
func detectImageMediaType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return "image/png"
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg"
	default:
		return ""
	}
}
