package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/petermazzocco/tile-studio-api/internal/ai"
	"github.com/petermazzocco/tile-studio-api/internal/assets"
)

const (
	roomImageField = "roomImage"

	// Headroom for multipart boundaries and headers on top of the file limit.
	multipartEnvelope = 1 << 20
	multipartMemory   = 8 << 20
)

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, assets.ErrPayloadTooLarge)
}

// UploadRoom stores the multipart field roomImage and returns its public URL.
func (h *Handlers) UploadRoom(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "/upload-room")
	policy := h.Assets.Policy()

	r.Body = http.MaxBytesReader(w, r.Body, policy.MaxBytes+multipartEnvelope)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusBadRequest, assets.ErrPayloadTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, assets.ErrMissingFile.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(roomImageField)
	if err != nil {
		writeError(w, http.StatusBadRequest, assets.ErrMissingFile.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := policy.Check(contentType, header.Size); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, policy.MaxBytes+1))
	if err != nil {
		log.WithError(err).Error("read upload failed")
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	asset, err := h.Assets.SaveUpload(r.Context(), header.Filename, contentType, data)
	switch {
	case errors.Is(err, assets.ErrUnsupportedMediaType), errors.Is(err, assets.ErrPayloadTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.WithError(err).Error("save upload failed")
		writeError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	log.WithField("file", asset.Name).Info("room image uploaded")
	writeJSON(w, http.StatusOK, map[string]any{"imageUrl": asset.URL})
}

type generateTileRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateTile turns a text prompt into a stored tile texture.
func (h *Handlers) GenerateTile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "/generate-tile")

	var in generateTileRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	b64, err := h.AI.GenerateTile(r.Context(), in.Prompt)
	if errors.Is(err, ai.ErrInvalidArgument) {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if err != nil {
		log.WithError(err).Error("generate tile failed")
		writeError(w, http.StatusInternalServerError, "Failed to generate tile")
		return
	}

	asset, err := h.Assets.SaveGeneratedBase64(r.Context(), b64)
	if err != nil {
		log.WithError(err).Error("save tile failed")
		writeError(w, http.StatusInternalServerError, "Failed to save tile")
		return
	}

	log.WithField("file", asset.Name).Info("tile generated")
	writeJSON(w, http.StatusOK, map[string]any{"tileUrl": asset.URL})
}

type previewRequest struct {
	RoomImageURL string `json:"roomImageUrl"`
	TileImageURL string `json:"tileImageUrl"`
}

// AIPreview asks the compositor to lay the tile over the room's floor.
func (h *Handlers) AIPreview(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "/api/ai-preview")

	var in previewRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.RoomImageURL) == "" || strings.TrimSpace(in.TileImageURL) == "" {
		writeError(w, http.StatusBadRequest, "roomImageUrl and tileImageUrl are required")
		return
	}

	out, err := h.Preview.ReplaceFloor(r.Context(), in.RoomImageURL, in.TileImageURL)
	if err != nil {
		log.WithError(err).Error("ai preview failed")
		writeError(w, http.StatusInternalServerError, "AI preview failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"finalImage": out})
}
