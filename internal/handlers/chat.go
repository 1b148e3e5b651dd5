package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/petermazzocco/tile-studio-api/internal/ai"
	"github.com/petermazzocco/tile-studio-api/internal/auth"
	"github.com/petermazzocco/tile-studio-api/models"
)

type chatRequest struct {
	Messages []models.ChatTurn `json:"messages"`
	System   string            `json:"system"`
	UserID   json.RawMessage   `json:"userId"`
}

// chatError always carries a reply so the chat UI has something to render.
func chatError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message, "reply": ai.FallbackReply})
}

func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "/api/chat")

	var in chatRequest
	if err := decodeJSON(w, r, &in); err != nil {
		chatError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(in.Messages) == 0 {
		chatError(w, http.StatusBadRequest, "messages must be a non-empty array")
		return
	}
	for _, t := range in.Messages {
		if !t.Valid() {
			chatError(w, http.StatusBadRequest, "each message needs a role of system, user or assistant")
			return
		}
	}

	if len(in.UserID) > 0 && string(in.UserID) != "null" {
		log = log.WithField("user_id", string(in.UserID))
	} else if id, ok := auth.UserIDFromContext(r.Context()); ok {
		log = log.WithField("user_id", id)
	}

	reply, err := h.AI.Chat(r.Context(), in.Messages, in.System)
	if errors.Is(err, ai.ErrInvalidArgument) {
		chatError(w, http.StatusBadRequest, "messages must be a non-empty array")
		return
	}
	if err != nil {
		log.WithError(err).Error("chat failed")
		chatError(w, http.StatusInternalServerError, "AI service error")
		return
	}

	log.WithField("turns", len(in.Messages)).Debug("chat reply sent")
	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}
