package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/petermazzocco/tile-studio-api/internal/ai"
	"github.com/petermazzocco/tile-studio-api/internal/assets"
	"github.com/petermazzocco/tile-studio-api/models"
	"github.com/sirupsen/logrus"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type AssetStore interface {
	Policy() assets.Policy
	SaveUpload(ctx context.Context, filename, contentType string, data []byte) (assets.Asset, error)
	SaveGeneratedBase64(ctx context.Context, b64 string) (assets.Asset, error)
	FileServer() http.Handler
}

type AIGateway interface {
	GenerateTile(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, history []models.ChatTurn, system string) (string, error)
}

// Handlers holds the long-lived services every route depends on. They are
// built once in main and shared by all requests.
type Handlers struct {
	Users     UserStore
	Passwords PasswordHasher
	Assets    AssetStore
	AI        AIGateway
	Preview   ai.Compositor
	Factory   models.FactoryConfig
	Sessions  sessions.Store
	Log       *logrus.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func (h *Handlers) logger(r *http.Request, route string) *logrus.Entry {
	return h.Log.WithFields(logrus.Fields{"route": route, "method": r.Method})
}

// FactoryConfig serves the static size and palette table.
func (h *Handlers) FactoryConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Factory)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
