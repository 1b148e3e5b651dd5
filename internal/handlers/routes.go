package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/petermazzocco/tile-studio-api/internal/auth"
	"github.com/petermazzocco/tile-studio-api/internal/logging"
)

type RouterOptions struct {
	// RateLimitPerMinute caps auth and AI routes per client IP. Zero disables it.
	RateLimitPerMinute int
	GoogleSignIn       bool
}

func (h *Handlers) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(auth.WithSessionUser(h.Sessions))

	limited := func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(
				opts.RateLimitPerMinute,
				1*time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			))
		}
	}

	r.Get("/healthz", h.Health)
	r.Get("/factory-config", h.FactoryConfig)
	r.Post("/upload-room", h.UploadRoom)
	r.Handle("/uploads/*", h.Assets.FileServer())
	r.Get("/api/user", h.GetUser)

	r.Group(func(r chi.Router) {
		limited(r)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		if opts.GoogleSignIn {
			r.Get("/auth/google", h.GoogleBegin)
			r.Get("/auth/google/callback", h.GoogleCallback)
		}
	})

	r.Group(func(r chi.Router) {
		limited(r)
		r.Post("/generate-tile", h.GenerateTile)
		r.Post("/api/chat", h.Chat)
		r.Post("/api/ai-preview", h.AIPreview)
	})

	return r
}
