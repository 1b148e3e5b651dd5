package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petermazzocco/tile-studio-api/internal/ai"
	"github.com/petermazzocco/tile-studio-api/internal/assets"
	"github.com/petermazzocco/tile-studio-api/internal/auth"
	"github.com/petermazzocco/tile-studio-api/internal/config"
	"github.com/petermazzocco/tile-studio-api/internal/factory"
	"github.com/petermazzocco/tile-studio-api/internal/handlers"
	"github.com/petermazzocco/tile-studio-api/internal/logging"
	"github.com/petermazzocco/tile-studio-api/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel)

	// Database connection
	db, err := store.Open(cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := store.NewUserStore(db)
	if err := users.Migrate(); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}

	// Optional R2 mirror for stored assets
	var mirror assets.Mirror
	if cfg.MirrorEnabled() {
		httpClient := &http.Client{Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		}}
		m, err := assets.NewR2Mirror(context.Background(), cfg.AccountID, cfg.AccessKeyID, cfg.AccessKeySecret, cfg.BucketName, httpClient)
		if err != nil {
			log.Fatalf("Failed to configure R2 mirror: %v", err)
		}
		mirror = m
		log.WithField("bucket", cfg.BucketName).Info("asset mirror enabled")
	}

	policy := assets.DefaultPolicy()
	policy.MaxBytes = cfg.MaxUploadBytes
	files, err := assets.NewStore(cfg.UploadDir, cfg.PublicURL, policy, mirror, log)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	gateway, err := ai.NewGateway(ai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		ChatModel:  cfg.OpenAIChatModel,
		ImageModel: cfg.OpenAIImageModel,
		Timeout:    cfg.AITimeout,
	})
	if err != nil {
		log.Fatalf("Failed to configure AI client: %v", err)
	}

	sessionStore := auth.NewSessionStore(cfg.SessionSecret, cfg.SessionSecure)
	if cfg.GoogleEnabled() {
		auth.UseGoogle(cfg.GoogleKey, cfg.GoogleSecret, cfg.GoogleCallbackURL, sessionStore)
	}

	factoryConfig, err := factory.Load()
	if err != nil {
		log.Fatalf("Failed to load factory config: %v", err)
	}

	h := &handlers.Handlers{
		Users:     users,
		Passwords: auth.NewHasher(cfg.BcryptCost),
		Assets:    files,
		AI:        gateway,
		Preview:   ai.NewHTTPCompositor(cfg.AIPreviewURL, cfg.AIPreviewKey, cfg.AITimeout),
		Factory:   factoryConfig,
		Sessions:  sessionStore,
		Log:       log,
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: h.Router(handlers.RouterOptions{
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			GoogleSignIn:       cfg.GoogleEnabled(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
