package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Required
	DSN          string `envconfig:"DSN" required:"true"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"true"`

	// HTTP
	Port               string `envconfig:"PORT" default:"3000"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"20"`

	// Uploads
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	PublicURL      string `envconfig:"PUBLIC_URL"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"15728640"`

	BcryptCost int `envconfig:"BCRYPT_COST" default:"10"`

	// AI
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIChatModel  string        `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`
	OpenAIImageModel string        `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`
	AITimeout        time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	AIPreviewURL     string        `envconfig:"AI_PREVIEW_URL" default:"https://api.example-ai.com/v1/floor-replace"`
	AIPreviewKey     string        `envconfig:"AI_PREVIEW_KEY"`

	// Sessions and optional Google sign-in
	SessionSecret     string `envconfig:"SESSION_SECRET"`
	SessionSecure     bool   `envconfig:"SESSION_SECURE" default:"false"`
	GoogleKey         string `envconfig:"GOOGLE_KEY"`
	GoogleSecret      string `envconfig:"GOOGLE_SECRET"`
	GoogleCallbackURL string `envconfig:"GOOGLE_CALLBACK_URL" default:"http://localhost:3000/auth/google/callback"`

	// Optional R2 mirror
	AccountID       string `envconfig:"ACCOUNT_ID"`
	AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
	AccessKeySecret string `envconfig:"ACCESS_KEY_SECRET"`
	BucketName      string `envconfig:"BUCKET_NAME"`
}

// Load reads an optional .env file and then decodes the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	var c Config
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("process env: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("config: DSN is required")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("config: OPENAI_API_KEY is required")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: MAX_UPLOAD_BYTES must be > 0")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("config: RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	return nil
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleKey != "" && c.GoogleSecret != ""
}

func (c Config) MirrorEnabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.BucketName != ""
}
