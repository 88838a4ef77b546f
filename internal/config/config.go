// Package config loads application configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// HTTP server
	ListenAddr string `env:"QUIZFORGE_LISTEN_ADDR" envDefault:":8501"`

	// Storage
	DBPath string `env:"QUIZFORGE_DB_PATH" envDefault:"quizforge.db"`

	// OpenAI-compatible model API. The API key is optional at startup;
	// without it generation stays disabled until a key is stored via the GUI.
	OpenAIAPIKey  string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string  `env:"QUIZFORGE_OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model         string  `env:"QUIZFORGE_MODEL" envDefault:"gpt-3.5-turbo"`
	Temperature   float64 `env:"QUIZFORGE_TEMPERATURE" envDefault:"0.7"`

	// Optional GitHub token for fetching source documents from repositories.
	GitHubToken string `env:"QUIZFORGE_GITHUB_TOKEN"`

	// Hex-encoded 32-byte key for credential encryption at rest.
	// When empty, credential storage is disabled.
	SecretKey string `env:"QUIZFORGE_SECRET_KEY"`

	// Upload limit in bytes.
	MaxUploadBytes int64 `env:"QUIZFORGE_MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// Generation defaults and worker pacing.
	DefaultQuestions int           `env:"QUIZFORGE_DEFAULT_QUESTIONS" envDefault:"5"`
	SweepInterval    time.Duration `env:"QUIZFORGE_SWEEP_INTERVAL" envDefault:"30s"`
}

// HasModelCredentials reports whether an API key is available at startup.
func (c *Config) HasModelCredentials() bool {
	return c.OpenAIAPIKey != ""
}

// EncryptionKey decodes the hex secret key into the 32 raw bytes the
// credential store needs. Returns nil, nil when no key is configured.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.SecretKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("QUIZFORGE_SECRET_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("QUIZFORGE_SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Load reads a .env file if present, then parses environment variables into a
// validated Config. Values already set in the environment win over .env.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment is the other source.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DefaultQuestions < 1 || cfg.DefaultQuestions > model.MaxQuestions {
		return nil, fmt.Errorf("QUIZFORGE_DEFAULT_QUESTIONS must be in 1..%d, got %d", model.MaxQuestions, cfg.DefaultQuestions)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("QUIZFORGE_TEMPERATURE must be in 0..2, got %g", cfg.Temperature)
	}

	return cfg, nil
}
