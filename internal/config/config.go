// Package config loads process configuration from the environment. A .env
// file in the working directory is read first; variables already set in the
// environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Editor backends.
const (
	EditorReplicate = "replicate"
	EditorGemini    = "gemini"
)

// Config holds every tunable shared by the veo3 binaries. API keys are not
// part of it; see the auth and lambdaboot packages.
type Config struct {
	Addr       string `envconfig:"VEO3_ADDR" default:":8080"`
	CORSOrigin string `envconfig:"VEO3_CORS_ORIGIN" default:"*"`

	LogLevel  string `envconfig:"VEO3_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"VEO3_LOG_FORMAT" default:"console"`

	VisionModel    string `envconfig:"VEO3_VISION_MODEL"`
	Editor         string `envconfig:"VEO3_EDITOR" default:"replicate"`
	EditorModel    string `envconfig:"VEO3_EDITOR_MODEL"`
	GeneratorModel string `envconfig:"VEO3_GENERATOR_MODEL"`
	ValidateKey    bool   `envconfig:"VEO3_VALIDATE_KEY" default:"false"`

	CallTimeout   time.Duration `envconfig:"VEO3_CALL_TIMEOUT" default:"2m"`
	MaxRetries    uint64        `envconfig:"VEO3_MAX_RETRIES" default:"0"`
	RetryInterval time.Duration `envconfig:"VEO3_RETRY_INTERVAL" default:"1s"`
	RateLimit     float64       `envconfig:"VEO3_RATE_LIMIT" default:"0"`
	RateBurst     int           `envconfig:"VEO3_RATE_BURST" default:"2"`
	MaxImageDim   int           `envconfig:"VEO3_MAX_IMAGE_DIM" default:"0"`

	SessionTTL     time.Duration `envconfig:"VEO3_SESSION_TTL" default:"30m"`
	SessionCleanup time.Duration `envconfig:"VEO3_SESSION_CLEANUP" default:"10m"`
	MaxUploadBytes int64         `envconfig:"VEO3_MAX_UPLOAD_BYTES" default:"20971520"`

	EMF bool `envconfig:"VEO3_EMF" default:"false"`

	GeminiKeyParam      string `envconfig:"VEO3_SSM_GEMINI_KEY" default:"/veo3-storyboard/prod/gemini-api-key"`
	ReplicateTokenParam string `envconfig:"VEO3_SSM_REPLICATE_TOKEN" default:"/veo3-storyboard/prod/replicate-api-token"`
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Editor {
	case EditorReplicate, EditorGemini:
	default:
		return fmt.Errorf("VEO3_EDITOR must be %q or %q, got %q", EditorReplicate, EditorGemini, c.Editor)
	}
	if c.CallTimeout < 0 || c.RetryInterval < 0 {
		return errors.New("durations must not be negative")
	}
	if c.RateLimit < 0 {
		return errors.New("VEO3_RATE_LIMIT must not be negative")
	}
	if c.MaxImageDim < 0 {
		return errors.New("VEO3_MAX_IMAGE_DIM must not be negative")
	}
	if c.SessionTTL <= 0 {
		return errors.New("VEO3_SESSION_TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("VEO3_MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
