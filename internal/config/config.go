// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrOpenAIAPIKeyRequired is returned when OPENAI_API_KEY is not set.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
	// ErrWhisperModelRequired is returned when WHISPER_MODEL is not set.
	ErrWhisperModelRequired = errors.New("config: WHISPER_MODEL is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// OpenAI settings
	OpenAIAPIKey string `env:"OPENAI_API_KEY, required" json:"-"` // Masked in JSON
	OpenAIModel  string `env:"OPENAI_MODEL, default=gpt-4o-mini" json:"openai_model"`

	// Transcription settings
	WhisperBin   string `env:"WHISPER_BIN, default=whisper-cli" json:"whisper_bin"`
	WhisperModel string `env:"WHISPER_MODEL, required" json:"whisper_model"`

	// Media tool settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Processing settings
	WorkDir         string        `env:"WORK_DIR, default=/tmp/clipworker" json:"work_dir"`
	ClipMinSec      float64       `env:"CLIP_MIN_SEC, default=20" json:"clip_min_sec"`
	ClipMaxSec      float64       `env:"CLIP_MAX_SEC, default=45" json:"clip_max_sec"`
	MaxClips        int           `env:"MAX_CLIPS, default=5" json:"max_clips"`
	PresignedExpiry time.Duration `env:"PRESIGNED_EXPIRY, default=1h" json:"presigned_expiry"`

	// Optional S3 settings; local disk storage is used when absent
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Optional SQS settings; an in-process queue is used when absent
	SQSQueueURL string        `env:"SQS_QUEUE_URL" json:"sqs_queue_url,omitempty"`
	SQSEndpoint string        `env:"SQS_ENDPOINT" json:"sqs_endpoint,omitempty"`
	SQSWaitTime time.Duration `env:"SQS_WAIT_TIME, default=10s" json:"sqs_wait_time"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// SQSEnabled returns true if SQS configuration is provided.
func (c *Config) SQSEnabled() bool {
	return c.SQSQueueURL != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "OPENAI_API_KEY") {
			return nil, ErrOpenAIAPIKeyRequired
		}
		if strings.Contains(err.Error(), "WHISPER_MODEL") {
			return nil, ErrWhisperModelRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIAPIKeyRequired
	}
	if c.WhisperModel == "" {
		return ErrWhisperModelRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, OpenAIModel: %s, WhisperModel: %s, WorkDir: %s, ClipMinSec: %.0f, ClipMaxSec: %.0f, MaxClips: %d, S3Bucket: %s, SQSQueueURL: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.OpenAIModel,
		c.WhisperModel,
		c.WorkDir,
		c.ClipMinSec,
		c.ClipMaxSec,
		c.MaxClips,
		c.S3Bucket,
		c.SQSQueueURL,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
