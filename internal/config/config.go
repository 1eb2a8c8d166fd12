// Package config loads detreview settings from defaults, an optional YAML
// file and DETREVIEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// DETREVIEW_SERVER_PORT for server.port.
const EnvPrefix = "DETREVIEW"

var (
	ErrInvalidThreshold   = errors.New("matching.iou_threshold must be in (0, 1]")
	ErrInvalidConcurrency = errors.New("eval.concurrency must be positive")
	ErrInvalidUploadSize  = errors.New("server.max_upload_bytes must be positive")
	ErrInvalidPort        = errors.New("server.port must be between 1 and 65535")
)

// Config holds all runtime settings.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Matching MatchingConfig `mapstructure:"matching"`
	Eval     EvalConfig     `mapstructure:"eval"`
	Detector DetectorConfig `mapstructure:"detector"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

type MatchingConfig struct {
	IoUThreshold float64 `mapstructure:"iou_threshold"`
}

type EvalConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DetectorConfig points at an optional detection service. An empty URL
// disables it.
type DetectorConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8888)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.session_ttl", 2*time.Hour)
	v.SetDefault("matching.iou_threshold", 0.5)
	v.SetDefault("eval.concurrency", 4)
	v.SetDefault("detector.url", "")
	v.SetDefault("detector.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if math.IsNaN(c.Matching.IoUThreshold) || c.Matching.IoUThreshold <= 0 || c.Matching.IoUThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Matching.IoUThreshold))
	}
	if c.Eval.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, c.Eval.Concurrency))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidUploadSize, c.Server.MaxUploadBytes))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidPort, c.Server.Port))
	}
	return errors.Join(errs...)
}

// SlogLevel maps log.level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
