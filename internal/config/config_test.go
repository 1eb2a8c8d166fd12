package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 2*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, 0.5, cfg.Matching.IoUThreshold)
	assert.Equal(t, 4, cfg.Eval.Concurrency)
	assert.Empty(t, cfg.Detector.URL)
	assert.Equal(t, 30*time.Second, cfg.Detector.Timeout)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detreview.yaml")
	content := `server:
  port: 9000
  session_ttl: 30m
matching:
  iou_threshold: 0.75
detector:
  url: http://localhost:5000/detect
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, 0.75, cfg.Matching.IoUThreshold)
	assert.Equal(t, "http://localhost:5000/detect", cfg.Detector.URL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	// untouched keys keep their defaults
	assert.Equal(t, 4, cfg.Eval.Concurrency)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("DETREVIEW_MATCHING_IOU_THRESHOLD", "0.3")
	t.Setenv("DETREVIEW_EVAL_CONCURRENCY", "8")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Matching.IoUThreshold)
	assert.Equal(t, 8, cfg.Eval.Concurrency)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8888, MaxUploadBytes: 1024},
			Matching: MatchingConfig{IoUThreshold: 0.5},
			Eval:     EvalConfig{Concurrency: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "threshold zero", mutate: func(c *Config) { c.Matching.IoUThreshold = 0 }, want: ErrInvalidThreshold},
		{name: "threshold above one", mutate: func(c *Config) { c.Matching.IoUThreshold = 1.5 }, want: ErrInvalidThreshold},
		{name: "no workers", mutate: func(c *Config) { c.Eval.Concurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "no uploads", mutate: func(c *Config) { c.Server.MaxUploadBytes = 0 }, want: ErrInvalidUploadSize},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, want: ErrInvalidPort},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
