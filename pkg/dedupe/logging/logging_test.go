package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
)

// These tests share the package's global state and must not run in parallel.

func initTemp(t *testing.T, cfg logging.Config) string {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "dedupe.log")
	}
	require.NoError(t, logging.Init(cfg))
	t.Cleanup(func() { _ = logging.Close() })
	return cfg.Path
}

func TestInit(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	tests := []struct {
		name    string
		cfg     logging.Config
		wantErr bool
	}{
		{name: "defaults", cfg: logging.Config{Level: "info"}},
		{name: "component overrides", cfg: logging.Config{Level: "info", Components: map[string]string{"scanner": "debug"}}},
		{name: "console", cfg: logging.Config{Level: "warn", ConsoleLevel: "error"}},
		{name: "invalid level", cfg: logging.Config{Level: "loud"}, wantErr: true},
		{name: "invalid component level", cfg: logging.Config{Components: map[string]string{"job": "nope"}}, wantErr: true},
		{name: "parent is a file", cfg: logging.Config{Path: filepath.Join(blocker, "x.log")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.Path == "" {
				cfg.Path = filepath.Join(t.TempDir(), "dedupe.log")
			}
			err := logging.Init(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, logging.Close())
		})
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	path := initTemp(t, logging.Config{Level: "info"})

	logger := logging.Get("job")
	logger.Info("scan started", "root", "/srv/photos")
	logger.Debug("hidden detail")
	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "scan started")
	assert.Contains(t, content, "/srv/photos")
	assert.NotContains(t, content, "hidden detail")
}

func TestComponentLevelOverride(t *testing.T) {
	path := initTemp(t, logging.Config{
		Level:      "warn",
		Components: map[string]string{"hasher": "debug"},
	})

	logging.Get("hasher").Debug("hasher debug line")
	logging.Get("scanner").Info("scanner info line")
	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hasher debug line")
	assert.NotContains(t, string(data), "scanner info line")
}

func TestGetReturnsSameLogger(t *testing.T) {
	initTemp(t, logging.Config{})
	assert.Same(t, logging.Get("daemon"), logging.Get("daemon"))
}

func TestGetBeforeInitDiscards(t *testing.T) {
	require.NoError(t, logging.Close())
	logger := logging.Get("early")
	require.NotNil(t, logger)
	logger.Info("goes nowhere")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{" warning ", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"trace", logging.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, logging.ErrInvalidLevel, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

