package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/worlddots/workflow"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, workflow.DefaultProgressDelay, cfg.GetProgressDelay())
	assert.Equal(t, "50ms", cfg.ProgressDelay)
}

func TestLoadPartial(t *testing.T) {
	path := writeFile(t, "worlddots.json", `{"listen": "127.0.0.1:9000", "progress_delay": "0s", "pixel_ratio": 2}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Listen = "127.0.0.1:9000"
	want.ProgressDelay = "0s"
	want.PixelRatio = 2
	assert.Equal(t, want, cfg)
	assert.Zero(t, cfg.GetProgressDelay())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"extension", "config.yaml", `{}`, ".json extension"},
		{"syntax", "config.json", `{"listen":`, "failed to parse config JSON"},
		{"empty listen", "config.json", `{"listen": ""}`, "listen address"},
		{"container", "config.json", `{"container_width": 0}`, "container size"},
		{"ratio", "config.json", `{"pixel_ratio": -1}`, "pixel_ratio"},
		{"delay", "config.json", `{"progress_delay": "soon"}`, "invalid progress_delay"},
		{"negative delay", "config.json", `{"progress_delay": "-1s"}`, "non-negative"},
		{"log level", "config.json", `{"log_level": "loud"}`, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadTooLarge(t *testing.T) {
	path := writeFile(t, "big.json", `{"listen": ":1", "pad": "`+strings.Repeat("x", maxFileSize)+`"}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
