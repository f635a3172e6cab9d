package main

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/worlddots/config"
	"github.com/benoitkugler/worlddots/logging"
	"github.com/benoitkugler/worlddots/mask"
	"github.com/benoitkugler/worlddots/svgdots"
)

func writeLandMask(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	path := filepath.Join(dir, "land.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestRender(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })
	dir := t.TempDir()
	maskPath := writeLandMask(t, dir, 20, 10)
	svgPath := filepath.Join(dir, "out.svg")
	pngPath := filepath.Join(dir, "out.png")
	pdfPath := filepath.Join(dir, "out.pdf")

	var stdout bytes.Buffer
	err := run([]string{"render",
		"-mask", maskPath, "-width", "800", "-height", "400", "-ratio", "2",
		"-o", svgPath, "-png", pngPath, "-pdf", pdfPath,
	}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "checked 1922 positions, rendered 1922 dots")
	assert.Contains(t, stdout.String(), "original: ")
	assert.NotContains(t, stdout.String(), "optimized: ")

	text, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	icon, err := svgdots.ReadString(string(text), svgdots.StrictErrorMode)
	require.NoError(t, err)
	assert.Len(t, icon.Circles, 1922)

	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 800, cfg.Height)

	pdf, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestRenderOptimize(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })
	dir := t.TempDir()
	svgPath := filepath.Join(dir, "out.svg")

	var stdout bytes.Buffer
	err := run([]string{"render", "-mask", writeLandMask(t, dir, 20, 10),
		"-width", "800", "-height", "400", "-optimize", "-o", svgPath}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "optimized: ")
	assert.Contains(t, stdout.String(), "saved ")

	text, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	icon, err := svgdots.ReadString(string(text), svgdots.StrictErrorMode)
	require.NoError(t, err)
	assert.Len(t, icon.Circles, 1922)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"density", []string{"render", "-density", "20"}},
		{"size", []string{"render", "-size", "0.5"}},
		{"color", []string{"render", "-color", "hwb(0 0% 0%)"}},
		{"width", []string{"render", "-width", "0"}},
		{"missing mask", []string{"render", "-mask", filepath.Join(dir, "missing.png")}},
		{"unknown flag", []string{"render", "-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "-o", filepath.Join(dir, "out.svg"))
			assert.Error(t, run(args, io.Discard, io.Discard))
		})
	}
}

func TestRunCommands(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"help"}, &stdout, io.Discard))
	assert.True(t, strings.HasPrefix(stdout.String(), "usage:"))

	assert.Error(t, run(nil, io.Discard, io.Discard))
	assert.Error(t, run([]string{"draw"}, io.Discard, io.Discard))
}

func TestLoadServeConfig(t *testing.T) {
	cfg, err := loadServeConfig(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	path := filepath.Join(t.TempDir(), "worlddots.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen": ":9000", "database": "a.db", "log_level": "debug"}`), 0o644))
	cfg, err = loadServeConfig([]string{"-config", path, "-db", "b.db", "-mask", "land.png"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "b.db", cfg.Database)
	assert.Equal(t, "land.png", cfg.Mask)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = loadServeConfig([]string{"-listen", ""}, io.Discard)
	assert.Error(t, err)
}

func TestStartupMask(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	assert.True(t, startupMask("", cfg).IsDefault())

	cfg.Mask = writeLandMask(t, dir, 4, 2)
	assert.Equal(t, "land.png", startupMask("", cfg).Name)

	data, err := os.ReadFile(cfg.Mask)
	require.NoError(t, err)
	src := startupMask(mask.EncodeDataURI(data), cfg)
	assert.Equal(t, "data-uri", src.Name)
	assert.Equal(t, data, src.Data)

	cfg.Mask = filepath.Join(dir, "missing.png")
	assert.True(t, startupMask("data:,", cfg).IsDefault())
}
