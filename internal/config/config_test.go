package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Greater(t, cfg.NProc, 0)
	assert.Equal(t, 2*cfg.NProc, cfg.BatchSize)
	assert.Equal(t, "http://localhost:8070", cfg.GrobidURL)
	assert.Equal(t, "http://localhost:9998", cfg.TikaServerURL)
	assert.Equal(t, "NO_OCR", cfg.TikaOCRStrategy)
	assert.Equal(t, EngineTika, cfg.PDFEngine)
	assert.Equal(t, 30, cfg.MaxPages)
	assert.Equal(t, 3, cfg.VisualMaxPages)
	assert.Equal(t, 2000, cfg.SimpleChunkerMaxLength)
	assert.Equal(t, 0, cfg.ChunkOverlap)
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdferret.yml"), []byte(
		"nproc: 4\npdfEngine: grobid\ngrobidUrl: http://grobid:8070\nmaxPages: 10\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NProc)
	assert.Equal(t, 8, cfg.BatchSize, "batch size follows nproc")
	assert.Equal(t, EngineGrobid, cfg.PDFEngine)
	assert.Equal(t, "http://grobid:8070", cfg.GrobidURL)
	assert.Equal(t, 10, cfg.MaxPages)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdferret.yaml"), []byte(
		"tikaServerUrl: http://from-file:9998\nvisualMaxPages: 2\n"), 0o644))
	t.Setenv("PDFERRET_TIKA_SERVER_URL", "http://from-env:9998")
	t.Setenv("PDFERRET_VISUAL_MAX_PAGES", "5")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "http://from-env:9998", cfg.TikaServerURL)
	assert.Equal(t, 5, cfg.VisualMaxPages)
}

func TestLoad_MalformedEnvInteger(t *testing.T) {
	t.Setenv("PDFERRET_NPROC", "many")

	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDFERRET_NPROC")
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdferret.yml"), []byte("nproc: [oops\n"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
}

func TestDefault_IsUsableAsIs(t *testing.T) {
	cfg := Default()

	assert.Equal(t, EngineTika, cfg.PDFEngine)
	assert.NotEmpty(t, cfg.TikaServerURL)
}
