package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractConfigFlag_LongForm(t *testing.T) {
	path, rest := extractConfigFlag([]string{"-config", "foo.yaml", "bar.nt"})
	assert.Equal(t, "foo.yaml", path)
	assert.Equal(t, []string{"bar.nt"}, rest)
}

func TestExtractConfigFlag_EqualsForm(t *testing.T) {
	path, rest := extractConfigFlag([]string{"-config=foo.yaml", "bar.nt"})
	assert.Equal(t, "foo.yaml", path)
	assert.Equal(t, []string{"bar.nt"}, rest)
}

func TestExtractConfigFlag_Absent(t *testing.T) {
	path, rest := extractConfigFlag([]string{"bar.nt"})
	assert.Equal(t, "", path)
	assert.Equal(t, []string{"bar.nt"}, rest)
}

func TestResolveConfig_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := resolveConfig("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Server.Listen)
}

func TestResolveConfig_LoadsGivenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \"0.0.0.0:1234\"\n"), 0o644))

	cfg, err := resolveConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:1234", cfg.Server.Listen)
}

func TestResolveConfig_MissingFileErrors(t *testing.T) {
	_, err := resolveConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
