package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/lacewing/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.InferParensMaxIterations)
	assert.Equal(t, "__g", cfg.GensymPrefix)
	assert.EqualValues(t, 0, cfg.GensymSeed)
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lacewing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gensym_prefix: mac-\nmax_steps: 1000\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mac-", cfg.GensymPrefix)
	assert.EqualValues(t, 1000, cfg.MaxSteps)
	assert.Equal(t, 8, cfg.InferParensMaxIterations, "unset fields keep their struct-tag default")
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lacewing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gensym_prefix: mac-\n"), 0o644))

	t.Setenv("LACEWING_GENSYM_PREFIX", "env-")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-", cfg.GensymPrefix)
}
