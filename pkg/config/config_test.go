package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDataDir_CustomPathWins(t *testing.T) {
	t.Setenv(DataDirEnvVar, "/env/path")
	dir, err := ResolveDataDir("/custom/path")
	require.NoError(t, err)
	assert.Equal(t, "/custom/path", dir)
}

func TestResolveDataDir_EnvVarOverPlatformDefault(t *testing.T) {
	t.Setenv(DataDirEnvVar, "/env/path")
	dir, err := ResolveDataDir("")
	require.NoError(t, err)
	assert.Equal(t, "/env/path", dir)
}

func TestResolveDataDir_PlatformDefault(t *testing.T) {
	t.Setenv(DataDirEnvVar, "")
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	dir, err := ResolveDataDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, defaultDirName), dir)
}

func TestEnsureDataDir_CreatesDirectory(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "nested", "subspace")

	dir, err := EnsureDataDir(target)
	require.NoError(t, err)
	assert.Equal(t, target, dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDefaultPlotOptions(t *testing.T) {
	opts := DefaultPlotOptions("/data", 1000)
	assert.Equal(t, "/data/plot.bin", opts.Path)
	assert.Equal(t, "/data/plot-tags.db", opts.TagIndexPath)
	assert.Equal(t, uint64(1000), opts.MaxPieces)
}

func TestIdentityPath(t *testing.T) {
	assert.Equal(t, "/data/identity.bin", IdentityPath("/data"))
}
