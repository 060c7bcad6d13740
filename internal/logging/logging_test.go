package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamprov.log")

	tr, err := Open(path, true)
	require.NoError(t, err)

	tr.Logger.Info("phase completed", "phase", "deploy", "progress", "8/13")
	require.NoError(t, tr.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "phase completed")
	assert.Contains(t, string(data), `"phase"="deploy"`)
}

func TestOpenFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamprov.log")

	tr, err := Open(path, true)
	require.NoError(t, err)
	defer tr.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o660), info.Mode().Perm())
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamprov.log")

	tr, err := Open(path, true)
	require.NoError(t, err)
	tr.Logger.Info("first run")
	require.NoError(t, tr.Close())

	tr, err = Open(path, true)
	require.NoError(t, err)
	tr.Logger.Info("second run")
	require.NoError(t, tr.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
}

func TestOpenUnwritablePathDegradesWhenNotQuiet(t *testing.T) {
	tr, err := Open("/proc/definitely/not/writable.log", false)
	require.NoError(t, err)
	defer tr.Close()

	// Must not panic with only the console sink.
	tr.Logger.Info("still alive")
}

func TestOpenUnwritablePathFailsInQuietMode(t *testing.T) {
	_, err := Open("/proc/definitely/not/writable.log", true)
	assert.Error(t, err)
}
