package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streamprov.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveDefaultsOnly(t *testing.T) {
	// Point at a directory without a config file; as non-root (or root
	// writing into a temp path) the file location must still be usable.
	path := filepath.Join(t.TempDir(), "streamprov.conf")

	res, err := Resolve(Defaults(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, "mediaserver", res.Config.ServiceUser)
	assert.Equal(t, []int{1935, 8000}, res.Config.Ports)
	assert.True(t, res.Config.StartService)

	if os.Geteuid() == 0 {
		assert.True(t, res.FileCreated)
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	} else {
		assert.False(t, res.FileCreated)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0].Message, "using defaults")
	}
}

func TestResolveFileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
# test config
service_user=svc1
ports=1935, 8000, 8443
min_disk_space_mb=512
start_service=false
cleanup_previous=true
`)

	res, err := Resolve(Defaults(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, "svc1", res.Config.ServiceUser)
	assert.Equal(t, []int{1935, 8000, 8443}, res.Config.Ports)
	assert.Equal(t, 512, res.Config.MinDiskSpaceMB)
	assert.False(t, res.Config.StartService)
	assert.True(t, res.Config.CleanupPrevious)
	assert.Empty(t, res.Warnings)
}

func TestResolveFlagsWinOverFile(t *testing.T) {
	path := writeTempConfig(t, "quiet=false\nforce_cleanup=false\n")

	res, err := Resolve(Defaults(), path, []string{"--quiet", "--force", "--no-rollback", "--dry-run"})
	require.NoError(t, err)

	assert.True(t, res.Config.Quiet)
	assert.True(t, res.Config.ForceCleanup)
	assert.True(t, res.Config.NoRollback)
	assert.True(t, res.Config.DryRun)
}

func TestResolveIgnoresUnrecognizedFlags(t *testing.T) {
	path := writeTempConfig(t, "")

	res, err := Resolve(Defaults(), path, []string{"--totally-unknown", "--quiet"})
	require.NoError(t, err)
	assert.True(t, res.Config.Quiet)
}

func TestResolveUnknownKeysAreWarnings(t *testing.T) {
	path := writeTempConfig(t, "service_user=svc1\nshiny_new_option=yes\nnot a pair\n")

	res, err := Resolve(Defaults(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, "svc1", res.Config.ServiceUser)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0].Message, "shiny_new_option")
	assert.Contains(t, res.Warnings[1].Message, "not a key=value pair")
}

func TestResolveBadValuesFail(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"bad bool", "dry_run=maybe\n", "dry_run"},
		{"bad int", "min_disk_space_mb=lots\n", "min_disk_space_mb"},
		{"bad port", "ports=1935,eighty\n", "ports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.content)
			_, err := Resolve(Defaults(), path, nil)
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigFilePath(t *testing.T) {
	assert.Equal(t, DefaultConfigPath, ConfigFilePath(nil))
	assert.Equal(t, "/tmp/alt.conf", ConfigFilePath([]string{"--quiet", "--config", "/tmp/alt.conf"}))
	assert.Equal(t, DefaultConfigPath, ConfigFilePath([]string{"--unknown-flag"}))
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamprov.conf")
	want := Defaults()
	want.ServiceUser = "svc1"
	want.Ports = []int{9000}

	require.NoError(t, WriteFile(path, want))

	res, err := Resolve(Defaults(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, want, res.Config)
	assert.Empty(t, res.Warnings)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
