package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bellhop", "config.toml")

	require.NoError(t, WriteDefault(path, false))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, section := range []string{"[server]", "[matrix]", "[backends.movie]", "[backends.tv]", "[backends.music]", "[ratelimit]", "[sessions]"} {
		assert.Contains(t, string(content), section)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteDefault_Exists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine"), 0o644))

	err := WriteDefault(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	content, _ := os.ReadFile(path)
	assert.Equal(t, "# mine", string(content))

	require.NoError(t, WriteDefault(path, true))
	content, _ = os.ReadFile(path)
	assert.Contains(t, string(content), "[matrix]")
}

func TestWriteDefault_LoadsWithOnlyHomeserver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(path, false))

	t.Setenv("BELLHOP_ENV_FILE", "")
	for _, name := range []string{
		"MATRIX_AUDIT_ROOM_ID", "MATRIX_BOT_ACCESS_TOKEN",
		"RADARR_URL", "RADARR_API_KEY", "SONARR_URL", "SONARR_API_KEY", "LIDARR_URL", "LIDARR_API_KEY",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("MATRIX_HOMESERVER_URL", "https://matrix.example.org")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://matrix.example.org", cfg.Matrix.HomeserverURL)
	assert.False(t, cfg.Matrix.AuditEnabled())
}
