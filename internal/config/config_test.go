package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

// allConfigKeys lists every GHNOTIFY_ env var that Load() reads.
var allConfigKeys = []string{
	"GHNOTIFY_LISTEN_ADDR",
	"GHNOTIFY_DB_PATH",
	"GHNOTIFY_SECRET_KEY",
	"GHNOTIFY_GITHUB_TOKEN",
	"GHNOTIFY_GITHUB_API_URL",
	"GHNOTIFY_SETTINGS_FILE",
	"GHNOTIFY_LOG_LEVEL",
}

// isolateConfigEnv saves and unsets all GHNOTIFY_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores them.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := LoadFiles()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7077", cfg.ListenAddr)
	assert.Equal(t, "ghnotify.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey)
	assert.Empty(t, cfg.SettingsFile)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.HasBootstrapToken())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GHNOTIFY_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("GHNOTIFY_DB_PATH", "/tmp/test.db")
	t.Setenv("GHNOTIFY_SECRET_KEY", validKey)
	t.Setenv("GHNOTIFY_GITHUB_TOKEN", " ghp_test123 ")
	t.Setenv("GHNOTIFY_GITHUB_API_URL", "https://ghe.example.com/api/v3/")
	t.Setenv("GHNOTIFY_SETTINGS_FILE", "/etc/ghnotify/settings.yaml")
	t.Setenv("GHNOTIFY_LOG_LEVEL", "debug")

	cfg, err := LoadFiles()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Len(t, cfg.SecretKey, 32)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.True(t, cfg.HasBootstrapToken())
	assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.GitHubAPIURL)
	assert.Equal(t, "/etc/ghnotify/settings.yaml", cfg.SettingsFile)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_SecretKeyErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"too short", "deadbeef"},
		{"not hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("GHNOTIFY_SECRET_KEY", tt.key)

			cfg, err := LoadFiles()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "GHNOTIFY_SECRET_KEY")
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GHNOTIFY_LOG_LEVEL", "chatty")

	cfg, err := LoadFiles()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHNOTIFY_LOG_LEVEL")
}

func TestLoad_TokenWithoutKey(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GHNOTIFY_GITHUB_TOKEN", "ghp_test123")

	cfg, err := LoadFiles()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHNOTIFY_SECRET_KEY")
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GHNOTIFY_LISTEN_ADDR", "127.0.0.1:9999")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GHNOTIFY_DB_PATH=/var/lib/ghnotify/state.db\nGHNOTIFY_LISTEN_ADDR=0.0.0.0:1\n"), 0o600))

	cfg, err := LoadFiles(path)

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ghnotify/state.db", cfg.DBPath)
	// Already-set variables are not overridden by the file.
	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
}

func TestLoad_MissingDotEnvIgnored(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
}
