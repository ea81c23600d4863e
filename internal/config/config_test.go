package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"TEAMCHAT_SERVER_URL",
		"TEAMCHAT_EMAIL",
		"TEAMCHAT_PASSWORD",
		"TEAMCHAT_CHANNEL",
		"TEAMCHAT_REALTIME",
		"TEAMCHAT_CONFIG",
		"DEVICE_NAME",
		"ENVIRONMENT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// setMinimumEnv sets the env vars required for Load to succeed.
func setMinimumEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TEAMCHAT_EMAIL", "test@example.com")
	t.Setenv("TEAMCHAT_PASSWORD", "secret123")
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)
	setMinimumEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.ServerURL)
	assert.True(t, cfg.RealtimeEnabled)
	assert.Equal(t, "development", cfg.Environment)
	assert.NotEmpty(t, cfg.DeviceName, "device name defaults to hostname")
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingEmail(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TEAMCHAT_PASSWORD", "secret123")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEAMCHAT_EMAIL")
}

func TestLoad_MissingPassword(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TEAMCHAT_EMAIL", "test@example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEAMCHAT_PASSWORD")
}

func TestLoad_InvalidServerURL(t *testing.T) {
	clearConfigEnv(t)
	setMinimumEnv(t)
	t.Setenv("TEAMCHAT_SERVER_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEAMCHAT_SERVER_URL")
}

func TestLoad_ConfigFileFillsUnsetVars(t *testing.T) {
	clearConfigEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "teamchat.yaml")
	yaml := "teamchat_email: file@example.com\nteamchat_password: filepass\nteamchat_channel: general\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("TEAMCHAT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file@example.com", cfg.Email)
	assert.Equal(t, "filepass", cfg.Password)
	assert.Equal(t, "general", cfg.Channel)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	clearConfigEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "teamchat.yaml")
	yaml := "teamchat_email: file@example.com\nteamchat_password: filepass\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("TEAMCHAT_CONFIG", path)
	t.Setenv("TEAMCHAT_EMAIL", "env@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", cfg.Email, "process env wins over the config file")
	assert.Equal(t, "filepass", cfg.Password)
}

func TestLoad_ConfigFileMissingIsIgnored(t *testing.T) {
	clearConfigEnv(t)
	setMinimumEnv(t)
	t.Setenv("TEAMCHAT_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.NoError(t, err)
}

func TestLoad_ConfigFileMalformed(t *testing.T) {
	clearConfigEnv(t)
	setMinimumEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "teamchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- broken"), 0o600))

	t.Setenv("TEAMCHAT_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applying config file")
}

func TestRealtimeURL(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{name: "http", server: "http://localhost:8000", want: "ws://localhost:8000"},
		{name: "https", server: "https://chat.example.com", want: "wss://chat.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ServerURL: tt.server}
			assert.Equal(t, tt.want, cfg.RealtimeURL())
		})
	}
}
