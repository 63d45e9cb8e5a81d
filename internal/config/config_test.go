package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VERMIETER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "simulated", cfg.Provider.Mode)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "@every 6h", cfg.Sync.Schedule)
	require.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
	require.Equal(t, 20*time.Second, cfg.Provider.Timeout)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[database]
path = "/tmp/vermieter-test.db"

[provider]
mode = "http"
base_url = "https://bank.example"

[sync]
schedule = "@every 1h"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("VERMIETER_CONFIG", path)
	t.Setenv("VERMIETER_HTTP_ADDR", ":9999")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/vermieter-test.db", cfg.Database.Path)
	require.Equal(t, "https://bank.example", cfg.Provider.BaseURL)
	require.Equal(t, "@every 1h", cfg.Sync.Schedule)
	require.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestValidateProviderMode(t *testing.T) {
	t.Parallel()

	require.Error(t, Config{Provider: ProviderConfig{Mode: "fints"}}.Validate())
	require.Error(t, Config{Provider: ProviderConfig{Mode: "http"}}.Validate())
	require.NoError(t, Config{Provider: ProviderConfig{Mode: "http", BaseURL: "http://x"}}.Validate())
}
