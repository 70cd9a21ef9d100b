package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithTokenFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_TOKENS", "secret-1,secret-2")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:50051", cfg.Server.Address)
	assert.Equal(t, "127.0.0.1:8091", cfg.Server.AdminAddress)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 1024, cfg.Router.MaxConcurrentRequests)
	assert.Equal(t, 100, cfg.ConnectionPool.MaxConnections)
	assert.Equal(t, 1000, cfg.ReverseConnection.MaxPendingRequests)
	assert.Equal(t, []string{"secret-1", "secret-2"}, cfg.Security.Tokens)
}

func TestLoadWithoutTokensFailsValidation(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"security": {"tokens": ["file-token"]},
		"server": {"address": "127.0.0.1:6000"},
		"router": {"request_timeout": 5}
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6000", cfg.Server.Address)
	assert.Equal(t, 5, cfg.Router.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Router.RequestTimeoutDuration())
	// Keys the file omits keep their defaults.
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 120, cfg.Router.HeartbeatTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"security": {"tokens": ["file-token"]},
		"server": {"log_level": "debug"}
	}`), 0600))

	t.Setenv("GATEWAY_LOG_LEVEL", "warn")
	t.Setenv("GATEWAY_POOL_MAX_CONNECTIONS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, 7, cfg.ConnectionPool.MaxConnections)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Setenv("GATEWAY_TOKENS", "secret")
	t.Setenv("GATEWAY_LOG_LEVEL", "verbose")

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Security.Tokens = []string{"secret"}
	cfg.Server.Address = "127.0.0.1:6001"

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateToken(t *testing.T) {
	cfg := Default()
	cfg.Security.Tokens = []string{"alpha", "beta"}

	assert.True(t, cfg.ValidateToken("alpha"))
	assert.True(t, cfg.ValidateToken("beta"))
	assert.False(t, cfg.ValidateToken("gamma"))
	assert.False(t, cfg.ValidateToken(""))
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30*time.Second, cfg.Router.RequestTimeoutDuration())
	assert.Equal(t, 300*time.Second, cfg.ConnectionPool.ConnectionTTLDuration())
	assert.Equal(t, 60*time.Second, cfg.ConnectionPool.IdleTimeoutDuration())
	assert.Equal(t, 120*time.Second, cfg.ReverseConnection.HeartbeatTimeoutDuration())
	assert.Equal(t, 60*time.Second, cfg.ReverseConnection.CleanupIntervalDuration())
}
