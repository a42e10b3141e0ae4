package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 180*time.Second, cfg.Bridge.QuoteTTL())
	assert.Equal(t, 30*time.Second, cfg.Bridge.StatusCheckInterval())
	assert.Equal(t, 1.0, cfg.Bridge.MinChainValueUsd)
	assert.Equal(t, 0.003, cfg.Bridge.SwapFeeRate)
	assert.Equal(t, 60, cfg.Bridge.MaxStatusChecks)
	assert.Equal(t, 10, cfg.Bridge.TransientRetryLimit)
	assert.Equal(t, []string{"ethereum", "arbitrum"}, cfg.Bridge.HubChains)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 180, cfg.Bridge.QuoteTTLSeconds)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
bridge:
  quote_ttl_seconds: 60
  min_chain_value_usd: 2.5
  hub_chains: [base]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Bridge.QuoteTTLSeconds)
	assert.Equal(t, 2.5, cfg.Bridge.MinChainValueUsd)
	assert.Equal(t, []string{"base"}, cfg.Bridge.HubChains)
	// untouched knobs keep their defaults
	assert.Equal(t, 60, cfg.Bridge.MaxStatusChecks)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr())
}

func TestLoadConfigRejectsBrokenTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bridge:
  quote_ttl_seconds: -1
`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
