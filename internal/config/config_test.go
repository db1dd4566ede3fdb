package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ENV", "PORT", "START_BLOCK", "BLOCK_INTERVAL", "KAFKA_BROKERS", "API_SECRET"} {
		k := k
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, uint64(1), cfg.StartBlock)
	assert.Equal(t, 10*time.Second, cfg.BlockInterval)
	assert.Empty(t, cfg.APISecret)
	assert.Nil(t, cfg.KafkaBrokerList())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "9000")
	t.Setenv("START_BLOCK", "12345")
	t.Setenv("BLOCK_INTERVAL", "2s")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, uint64(12345), cfg.StartBlock)
	assert.Equal(t, 2*time.Second, cfg.BlockInterval)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokerList())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"negative start block", "START_BLOCK", "-1"},
		{"garbage interval", "BLOCK_INTERVAL", "soon"},
		{"zero interval", "BLOCK_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
admin = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
start_block = 12345
providers = ["ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"]

[balances]
"ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM" = 1000000
"ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG" = 500
`), 0o600))

	g, err := LoadGenesis(path)
	require.NoError(t, err)
	assert.Equal(t, "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", g.Admin)
	assert.Equal(t, uint64(12345), g.StartBlock)
	assert.Equal(t, []string{"ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"}, g.Providers)
	assert.Equal(t, uint64(1000000), g.Balances["ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"])
	assert.Len(t, g.Balances, 2)
}

func TestLoadGenesisEmptyPath(t *testing.T) {
	g, err := LoadGenesis("")
	require.NoError(t, err)
	assert.Empty(t, g.Admin)
	assert.Empty(t, g.Balances)
}

func TestLoadGenesisErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadGenesis(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "typo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`amdin = "x"`), 0o600))
	_, err = LoadGenesis(path)
	assert.ErrorContains(t, err, "unknown genesis keys")
}
