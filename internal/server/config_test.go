package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "blackjackd.db", cfg.Server.DBPath)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.True(t, cfg.Game.Enabled)
	assert.Equal(t, int64(10), cfg.Game.MinBet)
	assert.Equal(t, int64(1000), cfg.Game.MaxBet)
	assert.Equal(t, 10*time.Minute, cfg.TTL())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blackjackd.hcl")
	content := `
server {
  address   = ":9090"
  db_path   = "/tmp/test.db"
  log_level = "debug"
}

game {
  enabled     = true
  min_bet     = 25
  max_bet     = 5000
  ttl_minutes = 30
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "/tmp/test.db", cfg.Server.DBPath)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.True(t, cfg.Game.Enabled)
	assert.Equal(t, int64(25), cfg.Game.MinBet)
	assert.Equal(t, int64(5000), cfg.Game.MaxBet)
	assert.Equal(t, 30*time.Minute, cfg.TTL())
}

func TestLoadConfigPartialFileFillsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.hcl")
	content := `
server {
  address = ":7000"
}

game {
  enabled = true
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, "blackjackd.db", cfg.Server.DBPath)
	assert.Equal(t, int64(10), cfg.Game.MinBet)
	assert.Equal(t, int64(1000), cfg.Game.MaxBet)
	assert.Equal(t, 10, cfg.Game.TTLMinutes)
}

func TestLoadConfigBadHCL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero min bet", func(c *Config) { c.Game.MinBet = 0 }, false},
		{"negative min bet", func(c *Config) { c.Game.MinBet = -5 }, false},
		{"max below min", func(c *Config) { c.Game.MaxBet = 5 }, false},
		{"zero ttl", func(c *Config) { c.Game.TTLMinutes = 0 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
