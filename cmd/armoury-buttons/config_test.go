package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults(t *testing.T) *Config {
	t.Helper()

	cfg := &Config{}
	require.NotNil(t, newCmd(cfg))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaults(t)

	require.NoError(t, cfg.validate())
	assert.Equal(t, 2*time.Second, cfg.timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.debounce)
	assert.Equal(t, map[string]int64{"P1": 1, "P2": 2, "P3": 3, "P4": 4}, cfg.playerMap())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad scheme", func(c *Config) { c.server = "ftp://table" }, "invalid server url"},
		{"no host", func(c *Config) { c.server = "http://" }, "invalid server url"},
		{"two sources", func(c *Config) { c.device = "/dev/ttyUSB0"; c.dial = "bridge:9000" }, "mutually exclusive"},
		{"zero timeout", func(c *Config) { c.timeout = 0 }, "invalid timeout"},
		{"negative debounce", func(c *Config) { c.debounce = -time.Second }, "invalid debounce"},
		{"backoff inverted", func(c *Config) { c.backoffMax = time.Millisecond }, "invalid backoff"},
		{"no queue", func(c *Config) { c.queue = 0 }, "invalid queue"},
		{"no players", func(c *Config) { c.players = map[string]int{} }, "--player"},
		{"bad character", func(c *Config) { c.players = map[string]int{"P1": 0} }, "invalid character id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults(t)
			tc.mutate(cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPlayerMapNormalisesKeys(t *testing.T) {
	cfg := &Config{players: map[string]int{" p1 ": 7, "P2": 8}}

	assert.Equal(t, map[string]int64{"P1": 7, "P2": 8}, cfg.playerMap())
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("ARMOURY_SERVER", "http://dm-laptop:5000/table")
	t.Setenv("ARMOURY_DEBOUNCE", "350ms")

	cfg := defaults(t)

	assert.Equal(t, "http://dm-laptop:5000/table", cfg.server)
	assert.Equal(t, 350*time.Millisecond, cfg.debounce)
}
