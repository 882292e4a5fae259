package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientConfig(t *testing.T) {
	t.Run("Should use defaults without environment", func(t *testing.T) {
		cfg, err := LoadClientConfig()
		require.NoError(t, err)

		assert.Equal(t, DefaultURL, cfg.URL)
		assert.Equal(t, DefaultPollTimeout, cfg.PollTimeout)
		assert.Equal(t, DefaultProbeTimeout, cfg.ProbeTimeout)
		assert.Equal(t, DefaultProtocol, cfg.Protocol)
		assert.True(t, strings.HasPrefix(cfg.ClientName, "steadyredis-"))
	})

	t.Run("Should apply environment overrides", func(t *testing.T) {
		t.Setenv("STEADYREDIS_URL", "redis://:secret@cache.internal:6380/2")
		t.Setenv("STEADYREDIS_POLL_TIMEOUT", "250ms")
		t.Setenv("STEADYREDIS_PROTOCOL", "3")
		t.Setenv("STEADYREDIS_CLIENT_NAME", "worker-1")

		cfg, err := LoadClientConfig()
		require.NoError(t, err)

		assert.Equal(t, "redis://:secret@cache.internal:6380/2", cfg.URL)
		assert.Equal(t, 250*time.Millisecond, cfg.PollTimeout)
		assert.Equal(t, 3, cfg.Protocol)
		assert.Equal(t, "worker-1", cfg.ClientName)
		assert.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
	})

	t.Run("Should reject invalid environment values", func(t *testing.T) {
		t.Setenv("STEADYREDIS_PROTOCOL", "4")

		_, err := LoadClientConfig()
		assert.ErrorContains(t, err, "unsupported protocol version")
	})
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr string
	}{
		{"defaults", func(*ClientConfig) {}, ""},
		{"empty url", func(c *ClientConfig) { c.URL = " " }, "url must be specified"},
		{"missing scheme", func(c *ClientConfig) { c.URL = "test/bad/url" }, "invalid url format"},
		{"zero probe timeout", func(c *ClientConfig) { c.ProbeTimeout = 0 }, "probe timeout must be positive"},
		{"negative poll timeout", func(c *ClientConfig) { c.PollTimeout = -time.Second }, "poll timeout must be non-negative"},
		{"blocking poll timeout", func(c *ClientConfig) { c.PollTimeout = 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClientConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("STEADYREDIS_SERVER_PORT", "7000")
	t.Setenv("STEADYREDIS_SERVER_PASSWORD", "hunter2")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "127.0.0.1:7000", cfg.Address())

	cfg.LogLevel = "trace"
	assert.Error(t, cfg.Validate())
}
