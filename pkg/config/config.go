// Package config provides configuration management for the SteadyRedis client
// and the embedded development server.
//
// Configuration is layered with the following precedence:
//  1. Programmatic changes to the returned struct (highest priority)
//  2. Environment variables
//  3. Default values (lowest priority)
//
// Client Configuration:
//   - Connection URL in the form redis://[:password@]host[:port][/db]
//   - Dial, read, write and liveness probe timeouts
//   - Default polling time for subscription fetch loops
//   - RESP protocol version and client name
//
// Example client usage:
//
//	cfg, err := config.LoadClientConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	cfg.URL = "redis://:secret@cache.internal:6379/2"
//	c, err := client.NewWithConfig(cfg)
//
// Environment variables are prefixed with "STEADYREDIS_" and use uppercase
// names, for example STEADYREDIS_URL or STEADYREDIS_POLL_TIMEOUT=250ms. Server
// variables use the "STEADYREDIS_SERVER_" prefix.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Default configuration values
const (
	DefaultURL          = "redis://127.0.0.1:6379/0"
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
	DefaultProbeTimeout = 2 * time.Second
	DefaultPollTimeout  = 5000 * time.Millisecond
	DefaultProtocol     = 2
	DefaultServerHost   = "127.0.0.1"
	DefaultServerPort   = 6379
	DefaultLogLevel     = "info"

	ClientEnvPrefix = "STEADYREDIS_"
	ServerEnvPrefix = "STEADYREDIS_SERVER_"
)

// ClientConfig holds all configuration options for a SteadyRedis client.
//
// Example:
//
//	cfg := config.DefaultClientConfig()
//	cfg.URL = "redis://127.0.0.1:6380/"
//	cfg.PollTimeout = 250 * time.Millisecond
//	c, err := client.NewWithConfig(cfg)
type ClientConfig struct {
	URL          string        `koanf:"url"`           // Connection string (default: redis://127.0.0.1:6379/0)
	ClientName   string        `koanf:"client_name"`   // CLIENT SETNAME value (default: steadyredis-<id>)
	DialTimeout  time.Duration `koanf:"dial_timeout"`  // Timeout for opening a connection (default: 5s)
	ReadTimeout  time.Duration `koanf:"read_timeout"`  // Command reply timeout (default: 3s)
	WriteTimeout time.Duration `koanf:"write_timeout"` // Command write timeout (default: 3s)
	ProbeTimeout time.Duration `koanf:"probe_timeout"` // Bound on the liveness PING (default: 2s)
	PollTimeout  time.Duration `koanf:"poll_timeout"`  // Fetch loop read timeout when the caller gives none (default: 5s)
	Protocol     int           `koanf:"protocol"`      // RESP version, 2 or 3 (default: 2)
}

// ServerConfig holds the options of the embedded development server.
type ServerConfig struct {
	Host     string `koanf:"host"`      // Host address to bind to (default: "127.0.0.1")
	Password string `koanf:"password"`  // Require AUTH with this password when set
	LogLevel string `koanf:"log_level"` // Log level: debug, info, warn, error (default: "info")
	Port     int    `koanf:"port"`      // TCP port to listen on, 0 picks a free port (default: 6379)
}

// DefaultClientConfig returns the built-in client defaults. Every call
// generates a fresh client name.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		URL:          DefaultURL,
		ClientName:   "steadyredis-" + strings.SplitN(uuid.NewString(), "-", 2)[0],
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		ProbeTimeout: DefaultProbeTimeout,
		PollTimeout:  DefaultPollTimeout,
		Protocol:     DefaultProtocol,
	}
}

// DefaultServerConfig returns the built-in development server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:     DefaultServerHost,
		Port:     DefaultServerPort,
		LogLevel: DefaultLogLevel,
	}
}

// LoadClientConfig loads defaults and applies STEADYREDIS_* environment
// variables on top. The result is validated.
//
// Environment variables:
//
//	STEADYREDIS_URL: Connection string
//	STEADYREDIS_CLIENT_NAME: Client name
//	STEADYREDIS_DIAL_TIMEOUT: Dial timeout (Go duration)
//	STEADYREDIS_READ_TIMEOUT: Read timeout
//	STEADYREDIS_WRITE_TIMEOUT: Write timeout
//	STEADYREDIS_PROBE_TIMEOUT: Liveness probe timeout
//	STEADYREDIS_POLL_TIMEOUT: Default fetch polling time
//	STEADYREDIS_PROTOCOL: RESP version
func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := load(ClientEnvPrefix, DefaultClientConfig(), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	return cfg, nil
}

// LoadServerConfig loads development server defaults and applies
// STEADYREDIS_SERVER_* environment variables.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := load(ServerEnvPrefix, DefaultServerConfig(), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return cfg, nil
}

func load(prefix string, defaults, out any) error {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: prefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, prefix)), value
		},
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", out, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           out,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return nil
}

// Address returns the "host:port" the development server binds to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the ServerConfig contains valid values.
//
// Validation rules:
//   - Port must be between 0 and 65535 (0 picks a free port)
//   - LogLevel must be one of: debug, info, warn, error
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Validate checks if the ClientConfig contains valid values.
//
// Validation rules:
//   - URL must be non-empty and carry a scheme
//   - Dial, read, write and probe timeouts must be positive
//   - PollTimeout must be non-negative (0 blocks until a message arrives)
//   - Protocol must be 2 or 3
//
// The URL itself is parsed by the transport when the client is created.
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("url must be specified")
	}
	if !strings.Contains(c.URL, "://") {
		return fmt.Errorf("invalid url format: %s", c.URL)
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"dial timeout", c.DialTimeout},
		{"read timeout", c.ReadTimeout},
		{"write timeout", c.WriteTimeout},
		{"probe timeout", c.ProbeTimeout},
	}
	for _, to := range timeouts {
		if to.value <= 0 {
			return fmt.Errorf("%s must be positive: %s", to.name, to.value)
		}
	}

	if c.PollTimeout < 0 {
		return fmt.Errorf("poll timeout must be non-negative: %s", c.PollTimeout)
	}

	if c.Protocol != 2 && c.Protocol != 3 {
		return fmt.Errorf("unsupported protocol version: %d", c.Protocol)
	}

	return nil
}
