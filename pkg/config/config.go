package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cast-protocol/cast-go/pkg/cert"
	"github.com/cast-protocol/cast-go/pkg/channel"
	"github.com/cast-protocol/cast-go/pkg/transport"
)

// Config is the YAML configuration for a cast client.
type Config struct {
	// Device describes the target device.
	Device DeviceConfig `yaml:"device"`

	// Connection holds connect-phase settings.
	Connection ConnectionConfig `yaml:"connection"`

	// Auth holds device authentication settings.
	Auth AuthConfig `yaml:"auth"`

	// Heartbeat holds keep-alive settings.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	// Discovery holds mDNS browsing settings.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// LogLevel sets logging verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DeviceConfig identifies the device to connect to. Either an explicit
// endpoint or a device id to discover must be set.
type DeviceConfig struct {
	// Endpoint is the device address as host:port. Takes precedence
	// over DeviceID when both are set.
	Endpoint string `yaml:"endpoint"`

	// DeviceID selects a device to find via mDNS.
	DeviceID string `yaml:"device_id"`
}

// ConnectionConfig holds connect-phase settings. Durations use Go
// duration syntax such as "10s" or "1m30s".
type ConnectionConfig struct {
	// ConnectTimeout bounds the whole connect sequence.
	ConnectTimeout string `yaml:"connect_timeout"`

	// MaxMessageSize caps frame bodies in bytes. Zero uses the
	// transport default.
	MaxMessageSize uint32 `yaml:"max_message_size"`
}

// AuthConfig holds device authentication settings.
type AuthConfig struct {
	// Mode selects authentication: "challenge" (default) or "tls-only".
	Mode string `yaml:"mode"`

	// CAFile is a PEM file of trusted CA certificates for device
	// authentication. Empty uses system roots for TLS and rejects
	// all device-auth chains.
	CAFile string `yaml:"ca_file"`
}

// HeartbeatConfig holds keep-alive settings.
type HeartbeatConfig struct {
	// Enabled turns heartbeat monitoring on.
	Enabled bool `yaml:"enabled"`

	// PingInterval is the time between pings.
	PingInterval string `yaml:"ping_interval"`

	// PongTimeout is how long to wait for each pong.
	PongTimeout string `yaml:"pong_timeout"`

	// MaxMissedPongs is how many missed pongs close the channel.
	MaxMissedPongs int `yaml:"max_missed_pongs"`
}

// DiscoveryConfig holds mDNS browsing settings.
type DiscoveryConfig struct {
	// Interface restricts browsing to a named network interface.
	Interface string `yaml:"interface"`
}

// Auth mode values accepted in configuration files.
const (
	AuthModeChallenge = "challenge"
	AuthModeTLSOnly   = "tls-only"
)

// ConfigError describes a configuration problem.
type ConfigError struct {
	File    string
	Field   string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			ConnectTimeout: channel.DefaultConnectTimeout.String(),
		},
		Auth: AuthConfig{
			Mode: AuthModeChallenge,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:        true,
			PingInterval:   transport.DefaultPingInterval.String(),
			PongTimeout:    transport.DefaultPongTimeout.String(),
			MaxMissedPongs: transport.DefaultMaxMissedPongs,
		},
		LogLevel: "info",
	}
}

// Parse parses YAML bytes over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.File = path
			return nil, ce
		}
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values and duration syntax.
func (c *Config) Validate() error {
	if _, err := parseDuration(c.Connection.ConnectTimeout); err != nil {
		return &ConfigError{Field: "connection.connect_timeout", Message: "invalid duration", Cause: err}
	}

	switch c.Auth.Mode {
	case "", AuthModeChallenge, AuthModeTLSOnly:
	default:
		return &ConfigError{
			Field:   "auth.mode",
			Message: fmt.Sprintf("unknown mode %q, want %q or %q", c.Auth.Mode, AuthModeChallenge, AuthModeTLSOnly),
		}
	}

	if c.Heartbeat.Enabled {
		if _, err := parseDuration(c.Heartbeat.PingInterval); err != nil {
			return &ConfigError{Field: "heartbeat.ping_interval", Message: "invalid duration", Cause: err}
		}
		if _, err := parseDuration(c.Heartbeat.PongTimeout); err != nil {
			return &ConfigError{Field: "heartbeat.pong_timeout", Message: "invalid duration", Cause: err}
		}
		if c.Heartbeat.MaxMissedPongs < 0 {
			return &ConfigError{Field: "heartbeat.max_missed_pongs", Message: "must not be negative"}
		}
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return &ConfigError{
			Field:   "log_level",
			Message: fmt.Sprintf("unknown level %q", c.LogLevel),
		}
	}

	return nil
}

// ChannelConfig builds the channel configuration. The CA file is
// loaded here so a bad path surfaces before dialing.
func (c *Config) ChannelConfig() (*channel.Config, error) {
	timeout, err := parseDuration(c.Connection.ConnectTimeout)
	if err != nil {
		return nil, &ConfigError{Field: "connection.connect_timeout", Message: "invalid duration", Cause: err}
	}

	out := &channel.Config{
		Endpoint:       c.Device.Endpoint,
		ConnectTimeout: timeout,
		MaxMessageSize: c.Connection.MaxMessageSize,
	}

	if c.Auth.Mode == AuthModeTLSOnly {
		out.AuthMode = channel.AuthModeTLSOnly
	}

	if c.Auth.CAFile != "" {
		pool, err := cert.LoadCAPool(c.Auth.CAFile)
		if err != nil {
			return nil, &ConfigError{Field: "auth.ca_file", Message: "failed to load CA pool", Cause: err}
		}
		out.TrustedCAs = pool
	}

	if c.Heartbeat.Enabled {
		ka, err := c.keepAliveConfig()
		if err != nil {
			return nil, err
		}
		out.KeepAlive = ka
	}

	return out, nil
}

func (c *Config) keepAliveConfig() (*transport.KeepAliveConfig, error) {
	interval, err := parseDuration(c.Heartbeat.PingInterval)
	if err != nil {
		return nil, &ConfigError{Field: "heartbeat.ping_interval", Message: "invalid duration", Cause: err}
	}
	timeout, err := parseDuration(c.Heartbeat.PongTimeout)
	if err != nil {
		return nil, &ConfigError{Field: "heartbeat.pong_timeout", Message: "invalid duration", Cause: err}
	}

	return &transport.KeepAliveConfig{
		PingInterval:   interval,
		PongTimeout:    timeout,
		MaxMissedPongs: c.Heartbeat.MaxMissedPongs,
	}, nil
}

// parseDuration parses a duration string, treating empty as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
