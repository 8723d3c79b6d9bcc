package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cast-protocol/cast-go/pkg/channel"
	"github.com/cast-protocol/cast-go/pkg/config"
)

func TestParseBasic(t *testing.T) {
	yaml := `
device:
  endpoint: 192.168.1.10:8009
connection:
  connect_timeout: 15s
  max_message_size: 131072
auth:
  mode: challenge
log_level: debug
`
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if cfg.Device.Endpoint != "192.168.1.10:8009" {
		t.Errorf("Endpoint mismatch: got %s", cfg.Device.Endpoint)
	}
	if cfg.Connection.ConnectTimeout != "15s" {
		t.Errorf("ConnectTimeout mismatch: got %s", cfg.Connection.ConnectTimeout)
	}
	if cfg.Connection.MaxMessageSize != 131072 {
		t.Errorf("MaxMessageSize mismatch: got %d", cfg.Connection.MaxMessageSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel mismatch: got %s", cfg.LogLevel)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte("device:\n  device_id: a1b2c3d4\n"))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if cfg.Connection.ConnectTimeout != "10s" {
		t.Errorf("ConnectTimeout default mismatch: got %s", cfg.Connection.ConnectTimeout)
	}
	if cfg.Auth.Mode != config.AuthModeChallenge {
		t.Errorf("Auth mode default mismatch: got %s", cfg.Auth.Mode)
	}
	if !cfg.Heartbeat.Enabled {
		t.Error("Heartbeat should be enabled by default")
	}
	if cfg.Heartbeat.PingInterval != "30s" {
		t.Errorf("PingInterval default mismatch: got %s", cfg.Heartbeat.PingInterval)
	}
	if cfg.Heartbeat.MaxMissedPongs != 3 {
		t.Errorf("MaxMissedPongs default mismatch: got %d", cfg.Heartbeat.MaxMissedPongs)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := config.Parse([]byte("connection:\n  connect_timeout: soon\n"))
	if err == nil {
		t.Fatal("Expected error for invalid duration")
	}
}

func TestParseUnknownAuthMode(t *testing.T) {
	_, err := config.Parse([]byte("auth:\n  mode: none\n"))
	if err == nil {
		t.Fatal("Expected error for unknown auth mode")
	}
}

func TestParseUnknownLogLevel(t *testing.T) {
	_, err := config.Parse([]byte("log_level: loud\n"))
	if err == nil {
		t.Fatal("Expected error for unknown log level")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := config.Parse([]byte("device: [unterminated"))
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestChannelConfig(t *testing.T) {
	yaml := `
device:
  endpoint: castbox.local:8009
connection:
  connect_timeout: 20s
  max_message_size: 65536
auth:
  mode: tls-only
heartbeat:
  enabled: true
  ping_interval: 10s
  pong_timeout: 2s
  max_missed_pongs: 5
`
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	cc, err := cfg.ChannelConfig()
	if err != nil {
		t.Fatalf("Failed to build channel config: %v", err)
	}

	if cc.Endpoint != "castbox.local:8009" {
		t.Errorf("Endpoint mismatch: got %s", cc.Endpoint)
	}
	if cc.ConnectTimeout != 20*time.Second {
		t.Errorf("ConnectTimeout mismatch: got %v", cc.ConnectTimeout)
	}
	if cc.MaxMessageSize != 65536 {
		t.Errorf("MaxMessageSize mismatch: got %d", cc.MaxMessageSize)
	}
	if cc.AuthMode != channel.AuthModeTLSOnly {
		t.Errorf("AuthMode mismatch: got %v", cc.AuthMode)
	}
	if cc.KeepAlive == nil {
		t.Fatal("Expected keep-alive config")
	}
	if cc.KeepAlive.PingInterval != 10*time.Second {
		t.Errorf("PingInterval mismatch: got %v", cc.KeepAlive.PingInterval)
	}
	if cc.KeepAlive.MaxMissedPongs != 5 {
		t.Errorf("MaxMissedPongs mismatch: got %d", cc.KeepAlive.MaxMissedPongs)
	}
}

func TestChannelConfigHeartbeatDisabled(t *testing.T) {
	cfg, err := config.Parse([]byte("heartbeat:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	cc, err := cfg.ChannelConfig()
	if err != nil {
		t.Fatalf("Failed to build channel config: %v", err)
	}
	if cc.KeepAlive != nil {
		t.Error("Expected no keep-alive config")
	}
}

func TestChannelConfigMissingCAFile(t *testing.T) {
	cfg, err := config.Parse([]byte("auth:\n  ca_file: /nonexistent/ca.pem\n"))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if _, err := cfg.ChannelConfig(); err == nil {
		t.Fatal("Expected error for missing CA file")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	content := "device:\n  endpoint: 10.0.0.2:8009\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Device.Endpoint != "10.0.0.2:8009" {
		t.Errorf("Endpoint mismatch: got %s", cfg.Device.Endpoint)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/client.yaml"); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
