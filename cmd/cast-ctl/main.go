// Command cast-ctl is an interactive console for cast devices.
//
// It discovers devices via mDNS, opens authenticated cast channels and
// sends namespaced messages from a readline prompt.
//
// Usage:
//
//	cast-ctl [flags]
//
// Flags:
//
//	-config string     Configuration file path (YAML)
//	-endpoint string   Device address as host:port (overrides config)
//	-ca string         PEM file with trusted CA certificates
//	-tls-only          Skip the device authentication challenge
//	-log-level string  Log level: debug, info, warn, error
//
// Examples:
//
//	# Discover devices, then connect from the prompt
//	cast-ctl
//
//	# Connect straight to a known device
//	cast-ctl -endpoint 192.168.1.50:8009 -ca ./device-ca.pem
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cast-protocol/cast-go/cmd/cast-ctl/interactive"
	"github.com/cast-protocol/cast-go/pkg/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path (YAML)")
		endpoint   = flag.String("endpoint", "", "Device address as host:port")
		caFile     = flag.String("ca", "", "PEM file with trusted CA certificates")
		tlsOnly    = flag.Bool("tls-only", false, "Skip the device authentication challenge")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cast-ctl: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the config file.
	if *endpoint != "" {
		cfg.Device.Endpoint = *endpoint
	}
	if *caFile != "" {
		cfg.Auth.CAFile = *caFile
	}
	if *tlsOnly {
		cfg.Auth.Mode = config.AuthModeTLSOnly
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "cast-ctl: %v\n", err)
		os.Exit(1)
	}

	console, err := interactive.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cast-ctl: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel, console)

	if err := console.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "cast-ctl: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// setupLogging routes slog through the console's readline-aware writer.
func setupLogging(level string, console *interactive.Console) {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	handler := slog.NewTextHandler(console.Stderr(), &slog.HandlerOptions{Level: lv})
	slog.SetDefault(slog.New(handler))
}
