// Command cast-emulator runs a local cast device for development.
//
// It generates an ephemeral CA and device certificates at startup,
// listens for cast channels, answers authentication challenges and
// heartbeats, echoes application messages and advertises itself via
// mDNS so cast-ctl can discover it.
//
// Usage:
//
//	cast-emulator [flags]
//
// Flags:
//
//	-listen string   Listen address (default "0.0.0.0:8009")
//	-name string     Advertised friendly name (default "Cast Emulator")
//	-id string       Advertised device id (default random)
//	-ca-out string   Write the generated CA certificate to this PEM file
//	-no-mdns         Disable mDNS advertisement
//	-log-level string  Log level: debug, info, warn, error (default "info")
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"github.com/cast-protocol/cast-go/internal/emulator"
	"github.com/cast-protocol/cast-go/internal/testcert"
	"github.com/cast-protocol/cast-go/pkg/cert"
	"github.com/cast-protocol/cast-go/pkg/discovery"
	castlog "github.com/cast-protocol/cast-go/pkg/log"
)

func main() {
	var (
		listen   = flag.String("listen", "0.0.0.0:8009", "Listen address")
		name     = flag.String("name", "Cast Emulator", "Advertised friendly name")
		deviceID = flag.String("id", "", "Advertised device id (default random)")
		caOut    = flag.String("ca-out", "", "Write the generated CA certificate to this PEM file")
		noMDNS   = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	setupLogging(*logLevel)

	if err := run(*listen, *name, *deviceID, *caOut, *noMDNS); err != nil {
		slog.Error("emulator failed", "err", err)
		os.Exit(1)
	}
}

func run(listen, name, deviceID, caOut string, noMDNS bool) error {
	if deviceID == "" {
		deviceID = uuid.NewString()[:8]
	}

	ca, err := testcert.NewCA("cast-emulator-ca")
	if err != nil {
		return err
	}
	tlsCert, err := ca.Issue("cast-emulator")
	if err != nil {
		return err
	}
	authCert, err := ca.Issue("cast-emulator-auth")
	if err != nil {
		return err
	}

	if caOut != "" {
		if err := cert.WriteCertFile(caOut, ca.Cert); err != nil {
			return err
		}
		slog.Info("wrote CA certificate", "path", caOut)
	}

	device, err := emulator.New(emulator.Config{
		ListenAddr: listen,
		TLSCert:    tlsCert,
		AuthCert:   &authCert,
		Logger:     castlog.NewSlogAdapter(slog.Default()),
	})
	if err != nil {
		return err
	}
	if err := device.Start(); err != nil {
		return err
	}
	defer device.Close()

	slog.Info("device listening",
		"addr", device.Addr(),
		"id", deviceID,
		"tls_fingerprint", cert.Fingerprint(tlsCert.Leaf))

	if !noMDNS {
		advertiser := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
		defer advertiser.Stop()

		port, err := listenPort(device.Addr())
		if err != nil {
			return err
		}
		err = advertiser.Advertise(&discovery.Device{
			InstanceName: "cast-emulator-" + deviceID,
			Port:         port,
			DeviceID:     deviceID,
			FriendlyName: name,
			Model:        "Cast Emulator",
			Version:      "05",
		})
		if err != nil {
			return fmt.Errorf("mdns advertise: %w", err)
		}
		slog.Info("advertising via mDNS", "instance", "cast-emulator-"+deviceID)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
	return nil
}

func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

func setupLogging(level string) {
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	slog.SetDefault(slog.New(handler))
}
