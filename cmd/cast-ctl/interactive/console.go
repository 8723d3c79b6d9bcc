// Package interactive implements the cast-ctl command prompt.
package interactive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/cast-protocol/cast-go/pkg/cert"
	"github.com/cast-protocol/cast-go/pkg/channel"
	"github.com/cast-protocol/cast-go/pkg/config"
	"github.com/cast-protocol/cast-go/pkg/discovery"
	"github.com/cast-protocol/cast-go/pkg/log"
	"github.com/cast-protocol/cast-go/pkg/wire"
)

const defaultDiscoverWait = 5 * time.Second

// Console is the interactive cast-ctl session.
type Console struct {
	cfg *config.Config
	rl  *readline.Instance

	mu      sync.Mutex
	socket  *channel.Socket
	devices []*discovery.Device
}

// New creates a console. Run starts the prompt loop.
func New(cfg *config.Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cast> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{cfg: cfg, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that coordinates with the prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads and dispatches commands until exit or EOF.
func (c *Console) Run() error {
	defer c.rl.Close()
	defer c.disconnect()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "discover", "d":
			c.cmdDiscover(args)

		case "connect", "c":
			c.cmdConnect(args)

		case "send", "s":
			c.cmdSend(args)

		case "status":
			c.cmdStatus()

		case "events", "e":
			c.cmdEvents()

		case "close":
			c.disconnect()

		case "exit", "quit", "q":
			return nil

		default:
			fmt.Fprintf(c.Stdout(), "Unknown command %q, try 'help'\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.Stdout(), `Commands:
  discover [seconds]        Browse for cast devices via mDNS
  connect [target]          Connect to a device: index from discover,
                            host:port, or the configured endpoint
  send <namespace> <text>   Send a text message on a namespace
  status                    Show channel state and peer certificate
  events                    Show recent protocol events
  close                     Close the channel
  exit                      Quit
`)
}

func (c *Console) cmdDiscover(args []string) {
	wait := defaultDiscoverWait
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintf(c.Stdout(), "Invalid duration %q\n", args[0])
			return
		}
		wait = time.Duration(secs) * time.Second
	}

	browser := discovery.NewBrowser(discovery.BrowserConfig{
		Interface: c.cfg.Discovery.Interface,
	})

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	found, err := browser.Browse(ctx)
	if err != nil {
		fmt.Fprintf(c.Stdout(), "Discovery failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.Stdout(), "Browsing for %v...\n", wait)
	var devices []*discovery.Device
	for device := range found {
		devices = append(devices, device)
		fmt.Fprintf(c.Stdout(), "  [%d] %s\n", len(devices)-1, device)
	}

	c.mu.Lock()
	c.devices = devices
	c.mu.Unlock()

	if len(devices) == 0 {
		fmt.Fprintln(c.Stdout(), "No devices found")
	}
}

func (c *Console) cmdConnect(args []string) {
	endpoint, err := c.resolveTarget(args)
	if err != nil {
		fmt.Fprintf(c.Stdout(), "%v\n", err)
		return
	}

	chanCfg, err := c.cfg.ChannelConfig()
	if err != nil {
		fmt.Fprintf(c.Stdout(), "Bad configuration: %v\n", err)
		return
	}
	chanCfg.Endpoint = endpoint
	chanCfg.Logger = log.NewSlogAdapter(slog.Default())

	c.disconnect()

	s := channel.New(*chanCfg, c)

	done := make(chan error, 1)
	s.Connect(func(err error) { done <- err })
	if err := <-done; err != nil {
		fmt.Fprintf(c.Stdout(), "Connect to %s failed: %v (%v)\n", endpoint, err, s.ErrorState())
		return
	}

	c.mu.Lock()
	c.socket = s
	c.mu.Unlock()

	fmt.Fprintf(c.Stdout(), "Connected to %s\n", endpoint)
	if info := cert.GetInfo(s.PeerCertificate()); info != nil {
		fmt.Fprintf(c.Stdout(), "Peer certificate: CN=%s fingerprint=%s\n", info.CommonName, info.Fingerprint)
	}
}

// resolveTarget picks the endpoint to dial: an index into the last
// discover results, an explicit host:port, or the configured device.
func (c *Console) resolveTarget(args []string) (string, error) {
	c.mu.Lock()
	devices := c.devices
	c.mu.Unlock()

	if len(args) == 0 {
		if c.cfg.Device.Endpoint != "" {
			return c.cfg.Device.Endpoint, nil
		}
		if c.cfg.Device.DeviceID != "" {
			for _, d := range devices {
				if d.DeviceID == c.cfg.Device.DeviceID {
					return d.Endpoint(), nil
				}
			}
			return "", fmt.Errorf("device %q not in discover results, run 'discover' first", c.cfg.Device.DeviceID)
		}
		return "", fmt.Errorf("no target: pass an index or host:port, or configure an endpoint")
	}

	target := args[0]
	if idx, err := strconv.Atoi(target); err == nil {
		if idx < 0 || idx >= len(devices) {
			return "", fmt.Errorf("index %d out of range, run 'discover' first", idx)
		}
		return devices[idx].Endpoint(), nil
	}
	return target, nil
}

func (c *Console) cmdSend(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.Stdout(), "Usage: send <namespace> <text>")
		return
	}

	c.mu.Lock()
	s := c.socket
	c.mu.Unlock()
	if s == nil {
		fmt.Fprintln(c.Stdout(), "Not connected")
		return
	}

	namespace := args[0]
	payload := strings.Join(args[1:], " ")

	done := make(chan error, 1)
	s.SendMessage(wire.NewTextMessage(namespace, payload), func(err error) { done <- err })
	if err := <-done; err != nil {
		fmt.Fprintf(c.Stdout(), "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.Stdout(), "Sent %d bytes on %s\n", len(payload), namespace)
}

func (c *Console) cmdStatus() {
	c.mu.Lock()
	s := c.socket
	c.mu.Unlock()
	if s == nil {
		fmt.Fprintln(c.Stdout(), "Not connected")
		return
	}

	fmt.Fprintf(c.Stdout(), "Endpoint:    %s\n", s.Endpoint())
	fmt.Fprintf(c.Stdout(), "Ready state: %v\n", s.ReadyState())
	fmt.Fprintf(c.Stdout(), "Error state: %v\n", s.ErrorState())
	if info := cert.GetInfo(s.PeerCertificate()); info != nil {
		fmt.Fprintf(c.Stdout(), "Peer cert:   CN=%s issuer=%s expires=%s\n",
			info.CommonName, info.Issuer, info.NotAfter.Format(time.RFC3339))
	}
}

func (c *Console) cmdEvents() {
	c.mu.Lock()
	s := c.socket
	c.mu.Unlock()
	if s == nil {
		fmt.Fprintln(c.Stdout(), "Not connected")
		return
	}

	events := s.RecentEvents()
	if len(events) == 0 {
		fmt.Fprintln(c.Stdout(), "No events")
		return
	}
	for _, ev := range events {
		c.printEvent(ev)
	}
}

func (c *Console) printEvent(ev log.Event) {
	ts := ev.Timestamp.Format("15:04:05.000")
	switch {
	case ev.Frame != nil:
		fmt.Fprintf(c.Stdout(), "%s %-3s frame %d bytes %s\n", ts, ev.Direction, ev.Frame.Size, ev.Frame.Namespace)
	case ev.StateChange != nil:
		fmt.Fprintf(c.Stdout(), "%s     %s %s -> %s (%s)\n", ts,
			ev.StateChange.Entity, ev.StateChange.OldState, ev.StateChange.NewState, ev.StateChange.Reason)
	case ev.Error != nil:
		fmt.Fprintf(c.Stdout(), "%s     error: %s (%s)\n", ts, ev.Error.Message, ev.Error.Context)
	default:
		fmt.Fprintf(c.Stdout(), "%s     %s\n", ts, ev.Category)
	}
}

func (c *Console) disconnect() {
	c.mu.Lock()
	s := c.socket
	c.socket = nil
	c.mu.Unlock()
	if s == nil {
		return
	}

	done := make(chan struct{})
	s.Close(func(error) { close(done) })
	<-done
	fmt.Fprintln(c.Stdout(), "Channel closed")
}

// OnMessage implements channel.Delegate.
func (c *Console) OnMessage(s *channel.Socket, msg *wire.Message) {
	if msg.PayloadType == wire.PayloadBinary {
		fmt.Fprintf(c.Stdout(), "<- %s: %d binary bytes\n", msg.Namespace, len(msg.PayloadBinary))
		return
	}
	fmt.Fprintf(c.Stdout(), "<- %s: %s\n", msg.Namespace, msg.PayloadUTF8)
}

// OnError implements channel.Delegate.
func (c *Console) OnError(s *channel.Socket, state channel.ErrorState, events []log.Event) {
	fmt.Fprintf(c.Stdout(), "Channel failed: %v, last %d events:\n", state, len(events))
	for _, ev := range events {
		c.printEvent(ev)
	}

	c.mu.Lock()
	if c.socket == s {
		c.socket = nil
	}
	c.mu.Unlock()
}
