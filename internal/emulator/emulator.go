// Package emulator runs an in-process cast device for tests and demos.
// It accepts TLS connections, answers device authentication challenges,
// replies to heartbeat pings and hands application messages to a
// configurable handler. The default handler echoes messages back with
// source and destination swapped.
package emulator

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/cast-protocol/cast-go/pkg/auth"
	"github.com/cast-protocol/cast-go/pkg/log"
	"github.com/cast-protocol/cast-go/pkg/transport"
	"github.com/cast-protocol/cast-go/pkg/wire"
)

// Handler produces the reply for an application message. Returning nil
// sends nothing.
type Handler func(msg *wire.Message) *wire.Message

// Config configures a Device.
type Config struct {
	// ListenAddr is the TCP listen address. Empty uses a loopback
	// address with an ephemeral port.
	ListenAddr string

	// TLSCert is the TLS server certificate. Required.
	TLSCert tls.Certificate

	// AuthCert signs device authentication replies. Nil makes the
	// device ignore challenges, which fails clients that require
	// challenge authentication.
	AuthCert *tls.Certificate

	// Handler replies to application messages. Nil echoes.
	Handler Handler

	// Logger receives protocol events.
	Logger log.Logger

	// MaxMessageSize caps frame bodies. Zero uses the transport default.
	MaxMessageSize uint32
}

// Device is a listening cast device emulator.
type Device struct {
	cfg       Config
	responder *auth.Responder
	logger    log.Logger

	listener net.Listener
	wg       sync.WaitGroup

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// New creates a device emulator. Start must be called before clients
// can connect.
func New(cfg Config) (*Device, error) {
	if len(cfg.TLSCert.Certificate) == 0 {
		return nil, errors.New("emulator: TLS certificate required")
	}

	d := &Device{
		cfg:    cfg,
		logger: cfg.Logger,
		conns:  make(map[net.Conn]struct{}),
	}
	if d.logger == nil {
		d.logger = log.NoopLogger{}
	}

	if cfg.AuthCert != nil {
		responder, err := auth.NewResponder(*cfg.AuthCert)
		if err != nil {
			return nil, fmt.Errorf("emulator: %w", err)
		}
		d.responder = responder
	}

	return d, nil
}

// Start begins listening and accepting connections.
func (d *Device) Start() error {
	addr := d.cfg.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{d.cfg.TLSCert},
		MinVersion:   tls.VersionTLS12,
	}
	listener, err := tls.Listen("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("emulator: listen: %w", err)
	}
	d.listener = listener

	d.wg.Add(1)
	go d.acceptLoop()
	return nil
}

// Addr returns the listen address as host:port.
func (d *Device) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Close stops listening and drops all open connections.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	conns := make([]net.Conn, 0, len(d.conns))
	for conn := range d.conns {
		conns = append(conns, conn)
	}
	d.mu.Unlock()

	var err error
	if d.listener != nil {
		err = d.listener.Close()
	}
	for _, conn := range conns {
		conn.Close()
	}
	d.wg.Wait()
	return err
}

func (d *Device) acceptLoop() {
	defer d.wg.Done()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			conn.Close()
			return
		}
		d.conns[conn] = struct{}{}
		d.mu.Unlock()

		d.wg.Add(1)
		go d.serve(conn)
	}
}

func (d *Device) dropConn(conn net.Conn) {
	d.mu.Lock()
	delete(d.conns, conn)
	d.mu.Unlock()
	conn.Close()
}

// serve pumps one connection: read a frame, decode, reply.
func (d *Device) serve(conn net.Conn) {
	defer d.wg.Done()
	defer d.dropConn(conn)

	maxSize := d.cfg.MaxMessageSize
	if maxSize == 0 {
		maxSize = transport.DefaultMaxMessageSize
	}
	framer := transport.NewFramerWithMaxSize(conn, maxSize)
	framer.SetLogger(d.logger, conn.RemoteAddr().String())

	for {
		payload, err := framer.ReadFrame()
		if err != nil {
			return
		}
		msg, err := wire.DecodeMessage(payload)
		if err != nil {
			return
		}

		reply := d.dispatch(msg)
		if reply == nil {
			continue
		}

		body, err := wire.EncodeMessage(reply)
		if err != nil {
			return
		}
		if err := framer.WriteFrame(body); err != nil {
			return
		}
	}
}

func (d *Device) dispatch(msg *wire.Message) *wire.Message {
	switch {
	case msg.IsAuthMessage():
		return d.answerChallenge(msg)

	case msg.IsHeartbeatMessage():
		ctrl, err := wire.DecodeControlMessage(msg)
		if err != nil || ctrl.Type != wire.ControlPing {
			return nil
		}
		pong, err := wire.NewControlMessage(wire.ControlPong, ctrl.Sequence)
		if err != nil {
			return nil
		}
		return pong

	default:
		if d.cfg.Handler != nil {
			return d.cfg.Handler(msg)
		}
		return echo(msg)
	}
}

func (d *Device) answerChallenge(msg *wire.Message) *wire.Message {
	if d.responder == nil {
		return nil
	}
	reply, err := d.responder.Respond(msg, d.cfg.TLSCert.Certificate[0])
	if err != nil {
		return nil
	}
	return reply
}

// echo returns the message with source and destination swapped.
func echo(msg *wire.Message) *wire.Message {
	reply := *msg
	reply.SourceID, reply.DestinationID = msg.DestinationID, msg.SourceID
	return &reply
}
