package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cast-protocol/cast-go/pkg/log"
)

// DefaultTCPKeepAliveDelay is the TCP keep-alive probe interval applied
// to cast channel connections.
const DefaultTCPKeepAliveDelay = 10 * time.Second

// Conn is a secured transport connection to a device.
type Conn interface {
	io.ReadWriteCloser

	// PeerCertificate returns the leaf certificate the peer presented
	// during the TLS handshake.
	PeerCertificate() *x509.Certificate
}

// Dialer establishes the two stages of a cast channel connection:
// a raw TCP connection, then a TLS session on top of it.
type Dialer interface {
	// DialTCP opens the raw TCP connection to the device.
	DialTCP(ctx context.Context) (net.Conn, error)

	// DialTLS performs the TLS handshake over an established raw
	// connection. A non-empty pinnedCert requires the peer to present
	// exactly that certificate (DER).
	DialTLS(ctx context.Context, raw net.Conn, pinnedCert []byte) (Conn, error)
}

// Factory dials devices at a fixed endpoint.
type Factory struct {
	// Endpoint is the device address as host:port.
	Endpoint string

	// TLSParams configures certificate verification. The PinnedCert
	// field is overridden per DialTLS call.
	TLSParams TLSParams

	// KeepAliveDelay is the TCP keep-alive probe interval. Zero uses
	// DefaultTCPKeepAliveDelay; a negative value disables probes.
	KeepAliveDelay time.Duration

	// Logger receives transport-layer events. Nil disables logging.
	Logger log.Logger
}

// NewFactory creates a factory dialing the given host:port endpoint.
func NewFactory(endpoint string, params TLSParams) *Factory {
	return &Factory{Endpoint: endpoint, TLSParams: params}
}

// DialTCP opens the raw TCP connection and enables keep-alive probes.
func (f *Factory) DialTCP(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", f.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", f.Endpoint, err)
	}

	delay := f.KeepAliveDelay
	if delay == 0 {
		delay = DefaultTCPKeepAliveDelay
	}
	if delay > 0 {
		if err := enableKeepAlive(conn, delay); err != nil {
			// The connection works without probes; record and move on.
			f.logError(conn, "tcp keep-alive", err)
		}
	}
	return conn, nil
}

var enableKeepAlive = EnableTCPKeepAlive

func (f *Factory) logError(conn net.Conn, context string, err error) {
	if f.Logger == nil {
		return
	}
	f.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		Direction:  log.DirectionNone,
		Layer:      log.LayerTransport,
		Category:   log.CategoryError,
		RemoteAddr: conn.RemoteAddr().String(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}

// DialTLS performs the TLS handshake over the raw connection.
func (f *Factory) DialTLS(ctx context.Context, raw net.Conn, pinnedCert []byte) (Conn, error) {
	params := f.TLSParams
	params.PinnedCert = pinnedCert
	if params.ServerName == "" {
		if host, _, err := net.SplitHostPort(f.Endpoint); err == nil {
			params.ServerName = host
		}
	}

	tlsConn := tls.Client(raw, NewClientTLSConfig(params))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}

	peerCert, err := VerifyHandshake(tlsConn.ConnectionState())
	if err != nil {
		tlsConn.Close()
		return nil, err
	}

	return &tlsTransportConn{Conn: tlsConn, peerCert: peerCert}, nil
}

// EnableTCPKeepAlive turns on TCP keep-alive probes at the given
// interval. Non-TCP connections (in-memory pipes in tests) are left
// untouched.
func EnableTCPKeepAlive(conn net.Conn, delay time.Duration) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		return fmt.Errorf("failed to enable TCP keep-alive: %w", err)
	}
	if err := tcpConn.SetKeepAlivePeriod(delay); err != nil {
		return fmt.Errorf("failed to set TCP keep-alive period: %w", err)
	}
	return nil
}

// tlsTransportConn wraps a TLS connection with its captured peer
// certificate.
type tlsTransportConn struct {
	*tls.Conn
	peerCert *x509.Certificate
}

func (c *tlsTransportConn) PeerCertificate() *x509.Certificate {
	return c.peerCert
}

var _ Dialer = (*Factory)(nil)
var _ Conn = (*tlsTransportConn)(nil)
