package transport

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"
)

// TLS constants for cast channels.
const (
	// DefaultPort is the default cast channel port.
	DefaultPort = 8009
)

// ErrPinMismatch indicates the peer presented a certificate that does
// not match the pinned certificate from the first connect attempt.
var ErrPinMismatch = errors.New("peer certificate does not match pinned certificate")

// CertAuthorityError reports that the peer certificate could not be
// verified against the trusted roots. Devices commonly present
// self-signed certificates; callers may pin PeerCert and retry.
type CertAuthorityError struct {
	// PeerCert is the leaf certificate the peer presented.
	PeerCert *x509.Certificate

	// Err is the underlying verification error.
	Err error
}

// Error implements the error interface.
func (e *CertAuthorityError) Error() string {
	return fmt.Sprintf("peer certificate not trusted: %v", e.Err)
}

// Unwrap returns the underlying verification error.
func (e *CertAuthorityError) Unwrap() error {
	return e.Err
}

// TLSParams configures TLS for client connections to a device.
type TLSParams struct {
	// RootCAs is the pool of trusted CA certificates. When nil the
	// system roots are used.
	RootCAs *x509.CertPool

	// ServerName is the expected server name. Devices are addressed
	// by IP and identify via device authentication rather than
	// hostnames, so this is used for SNI only.
	ServerName string

	// PinnedCert is the DER encoding of a previously seen peer
	// certificate. When set, verification requires the peer to
	// present exactly this certificate.
	PinnedCert []byte
}

// NewClientTLSConfig builds a TLS configuration for connecting to a
// device. Chain verification happens in a custom callback so that an
// untrusted peer surfaces as a CertAuthorityError carrying the leaf
// certificate, and so that a pinned certificate bypasses chain
// verification entirely.
func NewClientTLSConfig(params TLSParams) *tls.Config {
	roots := params.RootCAs
	pinned := params.PinnedCert

	verifyPeer := func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("no certificates presented")
		}

		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("failed to parse peer certificate: %w", err)
		}

		// A pinned certificate must match exactly.
		if len(pinned) > 0 {
			if !bytes.Equal(cert.Raw, pinned) {
				return ErrPinMismatch
			}
			return nil
		}

		intermediates := x509.NewCertPool()
		for _, rawCert := range rawCerts[1:] {
			intermediateCert, err := x509.ParseCertificate(rawCert)
			if err != nil {
				continue
			}
			intermediates.AddCert(intermediateCert)
		}

		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			CurrentTime:   time.Now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		}
		if _, err := cert.Verify(opts); err != nil {
			return &CertAuthorityError{PeerCert: cert, Err: err}
		}
		return nil
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS12,

		// Server name for SNI only; identity comes from the device
		// authentication handshake, not from hostname verification.
		ServerName: params.ServerName,

		// Hostname and chain checks are replaced by verifyPeer.
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifyPeer,

		SessionTicketsDisabled: true,
	}
}

// VerifyHandshake checks the completed handshake state and returns the
// peer leaf certificate.
func VerifyHandshake(state tls.ConnectionState) (*x509.Certificate, error) {
	if !state.HandshakeComplete {
		return nil, errors.New("TLS handshake not complete")
	}
	if len(state.PeerCertificates) == 0 {
		return nil, errors.New("peer presented no certificate")
	}
	return state.PeerCertificates[0], nil
}
