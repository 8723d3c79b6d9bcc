// Package auth implements the cast device authentication handshake.
//
// After the TLS handshake the sender issues a challenge on the device
// auth namespace. The device answers with its client-auth certificate
// and a signature over the challenge nonce and the TLS certificate it
// presented. Verifying that signature against a certificate chained to
// a trusted authority proves the peer holds the device key and that
// the TLS session terminates at that device.
package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/cast-protocol/cast-go/pkg/cert"
	"github.com/cast-protocol/cast-go/pkg/wire"
)

// NonceSize is the size of the challenge nonce in bytes.
const NonceSize = 16

// Authentication errors.
var (
	// ErrNoPeerCert indicates the TLS peer certificate is missing.
	ErrNoPeerCert = errors.New("no peer certificate to authenticate")

	// ErrNoChallenge indicates a reply arrived before a challenge was issued.
	ErrNoChallenge = errors.New("no challenge outstanding")

	// ErrNotResponse indicates the auth message is not a challenge response.
	ErrNotResponse = errors.New("auth message is not a challenge response")

	// ErrDeviceRejected indicates the device answered with an auth error.
	ErrDeviceRejected = errors.New("device rejected authentication")

	// ErrUntrustedDeviceCert indicates the device certificate does not
	// chain to a trusted authority.
	ErrUntrustedDeviceCert = errors.New("device certificate not trusted")

	// ErrBadSignature indicates the challenge signature does not verify.
	ErrBadSignature = errors.New("challenge signature verification failed")
)

// Verifier issues challenges and verifies device replies.
// A Verifier is single use: one challenge, one reply.
type Verifier struct {
	trustedCAs *x509.CertPool
	nonce      []byte
}

// NewVerifier creates a verifier trusting the given authority pool.
func NewVerifier(trustedCAs *x509.CertPool) *Verifier {
	return &Verifier{trustedCAs: trustedCAs}
}

// ChallengeMessage generates a fresh nonce and returns the challenge
// message to send on the device auth namespace.
func (v *Verifier) ChallengeMessage() (*wire.Message, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	v.nonce = nonce
	return wire.NewAuthChallengeMessage(nonce)
}

// VerifyChallengeReply checks the device's reply against the TLS
// certificate the peer presented during the handshake. Any failure
// means the channel must not be used.
func (v *Verifier) VerifyChallengeReply(reply *wire.Message, peerCert *x509.Certificate) error {
	if peerCert == nil {
		return ErrNoPeerCert
	}
	if v.nonce == nil {
		return ErrNoChallenge
	}

	authMsg, err := wire.DecodeAuthMessage(reply)
	if err != nil {
		return err
	}
	if authMsg.Error != nil {
		return fmt.Errorf("%w: code %d", ErrDeviceRejected, authMsg.Error.Code)
	}
	if authMsg.Response == nil {
		return ErrNotResponse
	}
	resp := authMsg.Response

	deviceCert, err := x509.ParseCertificate(resp.ClientAuthCertificate)
	if err != nil {
		return fmt.Errorf("failed to parse device certificate: %w", err)
	}
	var intermediates []*x509.Certificate
	for _, der := range resp.IntermediateCertificates {
		ic, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("failed to parse intermediate certificate: %w", err)
		}
		intermediates = append(intermediates, ic)
	}

	if err := cert.VerifyDeviceCert(deviceCert, intermediates, v.trustedCAs); err != nil {
		return fmt.Errorf("%w: %v", ErrUntrustedDeviceCert, err)
	}

	if err := verifySignature(deviceCert, resp.Algorithm, SignedData(v.nonce, peerCert.Raw), resp.Signature); err != nil {
		return err
	}
	return nil
}

// SignedData assembles the bytes covered by the challenge signature:
// the challenge nonce followed by the DER encoding of the TLS
// certificate the device presented.
func SignedData(nonce, tlsCertDER []byte) []byte {
	data := make([]byte, 0, len(nonce)+len(tlsCertDER))
	data = append(data, nonce...)
	data = append(data, tlsCertDER...)
	return data
}

func verifySignature(deviceCert *x509.Certificate, alg wire.SignatureAlgorithm, data, sig []byte) error {
	digest := sha256.Sum256(data)

	switch alg {
	case wire.SignatureECDSA:
		pub, ok := deviceCert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: certificate key is not ECDSA", ErrBadSignature)
		}
		if !ecdsa.VerifyASN1(pub, digest[:], sig) {
			return ErrBadSignature
		}
	case wire.SignatureRSASSAPKCS1v15:
		pub, ok := deviceCert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: certificate key is not RSA", ErrBadSignature)
		}
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
			return ErrBadSignature
		}
	default:
		return fmt.Errorf("%w: unsupported algorithm %d", ErrBadSignature, alg)
	}
	return nil
}
