package auth

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/cast-protocol/cast-go/pkg/wire"
)

// ErrNotChallenge indicates the auth message is not a challenge.
var ErrNotChallenge = errors.New("auth message is not a challenge")

// Responder implements the device side of the authentication
// handshake. It holds the device's client-auth certificate chain and
// signs challenges with the corresponding ECDSA key.
type Responder struct {
	deviceCert tls.Certificate
	key        *ecdsa.PrivateKey
}

// NewResponder creates a responder from the device's client-auth
// certificate. The certificate's private key must be ECDSA.
func NewResponder(deviceCert tls.Certificate) (*Responder, error) {
	key, ok := deviceCert.PrivateKey.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("device certificate key must be ECDSA")
	}
	if len(deviceCert.Certificate) == 0 {
		return nil, errors.New("device certificate chain is empty")
	}
	return &Responder{deviceCert: deviceCert, key: key}, nil
}

// Respond answers a challenge. tlsCertDER is the DER encoding of the
// TLS certificate this device presented on the channel; the signature
// binds the auth handshake to that TLS session.
func (r *Responder) Respond(challenge *wire.Message, tlsCertDER []byte) (*wire.Message, error) {
	authMsg, err := wire.DecodeAuthMessage(challenge)
	if err != nil {
		return nil, err
	}
	if authMsg.Challenge == nil {
		return nil, ErrNotChallenge
	}

	digest := sha256.Sum256(SignedData(authMsg.Challenge.Nonce, tlsCertDER))
	sig, err := ecdsa.SignASN1(rand.Reader, r.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}

	resp := &wire.AuthResponse{
		Signature:             sig,
		ClientAuthCertificate: r.deviceCert.Certificate[0],
		Algorithm:             wire.SignatureECDSA,
	}
	for _, der := range r.deviceCert.Certificate[1:] {
		resp.IntermediateCertificates = append(resp.IntermediateCertificates, der)
	}
	return wire.NewAuthResponseMessage(resp)
}
