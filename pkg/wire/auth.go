package wire

import (
	"errors"
	"fmt"
)

// Auth message errors.
var (
	ErrNotAuthMessage   = errors.New("not a device-auth message")
	ErrEmptyAuthMessage = errors.New("device-auth message has no body")
)

// SignatureAlgorithm identifies the signature scheme of an auth reply.
type SignatureAlgorithm uint8

const (
	// SignatureRSASSAPKCS1v15 is RSASSA-PKCS1-v1_5 with SHA-256.
	SignatureRSASSAPKCS1v15 SignatureAlgorithm = 0

	// SignatureECDSA is ECDSA with SHA-256, ASN.1 encoded.
	SignatureECDSA SignatureAlgorithm = 1
)

// String returns the signature algorithm name.
func (a SignatureAlgorithm) String() string {
	switch a {
	case SignatureRSASSAPKCS1v15:
		return "RSASSA-PKCS1-v1_5"
	case SignatureECDSA:
		return "ECDSA"
	default:
		return "UNKNOWN"
	}
}

// AuthChallenge is the locally generated challenge sent to the device.
// CBOR: { 1: nonce }
type AuthChallenge struct {
	Nonce []byte `cbor:"1,keyasint"`
}

// AuthResponse is the device's signed reply to a challenge.
//
// Signature covers the DER bytes of the TLS certificate the device
// presented on this session, proving possession of the client-auth
// certificate's private key and binding it to the TLS channel.
// CBOR: { 1: signature, 2: clientAuthCert, 3: intermediates, 4: algorithm }
type AuthResponse struct {
	Signature                []byte             `cbor:"1,keyasint"`
	ClientAuthCertificate    []byte             `cbor:"2,keyasint"`
	IntermediateCertificates [][]byte           `cbor:"3,keyasint,omitempty"`
	Algorithm                SignatureAlgorithm `cbor:"4,keyasint"`
}

// AuthError reports a handshake failure from the device side.
// CBOR: { 1: code }
type AuthError struct {
	Code AuthErrorCode `cbor:"1,keyasint"`
}

// AuthErrorCode enumerates device-reported handshake failures.
type AuthErrorCode uint8

const (
	// AuthErrorInternal is an unspecified device-side failure.
	AuthErrorInternal AuthErrorCode = 0

	// AuthErrorNoTLS indicates the device saw no TLS session to bind to.
	AuthErrorNoTLS AuthErrorCode = 1
)

// DeviceAuthMessage is the body of every message in the device-auth
// namespace. Exactly one field is set.
// CBOR: { 1: challenge, 2: response, 3: error }
type DeviceAuthMessage struct {
	Challenge *AuthChallenge `cbor:"1,keyasint,omitempty"`
	Response  *AuthResponse  `cbor:"2,keyasint,omitempty"`
	Error     *AuthError     `cbor:"3,keyasint,omitempty"`
}

// NewAuthChallengeMessage wraps a challenge nonce into a channel message
// addressed to the device's transport endpoint.
func NewAuthChallengeMessage(nonce []byte) (*Message, error) {
	body, err := Marshal(&DeviceAuthMessage{Challenge: &AuthChallenge{Nonce: nonce}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth challenge: %w", err)
	}
	return NewBinaryMessage(NamespaceAuth, body), nil
}

// NewAuthResponseMessage wraps a signed auth response into a channel message.
// Used by device-side implementations and test fixtures.
func NewAuthResponseMessage(resp *AuthResponse) (*Message, error) {
	body, err := Marshal(&DeviceAuthMessage{Response: resp})
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth response: %w", err)
	}
	return NewBinaryMessage(NamespaceAuth, body), nil
}

// NewAuthErrorMessage wraps a device-side handshake failure into a channel message.
func NewAuthErrorMessage(authErr *AuthError) (*Message, error) {
	body, err := Marshal(&DeviceAuthMessage{Error: authErr})
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth error: %w", err)
	}
	return NewBinaryMessage(NamespaceAuth, body), nil
}

// DecodeAuthMessage extracts the device-auth body from a channel message.
func DecodeAuthMessage(msg *Message) (*DeviceAuthMessage, error) {
	if !msg.IsAuthMessage() {
		return nil, ErrNotAuthMessage
	}
	var body DeviceAuthMessage
	if err := Unmarshal(msg.PayloadBinary, &body); err != nil {
		return nil, fmt.Errorf("failed to decode auth message: %w", err)
	}
	if body.Challenge == nil && body.Response == nil && body.Error == nil {
		return nil, ErrEmptyAuthMessage
	}
	return &body, nil
}
