package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestAuthChallengeRoundTrip(t *testing.T) {
	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	msg, err := NewAuthChallengeMessage(nonce)
	if err != nil {
		t.Fatalf("NewAuthChallengeMessage failed: %v", err)
	}
	if !msg.IsAuthMessage() {
		t.Fatal("challenge message not in auth namespace")
	}
	if msg.PayloadType != PayloadBinary {
		t.Fatal("challenge message must carry a binary payload")
	}

	body, err := DecodeAuthMessage(msg)
	if err != nil {
		t.Fatalf("DecodeAuthMessage failed: %v", err)
	}
	if body.Challenge == nil {
		t.Fatal("decoded body has no challenge")
	}
	if !bytes.Equal(body.Challenge.Nonce, nonce) {
		t.Errorf("nonce = %x, want %x", body.Challenge.Nonce, nonce)
	}
	if body.Response != nil || body.Error != nil {
		t.Error("challenge body has extra fields set")
	}
}

func TestAuthResponseRoundTrip(t *testing.T) {
	resp := &AuthResponse{
		Signature:                []byte{0xAA, 0xBB},
		ClientAuthCertificate:    []byte{0x30, 0x82},
		IntermediateCertificates: [][]byte{{0x30, 0x81}},
		Algorithm:                SignatureECDSA,
	}

	msg, err := NewAuthResponseMessage(resp)
	if err != nil {
		t.Fatalf("NewAuthResponseMessage failed: %v", err)
	}

	body, err := DecodeAuthMessage(msg)
	if err != nil {
		t.Fatalf("DecodeAuthMessage failed: %v", err)
	}
	if body.Response == nil {
		t.Fatal("decoded body has no response")
	}
	if body.Response.Algorithm != SignatureECDSA {
		t.Errorf("algorithm = %v, want %v", body.Response.Algorithm, SignatureECDSA)
	}
	if !bytes.Equal(body.Response.Signature, resp.Signature) {
		t.Error("signature mismatch after round trip")
	}
	if len(body.Response.IntermediateCertificates) != 1 {
		t.Errorf("intermediates = %d, want 1", len(body.Response.IntermediateCertificates))
	}
}

func TestDecodeAuthMessageRejectsOtherNamespaces(t *testing.T) {
	msg := NewTextMessage("urn:x-cast:com.example.app", "{}")
	if _, err := DecodeAuthMessage(msg); !errors.Is(err, ErrNotAuthMessage) {
		t.Errorf("expected ErrNotAuthMessage, got %v", err)
	}
}

func TestDecodeAuthMessageEmptyBody(t *testing.T) {
	body, err := Marshal(&DeviceAuthMessage{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	msg := NewBinaryMessage(NamespaceAuth, body)
	if _, err := DecodeAuthMessage(msg); !errors.Is(err, ErrEmptyAuthMessage) {
		t.Errorf("expected ErrEmptyAuthMessage, got %v", err)
	}
}

func TestControlMessageRoundTrip(t *testing.T) {
	msg, err := NewControlMessage(ControlPing, 17)
	if err != nil {
		t.Fatalf("NewControlMessage failed: %v", err)
	}
	if !msg.IsHeartbeatMessage() {
		t.Fatal("control message not in heartbeat namespace")
	}

	body, err := DecodeControlMessage(msg)
	if err != nil {
		t.Fatalf("DecodeControlMessage failed: %v", err)
	}
	if body.Type != ControlPing || body.Sequence != 17 {
		t.Errorf("decoded control = %v/%d, want PING/17", body.Type, body.Sequence)
	}
}
