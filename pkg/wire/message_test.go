package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{
			name: "text message",
			msg:  NewTextMessage("urn:x-cast:com.example.app", `{"type":"LAUNCH"}`),
		},
		{
			name: "binary message",
			msg:  NewBinaryMessage("urn:x-cast:com.example.blob", []byte{0x00, 0xFF, 0x7F}),
		},
		{
			name: "explicit transport ids",
			msg: &Message{
				Version:       ProtocolVersion2,
				SourceID:      "sender-42",
				DestinationID: "receiver-7",
				Namespace:     NamespaceConnection,
				PayloadType:   PayloadString,
				PayloadUTF8:   `{"type":"CONNECT"}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeMessage(tt.msg)
			if err != nil {
				t.Fatalf("EncodeMessage failed: %v", err)
			}

			got, err := DecodeMessage(data)
			if err != nil {
				t.Fatalf("DecodeMessage failed: %v", err)
			}

			if got.Namespace != tt.msg.Namespace {
				t.Errorf("namespace = %q, want %q", got.Namespace, tt.msg.Namespace)
			}
			if got.SourceID != tt.msg.SourceID || got.DestinationID != tt.msg.DestinationID {
				t.Errorf("transport ids = %q/%q, want %q/%q",
					got.SourceID, got.DestinationID, tt.msg.SourceID, tt.msg.DestinationID)
			}
			if got.PayloadUTF8 != tt.msg.PayloadUTF8 {
				t.Errorf("text payload = %q, want %q", got.PayloadUTF8, tt.msg.PayloadUTF8)
			}
			if !bytes.Equal(got.PayloadBinary, tt.msg.PayloadBinary) {
				t.Errorf("binary payload mismatch")
			}
		})
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		wantErr error
	}{
		{
			name:    "missing namespace",
			msg:     &Message{PayloadType: PayloadString, PayloadUTF8: "x"},
			wantErr: ErrNoNamespace,
		},
		{
			name: "binary payload on string message",
			msg: &Message{
				Namespace:     "urn:x-cast:ns",
				PayloadType:   PayloadString,
				PayloadBinary: []byte{1},
			},
			wantErr: ErrPayloadConflict,
		},
		{
			name: "empty binary payload",
			msg: &Message{
				Namespace:   "urn:x-cast:ns",
				PayloadType: PayloadBinary,
			},
			wantErr: ErrNoPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNamespacePredicates(t *testing.T) {
	auth := NewBinaryMessage(NamespaceAuth, []byte{1})
	if !auth.IsAuthMessage() {
		t.Error("auth namespace not recognized")
	}
	if auth.IsHeartbeatMessage() {
		t.Error("auth message misclassified as heartbeat")
	}

	hb := NewBinaryMessage(NamespaceHeartbeat, []byte{1})
	if !hb.IsHeartbeatMessage() {
		t.Error("heartbeat namespace not recognized")
	}
}

func TestDecodeMessageMalformed(t *testing.T) {
	if _, err := DecodeMessage([]byte{0xFF, 0xFF, 0xFF}); err == nil {
		t.Error("expected error for malformed CBOR")
	}
	// Well-formed CBOR but invalid message (no namespace).
	data, err := Marshal(map[int]any{1: 0})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, err := DecodeMessage(data); err == nil {
		t.Error("expected validation error for message without namespace")
	}
}
