package wire

import (
	"errors"
	"fmt"
)

// Channel namespaces reserved by the transport itself.
const (
	// NamespaceAuth carries the device-auth challenge/reply exchanged
	// during the connect handshake.
	NamespaceAuth = "urn:x-cast:com.google.cast.tp.deviceauth"

	// NamespaceHeartbeat carries liveness pings once the channel is open.
	NamespaceHeartbeat = "urn:x-cast:com.google.cast.tp.heartbeat"

	// NamespaceConnection carries virtual-connection control messages.
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
)

// Transport identifiers.
const (
	// DefaultSourceID is the sender transport ID used when the caller
	// does not set one.
	DefaultSourceID = "sender-0"

	// DefaultDestinationID is the platform receiver transport ID.
	DefaultDestinationID = "receiver-0"
)

// ProtocolVersion identifies the channel protocol revision.
type ProtocolVersion uint8

// ProtocolVersion2 is the only version currently spoken.
const ProtocolVersion2 ProtocolVersion = 0

// PayloadType distinguishes the two payload encodings.
type PayloadType uint8

const (
	// PayloadString is a UTF-8 text payload.
	PayloadString PayloadType = 0

	// PayloadBinary is an opaque binary payload.
	PayloadBinary PayloadType = 1
)

// String returns the payload type name.
func (p PayloadType) String() string {
	switch p {
	case PayloadString:
		return "STRING"
	case PayloadBinary:
		return "BINARY"
	default:
		return "UNKNOWN"
	}
}

// Message validation errors.
var (
	ErrNoNamespace     = errors.New("message has no namespace")
	ErrNoPayload       = errors.New("message has no payload")
	ErrPayloadConflict = errors.New("message payload does not match payload type")
)

// Message is one cast channel message.
// CBOR: { 1: version, 2: sourceId, 3: destinationId, 4: namespace,
// 5: payloadType, 6: payloadUtf8, 7: payloadBinary }
type Message struct {
	Version       ProtocolVersion `cbor:"1,keyasint"`
	SourceID      string          `cbor:"2,keyasint,omitempty"`
	DestinationID string          `cbor:"3,keyasint,omitempty"`
	Namespace     string          `cbor:"4,keyasint"`
	PayloadType   PayloadType     `cbor:"5,keyasint"`
	PayloadUTF8   string          `cbor:"6,keyasint,omitempty"`
	PayloadBinary []byte          `cbor:"7,keyasint,omitempty"`
}

// NewTextMessage creates a text-payload message with default transport IDs.
func NewTextMessage(namespace, payload string) *Message {
	return &Message{
		Version:       ProtocolVersion2,
		SourceID:      DefaultSourceID,
		DestinationID: DefaultDestinationID,
		Namespace:     namespace,
		PayloadType:   PayloadString,
		PayloadUTF8:   payload,
	}
}

// NewBinaryMessage creates a binary-payload message with default transport IDs.
func NewBinaryMessage(namespace string, payload []byte) *Message {
	return &Message{
		Version:       ProtocolVersion2,
		SourceID:      DefaultSourceID,
		DestinationID: DefaultDestinationID,
		Namespace:     namespace,
		PayloadType:   PayloadBinary,
		PayloadBinary: payload,
	}
}

// Validate checks structural message invariants.
func (m *Message) Validate() error {
	if m.Namespace == "" {
		return ErrNoNamespace
	}
	switch m.PayloadType {
	case PayloadString:
		if len(m.PayloadBinary) != 0 {
			return fmt.Errorf("%w: binary payload on string message", ErrPayloadConflict)
		}
	case PayloadBinary:
		if m.PayloadUTF8 != "" {
			return fmt.Errorf("%w: text payload on binary message", ErrPayloadConflict)
		}
		if len(m.PayloadBinary) == 0 {
			return ErrNoPayload
		}
	default:
		return fmt.Errorf("unknown payload type %d", m.PayloadType)
	}
	return nil
}

// IsAuthMessage reports whether the message belongs to the
// device-auth namespace.
func (m *Message) IsAuthMessage() bool {
	return m.Namespace == NamespaceAuth
}

// IsHeartbeatMessage reports whether the message belongs to the
// heartbeat namespace.
func (m *Message) IsHeartbeatMessage() bool {
	return m.Namespace == NamespaceHeartbeat
}

// String returns a short diagnostic description of the message.
func (m *Message) String() string {
	size := len(m.PayloadBinary)
	if m.PayloadType == PayloadString {
		size = len(m.PayloadUTF8)
	}
	return fmt.Sprintf("%s -> %s [%s] %s(%d bytes)",
		m.SourceID, m.DestinationID, m.Namespace, m.PayloadType, size)
}
