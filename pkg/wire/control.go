package wire

import "fmt"

// ControlMessageType identifies a heartbeat control message.
type ControlMessageType uint8

const (
	// ControlPing requests a liveness acknowledgment.
	ControlPing ControlMessageType = 1

	// ControlPong acknowledges a ping.
	ControlPong ControlMessageType = 2
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "PING"
	case ControlPong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// ControlMessage is the body of a heartbeat-namespace message.
// CBOR: { 1: type, 2: sequence }
type ControlMessage struct {
	Type     ControlMessageType `cbor:"1,keyasint"`
	Sequence uint32             `cbor:"2,keyasint"`
}

// NewControlMessage wraps a ping or pong into a heartbeat channel message.
func NewControlMessage(msgType ControlMessageType, seq uint32) (*Message, error) {
	body, err := Marshal(&ControlMessage{Type: msgType, Sequence: seq})
	if err != nil {
		return nil, fmt.Errorf("failed to encode control message: %w", err)
	}
	return NewBinaryMessage(NamespaceHeartbeat, body), nil
}

// DecodeControlMessage extracts the control body from a heartbeat message.
func DecodeControlMessage(msg *Message) (*ControlMessage, error) {
	if !msg.IsHeartbeatMessage() {
		return nil, fmt.Errorf("not a heartbeat message: namespace %q", msg.Namespace)
	}
	var body ControlMessage
	if err := Unmarshal(msg.PayloadBinary, &body); err != nil {
		return nil, fmt.Errorf("failed to decode control message: %w", err)
	}
	return &body, nil
}
