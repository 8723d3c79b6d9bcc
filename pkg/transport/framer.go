package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cast-protocol/cast-go/pkg/wire"
)

// ErrFramerPoisoned indicates the framer saw a malformed frame earlier
// and will not accept further input.
var ErrFramerPoisoned = errors.New("framer in error state")

// framerState tracks what the framer is currently assembling.
type framerState uint8

const (
	framerStateHeader framerState = iota
	framerStateBody
	framerStateError
)

// MessageFramer incrementally assembles wire messages from a byte
// stream. The caller reads up to BytesRequested bytes from the
// connection and feeds them to Ingest; once a full frame has been
// accumulated Ingest decodes and returns the message.
//
// A MessageFramer is not safe for concurrent use. Once Ingest returns
// an error the framer stays in the error state and the connection
// should be torn down.
type MessageFramer struct {
	maxMessageSize uint32

	state      framerState
	buf        []byte
	bodyLength uint32
}

// NewMessageFramer creates a framer with the default maximum message size.
func NewMessageFramer() *MessageFramer {
	return NewMessageFramerWithMaxSize(DefaultMaxMessageSize)
}

// NewMessageFramerWithMaxSize creates a framer with a custom maximum
// message size. A zero maxSize uses the default.
func NewMessageFramerWithMaxSize(maxSize uint32) *MessageFramer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	f := &MessageFramer{maxMessageSize: maxSize}
	f.reset()
	return f
}

func (f *MessageFramer) reset() {
	f.state = framerStateHeader
	f.buf = f.buf[:0]
	f.bodyLength = 0
}

// BytesRequested returns how many bytes the framer needs next. This is
// the remainder of the length prefix or the remainder of the current
// body, so a single read never spans a frame boundary.
func (f *MessageFramer) BytesRequested() int {
	switch f.state {
	case framerStateHeader:
		return LengthPrefixSize - len(f.buf)
	case framerStateBody:
		return int(f.bodyLength) - len(f.buf)
	default:
		return 0
	}
}

// Ingest consumes bytes read from the connection. It returns a decoded
// message when data completes a frame, or (nil, nil) when more bytes
// are needed. Callers must not feed more than BytesRequested bytes.
func (f *MessageFramer) Ingest(data []byte) (*wire.Message, error) {
	if f.state == framerStateError {
		return nil, ErrFramerPoisoned
	}
	if len(data) > f.BytesRequested() {
		f.state = framerStateError
		return nil, fmt.Errorf("ingest of %d bytes exceeds %d requested", len(data), f.BytesRequested())
	}

	f.buf = append(f.buf, data...)

	switch f.state {
	case framerStateHeader:
		if len(f.buf) < LengthPrefixSize {
			return nil, nil
		}
		length := binary.BigEndian.Uint32(f.buf)
		if length < MinMessageSize {
			f.state = framerStateError
			return nil, ErrMessageEmpty
		}
		if length > f.maxMessageSize {
			f.state = framerStateError
			return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, f.maxMessageSize)
		}
		f.state = framerStateBody
		f.bodyLength = length
		f.buf = f.buf[:0]
		return nil, nil

	case framerStateBody:
		if uint32(len(f.buf)) < f.bodyLength {
			return nil, nil
		}
		msg, err := wire.DecodeMessage(f.buf)
		if err != nil {
			f.state = framerStateError
			return nil, fmt.Errorf("failed to decode frame body: %w", err)
		}
		f.reset()
		return msg, nil

	default:
		return nil, ErrFramerPoisoned
	}
}

// Serialize encodes a message into a complete frame, length prefix
// included, ready to be written to the connection.
func (f *MessageFramer) Serialize(msg *wire.Message) ([]byte, error) {
	return SerializeMessage(msg, f.maxMessageSize)
}

// SerializeMessage encodes a message into a length-prefixed frame.
// A zero maxSize uses the default maximum message size.
func SerializeMessage(msg *wire.Message, maxSize uint32) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	body, err := wire.EncodeMessage(msg)
	if err != nil {
		return nil, err
	}
	if uint32(len(body)) > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(body), maxSize)
	}
	frame := make([]byte, LengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[LengthPrefixSize:], body)
	return frame, nil
}
