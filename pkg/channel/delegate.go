package channel

import (
	"errors"

	"github.com/cast-protocol/cast-go/pkg/log"
	"github.com/cast-protocol/cast-go/pkg/wire"
)

// Channel errors surfaced through callbacks.
var (
	// ErrNotOpen is returned when sending on a channel that is not open.
	ErrNotOpen = errors.New("channel is not open")

	// ErrAlreadyConnected is returned by Connect on a channel that has
	// already been connected.
	ErrAlreadyConnected = errors.New("channel already connected")

	// ErrChannelClosed is returned to pending callbacks when the
	// channel closes underneath them.
	ErrChannelClosed = errors.New("channel closed")

	// ErrConnectTimeout is returned when the connect deadline elapses.
	ErrConnectTimeout = errors.New("connect timed out")

	// ErrConnectFailed is returned when the connect sequence fails.
	ErrConnectFailed = errors.New("connect failed")

	// ErrAuthFailed is returned when device authentication fails.
	ErrAuthFailed = errors.New("device authentication failed")

	// ErrInvalidMessage is returned when the peer sends an unparseable
	// or unexpected message.
	ErrInvalidMessage = errors.New("invalid message from peer")

	// ErrSocketError is returned on I/O failures.
	ErrSocketError = errors.New("channel I/O error")
)

// Delegate receives messages and errors from an open channel.
// Both methods are invoked from the channel's internal goroutine;
// implementations must not block and must not call back into the
// channel synchronously except via the posted APIs.
type Delegate interface {
	// OnMessage delivers a message received on the channel.
	// Device-auth and heartbeat traffic is consumed internally and
	// never reaches the delegate.
	OnMessage(s *Socket, msg *wire.Message)

	// OnError reports a fatal channel error. events holds the most
	// recent protocol events leading up to the failure. The channel
	// is already closed when OnError fires.
	OnError(s *Socket, state ErrorState, events []log.Event)
}

// errorForState maps an error state to the error handed to callbacks.
func errorForState(state ErrorState) error {
	switch state {
	case ErrorStateConnectTimeout:
		return ErrConnectTimeout
	case ErrorStateAuthFailed:
		return ErrAuthFailed
	case ErrorStateInvalidMessage:
		return ErrInvalidMessage
	case ErrorStateSocketError:
		return ErrSocketError
	case ErrorStateConnectError:
		return ErrConnectFailed
	default:
		return nil
	}
}
