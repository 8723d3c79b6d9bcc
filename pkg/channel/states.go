package channel

// ReadyState is the externally visible lifecycle of a channel.
// Transitions only move forward: NONE -> CONNECTING -> OPEN -> CLOSED,
// with CONNECTING -> CLOSED on connect failure.
type ReadyState int32

const (
	// ReadyStateNone is the state before Connect is called.
	ReadyStateNone ReadyState = iota
	// ReadyStateConnecting covers TCP connect, TLS handshake and
	// device authentication.
	ReadyStateConnecting
	// ReadyStateOpen means the channel is authenticated and usable.
	ReadyStateOpen
	// ReadyStateClosed is terminal.
	ReadyStateClosed
)

// String returns the ready state name.
func (s ReadyState) String() string {
	switch s {
	case ReadyStateNone:
		return "NONE"
	case ReadyStateConnecting:
		return "CONNECTING"
	case ReadyStateOpen:
		return "OPEN"
	case ReadyStateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ErrorState records the first fatal error seen on a channel.
// Once set it never changes.
type ErrorState int32

const (
	// ErrorStateNone means no error has occurred.
	ErrorStateNone ErrorState = iota
	// ErrorStateConnectError covers TCP and TLS connect failures.
	ErrorStateConnectError
	// ErrorStateConnectTimeout means the connect deadline elapsed.
	ErrorStateConnectTimeout
	// ErrorStateAuthFailed means device authentication failed.
	ErrorStateAuthFailed
	// ErrorStateInvalidMessage means a frame could not be parsed or an
	// unexpected message arrived during the handshake.
	ErrorStateInvalidMessage
	// ErrorStateSocketError covers I/O failures on an established channel.
	ErrorStateSocketError
)

// String returns the error state name.
func (s ErrorState) String() string {
	switch s {
	case ErrorStateNone:
		return "NONE"
	case ErrorStateConnectError:
		return "CONNECT_ERROR"
	case ErrorStateConnectTimeout:
		return "CONNECT_TIMEOUT"
	case ErrorStateAuthFailed:
		return "AUTH_FAILED"
	case ErrorStateInvalidMessage:
		return "INVALID_MESSAGE"
	case ErrorStateSocketError:
		return "SOCKET_ERROR"
	default:
		return "UNKNOWN"
	}
}

// AuthMode selects how the peer is authenticated after the TLS
// handshake.
type AuthMode int32

const (
	// AuthModeChallengeReply performs the device authentication
	// challenge after the TLS handshake.
	AuthModeChallengeReply AuthMode = iota
	// AuthModeTLSOnly trusts the TLS handshake alone. Intended for
	// tests and already-trusted peers.
	AuthModeTLSOnly
)

// String returns the auth mode name.
func (m AuthMode) String() string {
	switch m {
	case AuthModeChallengeReply:
		return "CHALLENGE_REPLY"
	case AuthModeTLSOnly:
		return "TLS_ONLY"
	default:
		return "UNKNOWN"
	}
}

// connectState drives the connect sequence.
type connectState int

const (
	connectStateNone connectState = iota
	connectStateTCPConnect
	connectStateTCPConnectComplete
	connectStateTLSConnect
	connectStateTLSConnectComplete
	connectStateAuthChallengeSend
	connectStateAuthChallengeSendComplete
	connectStateAuthChallengeReplyComplete
)

func (s connectState) String() string {
	switch s {
	case connectStateNone:
		return "NONE"
	case connectStateTCPConnect:
		return "TCP_CONNECT"
	case connectStateTCPConnectComplete:
		return "TCP_CONNECT_COMPLETE"
	case connectStateTLSConnect:
		return "TLS_CONNECT"
	case connectStateTLSConnectComplete:
		return "TLS_CONNECT_COMPLETE"
	case connectStateAuthChallengeSend:
		return "AUTH_CHALLENGE_SEND"
	case connectStateAuthChallengeSendComplete:
		return "AUTH_CHALLENGE_SEND_COMPLETE"
	case connectStateAuthChallengeReplyComplete:
		return "AUTH_CHALLENGE_REPLY_COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// readState drives the read loop.
type readState int

const (
	readStateNone readState = iota
	readStateRead
	readStateReadComplete
	readStateDoCallback
	readStateError
)

func (s readState) String() string {
	switch s {
	case readStateNone:
		return "NONE"
	case readStateRead:
		return "READ"
	case readStateReadComplete:
		return "READ_COMPLETE"
	case readStateDoCallback:
		return "DO_CALLBACK"
	case readStateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// writeState drives the write loop.
type writeState int

const (
	writeStateNone writeState = iota
	writeStateWrite
	writeStateWriteComplete
	writeStateDoCallback
	writeStateError
)

func (s writeState) String() string {
	switch s {
	case writeStateNone:
		return "NONE"
	case writeStateWrite:
		return "WRITE"
	case writeStateWriteComplete:
		return "WRITE_COMPLETE"
	case writeStateDoCallback:
		return "DO_CALLBACK"
	case writeStateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
