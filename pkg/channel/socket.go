// Package channel implements the client side of a cast channel: a
// TLS-secured, message-framed connection to a device with an explicit
// connect handshake, device authentication, and single-reader
// single-writer I/O driven by small state machines.
package channel

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cast-protocol/cast-go/pkg/auth"
	"github.com/cast-protocol/cast-go/pkg/log"
	"github.com/cast-protocol/cast-go/pkg/transport"
	"github.com/cast-protocol/cast-go/pkg/wire"
)

// DefaultConnectTimeout bounds the whole connect sequence: TCP
// connect, TLS handshake and device authentication.
const DefaultConnectTimeout = 10 * time.Second

// errIOPending signals that a state machine handler started an
// asynchronous operation and the loop must yield until its completion
// is posted back.
var errIOPending = errors.New("io pending")

// ioResult carries the outcome of an asynchronous operation back into
// a state machine loop.
type ioResult struct {
	n    int
	err  error
	conn net.Conn       // TCP connect result
	sec  transport.Conn // TLS connect result
}

// Config configures a channel to one device.
type Config struct {
	// Endpoint is the device address as host:port.
	Endpoint string

	// AuthMode selects post-TLS authentication. The default performs
	// the device authentication challenge.
	AuthMode AuthMode

	// TrustedCAs verifies device authentication certificates and,
	// when no certificate is pinned, the TLS chain. Nil uses system
	// roots for TLS and rejects all device-auth chains.
	TrustedCAs *x509.CertPool

	// ConnectTimeout bounds the connect sequence. Zero uses
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// MaxMessageSize caps frame bodies in both directions. Zero uses
	// the transport default.
	MaxMessageSize uint32

	// KeepAlive enables heartbeat monitoring on the open channel.
	// Nil disables it.
	KeepAlive *transport.KeepAliveConfig

	// Logger receives protocol events. The channel always keeps its
	// own recent-event ring regardless.
	Logger log.Logger

	// Dialer overrides connection establishment. Nil uses a
	// transport.Factory for Endpoint.
	Dialer transport.Dialer
}

// writeRequest is one queued outbound frame. Frames are written fully
// and in FIFO order; the callback fires when the last byte is accepted
// by the connection, or with an error if the channel fails first.
type writeRequest struct {
	frame    []byte
	consumed int
	callback func(error)
}

// Socket is a channel to a single device. A Socket connects once and
// closes once; it is not reusable.
//
// All internal state is owned by one goroutine. Public methods post
// work to it and are safe to call from any goroutine.
type Socket struct {
	id       string
	cfg      Config
	delegate Delegate
	dialer   transport.Dialer

	ring   *log.Ring
	logger log.Logger

	tasks    chan func()
	postMu   sync.Mutex
	loopDone chan struct{}
	deferred []func()
	loopOnce sync.Once
	stopped  bool
	torndown bool

	readyState atomic.Int32
	errorState atomic.Int32

	connectState connectState
	readState    readState
	writeState   writeState

	rawConn     net.Conn
	conn        transport.Conn
	peerCert    *x509.Certificate
	peerCertPub atomic.Pointer[x509.Certificate]
	pinnedCert  []byte

	framer   *transport.MessageFramer
	verifier *auth.Verifier
	readBuf  []byte

	writeQueue []*writeRequest

	connectCallback func(error)
	connectTimer    *time.Timer
	connectCtx      context.Context
	connectCancel   context.CancelFunc
	handshakeDone   bool
	pendingReply    *wire.Message

	keepAlive *transport.KeepAlive
	kaCancel  context.CancelFunc
}

// New creates a channel to the device described by cfg. The channel
// does nothing until Connect is called.
func New(cfg Config, delegate Delegate) *Socket {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = transport.DefaultMaxMessageSize
	}

	s := &Socket{
		id:       uuid.NewString(),
		cfg:      cfg,
		delegate: delegate,
		dialer:   cfg.Dialer,
		ring:     log.NewRing(log.DefaultRingCapacity),
		tasks:    make(chan func(), 64),
		loopDone: make(chan struct{}),
		framer:   transport.NewMessageFramerWithMaxSize(cfg.MaxMessageSize),
		verifier: auth.NewVerifier(cfg.TrustedCAs),
		readBuf:  make([]byte, cfg.MaxMessageSize),
	}
	s.logger = log.NewMultiLogger(s.ring, cfg.Logger)
	if s.dialer == nil {
		f := transport.NewFactory(cfg.Endpoint, transport.TLSParams{RootCAs: cfg.TrustedCAs})
		f.Logger = s.logger
		s.dialer = f
	}
	return s
}

// ID returns the channel's unique identifier.
func (s *Socket) ID() string { return s.id }

// Endpoint returns the device address this channel targets.
func (s *Socket) Endpoint() string { return s.cfg.Endpoint }

// ReadyState returns the current lifecycle state.
func (s *Socket) ReadyState() ReadyState {
	return ReadyState(s.readyState.Load())
}

// ErrorState returns the first fatal error recorded on this channel,
// or ErrorStateNone.
func (s *Socket) ErrorState() ErrorState {
	return ErrorState(s.errorState.Load())
}

// PeerCertificate returns the TLS certificate the device presented, or
// nil before the TLS handshake completes.
func (s *Socket) PeerCertificate() *x509.Certificate {
	return s.peerCertPub.Load()
}

// RecentEvents returns a snapshot of the channel's recent protocol
// events, newest last.
func (s *Socket) RecentEvents() []log.Event {
	return s.ring.Snapshot()
}

// Connect starts the connect sequence. The callback fires exactly once
// with nil on success or the failure reason; on failure the channel is
// closed and ErrorState records what went wrong.
func (s *Socket) Connect(callback func(error)) {
	if callback == nil {
		callback = func(error) {}
	}
	if !s.post(func() { s.startConnect(callback) }) {
		callback(ErrChannelClosed)
	}
}

// SendMessage queues a message for delivery. Messages are written in
// FIFO order; the callback fires once the frame has been fully written,
// or with an error if the channel is not open or fails first.
func (s *Socket) SendMessage(msg *wire.Message, callback func(error)) {
	if callback == nil {
		callback = func(error) {}
	}
	if err := msg.Validate(); err != nil {
		callback(err)
		return
	}
	if !s.post(func() { s.sendInternal(msg, callback, false) }) {
		callback(ErrChannelClosed)
	}
}

// Close tears the channel down. Close is idempotent; the callback
// always fires with nil. Pending send callbacks fire with
// ErrChannelClosed. Closing does not invoke the delegate.
func (s *Socket) Close(callback func(error)) {
	if callback == nil {
		callback = func(error) {}
	}
	posted := s.post(func() {
		s.closeInternal("local close")
		s.stopped = true
		callback(nil)
	})
	if !posted {
		callback(nil)
	}
}

// run is the owner goroutine. Every piece of socket state is touched
// only from here. On exit it drains the task queue so tasks posted
// while the final callbacks ran still fire.
func (s *Socket) run() {
	for {
		s.runTask(<-s.tasks)
		if s.stopped {
			s.drainTasks()
			s.postMu.Lock()
			close(s.loopDone)
			s.postMu.Unlock()
			s.drainTasks()
			return
		}
	}
}

func (s *Socket) runTask(task func()) {
	task()
	for len(s.deferred) > 0 {
		next := s.deferred[0]
		s.deferred = s.deferred[1:]
		next()
	}
}

func (s *Socket) drainTasks() {
	for {
		select {
		case task := <-s.tasks:
			s.runTask(task)
		default:
			return
		}
	}
}

// post hands a task to the owner goroutine, starting it on first use.
// It returns false once the goroutine has exited; the caller then
// handles the task itself. The mutex orders the liveness check against
// close(loopDone): a task enqueued here is either run by the loop or
// by its exit drain, never dropped.
func (s *Socket) post(task func()) bool {
	s.loopOnce.Do(func() { go s.run() })
	s.postMu.Lock()
	defer s.postMu.Unlock()
	select {
	case <-s.loopDone:
		return false
	default:
	}
	s.tasks <- task
	return true
}

// deferOp queues a continuation to run after the current task, on the
// owner goroutine. Used to hand results between state machine loops
// without recursive re-entry.
func (s *Socket) deferOp(op func()) {
	s.deferred = append(s.deferred, op)
}

func (s *Socket) startConnect(callback func(error)) {
	if s.ReadyState() != ReadyStateNone {
		callback(ErrAlreadyConnected)
		return
	}
	s.setReadyState(ReadyStateConnecting, "connect requested")
	s.connectCallback = callback
	s.connectCtx, s.connectCancel = context.WithCancel(context.Background())
	s.connectTimer = time.AfterFunc(s.cfg.ConnectTimeout, func() {
		s.post(s.onConnectTimeout)
	})

	s.connectState = connectStateTCPConnect
	s.doConnectLoop(ioResult{})
}

func (s *Socket) onConnectTimeout() {
	if s.torndown || s.ReadyState() != ReadyStateConnecting {
		return
	}
	s.setErrorStateIfNone(ErrorStateConnectTimeout)
	s.closeWithError()
}

// doConnectLoop drives the connect state machine until it finishes or
// an asynchronous operation is pending.
func (s *Socket) doConnectLoop(result ioResult) {
	if s.torndown {
		return
	}
	rv := result
	for {
		state := s.connectState
		s.connectState = connectStateNone
		s.logConnectState(state)
		switch state {
		case connectStateTCPConnect:
			rv = s.doTCPConnect()
		case connectStateTCPConnectComplete:
			rv = s.doTCPConnectComplete(rv)
		case connectStateTLSConnect:
			rv = s.doTLSConnect()
		case connectStateTLSConnectComplete:
			rv = s.doTLSConnectComplete(rv)
		case connectStateAuthChallengeSend:
			rv = s.doAuthChallengeSend()
		case connectStateAuthChallengeSendComplete:
			rv = s.doAuthChallengeSendComplete(rv)
		case connectStateAuthChallengeReplyComplete:
			rv = s.doAuthChallengeReplyComplete(rv)
		default:
			rv = ioResult{err: fmt.Errorf("connect loop in unexpected state %v", state)}
		}
		if errors.Is(rv.err, errIOPending) {
			return
		}
		if rv.err != nil || s.connectState == connectStateNone {
			break
		}
	}

	if rv.err != nil {
		s.logError("connect", rv.err)
		s.setErrorStateIfNone(ErrorStateConnectError)
		s.closeWithError()
		return
	}
	s.onConnectSuccess()
}

func (s *Socket) doTCPConnect() ioResult {
	s.connectState = connectStateTCPConnectComplete
	ctx := s.connectCtx
	go func() {
		conn, err := s.dialer.DialTCP(ctx)
		s.post(func() { s.doConnectLoop(ioResult{conn: conn, err: err}) })
	}()
	return ioResult{err: errIOPending}
}

func (s *Socket) doTCPConnectComplete(rv ioResult) ioResult {
	if rv.err != nil {
		return rv
	}
	s.rawConn = rv.conn
	s.connectState = connectStateTLSConnect
	return ioResult{}
}

func (s *Socket) doTLSConnect() ioResult {
	s.connectState = connectStateTLSConnectComplete
	ctx := s.connectCtx
	raw := s.rawConn
	pin := s.pinnedCert
	go func() {
		conn, err := s.dialer.DialTLS(ctx, raw, pin)
		s.post(func() { s.doConnectLoop(ioResult{sec: conn, err: err}) })
	}()
	return ioResult{err: errIOPending}
}

func (s *Socket) doTLSConnectComplete(rv ioResult) ioResult {
	if rv.err != nil {
		// First failure against an untrusted peer: pin the observed
		// certificate and retry the whole connect once.
		var caErr *transport.CertAuthorityError
		if errors.As(rv.err, &caErr) && s.pinnedCert == nil && caErr.PeerCert != nil {
			s.logError("tls", rv.err)
			s.pinnedCert = caErr.PeerCert.Raw
			if s.rawConn != nil {
				s.rawConn.Close()
				s.rawConn = nil
			}
			s.connectState = connectStateTCPConnect
			return ioResult{}
		}
		return rv
	}

	s.conn = rv.sec
	s.peerCert = rv.sec.PeerCertificate()
	s.peerCertPub.Store(s.peerCert)
	if s.cfg.AuthMode == AuthModeChallengeReply {
		s.connectState = connectStateAuthChallengeSend
	}
	return ioResult{}
}

func (s *Socket) doAuthChallengeSend() ioResult {
	s.connectState = connectStateAuthChallengeSendComplete

	challenge, err := s.verifier.ChallengeMessage()
	if err != nil {
		return ioResult{err: err}
	}
	frame, err := s.framer.Serialize(challenge)
	if err != nil {
		return ioResult{err: err}
	}

	// The write completion resumes the connect loop.
	s.writeQueue = append(s.writeQueue, &writeRequest{
		frame: frame,
		callback: func(err error) {
			s.deferOp(func() { s.doConnectLoop(ioResult{err: err}) })
		},
	})
	s.logFrame(log.DirectionOut, len(frame), challenge.Namespace)
	s.kickWriteLoop()
	return ioResult{err: errIOPending}
}

func (s *Socket) doAuthChallengeSendComplete(rv ioResult) ioResult {
	if rv.err != nil {
		return rv
	}
	s.connectState = connectStateAuthChallengeReplyComplete
	// Start reading to receive the device's reply. The read loop
	// resumes the connect loop when the reply arrives.
	s.kickReadLoop()
	return ioResult{err: errIOPending}
}

func (s *Socket) doAuthChallengeReplyComplete(rv ioResult) ioResult {
	if rv.err != nil {
		return rv
	}
	reply := s.pendingReply
	s.pendingReply = nil
	if err := s.verifier.VerifyChallengeReply(reply, s.peerCert); err != nil {
		s.setErrorStateIfNone(ErrorStateAuthFailed)
		return ioResult{err: err}
	}
	return ioResult{}
}

func (s *Socket) onConnectSuccess() {
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
	s.handshakeDone = true
	s.setReadyState(ReadyStateOpen, "handshake complete")
	s.kickReadLoop()
	s.startKeepAlive()

	cb := s.connectCallback
	s.connectCallback = nil
	if cb != nil {
		cb(nil)
	}
}

func (s *Socket) sendInternal(msg *wire.Message, callback func(error), internal bool) {
	if !internal && s.ReadyState() != ReadyStateOpen {
		callback(ErrNotOpen)
		return
	}
	if s.torndown {
		callback(ErrChannelClosed)
		return
	}
	frame, err := s.framer.Serialize(msg)
	if err != nil {
		callback(err)
		return
	}
	s.writeQueue = append(s.writeQueue, &writeRequest{frame: frame, callback: callback})
	s.logFrame(log.DirectionOut, len(frame), msg.Namespace)
	s.kickWriteLoop()
}

// kickWriteLoop starts the write loop if it is idle. A running loop
// picks up new queue entries on its own.
func (s *Socket) kickWriteLoop() {
	if s.writeState != writeStateNone {
		return
	}
	s.writeState = writeStateWrite
	s.deferOp(func() { s.doWriteLoop(ioResult{}) })
}

// kickReadLoop starts the read loop if it is idle. Only one read is
// ever outstanding.
func (s *Socket) kickReadLoop() {
	if s.readState != readStateNone {
		return
	}
	s.readState = readStateRead
	s.deferOp(func() { s.doReadLoop(ioResult{}) })
}

// doWriteLoop drives the write state machine.
func (s *Socket) doWriteLoop(result ioResult) {
	if s.torndown {
		return
	}
	rv := result
	for {
		state := s.writeState
		s.writeState = writeStateNone
		switch state {
		case writeStateWrite:
			rv = s.doWrite()
		case writeStateWriteComplete:
			rv = s.doWriteComplete(rv)
		case writeStateDoCallback:
			rv = s.doWriteCallback()
		case writeStateError:
			s.doWriteError(rv)
			return
		default:
			return
		}
		if errors.Is(rv.err, errIOPending) {
			return
		}
		if s.writeState == writeStateNone {
			return
		}
	}
}

func (s *Socket) doWrite() ioResult {
	s.writeState = writeStateWriteComplete
	head := s.writeQueue[0]
	conn := s.conn
	buf := head.frame[head.consumed:]
	go func() {
		n, err := conn.Write(buf)
		s.post(func() { s.doWriteLoop(ioResult{n: n, err: err}) })
	}()
	return ioResult{err: errIOPending}
}

func (s *Socket) doWriteComplete(rv ioResult) ioResult {
	if rv.err != nil {
		s.writeState = writeStateError
		return rv
	}
	head := s.writeQueue[0]
	head.consumed += rv.n
	if head.consumed < len(head.frame) {
		// Partial write: continue with the remainder of this frame.
		s.writeState = writeStateWrite
	} else {
		s.writeState = writeStateDoCallback
	}
	return ioResult{}
}

func (s *Socket) doWriteCallback() ioResult {
	head := s.writeQueue[0]
	s.writeQueue = s.writeQueue[1:]
	head.callback(nil)
	if len(s.writeQueue) > 0 {
		s.writeState = writeStateWrite
	}
	return ioResult{}
}

// doWriteError fails the request being written and tears the channel
// down. During the handshake the request callback routes the error
// into the connect loop, which owns the teardown instead.
func (s *Socket) doWriteError(rv ioResult) {
	s.logError("write", rv.err)
	head := s.writeQueue[0]
	s.writeQueue = s.writeQueue[1:]
	head.callback(rv.err)
	if s.handshakeDone {
		s.setErrorStateIfNone(ErrorStateSocketError)
		s.closeWithError()
	}
}

// doReadLoop drives the read state machine.
func (s *Socket) doReadLoop(result ioResult) {
	if s.torndown {
		return
	}
	rv := result
	for {
		state := s.readState
		s.readState = readStateNone
		switch state {
		case readStateRead:
			rv = s.doRead()
		case readStateReadComplete:
			rv = s.doReadComplete(rv)
		case readStateDoCallback:
			rv = s.doReadCallback()
		case readStateError:
			s.doReadError(rv)
			return
		default:
			return
		}
		if errors.Is(rv.err, errIOPending) {
			return
		}
		if s.readState == readStateNone {
			return
		}
	}
}

func (s *Socket) doRead() ioResult {
	s.readState = readStateReadComplete
	conn := s.conn
	buf := s.readBuf[:s.framer.BytesRequested()]
	go func() {
		n, err := conn.Read(buf)
		s.post(func() { s.doReadLoop(ioResult{n: n, err: err}) })
	}()
	return ioResult{err: errIOPending}
}

func (s *Socket) doReadComplete(rv ioResult) ioResult {
	if rv.err != nil {
		s.readState = readStateError
		return rv
	}
	msg, err := s.framer.Ingest(s.readBuf[:rv.n])
	if err != nil {
		s.setErrorStateIfNone(ErrorStateInvalidMessage)
		s.readState = readStateError
		return ioResult{err: err}
	}
	if msg == nil {
		s.readState = readStateRead
		return ioResult{}
	}
	s.pendingReply = msg
	s.logFrame(log.DirectionIn, transport.FrameSize(rv.n), msg.Namespace)
	s.readState = readStateDoCallback
	return ioResult{}
}

func (s *Socket) doReadCallback() ioResult {
	msg := s.pendingReply
	s.readState = readStateRead

	if !s.handshakeDone {
		// The only acceptable message before the handshake finishes
		// is the device's auth reply.
		if !msg.IsAuthMessage() {
			s.pendingReply = nil
			s.setErrorStateIfNone(ErrorStateInvalidMessage)
			s.readState = readStateError
			return ioResult{err: ErrInvalidMessage}
		}
		// Leave the reply for the connect loop and keep reading.
		s.deferOp(func() { s.doConnectLoop(ioResult{}) })
		return ioResult{}
	}

	s.pendingReply = nil
	switch {
	case msg.IsHeartbeatMessage():
		s.handleControlMessage(msg)
	case msg.IsAuthMessage():
		// Unsolicited auth traffic after the handshake is dropped.
	default:
		if s.delegate != nil {
			s.delegate.OnMessage(s, msg)
		}
	}
	return ioResult{}
}

func (s *Socket) doReadError(rv ioResult) {
	s.logError("read", rv.err)
	if s.handshakeDone {
		s.setErrorStateIfNone(ErrorStateSocketError)
	} else {
		s.setErrorStateIfNone(ErrorStateConnectError)
	}
	s.closeWithError()
}

func (s *Socket) handleControlMessage(msg *wire.Message) {
	ctrl, err := wire.DecodeControlMessage(msg)
	if err != nil {
		s.logError("heartbeat", err)
		return
	}
	s.logControl(ctrl.Type)
	switch ctrl.Type {
	case wire.ControlPing:
		pong, err := wire.NewControlMessage(wire.ControlPong, ctrl.Sequence)
		if err != nil {
			return
		}
		s.sendInternal(pong, func(error) {}, true)
	case wire.ControlPong:
		if s.keepAlive != nil {
			s.keepAlive.PongReceived(ctrl.Sequence)
		}
	}
}

func (s *Socket) startKeepAlive() {
	if s.cfg.KeepAlive == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.kaCancel = cancel
	s.keepAlive = transport.NewKeepAlive(*s.cfg.KeepAlive, s.sendPing, s.onKeepAliveTimeout)
	s.keepAlive.Start(ctx)
}

// sendPing runs on the keep-alive goroutine.
func (s *Socket) sendPing(seq uint32) error {
	ping, err := wire.NewControlMessage(wire.ControlPing, seq)
	if err != nil {
		return err
	}
	if !s.post(func() { s.sendInternal(ping, func(error) {}, true) }) {
		return ErrChannelClosed
	}
	return nil
}

// onKeepAliveTimeout runs on the keep-alive goroutine.
func (s *Socket) onKeepAliveTimeout() {
	s.post(func() {
		if s.torndown {
			return
		}
		s.logError("heartbeat", errors.New("liveness timeout"))
		s.setErrorStateIfNone(ErrorStateSocketError)
		s.closeWithError()
	})
}

// closeWithError finishes a failed channel: records the error state,
// tears the connection down, then reports the failure through the
// connect callback if the handshake was still in flight, and in every
// case through the delegate. The torndown guard keeps OnError
// at-most-once and keeps a local close silent.
func (s *Socket) closeWithError() {
	if s.torndown {
		return
	}
	if s.handshakeDone {
		s.setErrorStateIfNone(ErrorStateSocketError)
	} else {
		s.setErrorStateIfNone(ErrorStateConnectError)
	}
	state := s.ErrorState()

	events := s.ring.Snapshot()
	cb := s.connectCallback
	s.connectCallback = nil

	s.closeInternal(state.String())
	s.stopped = true

	if cb != nil {
		cb(errorForState(state))
	}
	if s.delegate != nil {
		s.delegate.OnError(s, state, events)
	}
}

// closeInternal releases every resource exactly once and moves the
// channel to CLOSED. Safe to call repeatedly.
func (s *Socket) closeInternal(reason string) {
	if s.ReadyState() == ReadyStateClosed {
		return
	}
	s.torndown = true
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
	if s.connectCancel != nil {
		s.connectCancel()
		s.connectCancel = nil
	}
	if s.keepAlive != nil {
		s.keepAlive.Stop()
		s.keepAlive = nil
	}
	if s.kaCancel != nil {
		s.kaCancel()
		s.kaCancel = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.rawConn = nil
	} else if s.rawConn != nil {
		s.rawConn.Close()
		s.rawConn = nil
	}

	for _, req := range s.writeQueue {
		req.callback(ErrChannelClosed)
	}
	s.writeQueue = nil

	if cb := s.connectCallback; cb != nil {
		s.connectCallback = nil
		cb(ErrChannelClosed)
	}

	s.setReadyState(ReadyStateClosed, reason)
}

func (s *Socket) setReadyState(state ReadyState, reason string) {
	old := ReadyState(s.readyState.Swap(int32(state)))
	if old == state {
		return
	}
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    log.DirectionNone,
		Layer:        log.LayerChannel,
		Category:     log.CategoryState,
		RemoteAddr:   s.cfg.Endpoint,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityReady,
			OldState: old.String(),
			NewState: state.String(),
			Reason:   reason,
		},
	})
}

func (s *Socket) setErrorStateIfNone(state ErrorState) {
	if s.errorState.CompareAndSwap(int32(ErrorStateNone), int32(state)) {
		s.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.id,
			Direction:    log.DirectionNone,
			Layer:        log.LayerChannel,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityError,
				OldState: ErrorStateNone.String(),
				NewState: state.String(),
			},
		})
	}
}

func (s *Socket) logConnectState(state connectState) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    log.DirectionNone,
		Layer:        log.LayerChannel,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnect,
			NewState: state.String(),
		},
	})
}

func (s *Socket) logFrame(direction log.Direction, size int, namespace string) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    direction,
		Layer:        log.LayerChannel,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      size,
			Namespace: namespace,
			Truncated: true,
		},
	})
}

func (s *Socket) logControl(msgType wire.ControlMessageType) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerChannel,
		Category:     log.CategoryControl,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityRead,
			NewState: msgType.String(),
		},
	})
}

func (s *Socket) logError(context string, err error) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    log.DirectionNone,
		Layer:        log.LayerChannel,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerChannel,
			Message: err.Error(),
			Context: context,
		},
	})
}
