package channel

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cast-protocol/cast-go/internal/testcert"
	"github.com/cast-protocol/cast-go/pkg/auth"
	"github.com/cast-protocol/cast-go/pkg/log"
	"github.com/cast-protocol/cast-go/pkg/transport"
	"github.com/cast-protocol/cast-go/pkg/wire"
)

const testTimeout = 5 * time.Second

// testDelegate collects delegate callbacks on channels.
type testDelegate struct {
	messages chan *wire.Message
	errors   chan delegateError
}

type delegateError struct {
	state  ErrorState
	events []log.Event
}

func newTestDelegate() *testDelegate {
	return &testDelegate{
		messages: make(chan *wire.Message, 16),
		errors:   make(chan delegateError, 4),
	}
}

func (d *testDelegate) OnMessage(_ *Socket, msg *wire.Message) {
	d.messages <- msg
}

func (d *testDelegate) OnError(_ *Socket, state ErrorState, events []log.Event) {
	d.errors <- delegateError{state: state, events: events}
}

// dummyConn is a placeholder raw TCP connection for the fake dialer.
type dummyConn struct {
	closed atomic.Bool
}

func (c *dummyConn) Read([]byte) (int, error)         { return 0, net.ErrClosed }
func (c *dummyConn) Write([]byte) (int, error)        { return 0, net.ErrClosed }
func (c *dummyConn) Close() error                     { c.closed.Store(true); return nil }
func (c *dummyConn) LocalAddr() net.Addr              { return &net.TCPAddr{} }
func (c *dummyConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (c *dummyConn) SetDeadline(time.Time) error      { return nil }
func (c *dummyConn) SetReadDeadline(time.Time) error  { return nil }
func (c *dummyConn) SetWriteDeadline(time.Time) error { return nil }

// testConn is the secured connection handed to the socket. It fronts
// one end of an in-memory pipe and checks the single-flight invariant:
// the socket must never have two reads or two writes outstanding.
type testConn struct {
	net.Conn
	peerCert   *x509.Certificate
	writeHook  func(net.Conn, []byte) (int, error)
	inRead     atomic.Int32
	inWrite    atomic.Int32
	violations chan string
}

func (c *testConn) Read(p []byte) (int, error) {
	if c.inRead.Add(1) != 1 {
		c.violations <- "concurrent reads"
	}
	defer c.inRead.Add(-1)
	return c.Conn.Read(p)
}

func (c *testConn) Write(p []byte) (int, error) {
	if c.inWrite.Add(1) != 1 {
		c.violations <- "concurrent writes"
	}
	defer c.inWrite.Add(-1)
	if c.writeHook != nil {
		return c.writeHook(c.Conn, p)
	}
	return c.Conn.Write(p)
}

func (c *testConn) PeerCertificate() *x509.Certificate { return c.peerCert }

// fakeDialer scripts connection establishment. Each DialTLS attempt
// consumes the next entry of tlsErrs; once exhausted, it builds a pipe
// and hands the device side to onDevice.
type fakeDialer struct {
	mu       sync.Mutex
	tcpErr   error
	tcpHang  bool
	tlsErrs  []error
	onDevice func(net.Conn)
	peerCert *x509.Certificate
	hook     func(net.Conn, []byte) (int, error)

	tcpCalls   int
	tlsCalls   int
	lastPinned []byte
	violations chan string
}

func newFakeDialer(peerCert *x509.Certificate, onDevice func(net.Conn)) *fakeDialer {
	return &fakeDialer{
		peerCert:   peerCert,
		onDevice:   onDevice,
		violations: make(chan string, 4),
	}
}

func (d *fakeDialer) DialTCP(ctx context.Context) (net.Conn, error) {
	d.mu.Lock()
	d.tcpCalls++
	hang, err := d.tcpHang, d.tcpErr
	d.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &dummyConn{}, nil
}

func (d *fakeDialer) DialTLS(_ context.Context, _ net.Conn, pinned []byte) (transport.Conn, error) {
	d.mu.Lock()
	d.tlsCalls++
	d.lastPinned = pinned
	var scripted error
	if len(d.tlsErrs) > 0 {
		scripted = d.tlsErrs[0]
		d.tlsErrs = d.tlsErrs[1:]
	}
	d.mu.Unlock()

	if scripted != nil {
		return nil, scripted
	}

	clientSide, deviceSide := net.Pipe()
	if d.onDevice != nil {
		go d.onDevice(deviceSide)
	}
	return &testConn{
		Conn:       clientSide,
		peerCert:   d.peerCert,
		writeHook:  d.hook,
		violations: d.violations,
	}, nil
}

// deviceEnv bundles the fake device identity.
type deviceEnv struct {
	trustedCAs *x509.CertPool
	responder  *auth.Responder
	tlsCert    *x509.Certificate
}

func newDeviceEnv(t *testing.T) *deviceEnv {
	t.Helper()
	ca, err := testcert.NewCA("Device Auth CA")
	require.NoError(t, err)
	clientAuth, err := ca.Issue("device-1")
	require.NoError(t, err)
	tlsCert, err := testcert.SelfSigned("device-1")
	require.NoError(t, err)
	responder, err := auth.NewResponder(clientAuth)
	require.NoError(t, err)
	return &deviceEnv{
		trustedCAs: ca.Pool(),
		responder:  responder,
		tlsCert:    tlsCert.Leaf,
	}
}

// serveDevice runs a well-behaved device on conn: it answers the auth
// challenge, replies to pings, and echoes everything else back.
func (e *deviceEnv) serveDevice(conn net.Conn) {
	e.serveDeviceSigning(conn, e.tlsCert.Raw)
}

// serveDeviceSigning lets tests make the device sign an arbitrary TLS
// certificate in its auth reply.
func (e *deviceEnv) serveDeviceSigning(conn net.Conn, signedDER []byte) {
	defer conn.Close()
	f := transport.NewFramer(conn)
	for {
		payload, err := f.ReadFrame()
		if err != nil {
			return
		}
		msg, err := wire.DecodeMessage(payload)
		if err != nil {
			return
		}

		var reply *wire.Message
		switch {
		case msg.IsAuthMessage():
			reply, err = e.responder.Respond(msg, signedDER)
			if err != nil {
				return
			}
		case msg.IsHeartbeatMessage():
			ctrl, err := wire.DecodeControlMessage(msg)
			if err != nil || ctrl.Type != wire.ControlPing {
				continue
			}
			reply, err = wire.NewControlMessage(wire.ControlPong, ctrl.Sequence)
			if err != nil {
				return
			}
		default:
			reply = msg
		}

		body, err := wire.EncodeMessage(reply)
		if err != nil {
			return
		}
		if err := f.WriteFrame(body); err != nil {
			return
		}
	}
}

func connect(t *testing.T, s *Socket) error {
	t.Helper()
	done := make(chan error, 1)
	s.Connect(func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-time.After(testTimeout):
		t.Fatal("connect callback never fired")
		return nil
	}
}

func closeSocket(t *testing.T, s *Socket) {
	t.Helper()
	done := make(chan struct{})
	s.Close(func(error) { close(done) })
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("close callback never fired")
	}
}

func newTestSocket(t *testing.T, env *deviceEnv, d *fakeDialer, delegate Delegate) *Socket {
	t.Helper()
	s := New(Config{
		Endpoint:   "192.0.2.1:8009",
		TrustedCAs: env.trustedCAs,
		Dialer:     d,
	}, delegate)
	t.Cleanup(func() { closeSocket(t, s) })
	return s
}

func TestConnectAndMessageRoundTrip(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	delegate := newTestDelegate()
	s := newTestSocket(t, env, dialer, delegate)

	require.Equal(t, ReadyStateNone, s.ReadyState())
	require.NoError(t, connect(t, s))
	assert.Equal(t, ReadyStateOpen, s.ReadyState())
	assert.Equal(t, ErrorStateNone, s.ErrorState())
	require.NotNil(t, s.PeerCertificate())
	assert.True(t, s.PeerCertificate().Equal(env.tlsCert))

	sent := make(chan error, 1)
	s.SendMessage(wire.NewTextMessage("urn:x-cast:com.example.app", "hello"), func(err error) {
		sent <- err
	})
	require.NoError(t, <-sent)

	select {
	case msg := <-delegate.messages:
		assert.Equal(t, "urn:x-cast:com.example.app", msg.Namespace)
		assert.Equal(t, "hello", msg.PayloadUTF8)
	case <-time.After(testTimeout):
		t.Fatal("echo never delivered")
	}

	select {
	case v := <-dialer.violations:
		t.Fatalf("single-flight violation: %s", v)
	default:
	}
}

func TestConnectPinsUntrustedCertAndRetries(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	dialer.tlsErrs = []error{
		&transport.CertAuthorityError{PeerCert: env.tlsCert, Err: errors.New("unknown authority")},
	}
	s := newTestSocket(t, env, dialer, newTestDelegate())

	require.NoError(t, connect(t, s))
	assert.Equal(t, ReadyStateOpen, s.ReadyState())

	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	assert.Equal(t, 2, dialer.tcpCalls, "retry must restart from TCP connect")
	assert.Equal(t, 2, dialer.tlsCalls)
	assert.Equal(t, env.tlsCert.Raw, dialer.lastPinned, "second attempt must pin the observed cert")
}

func TestConnectPinMismatchIsFatal(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	dialer.tlsErrs = []error{
		&transport.CertAuthorityError{PeerCert: env.tlsCert, Err: errors.New("unknown authority")},
		transport.ErrPinMismatch,
	}
	s := newTestSocket(t, env, dialer, newTestDelegate())

	err := connect(t, s)
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, ErrorStateConnectError, s.ErrorState())
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
}

func TestConnectTCPFailure(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	dialer.tcpErr = errors.New("connection refused")
	s := newTestSocket(t, env, dialer, newTestDelegate())

	err := connect(t, s)
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, ErrorStateConnectError, s.ErrorState())
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
}

func TestConnectTimeout(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	dialer.tcpHang = true
	s := New(Config{
		Endpoint:       "192.0.2.1:8009",
		TrustedCAs:     env.trustedCAs,
		Dialer:         dialer,
		ConnectTimeout: 30 * time.Millisecond,
	}, newTestDelegate())
	t.Cleanup(func() { closeSocket(t, s) })

	err := connect(t, s)
	require.ErrorIs(t, err, ErrConnectTimeout)
	assert.Equal(t, ErrorStateConnectTimeout, s.ErrorState())
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
}

func TestAuthFailureWhenDeviceSignsWrongCert(t *testing.T) {
	env := newDeviceEnv(t)
	otherTLS, err := testcert.SelfSigned("device-other")
	require.NoError(t, err)

	dialer := newFakeDialer(env.tlsCert, func(conn net.Conn) {
		env.serveDeviceSigning(conn, otherTLS.Leaf.Raw)
	})
	s := newTestSocket(t, env, dialer, newTestDelegate())

	err = connect(t, s)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, ErrorStateAuthFailed, s.ErrorState())
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
}

func TestInvalidMessageDuringHandshake(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, func(conn net.Conn) {
		defer conn.Close()
		f := transport.NewFramer(conn)
		if _, err := f.ReadFrame(); err != nil {
			return
		}
		// Answer the challenge with an unrelated message.
		body, err := wire.EncodeMessage(wire.NewTextMessage("urn:x-cast:rogue", "nope"))
		if err != nil {
			return
		}
		f.WriteFrame(body)
	})
	s := newTestSocket(t, env, dialer, newTestDelegate())

	err := connect(t, s)
	require.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, ErrorStateInvalidMessage, s.ErrorState())
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
}

func TestConnectFailsWhenDeviceClosesAfterChallenge(t *testing.T) {
	env := newDeviceEnv(t)
	// Device accepts the challenge, then hangs up without replying.
	dialer := newFakeDialer(env.tlsCert, func(conn net.Conn) {
		defer conn.Close()
		f := transport.NewFramer(conn)
		f.ReadFrame()
	})
	s := newTestSocket(t, env, dialer, newTestDelegate())

	err := connect(t, s)
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, ErrorStateConnectError, s.ErrorState())
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
}

func TestConnectFailureReportsDelegate(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	dialer.tcpErr = errors.New("connection refused")
	delegate := newTestDelegate()
	s := newTestSocket(t, env, dialer, delegate)

	require.ErrorIs(t, connect(t, s), ErrConnectFailed)

	select {
	case de := <-delegate.errors:
		assert.Equal(t, ErrorStateConnectError, de.state)
		assert.NotEmpty(t, de.events, "recent events must accompany OnError")
	case <-time.After(testTimeout):
		t.Fatal("OnError never fired")
	}
	select {
	case <-delegate.errors:
		t.Fatal("OnError fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseFromConnectCallback(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	dialer.tcpErr = errors.New("connection refused")
	s := New(Config{
		Endpoint:   "192.0.2.1:8009",
		TrustedCAs: env.trustedCAs,
		Dialer:     dialer,
	}, newTestDelegate())

	// Closing from the failure callback lands in the task queue while
	// the loop is shutting down; the close callback must still fire.
	closed := make(chan struct{})
	s.Connect(func(err error) {
		require.ErrorIs(t, err, ErrConnectFailed)
		s.Close(func(error) { close(closed) })
	})
	select {
	case <-closed:
	case <-time.After(testTimeout):
		t.Fatal("close callback never fired")
	}
}

func TestCloseWithoutConnect(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	s := New(Config{
		Endpoint:   "192.0.2.1:8009",
		TrustedCAs: env.trustedCAs,
		Dialer:     dialer,
	}, newTestDelegate())

	closeSocket(t, s)
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
	assert.Equal(t, ErrorStateNone, s.ErrorState())
}

func TestSendWithoutConnect(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	s := New(Config{
		Endpoint:   "192.0.2.1:8009",
		TrustedCAs: env.trustedCAs,
		Dialer:     dialer,
	}, newTestDelegate())
	t.Cleanup(func() { closeSocket(t, s) })

	done := make(chan error, 1)
	s.SendMessage(wire.NewTextMessage("urn:x-cast:test", "early"), func(err error) {
		done <- err
	})
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNotOpen)
	case <-time.After(testTimeout):
		t.Fatal("send callback never fired")
	}
}

func TestSendBeforeOpenFails(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	s := newTestSocket(t, env, dialer, newTestDelegate())

	done := make(chan error, 1)
	s.SendMessage(wire.NewTextMessage("urn:x-cast:test", "early"), func(err error) {
		done <- err
	})
	// The socket loop starts with Connect; the queued send runs first
	// and must be rejected before the channel opens.
	require.NoError(t, connect(t, s))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNotOpen)
	case <-time.After(testTimeout):
		t.Fatal("send callback never fired")
	}
}

func TestSendQueueFIFOWithPartialWrites(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	// Accept at most 7 bytes per write so every frame takes several
	// write-loop turns.
	dialer.hook = func(conn net.Conn, p []byte) (int, error) {
		n := len(p)
		if n > 7 {
			n = 7
		}
		return conn.Write(p[:n])
	}
	delegate := newTestDelegate()
	s := newTestSocket(t, env, dialer, delegate)
	require.NoError(t, connect(t, s))

	const count = 5
	callbacks := make(chan int, count)
	for i := 0; i < count; i++ {
		i := i
		s.SendMessage(wire.NewTextMessage("urn:x-cast:test", string(rune('a'+i))), func(err error) {
			require.NoError(t, err)
			callbacks <- i
		})
	}

	// Write callbacks fire in submission order.
	for want := 0; want < count; want++ {
		select {
		case got := <-callbacks:
			assert.Equal(t, want, got, "write callbacks out of order")
		case <-time.After(testTimeout):
			t.Fatal("write callback missing")
		}
	}

	// Echoes arrive in the same order.
	for want := 0; want < count; want++ {
		select {
		case msg := <-delegate.messages:
			assert.Equal(t, string(rune('a'+want)), msg.PayloadUTF8)
		case <-time.After(testTimeout):
			t.Fatal("echo missing")
		}
	}

	select {
	case v := <-dialer.violations:
		t.Fatalf("single-flight violation: %s", v)
	default:
	}
}

func TestSocketErrorAfterOpenReportsDelegate(t *testing.T) {
	env := newDeviceEnv(t)
	closeDevice := make(chan struct{})
	dialer := newFakeDialer(env.tlsCert, func(conn net.Conn) {
		f := transport.NewFramer(conn)
		payload, err := f.ReadFrame()
		if err != nil {
			return
		}
		msg, _ := wire.DecodeMessage(payload)
		reply, err := env.responder.Respond(msg, env.tlsCert.Raw)
		if err != nil {
			return
		}
		body, _ := wire.EncodeMessage(reply)
		f.WriteFrame(body)
		<-closeDevice
		conn.Close()
	})
	delegate := newTestDelegate()
	s := newTestSocket(t, env, dialer, delegate)
	require.NoError(t, connect(t, s))

	close(closeDevice)

	select {
	case de := <-delegate.errors:
		assert.Equal(t, ErrorStateSocketError, de.state)
		assert.NotEmpty(t, de.events, "recent events must accompany OnError")
	case <-time.After(testTimeout):
		t.Fatal("OnError never fired")
	}
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
	assert.Equal(t, ErrorStateSocketError, s.ErrorState())
}

func TestCloseIsIdempotent(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	delegate := newTestDelegate()
	s := New(Config{
		Endpoint:   "192.0.2.1:8009",
		TrustedCAs: env.trustedCAs,
		Dialer:     dialer,
	}, delegate)
	require.NoError(t, connect(t, s))

	closeSocket(t, s)
	closeSocket(t, s)
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
	assert.Equal(t, ErrorStateNone, s.ErrorState(), "local close is not an error")

	select {
	case <-delegate.errors:
		t.Fatal("local close must not invoke OnError")
	case <-time.After(50 * time.Millisecond):
	}

	// Sends after close fail fast.
	done := make(chan error, 1)
	s.SendMessage(wire.NewTextMessage("urn:x-cast:test", "late"), func(err error) {
		done <- err
	})
	assert.ErrorIs(t, <-done, ErrChannelClosed)
}

func TestHeartbeatKeepsChannelAlive(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	delegate := newTestDelegate()
	s := New(Config{
		Endpoint:   "192.0.2.1:8009",
		TrustedCAs: env.trustedCAs,
		Dialer:     dialer,
		KeepAlive: &transport.KeepAliveConfig{
			PingInterval:   10 * time.Millisecond,
			PongTimeout:    5 * time.Millisecond,
			MaxMissedPongs: 2,
		},
	}, delegate)
	t.Cleanup(func() { closeSocket(t, s) })
	require.NoError(t, connect(t, s))

	select {
	case de := <-delegate.errors:
		t.Fatalf("channel failed despite pongs: %v", de.state)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, ReadyStateOpen, s.ReadyState())
}

func TestHeartbeatTimeoutClosesChannel(t *testing.T) {
	env := newDeviceEnv(t)
	// Device answers auth but ignores everything afterwards.
	dialer := newFakeDialer(env.tlsCert, func(conn net.Conn) {
		f := transport.NewFramer(conn)
		payload, err := f.ReadFrame()
		if err != nil {
			return
		}
		msg, _ := wire.DecodeMessage(payload)
		reply, err := env.responder.Respond(msg, env.tlsCert.Raw)
		if err != nil {
			return
		}
		body, _ := wire.EncodeMessage(reply)
		f.WriteFrame(body)
		for {
			if _, err := f.ReadFrame(); err != nil {
				return
			}
		}
	})
	delegate := newTestDelegate()
	s := New(Config{
		Endpoint:   "192.0.2.1:8009",
		TrustedCAs: env.trustedCAs,
		Dialer:     dialer,
		KeepAlive: &transport.KeepAliveConfig{
			PingInterval:   10 * time.Millisecond,
			PongTimeout:    5 * time.Millisecond,
			MaxMissedPongs: 2,
		},
	}, delegate)
	require.NoError(t, connect(t, s))

	select {
	case de := <-delegate.errors:
		assert.Equal(t, ErrorStateSocketError, de.state)
	case <-time.After(testTimeout):
		t.Fatal("heartbeat timeout never reported")
	}
	assert.Equal(t, ReadyStateClosed, s.ReadyState())
}

func TestConnectTwiceFails(t *testing.T) {
	env := newDeviceEnv(t)
	dialer := newFakeDialer(env.tlsCert, env.serveDevice)
	s := newTestSocket(t, env, dialer, newTestDelegate())

	require.NoError(t, connect(t, s))
	assert.ErrorIs(t, connect(t, s), ErrAlreadyConnected)
}

// countingObserver records registry add/remove notifications.
type countingObserver struct {
	added, removed []string
}

func (o *countingObserver) OnSocketAdded(s *Socket)   { o.added = append(o.added, s.ID()) }
func (o *countingObserver) OnSocketRemoved(s *Socket) { o.removed = append(o.removed, s.ID()) }

func TestRegistry(t *testing.T) {
	env := newDeviceEnv(t)
	r := NewRegistry()
	obs := &countingObserver{}
	r.AddObserver(obs)

	var sockets []*Socket
	for i := 0; i < 3; i++ {
		dialer := newFakeDialer(env.tlsCert, env.serveDevice)
		s := New(Config{
			Endpoint:   "192.0.2.1:8009",
			TrustedCAs: env.trustedCAs,
			Dialer:     dialer,
		}, newTestDelegate())
		require.NoError(t, connect(t, s))
		r.Add(s)
		sockets = append(sockets, s)
	}

	assert.Equal(t, 3, r.Len())
	assert.Same(t, sockets[0], r.Get(sockets[0].ID()))
	assert.Len(t, r.List(), 3)

	r.Remove(sockets[0].ID())
	assert.Nil(t, r.Get(sockets[0].ID()))
	assert.Equal(t, 2, r.Len())
	closeSocket(t, sockets[0])

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
	for _, s := range sockets[1:] {
		assert.Equal(t, ReadyStateClosed, s.ReadyState())
	}

	assert.Len(t, obs.added, 3)
	assert.Len(t, obs.removed, 3)
	assert.Equal(t, sockets[0].ID(), obs.removed[0])
}
