package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cast-protocol/cast-go/pkg/channel"
)

// DefaultAttemptTimeout bounds each reconnection attempt.
const DefaultAttemptTimeout = 30 * time.Second

// Manager errors.
var (
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("connection manager closed")

	// ErrAlreadyConnected is returned by Connect while connected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrPermanentFailure wraps errors that reconnection cannot fix.
	ErrPermanentFailure = errors.New("permanent connection failure")
)

// State is the manager's view of the channel lifecycle.
type State uint8

const (
	// StateDisconnected indicates no active channel.
	StateDisconnected State = iota

	// StateConnecting indicates a connect attempt is in progress.
	StateConnecting

	// StateConnected indicates an open channel.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in progress.
	StateReconnecting

	// StateClosed indicates the manager has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc establishes the channel. It returns nil once the channel
// is open.
type ConnectFunc func(ctx context.Context) error

// ManagerConfig customizes a Manager. Zero values use defaults.
type ManagerConfig struct {
	// Backoff customizes the reconnection schedule.
	Backoff BackoffConfig

	// AttemptTimeout bounds each reconnection attempt. Zero uses
	// DefaultAttemptTimeout.
	AttemptTimeout time.Duration

	// DisableAutoReconnect turns automatic reconnection off.
	DisableAutoReconnect bool
}

// Manager drives a cast channel through connect, loss and reconnect.
type Manager struct {
	mu sync.RWMutex

	state         State
	backoff       *Backoff
	connectFn     ConnectFunc
	autoReconnect bool
	attemptTO     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reconnectCh chan struct{}

	onStateChange func(oldState, newState State)
	onConnected   func()
	onLost        func(err error)
	onRetry       func(attempt int, delay time.Duration)
	onGiveUp      func(err error)
}

// NewManager creates a manager around a connect function.
func NewManager(connectFn ConnectFunc, cfg ManagerConfig) *Manager {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		state:         StateDisconnected,
		backoff:       NewBackoffWithConfig(cfg.Backoff),
		connectFn:     connectFn,
		autoReconnect: !cfg.DisableAutoReconnect,
		attemptTO:     cfg.AttemptTimeout,
		ctx:           ctx,
		cancel:        cancel,
		reconnectCh:   make(chan struct{}, 1),
	}

	m.wg.Add(1)
	go m.reconnectLoop()
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the channel is currently open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Connect performs a foreground connect attempt. A failure here does
// not start background reconnection; the caller decides what to do.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		m.mu.Unlock()
		return ErrManagerClosed
	}
	old := m.state
	m.state = StateConnecting
	m.mu.Unlock()
	m.notifyStateChange(old, StateConnecting)

	err := m.connectFn(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyStateChange(StateConnecting, StateDisconnected)
		return err
	}
	m.state = StateConnected
	m.backoff.Reset()
	m.mu.Unlock()

	m.notifyStateChange(StateConnecting, StateConnected)
	if fn := m.connectedCallback(); fn != nil {
		fn()
	}
	return nil
}

// ConnectionLost reports that the open channel failed. Reconnection
// starts unless it is disabled or the error is permanent. Device
// authentication failures are permanent.
func (m *Manager) ConnectionLost(err error) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	old := m.state
	auto := m.autoReconnect
	retry := auto && !isPermanent(err)
	if retry {
		m.state = StateReconnecting
	} else {
		m.state = StateDisconnected
	}
	newState := m.state
	m.mu.Unlock()

	m.notifyStateChange(old, newState)
	if fn := m.lostCallback(); fn != nil {
		fn(err)
	}

	if retry {
		m.triggerReconnect()
	} else if auto {
		if fn := m.giveUpCallback(); fn != nil {
			fn(errors.Join(ErrPermanentFailure, err))
		}
	}
}

// Disconnect moves to DISCONNECTED without reconnecting. Use for
// intentional shutdown of the channel while keeping the manager alive.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	old := m.state
	m.state = StateDisconnected
	m.mu.Unlock()
	m.notifyStateChange(old, StateDisconnected)
}

// Close shuts down the manager and stops any reconnection in progress.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	old := m.state
	m.state = StateClosed
	m.mu.Unlock()
	m.notifyStateChange(old, StateClosed)

	m.cancel()
	m.wg.Wait()
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// BackoffAttempts returns the reconnection attempts since the last
// successful connect.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

// OnStateChange sets a callback for lifecycle transitions.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback fired when the channel opens.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnConnectionLost sets a callback fired when the open channel fails.
func (m *Manager) OnConnectionLost(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLost = fn
}

// OnReconnecting sets a callback fired before each backoff wait.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRetry = fn
}

// OnGiveUp sets a callback fired when reconnection is abandoned due to
// a permanent failure.
func (m *Manager) OnGiveUp(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onGiveUp = fn
}

// isPermanent reports whether reconnecting could not help.
func isPermanent(err error) bool {
	return errors.Is(err, channel.ErrAuthFailed)
}

func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

func (m *Manager) attemptReconnect() {
	for {
		switch m.State() {
		case StateClosed, StateConnected, StateDisconnected:
			return
		}

		delay := m.backoff.Next()
		attempt := m.backoff.Attempts()
		if fn := m.retryCallback(); fn != nil {
			fn(attempt, delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		if m.State() != StateReconnecting {
			return
		}

		ctx, cancel := context.WithTimeout(m.ctx, m.attemptTO)
		err := m.connectFn(ctx)
		cancel()

		if err == nil {
			m.mu.Lock()
			old := m.state
			m.state = StateConnected
			m.backoff.Reset()
			m.mu.Unlock()

			m.notifyStateChange(old, StateConnected)
			if fn := m.connectedCallback(); fn != nil {
				fn()
			}
			return
		}

		if isPermanent(err) {
			m.mu.Lock()
			old := m.state
			m.state = StateDisconnected
			m.mu.Unlock()

			m.notifyStateChange(old, StateDisconnected)
			if fn := m.giveUpCallback(); fn != nil {
				fn(errors.Join(ErrPermanentFailure, err))
			}
			return
		}
	}
}

func (m *Manager) notifyStateChange(old, next State) {
	m.mu.RLock()
	fn := m.onStateChange
	m.mu.RUnlock()
	if fn != nil {
		fn(old, next)
	}
}

func (m *Manager) connectedCallback() func() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onConnected
}

func (m *Manager) lostCallback() func(error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onLost
}

func (m *Manager) retryCallback() func(int, time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onRetry
}

func (m *Manager) giveUpCallback() func(error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onGiveUp
}
