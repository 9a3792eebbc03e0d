package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nabekah/farmkonnect-production-sub012/internal/event"
)

// CredentialProvider returns the token for a dial attempt. It is invoked
// on every attempt, so a refreshed credential is picked up without a
// restart.
type CredentialProvider func(ctx context.Context) (string, error)

// Handler receives a decoded inbound envelope.
type Handler func(env event.Envelope)

// StateHandler observes manager state transitions.
type StateHandler func(old, new State)

// ManagerConfig configures the connection manager.
type ManagerConfig struct {
	// URL is the gateway websocket endpoint, without the credential.
	URL string

	// Credentials supplies the token for each dial attempt.
	Credentials CredentialProvider

	// ReconnectBaseWait is the first backoff delay (default 1s).
	ReconnectBaseWait time.Duration

	// ReconnectMaxWait caps the backoff delay (default 30s).
	ReconnectMaxWait time.Duration

	// MaxAttempts is the reconnect budget after an abnormal drop
	// (default 3). Once spent the manager fails permanently.
	MaxAttempts int

	// PingTimeout, WriteTimeout and BufferSize configure each socket.
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig(wsURL string, creds CredentialProvider) ManagerConfig {
	return ManagerConfig{
		URL:               wsURL,
		Credentials:       creds,
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  30 * time.Second,
		MaxAttempts:       3,
		PingTimeout:       90 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        256,
	}
}

// ErrAlreadyStarted is returned by Start on a running manager.
var ErrAlreadyStarted = errors.New("manager already started")

// Manager maintains one realtime link to the gateway, reconnecting with
// exponential backoff after abnormal drops. A normal-closure frame or a
// local Stop ends the lifecycle cleanly; exhausting the attempt budget
// parks the manager in the permanent-failure state until Reset.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu            sync.RWMutex
	state         State
	sock          Socket
	everConnected bool
	handlers      map[event.Type][]Handler
	stateSubs     []StateHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager. It does not dial until Start.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = time.Second
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		state:    StateIdle,
		handlers: make(map[event.Type][]Handler),
	}
}

// On registers a handler for an inbound event type. Register before
// Start; handlers run on the read goroutine.
func (m *Manager) On(t event.Type, h Handler) {
	m.mu.Lock()
	m.handlers[t] = append(m.handlers[t], h)
	m.mu.Unlock()
}

// OnStateChange registers a transition observer.
func (m *Manager) OnStateChange(h StateHandler) {
	m.mu.Lock()
	m.stateSubs = append(m.stateSubs, h)
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Available reports whether the realtime path is usable or may become
// usable on its own. False means callers should fall back to polling.
func (m *Manager) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != StateFailedPermanent
}

// Start begins connecting. Only valid from the idle state; a manager in
// permanent failure must be Reset first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateFailedPermanent {
		m.mu.Unlock()
		return ErrPermanentFailure
	}
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.everConnected = false
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()
	return nil
}

// Stop closes the link intentionally and waits for the run loop.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset returns a terminal manager to idle so Start can be called again.
func (m *Manager) Reset() {
	m.mu.Lock()
	if m.state != StateFailedPermanent && m.state != StateDisconnectedClean {
		m.mu.Unlock()
		return
	}
	old := m.state
	m.state = StateIdle
	m.everConnected = false
	subs := append([]StateHandler(nil), m.stateSubs...)
	m.mu.Unlock()

	for _, h := range subs {
		h(old, StateIdle)
	}
}

// Send writes an event frame to the gateway. Frames sent while not
// connected are refused, never queued.
func (m *Manager) Send(t event.Type, payload any) error {
	m.mu.RLock()
	sock := m.sock
	state := m.state
	m.mu.RUnlock()

	if state == StateFailedPermanent {
		m.logger.Warn("dropping outbound frame, connection failed permanently", "type", t)
		return ErrPermanentFailure
	}
	if state != StateConnected || sock == nil {
		m.logger.Warn("dropping outbound frame, not connected", "type", t, "state", state.String())
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	frame, err := (event.Envelope{Type: t, Data: data}).Encode()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return sock.Send(frame)
}

// backoffDelay returns the wait before reconnect attempt n (0-based):
// base doubling per attempt, capped at max.
func backoffDelay(base, maxWait time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d > maxWait || d <= 0 {
		return maxWait
	}
	return d
}

func (m *Manager) run() {
	defer m.wg.Done()

	attempt := 0
	for {
		m.setState(StateConnecting)

		sock, err := m.dial()
		if err != nil {
			if m.ctx.Err() != nil {
				m.setState(StateDisconnectedClean)
				return
			}
			m.logger.Warn("dial failed", "error", err)

			m.mu.RLock()
			ever := m.everConnected
			m.mu.RUnlock()
			if !ever {
				// A transport failure before the first successful open is
				// treated as permanent, not retried.
				m.setState(StateFailedPermanent)
				return
			}

			attempt++
			if attempt > m.cfg.MaxAttempts {
				m.setState(StateFailedPermanent)
				return
			}
			if !m.waitBackoff(attempt) {
				m.setState(StateDisconnectedClean)
				return
			}
			continue
		}

		m.mu.Lock()
		m.sock = sock
		m.everConnected = true
		m.mu.Unlock()
		attempt = 0
		m.setState(StateConnected)

		clean := m.consume(sock)

		m.mu.Lock()
		m.sock = nil
		m.mu.Unlock()

		if clean {
			m.setState(StateDisconnectedClean)
			return
		}

		attempt++
		if attempt > m.cfg.MaxAttempts {
			m.logger.Warn("reconnect budget exhausted", "attempts", m.cfg.MaxAttempts)
			m.setState(StateFailedPermanent)
			return
		}
		if !m.waitBackoff(attempt) {
			m.setState(StateDisconnectedClean)
			return
		}
	}
}

// dial fetches a fresh credential and opens a socket.
func (m *Manager) dial() (Socket, error) {
	token, err := m.cfg.Credentials(m.ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch credential: %w", err)
	}

	sock := NewSocket(SocketConfig{
		URL:          m.cfg.URL + "?token=" + url.QueryEscape(token),
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}, m.logger)

	if err := sock.Connect(m.ctx); err != nil {
		return nil, err
	}
	return sock, nil
}

// consume drains a socket until it drops. Returns true when the closure
// was intentional (local stop or a normal-closure frame).
func (m *Manager) consume(sock Socket) bool {
	defer sock.Close()

	for {
		select {
		case <-m.ctx.Done():
			return true

		case err := <-sock.Errors():
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				m.logger.Info("server closed the connection")
				return true
			}
			m.logger.Warn("connection dropped", "error", err)
			return false

		case msg, ok := <-sock.Messages():
			if !ok {
				return false
			}
			m.dispatch(msg.Data)
		}
	}
}

// dispatch parses an inbound frame and invokes matching handlers.
// A malformed frame is logged and dropped.
func (m *Manager) dispatch(raw []byte) {
	env, err := event.Parse(raw)
	if err != nil {
		m.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	m.mu.RLock()
	hs := append([]Handler(nil), m.handlers[env.Type]...)
	m.mu.RUnlock()

	for _, h := range hs {
		h(env)
	}
}

// waitBackoff sleeps the backoff for a reconnect attempt. Returns false
// when the manager is stopped during the wait.
func (m *Manager) waitBackoff(attempt int) bool {
	m.setState(StateReconnectPending)
	wait := backoffDelay(m.cfg.ReconnectBaseWait, m.cfg.ReconnectMaxWait, attempt-1)
	m.logger.Info("reconnecting", "attempt", attempt, "wait", wait)

	select {
	case <-m.ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	old := m.state
	if old == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	subs := append([]StateHandler(nil), m.stateSubs...)
	m.mu.Unlock()

	m.logger.Debug("state change", "from", old.String(), "to", next.String())
	for _, h := range subs {
		h(old, next)
	}
}
