package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// HeartbeatMonitor sweeps the registry on a fixed tick. A session whose
// liveness flag is still clear from the previous sweep is terminated and
// de-indexed; everyone else has the flag cleared and gets a ping probe.
// A peer therefore has one full interval to answer a probe, and a silent
// connection lives at most two intervals.
type HeartbeatMonitor struct {
	reg          *Registry
	interval     time.Duration
	writeTimeout time.Duration
	reap         func(*Session)
	keepalive    func(*Session)
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeatMonitor creates a monitor. reap terminates and unregisters
// an expired session; keepalive runs for every session that passes a
// sweep (the hub uses it to extend external presence TTLs). Both are
// supplied by the hub; keepalive may be nil.
func NewHeartbeatMonitor(reg *Registry, interval, writeTimeout time.Duration, reap, keepalive func(*Session), logger *slog.Logger) *HeartbeatMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatMonitor{
		reg:          reg,
		interval:     interval,
		writeTimeout: writeTimeout,
		reap:         reap,
		keepalive:    keepalive,
		logger:       logger,
	}
}

// Start begins the sweep loop.
func (m *HeartbeatMonitor) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("heartbeat monitor started", "interval", m.interval)
	return nil
}

// Stop shuts the sweep loop down.
func (m *HeartbeatMonitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("heartbeat monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *HeartbeatMonitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep runs one liveness pass over every registered session.
func (m *HeartbeatMonitor) sweep() {
	for _, s := range m.reg.Sessions() {
		if !s.probe() {
			m.logger.Info("terminating silent connection",
				"conn_id", s.ID,
				"user_id", s.UserID,
			)
			m.reap(s)
			continue
		}
		if err := s.ping(m.writeTimeout); err != nil {
			m.logger.Debug("ping failed", "conn_id", s.ID, "error", err)
		}
		if m.keepalive != nil {
			m.keepalive(s)
		}
	}
}
