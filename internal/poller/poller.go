package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabekah/farmkonnect-production-sub012/internal/store"
)

// Collection names passed to the change handler.
const (
	CollectionTasks      = "tasks"
	CollectionActivities = "activities"
)

// Source fetches the polled collections. *api.Client satisfies it.
type Source interface {
	ListTasks(ctx context.Context, farmID int64) ([]store.Task, error)
	ListActivities(ctx context.Context, farmID int64) ([]store.Activity, error)
}

// ChangeHandler receives a collection's JSON snapshot when it first
// arrives and whenever it differs from the previous fetch.
type ChangeHandler func(collection string, data []byte)

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 30s)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically fetches a farm's collections and reports changes.
type Poller struct {
	cfg      Config
	source   Source
	farmID   int64
	onChange ChangeHandler
	logger   *slog.Logger

	// inFlight guards against overlapping cycles on a slow network: a
	// tick that fires mid-cycle is skipped, not queued.
	inFlight atomic.Bool

	// prev holds the last snapshot per collection. Accessed only from
	// the poll cycle.
	prev map[string][]byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller for one farm.
func New(cfg Config, source Source, farmID int64, onChange ChangeHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Poller{
		cfg:      cfg,
		source:   source,
		farmID:   farmID,
		onChange: onChange,
		logger:   logger,
		prev:     make(map[string][]byte),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("fallback poller started",
		"farm_id", p.farmID,
		"interval", p.cfg.Interval,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("fallback poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop. It polls immediately on start.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.pollOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

// pollOnce runs one fetch-and-diff cycle, unless one is already running.
func (p *Poller) pollOnce() {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("previous poll cycle still in flight, skipping tick")
		return
	}
	defer p.inFlight.Store(false)

	start := time.Now()
	p.pollCollection(CollectionTasks, func(ctx context.Context) (any, error) {
		return p.source.ListTasks(ctx, p.farmID)
	})
	p.pollCollection(CollectionActivities, func(ctx context.Context) (any, error) {
		return p.source.ListActivities(ctx, p.farmID)
	})

	p.logger.Debug("poll cycle complete", "duration", time.Since(start))
}

// pollCollection fetches one collection and fires the callback when its
// snapshot differs from the previous one. Fetch errors leave the previous
// snapshot in place, so a blip does not look like a change.
func (p *Poller) pollCollection(name string, fetch func(ctx context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	items, err := fetch(ctx)
	if err != nil {
		p.logger.Warn("poll fetch failed", "collection", name, "error", err)
		return
	}

	snapshot, err := json.Marshal(items)
	if err != nil {
		p.logger.Error("marshal snapshot", "collection", name, "error", err)
		return
	}

	previous, seen := p.prev[name]
	if seen && bytes.Equal(previous, snapshot) {
		return
	}
	p.prev[name] = snapshot

	if p.onChange != nil {
		p.onChange(name, snapshot)
	}
}
