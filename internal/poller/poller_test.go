package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nabekah/farmkonnect-production-sub012/internal/store"
)

// fakeSource serves canned collections and counts fetches.
type fakeSource struct {
	mu         sync.Mutex
	tasks      []store.Task
	activities []store.Activity
	err        error
	delay      time.Duration
	fetches    atomic.Int32
}

func (f *fakeSource) ListTasks(ctx context.Context, farmID int64) ([]store.Task, error) {
	f.fetches.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks, nil
}

func (f *fakeSource) ListActivities(ctx context.Context, farmID int64) ([]store.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.activities, nil
}

func (f *fakeSource) setTasks(tasks []store.Task) {
	f.mu.Lock()
	f.tasks = tasks
	f.mu.Unlock()
}

type changeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *changeRecorder) record(collection string, data []byte) {
	r.mu.Lock()
	r.calls = append(r.calls, collection)
	r.mu.Unlock()
}

func (r *changeRecorder) count(collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == collection {
			n++
		}
	}
	return n
}

func newTestPoller(source Source, onChange ChangeHandler) *Poller {
	cfg := Config{Interval: time.Hour, Timeout: time.Second}
	p := New(cfg, source, 7, onChange, nil)
	p.ctx = context.Background()
	return p
}

func TestFirstFetchFiresCallback(t *testing.T) {
	source := &fakeSource{
		tasks:      []store.Task{{ID: 1, FarmID: 7, Title: "water the seedlings"}},
		activities: []store.Activity{{ID: 2, FarmID: 7, Kind: "planting"}},
	}
	rec := &changeRecorder{}
	p := newTestPoller(source, rec.record)

	p.pollOnce()

	if got := rec.count(CollectionTasks); got != 1 {
		t.Errorf("task callbacks = %d, want 1", got)
	}
	if got := rec.count(CollectionActivities); got != 1 {
		t.Errorf("activity callbacks = %d, want 1", got)
	}
}

func TestUnchangedSnapshotFiresOnce(t *testing.T) {
	source := &fakeSource{tasks: []store.Task{{ID: 1, FarmID: 7}}}
	rec := &changeRecorder{}
	p := newTestPoller(source, rec.record)

	// Three identical cycles: only the first receipt fires.
	p.pollOnce()
	p.pollOnce()
	p.pollOnce()

	if got := rec.count(CollectionTasks); got != 1 {
		t.Errorf("task callbacks = %d, want exactly 1 for identical snapshots", got)
	}
}

func TestChangedSnapshotFiresAgain(t *testing.T) {
	source := &fakeSource{tasks: []store.Task{{ID: 1, FarmID: 7, Status: "open"}}}
	rec := &changeRecorder{}
	p := newTestPoller(source, rec.record)

	p.pollOnce()
	source.setTasks([]store.Task{{ID: 1, FarmID: 7, Status: "done"}})
	p.pollOnce()

	if got := rec.count(CollectionTasks); got != 2 {
		t.Errorf("task callbacks = %d, want 2 after a change", got)
	}
}

func TestFetchErrorIsNotAChange(t *testing.T) {
	source := &fakeSource{tasks: []store.Task{{ID: 1, FarmID: 7}}}
	rec := &changeRecorder{}
	p := newTestPoller(source, rec.record)

	p.pollOnce()

	source.mu.Lock()
	source.err = errors.New("network down")
	source.mu.Unlock()
	p.pollOnce()

	source.mu.Lock()
	source.err = nil
	source.mu.Unlock()
	p.pollOnce()

	// The blip and the recovery to identical data fire nothing.
	if got := rec.count(CollectionTasks); got != 1 {
		t.Errorf("task callbacks = %d, want 1 across an error blip", got)
	}
}

func TestOverlappingCycleSkipped(t *testing.T) {
	source := &fakeSource{
		tasks: []store.Task{{ID: 1, FarmID: 7}},
		delay: 100 * time.Millisecond,
	}
	rec := &changeRecorder{}
	p := newTestPoller(source, rec.record)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.pollOnce()
	}()
	time.Sleep(20 * time.Millisecond) // first cycle is mid-fetch
	p.pollOnce()                      // must be skipped
	wg.Wait()

	if got := source.fetches.Load(); got != 1 {
		t.Errorf("task fetches = %d, want 1 (overlapping tick skipped)", got)
	}
}

func TestStartStop(t *testing.T) {
	source := &fakeSource{tasks: []store.Task{{ID: 1, FarmID: 7}}}
	rec := &changeRecorder{}
	p := New(Config{Interval: 20 * time.Millisecond, Timeout: time.Second}, source, 7, rec.record, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := rec.count(CollectionTasks); got != 1 {
		t.Errorf("task callbacks = %d, want 1", got)
	}
}
