package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTarget struct {
	id          string
	addressable bool
	ok          bool
	fetches     atomic.Int32
	block       chan struct{}
}

func (f *fakeTarget) ID() string        { return f.id }
func (f *fakeTarget) Addressable() bool { return f.addressable }

func (f *fakeTarget) Fetch(ctx context.Context) bool {
	f.fetches.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return false
		}
	}
	return f.ok
}

func newPoller(t *testing.T, cfg Config, cb Callback) *Poller {
	t.Helper()
	p, err := New(cfg, cb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestSweepFetchesAllAddressable(t *testing.T) {
	var (
		mu       sync.Mutex
		outcomes = map[string]bool{}
	)
	p := newPoller(t, Config{Workers: 4}, func(target Target, refreshed bool) {
		mu.Lock()
		outcomes[target.ID()] = refreshed
		mu.Unlock()
	})

	good := &fakeTarget{id: "a", addressable: true, ok: true}
	bad := &fakeTarget{id: "b", addressable: true, ok: false}
	offline := &fakeTarget{id: "c", addressable: false, ok: true}
	p.Add(good)
	p.Add(bad)
	p.Add(offline)

	if got := p.Sweep(context.Background()); got != 1 {
		t.Errorf("Sweep refreshed = %d, want 1", got)
	}
	if good.fetches.Load() != 1 || bad.fetches.Load() != 1 {
		t.Errorf("fetch counts = %d, %d; want 1, 1",
			good.fetches.Load(), bad.fetches.Load())
	}
	if offline.fetches.Load() != 0 {
		t.Error("unaddressable device was fetched")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 2 || !outcomes["a"] || outcomes["b"] {
		t.Errorf("callback outcomes = %v", outcomes)
	}
}

func TestSweepDeadlineCancelsSlowFetch(t *testing.T) {
	p := newPoller(t, Config{Workers: 2, SweepLimit: 50 * time.Millisecond}, nil)

	slow := &fakeTarget{id: "slow", addressable: true, ok: true, block: make(chan struct{})}
	fast := &fakeTarget{id: "fast", addressable: true, ok: true}
	p.Add(slow)
	p.Add(fast)

	start := time.Now()
	refreshed := p.Sweep(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("sweep took %v, deadline not enforced", elapsed)
	}
	if refreshed != 1 {
		t.Errorf("Sweep refreshed = %d, want 1", refreshed)
	}
}

func TestRemoveStopsPolling(t *testing.T) {
	p := newPoller(t, Config{}, nil)
	target := &fakeTarget{id: "a", addressable: true, ok: true}
	p.Add(target)
	p.Sweep(context.Background())
	p.Remove("a")
	p.Sweep(context.Background())

	if got := target.fetches.Load(); got != 1 {
		t.Errorf("fetches after remove = %d, want 1", got)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	var sweeps atomic.Int32
	p := newPoller(t, Config{Interval: 20 * time.Millisecond}, func(Target, bool) {
		sweeps.Add(1)
	})
	p.Add(&fakeTarget{id: "a", addressable: true, ok: true})

	p.Start(context.Background())
	p.Start(context.Background()) // idempotent
	time.Sleep(110 * time.Millisecond)
	p.Stop()
	p.Stop() // idempotent

	got := sweeps.Load()
	if got < 2 {
		t.Errorf("sweeps while running = %d, want at least 2", got)
	}
	time.Sleep(60 * time.Millisecond)
	if sweeps.Load() != got {
		t.Error("sweeps continued after Stop")
	}
}
