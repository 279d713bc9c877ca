package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Defaults applied when a Config field is zero.
const (
	defaultInterval   = 30 * time.Second
	defaultSweepLimit = 20 * time.Second
	defaultWorkers    = 16
)

// Target is one pollable device.
type Target interface {
	// ID identifies the device in logs and callbacks.
	ID() string

	// Addressable reports whether the device can be reached at all;
	// unaddressable devices are skipped, not failed.
	Addressable() bool

	// Fetch refreshes state, reporting whether it succeeded.
	Fetch(ctx context.Context) bool
}

// Callback is invoked after each attempted fetch with the outcome.
type Callback func(target Target, refreshed bool)

// Logger receives poller tracing.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config tunes a Poller.
type Config struct {
	// Interval between sweep starts.
	Interval time.Duration

	// SweepLimit bounds one whole sweep; fetches still running at the
	// deadline are cancelled.
	SweepLimit time.Duration

	// Workers is the pool size, the number of devices fetched at once.
	Workers int
}

// Poller periodically refreshes a set of devices.
type Poller struct {
	mu      sync.Mutex
	targets map[string]Target

	interval   time.Duration
	sweepLimit time.Duration
	pool       *ants.Pool
	callback   Callback
	logger     Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Poller with its worker pool. Call Close to release the pool.
func New(cfg Config, callback Callback) (*Poller, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = defaultSweepLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating poller pool: %w", err)
	}
	return &Poller{
		targets:    make(map[string]Target),
		interval:   cfg.Interval,
		sweepLimit: cfg.SweepLimit,
		pool:       pool,
		callback:   callback,
	}, nil
}

// SetLogger sets a logger for sweep tracing. If not set, the poller is
// silent.
func (p *Poller) SetLogger(logger Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// Add registers a device for polling, replacing any previous registration
// under the same id.
func (p *Poller) Add(target Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets[target.ID()] = target
}

// Remove unregisters a device. Unknown ids are a no-op.
func (p *Poller) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.targets, id)
}

// Start launches the periodic sweep loop. It returns immediately; the first
// sweep runs after one interval. Starting an already started poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	go p.run(ctx, done)
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
// The pool survives Stop; Start may be called again.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops the poller and releases the worker pool.
func (p *Poller) Close() {
	p.Stop()
	p.pool.Release()
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep fetches every registered, addressable device once, concurrently,
// under the sweep deadline. It blocks until all fetches complete and returns
// how many devices refreshed successfully.
func (p *Poller) Sweep(ctx context.Context) int {
	p.mu.Lock()
	targets := make([]Target, 0, len(p.targets))
	for _, t := range p.targets {
		targets = append(targets, t)
	}
	logger := p.logger
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.sweepLimit)
	defer cancel()

	var (
		wg        sync.WaitGroup
		refreshed sync.Map
	)
	for _, target := range targets {
		if !target.Addressable() {
			if logger != nil {
				logger.Debug("skipping unaddressable device", "id", target.ID())
			}
			continue
		}
		target := target
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			ok := target.Fetch(ctx)
			refreshed.Store(target.ID(), ok)
			if p.callback != nil {
				p.callback(target, ok)
			}
		})
		if err != nil {
			wg.Done()
			if logger != nil {
				logger.Warn("poller pool rejected task", "id", target.ID(), "error", err)
			}
		}
	}
	wg.Wait()

	count := 0
	refreshed.Range(func(_, ok any) bool {
		if ok.(bool) {
			count++
		}
		return true
	})
	if logger != nil {
		logger.Debug("poll sweep complete",
			"devices", len(targets), "refreshed", count)
	}
	return count
}
