// Package monitor polls the Tailscale status and reports up/down transitions.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/watchfire-io/tailray/internal/tailscale"
)

// DefaultInterval is the polling cadence used when none is configured.
const DefaultInterval = 5 * time.Second

const seedInitialInterval = 250 * time.Millisecond

// Fetcher obtains a fresh status snapshot.
type Fetcher interface {
	Status(ctx context.Context) (*tailscale.Status, error)
}

// ChangeFunc receives the snapshot that flipped the up/down state. It runs
// while the monitor holds its refresh lock and must not call Refresh.
type ChangeFunc func(st *tailscale.Status)

// SnapshotFunc receives every successfully fetched snapshot, after any
// ChangeFunc call. The same locking rules apply.
type SnapshotFunc func(st *tailscale.Status)

type snapshot struct {
	status *tailscale.Status
	up     bool
}

// Monitor owns the last observed status. Refreshes, whether from the ticker
// or from Refresh, are serialized; readers see whole snapshots only.
type Monitor struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu         sync.Mutex
	onChange   ChangeFunc
	onSnapshot SnapshotFunc

	current  atomic.Pointer[snapshot]
	interval atomic.Int64
	reset    chan struct{}
}

// New creates a Monitor polling fetcher every interval.
func New(fetcher Fetcher, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{
		fetcher: fetcher,
		logger:  slog.With("component", "monitor"),
		reset:   make(chan struct{}, 1),
	}
	m.interval.Store(int64(interval))
	return m
}

// OnChange sets the function called on up/down transitions.
func (m *Monitor) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// OnSnapshot sets the function called after every successful refresh.
func (m *Monitor) OnSnapshot(fn SnapshotFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSnapshot = fn
}

// Current returns the latest snapshot and whether it is up. The snapshot is
// nil until the first successful refresh.
func (m *Monitor) Current() (*tailscale.Status, bool) {
	s := m.current.Load()
	if s == nil {
		return nil, false
	}
	return s.status, s.up
}

// Interval returns the polling interval.
func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.interval.Load())
}

// SetInterval changes the polling interval. A running loop picks it up
// after its current tick.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 || d == m.Interval() {
		return
	}
	m.interval.Store(int64(d))
	select {
	case m.reset <- struct{}{}:
	default:
	}
}

// Refresh fetches a new snapshot, stores it, and calls the change function
// if the up/down state differs from the stored one. On error the stored
// snapshot is left untouched.
func (m *Monitor) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.fetcher.Status(ctx)
	if err != nil {
		return fmt.Errorf("refresh status: %w", err)
	}

	up := st.IsUp()
	// Before the first snapshot the connection counts as down.
	prev := m.current.Load()
	changed := up != (prev != nil && prev.up)

	m.current.Store(&snapshot{status: st, up: up})

	if changed {
		m.logger.Info("connection state changed", "up", up, "backend_state", st.BackendState)
		if m.onChange != nil {
			m.onChange(st)
		}
	}
	if m.onSnapshot != nil {
		m.onSnapshot(st)
	}
	return nil
}

// Seed retries Refresh with exponential backoff until it succeeds once or
// ctx is done.
func (m *Monitor) Seed(ctx context.Context) error {
	initial := min(seedInitialInterval, m.Interval())
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMaxInterval(m.Interval()),
		backoff.WithMaxElapsedTime(0),
	)

	op := func() error {
		return m.Refresh(ctx)
	}
	notify := func(err error, next time.Duration) {
		m.logger.Warn("initial status fetch failed", "err", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("seed status: %w", err)
	}
	return nil
}

// Run polls until ctx is done. A failed tick is logged and retried on the
// next one. A tick in flight when ctx is cancelled runs to completion.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.Interval())
	defer ticker.Stop()

	m.logger.Info("polling started", "interval", m.Interval())

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("polling stopped")
			return nil
		case <-m.reset:
			ticker.Reset(m.Interval())
			m.logger.Info("polling interval changed", "interval", m.Interval())
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if err := m.Refresh(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("status refresh failed, retrying next tick", "err", err)
	}
}
