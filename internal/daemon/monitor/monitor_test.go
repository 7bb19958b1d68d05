package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/watchfire-io/tailray/internal/tailscale"
)

// step is one scripted fetch result.
type step struct {
	state tailscale.BackendState
	err   error
}

// scriptedFetcher replays steps, repeating the last one when exhausted.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []step
	calls int
	done  chan struct{}
}

func newScriptedFetcher(steps ...step) *scriptedFetcher {
	return &scriptedFetcher{steps: steps, done: make(chan struct{})}
}

func (f *scriptedFetcher) Status(context.Context) (*tailscale.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	if f.calls == len(f.steps) {
		close(f.done)
	}

	s := f.steps[i]
	if s.err != nil {
		return nil, s.err
	}
	return &tailscale.Status{
		Version:      "test-" + string(rune('a'+i)),
		BackendState: s.state,
		Self:         &tailscale.Machine{},
	}, nil
}

func states(ss ...tailscale.BackendState) []step {
	steps := make([]step, len(ss))
	for i, s := range ss {
		steps[i] = step{state: s}
	}
	return steps
}

func TestRefreshNotifiesOnTransitionsOnly(t *testing.T) {
	tests := []struct {
		name          string
		states        []tailscale.BackendState
		expectChanges []bool
	}{
		{
			name:          "start then run then stop",
			states:        []tailscale.BackendState{tailscale.Starting, tailscale.Starting, tailscale.Running, tailscale.Running, tailscale.Stopped},
			expectChanges: []bool{true, false},
		},
		{
			name:          "running from the start",
			states:        []tailscale.BackendState{tailscale.Running, tailscale.Running},
			expectChanges: []bool{true},
		},
		{
			name:          "down states are all down",
			states:        []tailscale.BackendState{tailscale.NoState, tailscale.NeedsLogin, tailscale.NeedsMachineAuth, tailscale.Stopped, tailscale.Starting},
			expectChanges: nil,
		},
		{
			name:          "flapping",
			states:        []tailscale.BackendState{tailscale.Running, tailscale.Stopped, tailscale.Running},
			expectChanges: []bool{true, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(newScriptedFetcher(states(tt.states...)...), time.Hour)
			var changes []bool
			m.OnChange(func(st *tailscale.Status) {
				changes = append(changes, st.IsUp())
			})

			for i := range tt.states {
				if err := m.Refresh(context.Background()); err != nil {
					t.Fatalf("Refresh() #%d error = %v", i, err)
				}
			}

			if len(changes) != len(tt.expectChanges) {
				t.Fatalf("got %d change notifications %v, want %d %v", len(changes), changes, len(tt.expectChanges), tt.expectChanges)
			}
			for i := range changes {
				if changes[i] != tt.expectChanges[i] {
					t.Errorf("change #%d up = %v, want %v", i, changes[i], tt.expectChanges[i])
				}
			}

			st, up := m.Current()
			last := tt.states[len(tt.states)-1]
			if st == nil || st.BackendState != last {
				t.Errorf("Current() = %v, want backend state %s", st, last)
			}
			if up != (last == tailscale.Running) {
				t.Errorf("Current() up = %v, want %v", up, last == tailscale.Running)
			}
		})
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	fetchErr := errors.New("daemon unreachable")
	f := newScriptedFetcher(
		step{state: tailscale.Running},
		step{err: fetchErr},
		step{err: fetchErr},
		step{state: tailscale.Running},
	)
	m := New(f, time.Hour)

	notified := 0
	m.OnChange(func(*tailscale.Status) { notified++ })

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	first, _ := m.Current()

	for i := 0; i < 2; i++ {
		if err := m.Refresh(context.Background()); !errors.Is(err, fetchErr) {
			t.Fatalf("Refresh() error = %v, want %v", err, fetchErr)
		}
		st, up := m.Current()
		if st != first || !up {
			t.Errorf("Current() after failure = %v, %v, want previous snapshot", st, up)
		}
	}

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("recovery Refresh() error = %v", err)
	}
	st, up := m.Current()
	if st == first || !up {
		t.Errorf("Current() after recovery = %v, %v, want new up snapshot", st, up)
	}
	if notified != 1 {
		t.Errorf("notified %d times, want 1", notified)
	}
}

func TestCurrentBeforeFirstRefresh(t *testing.T) {
	m := New(newScriptedFetcher(step{state: tailscale.Running}), 0)
	if st, up := m.Current(); st != nil || up {
		t.Errorf("Current() = %v, %v, want nil, false", st, up)
	}
	if m.Interval() != DefaultInterval {
		t.Errorf("Interval() = %s, want %s", m.Interval(), DefaultInterval)
	}
}

func TestRunPollsAndRecovers(t *testing.T) {
	f := newScriptedFetcher(
		step{state: tailscale.Starting},
		step{err: errors.New("transient")},
		step{state: tailscale.Running},
		step{state: tailscale.Running},
		step{state: tailscale.Stopped},
	)
	m := New(f, 5*time.Millisecond)

	var notified atomic.Int32
	m.OnChange(func(*tailscale.Status) { notified.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("fetcher was not polled through its script")
	}
	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := notified.Load(); got != 2 {
		t.Errorf("notified %d times, want 2", got)
	}
	if st, up := m.Current(); st == nil || up {
		t.Errorf("Current() = %v, %v, want stopped snapshot", st, up)
	}
}

// slowFetcher records how many fetches overlap.
type slowFetcher struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *slowFetcher) Status(context.Context) (*tailscale.Status, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if n <= max || f.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return &tailscale.Status{BackendState: tailscale.Running, Self: &tailscale.Machine{}}, nil
}

func TestRefreshesAreSerialized(t *testing.T) {
	f := &slowFetcher{}
	m := New(f, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Refresh(context.Background())
		}()
	}
	wg.Wait()

	if got := f.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent fetches = %d, want 1", got)
	}
}

// blockingFetcher blocks until released and records the context state.
type blockingFetcher struct {
	started  chan struct{}
	release  chan struct{}
	ctxErr   error
	startOne sync.Once
}

func (f *blockingFetcher) Status(ctx context.Context) (*tailscale.Status, error) {
	f.startOne.Do(func() { close(f.started) })
	<-f.release
	f.ctxErr = ctx.Err()
	return &tailscale.Status{BackendState: tailscale.Running, Self: &tailscale.Machine{}}, nil
}

func TestRunFinishesTickOnShutdown(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	m := New(f, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	<-f.started
	cancel()
	close(f.release)

	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.ctxErr != nil {
		t.Errorf("in-flight fetch saw ctx error %v, want nil", f.ctxErr)
	}
	if st, up := m.Current(); st == nil || !up {
		t.Errorf("Current() = %v, %v, want the tick's snapshot", st, up)
	}
}

func TestSeedRetriesUntilSuccess(t *testing.T) {
	f := newScriptedFetcher(
		step{err: errors.New("not yet")},
		step{err: errors.New("not yet")},
		step{state: tailscale.Stopped},
	)
	m := New(f, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Seed(ctx); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if st, up := m.Current(); st == nil || up {
		t.Errorf("Current() = %v, %v, want stopped snapshot", st, up)
	}
}

func TestSeedStopsOnCancel(t *testing.T) {
	m := New(newScriptedFetcher(step{err: errors.New("down")}), 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.Seed(ctx); err == nil {
		t.Fatal("Seed() error = nil, want error after cancellation")
	}
}

func TestSetIntervalResetsTicker(t *testing.T) {
	f := newScriptedFetcher(states(tailscale.Running, tailscale.Running)...)
	m := New(f, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.SetInterval(5 * time.Millisecond)
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("interval change was not applied")
	}
	if m.Interval() != 5*time.Millisecond {
		t.Errorf("Interval() = %s, want 5ms", m.Interval())
	}
}

func TestOnSnapshotSeesEverySuccessfulRefresh(t *testing.T) {
	f := newScriptedFetcher(
		step{state: tailscale.Running},
		step{err: errors.New("timeout")},
		step{state: tailscale.Running},
	)
	m := New(f, time.Hour)

	var order []string
	m.OnChange(func(*tailscale.Status) { order = append(order, "change") })
	m.OnSnapshot(func(st *tailscale.Status) { order = append(order, "snapshot:"+st.Version) })

	for i := 0; i < 3; i++ {
		_ = m.Refresh(context.Background())
	}

	want := []string{"change", "snapshot:test-a", "snapshot:test-c"}
	if len(order) != len(want) {
		t.Fatalf("callbacks = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("callback #%d = %s, want %s", i, order[i], want[i])
		}
	}
}
