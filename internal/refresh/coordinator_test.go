package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/libdesk/internal/adapter"
)

func newTestCoordinator(t *testing.T, fn RefreshFunc, onDone func(error)) (*Coordinator, *FakeClock) {
	t.Helper()
	clk := NewFakeClock(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	c := NewCoordinator(fn, Options{
		Window: 100 * time.Millisecond,
		Clock:  clk,
		Logger: adapter.NullLogger(),
		OnDone: onDone,
	})
	t.Cleanup(c.Stop)
	return c, clk
}

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Machine
		signal  func(Machine) (Machine, Effect)
		want    Machine
		wantEff Effect
	}{
		{"notify idle", Machine{State: Idle}, Machine.Notify, Machine{State: Pending}, EffectSchedule},
		{"notify pending resets timer", Machine{State: Pending}, Machine.Notify, Machine{State: Pending}, EffectSchedule},
		{"notify refreshing sets rerun", Machine{State: Refreshing}, Machine.Notify, Machine{State: Refreshing, Rerun: true}, EffectNone},
		{"trigger idle", Machine{State: Idle}, Machine.Trigger, Machine{State: Refreshing}, EffectRefresh},
		{"trigger pending skips window", Machine{State: Pending}, Machine.Trigger, Machine{State: Refreshing}, EffectRefresh},
		{"trigger refreshing defers", Machine{State: Refreshing}, Machine.Trigger, Machine{State: Refreshing, Rerun: true}, EffectNone},
		{"quiet pending", Machine{State: Pending}, Machine.Quiet, Machine{State: Refreshing}, EffectRefresh},
		{"stale quiet ignored", Machine{State: Idle}, Machine.Quiet, Machine{State: Idle}, EffectNone},
		{"done without rerun", Machine{State: Refreshing}, Machine.Done, Machine{State: Idle}, EffectNone},
		{"done with rerun", Machine{State: Refreshing, Rerun: true}, Machine.Done, Machine{State: Pending}, EffectSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, eff := tt.signal(tt.from)
			if got != tt.want || eff != tt.wantEff {
				t.Fatalf("got (%+v, %v), want (%+v, %v)", got, eff, tt.want, tt.wantEff)
			}
		})
	}
}

func TestBurstOfNotificationsRefreshesOnce(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestCoordinator(t, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	// 5 events over 50ms, well inside the 100ms window
	for i := 0; i < 5; i++ {
		c.Notify()
		clk.Advance(10 * time.Millisecond)
	}
	if calls.Load() != 0 {
		t.Fatal("refresh must wait for the quiet period")
	}
	if c.State() != Pending {
		t.Fatalf("state = %v, want pending", c.State())
	}

	clk.Advance(100 * time.Millisecond)
	c.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("refresh ran %d times, want 1", n)
	}
	if c.State() != Idle {
		t.Fatalf("state = %v, want idle", c.State())
	}

	// Nothing left scheduled
	clk.Advance(time.Second)
	c.Wait()
	if n := calls.Load(); n != 1 {
		t.Fatalf("refresh ran %d times after settling, want 1", n)
	}
}

func TestTriggerWhileInFlightIsDeferred(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
		calls    int
		version  atomic.Int32 // backend data version
		rendered int32        // version the last completed refresh fetched
	)
	started := make(chan struct{})
	release := make(chan struct{})

	fetch := func(context.Context) error {
		snapshot := version.Load()

		mu.Lock()
		calls++
		first := calls == 1
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu.Unlock()

		if first {
			close(started)
			<-release
		}

		mu.Lock()
		rendered = snapshot
		inFlight--
		mu.Unlock()
		return nil
	}

	c, clk := newTestCoordinator(t, fetch, nil)

	version.Store(1)
	c.Trigger()
	<-started

	// Data changes and a second trigger lands while the first fetch is blocked
	version.Store(2)
	c.Trigger()

	if got := c.Cycles(); got != 1 {
		t.Fatalf("cycles started = %d, want 1 while first is in flight", got)
	}

	close(release)
	c.Wait()
	if c.State() != Pending {
		t.Fatalf("state = %v, want pending follow-up", c.State())
	}

	mu.Lock()
	if rendered != 1 {
		t.Fatalf("first refresh saw version %d, want 1", rendered)
	}
	mu.Unlock()

	clk.Advance(100 * time.Millisecond)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("refresh ran %d times, want 2", calls)
	}
	if maxSeen != 1 {
		t.Fatalf("max concurrent refreshes = %d, want 1", maxSeen)
	}
	if rendered != 2 {
		t.Fatalf("final view reflects version %d, want 2", rendered)
	}
}

func TestNotifyDuringRefreshIsNotDropped(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	c, clk := newTestCoordinator(t, func(context.Context) error {
		if calls.Add(1) == 1 {
			<-release
		}
		return nil
	}, nil)

	c.Trigger()
	c.Notify()
	close(release)
	c.Wait()

	clk.Advance(100 * time.Millisecond)
	c.Wait()

	if n := calls.Load(); n != 2 {
		t.Fatalf("refresh ran %d times, want 2", n)
	}
}

func TestFailedRefreshKeepsCoordinatorRunning(t *testing.T) {
	var calls atomic.Int32
	var errs []error
	var mu sync.Mutex

	c, clk := newTestCoordinator(t, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("offline")
		}
		return nil
	}, func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})

	c.Notify()
	clk.Advance(100 * time.Millisecond)
	c.Wait()
	if c.State() != Idle {
		t.Fatalf("state after failure = %v, want idle", c.State())
	}

	c.Notify()
	clk.Advance(100 * time.Millisecond)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 2 || errs[0] == nil || errs[1] != nil {
		t.Fatalf("onDone errors = %v, want [offline <nil>]", errs)
	}
}

func TestTriggerCancelsPendingTimer(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestCoordinator(t, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	c.Notify()
	c.Trigger()
	c.Wait()

	clk.Advance(time.Second)
	c.Wait()
	if n := calls.Load(); n != 1 {
		t.Fatalf("refresh ran %d times, want 1", n)
	}
	if clk.Pending() != 0 {
		t.Fatalf("%d timers still pending", clk.Pending())
	}
}

func TestStopIgnoresFurtherSignals(t *testing.T) {
	var calls atomic.Int32
	clk := NewFakeClock(time.Now())
	c := NewCoordinator(func(context.Context) error {
		calls.Add(1)
		return nil
	}, Options{Clock: clk, Logger: adapter.NullLogger()})

	c.Notify()
	c.Stop()
	clk.Advance(time.Second)
	c.Trigger()
	c.Wait()

	if n := calls.Load(); n != 0 {
		t.Fatalf("refresh ran %d times after Stop", n)
	}
}
