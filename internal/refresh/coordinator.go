package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWindow is the debounce window applied to change-feed bursts
const DefaultWindow = 100 * time.Millisecond

// RefreshFunc performs one fetch cycle. A returned error leaves the
// caller's previous state in place; the coordinator keeps running.
type RefreshFunc func(ctx context.Context) error

// Recorder observes coordinator activity (used for metrics)
type Recorder interface {
	Notified()
	RefreshStarted()
	RefreshFinished(elapsed time.Duration, err error)
}

// Options configures a Coordinator
type Options struct {
	Window   time.Duration // debounce window, DefaultWindow if zero
	Clock    Clock         // RealClock if nil
	Logger   *slog.Logger
	Recorder Recorder

	// OnDone is called after every cycle, outside the coordinator lock
	OnDone func(err error)
}

// Coordinator drives a Machine with real timers and runs fetches in the
// background, one at a time
type Coordinator struct {
	mu      sync.Mutex
	machine Machine
	timer   Timer
	gen     uint64 // invalidates timers that fire after being superseded
	stopped bool
	cycles  int

	refresh  RefreshFunc
	window   time.Duration
	clock    Clock
	logger   *slog.Logger
	recorder Recorder
	onDone   func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a coordinator around refresh
func NewCoordinator(refresh RefreshFunc, opts Options) *Coordinator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		refresh:  refresh,
		window:   opts.Window,
		clock:    opts.Clock,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		onDone:   opts.OnDone,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Notify signals that something changed upstream. Bursts within the
// window coalesce into one refresh.
func (c *Coordinator) Notify() {
	if c.recorder != nil {
		c.recorder.Notified()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	var eff Effect
	c.machine, eff = c.machine.Notify()
	c.apply(eff)
}

// Trigger requests a refresh now, or right after the in-flight one
func (c *Coordinator) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	var eff Effect
	c.machine, eff = c.machine.Trigger()
	c.apply(eff)
}

// State returns the current phase
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State
}

// Cycles returns how many fetches have been started
func (c *Coordinator) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// Wait blocks until no fetch goroutine is running
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Stop cancels any pending timer, cancels the in-flight fetch's context
// and waits for it to finish. Further signals are ignored.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.stopTimer()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// apply performs eff. Caller holds c.mu.
func (c *Coordinator) apply(eff Effect) {
	switch eff {
	case EffectSchedule:
		c.stopTimer()
		gen := c.gen
		c.timer = c.clock.AfterFunc(c.window, func() { c.quiet(gen) })
	case EffectRefresh:
		c.stopTimer()
		c.start()
	}
}

// stopTimer cancels the debounce timer and invalidates it if it is
// already mid-fire. Caller holds c.mu.
func (c *Coordinator) stopTimer() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) quiet(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || gen != c.gen {
		return
	}
	c.timer = nil
	var eff Effect
	c.machine, eff = c.machine.Quiet()
	c.apply(eff)
}

// start launches one fetch. Caller holds c.mu.
func (c *Coordinator) start() {
	c.cycles++
	cycle := c.cycles
	c.wg.Add(1)

	if c.recorder != nil {
		c.recorder.RefreshStarted()
	}

	go func() {
		defer c.wg.Done()

		started := c.clock.Now()
		err := c.refresh(c.ctx)
		elapsed := c.clock.Now().Sub(started)

		if err != nil {
			c.logger.Warn("refresh failed", "cycle", cycle, "error", err)
		} else {
			c.logger.Debug("refresh complete", "cycle", cycle, "elapsed", elapsed)
		}
		if c.recorder != nil {
			c.recorder.RefreshFinished(elapsed, err)
		}

		c.mu.Lock()
		var eff Effect
		c.machine, eff = c.machine.Done()
		if !c.stopped {
			c.apply(eff)
		}
		c.mu.Unlock()

		if c.onDone != nil {
			c.onDone(err)
		}
	}()
}
