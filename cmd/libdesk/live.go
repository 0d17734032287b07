package main

import (
	"context"
	"errors"

	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/mmcdole/libdesk/internal/loan"
	"github.com/mmcdole/libdesk/internal/refresh"
)

// live is a running coordinator and change feed
type live struct {
	coord  *refresh.Coordinator
	cancel context.CancelFunc
	done   chan struct{}
}

// startLive wires the engine to a debounced coordinator and subscribes
// the configured change feed in the background
func (a *app) startLive(engine *loan.Engine, opts refresh.Options, feedOpts feed.NotifierOptions) *live {
	opts.Window = a.cfg.Refresh.Debounce
	opts.Logger = a.logger
	coord := refresh.NewCoordinator(engine.Refresh, opts)
	engine.SetReconciler(coord.Trigger)

	src, err := feed.NewSource(a.cfg.Realtime, a.logger)
	if err != nil {
		a.logger.Warn("change feed disabled", "error", err)
		src = nil
	}

	feedOpts.RetryDelay = a.cfg.Realtime.RetryDelay
	feedOpts.Logger = a.logger
	notifier := feed.NewNotifier(src, coord, feedOpts)

	ctx, cancel := context.WithCancel(context.Background())
	l := &live{coord: coord, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		if err := notifier.Run(ctx); err != nil && !errors.Is(err, feed.ErrDisabled) {
			a.logger.Error("change feed stopped", "error", err)
		}
	}()
	return l
}

// stop unsubscribes the feed and waits for any in-flight refresh
func (l *live) stop() {
	l.cancel()
	<-l.done
	l.coord.Stop()
}
