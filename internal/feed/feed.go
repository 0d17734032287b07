// Package feed subscribes to row-change events for the library's
// collections and forwards each one to the refresh coordinator. Payloads
// are never interpreted: any event means "something changed, re-fetch".
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Collection is a watched backend table
type Collection string

const (
	Books        Collection = "books"
	Members      Collection = "members"
	Transactions Collection = "transactions"
	BookCopies   Collection = "book_copies"
)

// Collections is every collection the dashboard depends on
var Collections = []Collection{Books, Members, Transactions, BookCopies}

// Event is a single row change. Type is informational only
// (INSERT/UPDATE/DELETE, or "" when the source doesn't say).
type Event struct {
	Collection Collection
	Type       string
}

// Status is the subscription state shown in the header
type Status int

const (
	Connecting Status = iota
	Live
	Offline
)

func (s Status) String() string {
	switch s {
	case Live:
		return "Live"
	case Offline:
		return "Offline"
	default:
		return "Connecting"
	}
}

// Sink receives what a Source observes
type Sink interface {
	// Subscribed is called once the source is delivering events
	Subscribed()
	Event(Event)
}

// Source is a change-feed transport. Run blocks until ctx is done or the
// connection is lost; it returns nil only when ctx ended.
type Source interface {
	Name() string
	Run(ctx context.Context, collections []Collection, sink Sink) error
}

// Target is whatever reacts to changes (the refresh coordinator)
type Target interface {
	Notify()
}

// ErrDisabled is returned by Run when the notifier has no source
var ErrDisabled = errors.New("change feed disabled")

// NotifierOptions configures a Notifier
type NotifierOptions struct {
	RetryDelay time.Duration // wait before resubscribing, 5s if zero
	Logger     *slog.Logger
	OnStatus   func(Status)
	OnEvent    func(Event)
}

// Notifier keeps a Source subscribed and forwards its events to a Target
type Notifier struct {
	source     Source
	target     Target
	retryDelay time.Duration
	logger     *slog.Logger
	onStatus   func(Status)
	onEvent    func(Event)

	mu     sync.RWMutex
	status Status
	// dropped is set once a subscription is lost; the next Subscribed
	// notifies the target to pick up changes missed during the outage
	dropped bool
}

// NewNotifier creates a notifier. source may be nil (feed disabled).
func NewNotifier(source Source, target Target, opts NotifierOptions) *Notifier {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Notifier{
		source:     source,
		target:     target,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
		onStatus:   opts.OnStatus,
		onEvent:    opts.OnEvent,
		status:     Connecting,
	}
}

// Status returns the current subscription state
func (n *Notifier) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Run keeps the subscription alive until ctx is cancelled, resubscribing
// after RetryDelay whenever the source drops
func (n *Notifier) Run(ctx context.Context) error {
	if n.source == nil {
		n.setStatus(Offline)
		return ErrDisabled
	}

	for {
		n.setStatus(Connecting)
		n.logger.Debug("subscribing to change feed", "source", n.source.Name())

		err := n.source.Run(ctx, Collections, n)
		if ctx.Err() != nil {
			n.setStatus(Offline)
			return nil
		}

		n.mu.Lock()
		n.dropped = true
		n.mu.Unlock()
		n.setStatus(Offline)
		n.logger.Warn("change feed dropped", "source", n.source.Name(), "error", err, "retry_in", n.retryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(n.retryDelay):
		}
	}
}

// Subscribed implements Sink. After a reconnect the target is notified
// once, since events during the outage were never delivered.
func (n *Notifier) Subscribed() {
	n.mu.Lock()
	resubscribed := n.dropped
	n.dropped = false
	n.mu.Unlock()

	if resubscribed && n.target != nil {
		n.logger.Debug("resubscribed, requesting catch-up refresh", "source", n.source.Name())
		n.target.Notify()
	}
	n.setStatus(Live)
	n.logger.Info("change feed live", "source", n.source.Name())
}

// Event implements Sink
func (n *Notifier) Event(e Event) {
	n.logger.Debug("change event", "collection", e.Collection, "type", e.Type)
	if n.onEvent != nil {
		n.onEvent(e)
	}
	if n.target != nil {
		n.target.Notify()
	}
}

func (n *Notifier) setStatus(s Status) {
	n.mu.Lock()
	changed := n.status != s
	n.status = s
	n.mu.Unlock()

	if changed && n.onStatus != nil {
		n.onStatus(s)
	}
}

// isWatched reports whether name is one of collections
func isWatched(name string, collections []Collection) (Collection, bool) {
	for _, c := range collections {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}
