package loan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Engine is the single owner of State. Fetches replace it, mutations go to
// the backend first and then ask the reconciler for a refresh.
type Engine struct {
	client domain.LibraryClient
	store  domain.SnapshotStore
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	state     State
	epoch     uint64 // bumped by Start/Reset so late fetches are dropped
	reconcile func()
}

// NewEngine creates an engine. store may be nil (no warm start).
func NewEngine(client domain.LibraryClient, store domain.SnapshotStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SetReconciler sets the hook run after every successful mutation,
// normally the refresh coordinator's Trigger
func (e *Engine) SetReconciler(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reconcile = f
}

// Start begins a session for role. Cached collections, if any, are shown
// marked stale until the first fetch completes. Returns true when seeded.
func (e *Engine) Start(role domain.Role) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.epoch++
	e.state = State{Role: role}
	if e.store == nil {
		return false
	}
	snap, ok := e.store.LoadSnapshot(role)
	if !ok {
		return false
	}
	e.state = e.state.WithSnapshot(snap, nil, true)
	e.logger.Debug("seeded state from cache", "role", role, "fetched_at", snap.FetchedAt)
	return true
}

// Reset drops all state and cached collections (logout)
func (e *Engine) Reset() error {
	e.mu.Lock()
	e.epoch++
	e.state = State{}
	e.mu.Unlock()

	if e.store == nil {
		return nil
	}
	if err := e.store.Clear(); err != nil {
		e.logger.Error("failed to clear snapshot cache", "error", err)
		return err
	}
	return nil
}

// State returns the current state value
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Refresh fetches every collection the role can see and replaces the
// state. On any failure the previous state is kept.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.RLock()
	role, epoch := e.state.Role, e.epoch
	e.mu.RUnlock()

	var (
		snap    domain.Snapshot
		summary *domain.Summary
		err     error
	)
	switch role {
	case domain.RoleAdmin:
		snap, summary, err = e.fetchAdmin(ctx)
	case domain.RoleMember:
		snap, err = e.fetchMember(ctx)
	default:
		return fmt.Errorf("refresh: %w", domain.ErrAuth)
	}
	if err != nil {
		e.logger.Error("refresh failed", "role", role, "error", err)
		return err
	}
	snap.FetchedAt = e.now()

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		e.logger.Debug("discarding fetch from previous session")
		return nil
	}
	e.state = e.state.WithSnapshot(snap, summary, false)
	e.mu.Unlock()

	e.logger.Debug("state refreshed",
		"role", role,
		"books", len(snap.Books),
		"transactions", len(snap.Transactions),
		"available", len(snap.Available),
		"my_loans", len(snap.MyLoans))

	if e.store != nil {
		if err := e.store.SaveSnapshot(role, snap); err != nil {
			e.logger.Error("failed to save snapshot", "error", err)
		}
	}
	return nil
}

func (e *Engine) fetchAdmin(ctx context.Context) (domain.Snapshot, *domain.Summary, error) {
	var (
		snap    domain.Snapshot
		summary domain.Summary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if summary, err = e.client.Summary(ctx); err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Books, err = e.client.ListBooks(ctx); err != nil {
			return fmt.Errorf("books: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Members, err = e.client.ListMembers(ctx); err != nil {
			return fmt.Errorf("members: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Transactions, err = e.client.ListCurrentTransactions(ctx); err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Available, err = e.client.ListAvailableCopies(ctx); err != nil {
			return fmt.Errorf("available copies: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, nil, err
	}
	return snap, &summary, nil
}

func (e *Engine) fetchMember(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if snap.MyLoans, err = e.client.MyBooks(ctx); err != nil {
			return fmt.Errorf("my books: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.MyHistory, err = e.client.MyHistory(ctx); err != nil {
			return fmt.Errorf("my history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// Issue lends copyID to memberID. On success the copy leaves the local
// available pool at once; everything else waits for the reconciling fetch.
func (e *Engine) Issue(ctx context.Context, memberID, copyID string) error {
	memberID = strings.TrimSpace(memberID)
	copyID = strings.TrimSpace(copyID)
	if memberID == "" || copyID == "" {
		return domain.Validation("select a member and a book copy")
	}

	if err := e.client.IssueBook(ctx, copyID, memberID); err != nil {
		e.logger.Error("issue failed", "copy", copyID, "member", memberID, "error", err)
		return err
	}
	e.logger.Info("book issued", "copy", copyID, "member", memberID)

	e.mu.Lock()
	e.state = e.state.WithIssued(copyID)
	e.mu.Unlock()

	e.reconciled()
	return nil
}

// Return closes a loan. Nothing changes locally until the reconciling
// fetch lands.
func (e *Engine) Return(ctx context.Context, transactionID string) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.Validation("select a transaction to return")
	}

	if err := e.client.ReturnBook(ctx, transactionID); err != nil {
		e.logger.Error("return failed", "transaction", transactionID, "error", err)
		return err
	}
	e.logger.Info("book returned", "transaction", transactionID)
	e.reconciled()
	return nil
}

// AddBook creates a catalog entry
func (e *Engine) AddBook(ctx context.Context, book domain.NewBook) error {
	book = book.Normalize()
	if err := book.Validate(); err != nil {
		return err
	}
	if err := e.client.AddBook(ctx, book); err != nil {
		e.logger.Error("add book failed", "title", book.Title, "error", err)
		return err
	}
	e.logger.Info("book added", "title", book.Title)
	e.reconciled()
	return nil
}

// DeleteBook removes a catalog entry
func (e *Engine) DeleteBook(ctx context.Context, bookID string) error {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return domain.Validation("select a book to delete")
	}
	if err := e.client.DeleteBook(ctx, bookID); err != nil {
		e.logger.Error("delete book failed", "book", bookID, "error", err)
		return err
	}
	e.logger.Info("book deleted", "book", bookID)
	e.reconciled()
	return nil
}

// AddMember registers a patron
func (e *Engine) AddMember(ctx context.Context, member domain.NewMember) error {
	member = member.Normalize()
	if err := member.Validate(); err != nil {
		return err
	}
	if err := e.client.AddMember(ctx, member); err != nil {
		e.logger.Error("add member failed", "email", member.Email, "error", err)
		return err
	}
	e.logger.Info("member added", "email", member.Email)
	e.reconciled()
	return nil
}

// DeleteMember removes a patron
func (e *Engine) DeleteMember(ctx context.Context, memberID string) error {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return domain.Validation("select a member to delete")
	}
	if err := e.client.DeleteMember(ctx, memberID); err != nil {
		e.logger.Error("delete member failed", "member", memberID, "error", err)
		return err
	}
	e.logger.Info("member deleted", "member", memberID)
	e.reconciled()
	return nil
}

func (e *Engine) reconciled() {
	e.mu.RLock()
	f := e.reconcile
	e.mu.RUnlock()
	if f != nil {
		f()
	}
}
