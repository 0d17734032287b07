// Package loan owns the dashboard's application state and orchestrates
// loan lifecycle operations against the library API.
package loan

import (
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
)

// State is everything the views render. Values are replaced wholesale by
// completed fetches; the With* helpers return modified copies and never
// touch their receiver.
type State struct {
	Role domain.Role

	Books        []domain.Book
	Members      []domain.Member
	Transactions []domain.Transaction
	Available    []domain.AvailableCopy

	MyLoans   []domain.Transaction
	MyHistory []domain.Transaction

	// Summary is nil until a fetch has returned one. Never adjusted locally.
	Summary *domain.Summary

	FetchedAt time.Time
	// Stale is set while showing cached collections that no fetch has
	// confirmed yet
	Stale bool
}

// Loaded reports whether any data (cached or fetched) is present
func (s State) Loaded() bool {
	return !s.FetchedAt.IsZero()
}

// WithSnapshot replaces the collections with snap. summary may be nil
// (e.g. seeding from the cache), in which case the current one is dropped.
func (s State) WithSnapshot(snap domain.Snapshot, summary *domain.Summary, stale bool) State {
	return State{
		Role:         s.Role,
		Books:        snap.Books,
		Members:      snap.Members,
		Transactions: snap.Transactions,
		Available:    snap.Available,
		MyLoans:      snap.MyLoans,
		MyHistory:    snap.MyHistory,
		Summary:      summary,
		FetchedAt:    snap.FetchedAt,
		Stale:        stale,
	}
}

// WithIssued removes copyID from the available pool. Aggregates are left
// alone; the next fetch brings the authoritative counts.
func (s State) WithIssued(copyID string) State {
	available := make([]domain.AvailableCopy, 0, len(s.Available))
	for _, c := range s.Available {
		if c.CopyID != copyID {
			available = append(available, c)
		}
	}
	s.Available = available
	return s
}

// Snapshot extracts the cacheable collections
func (s State) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Books:        s.Books,
		Members:      s.Members,
		Transactions: s.Transactions,
		Available:    s.Available,
		MyLoans:      s.MyLoans,
		MyHistory:    s.MyHistory,
		FetchedAt:    s.FetchedAt,
	}
}

// IsAvailable reports whether copyID is in the local available pool
func (s State) IsAvailable(copyID string) bool {
	for _, c := range s.Available {
		if c.CopyID == copyID {
			return true
		}
	}
	return false
}
