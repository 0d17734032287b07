package domain

import "time"

// Snapshot is the set of collections returned by one completed fetch.
// The summary is not part of it: aggregates are only ever shown fresh.
type Snapshot struct {
	Books        []Book          `json:"books,omitempty"`
	Members      []Member        `json:"members,omitempty"`
	Transactions []Transaction   `json:"transactions,omitempty"`
	Available    []AvailableCopy `json:"available,omitempty"`
	MyLoans      []Transaction   `json:"my_loans,omitempty"`
	MyHistory    []Transaction   `json:"my_history,omitempty"`
	FetchedAt    time.Time       `json:"fetched_at"`
}

// SnapshotStore is the local advisory cache (BoltDB + memory).
// It is only used to paint the dashboard before the first fetch lands;
// the backend stays authoritative.
type SnapshotStore interface {
	LoadSnapshot(role Role) (Snapshot, bool)
	SaveSnapshot(role Role, snap Snapshot) error

	// Clear drops everything, e.g. at logout
	Clear() error
	Close() error
}
