package store

import (
	"testing"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
)

func sampleSnapshot() domain.Snapshot {
	returned := time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		Books:   []domain.Book{{ID: "book-1", Title: "Dune", Author: "Frank Herbert", Language: "English"}},
		Members: []domain.Member{{ID: "mem-7", FullName: "Ada Lovelace", Email: "ada@example.com"}},
		Transactions: []domain.Transaction{
			{
				ID:         "txn-1",
				BookCopyID: "copy-42",
				MemberID:   "mem-7",
				IssueDate:  time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC),
				DueDate:    domain.Date{Year: 2024, Month: time.January, Day: 24},
				ReturnDate: &returned,
			},
		},
		Available: []domain.AvailableCopy{{CopyID: "copy-43", BookID: "book-1", Title: "Dune"}},
		FetchedAt: time.Date(2024, 1, 21, 8, 0, 0, 0, time.UTC),
	}
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveSnapshot(domain.RoleAdmin, sampleSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	got, ok := s.LoadSnapshot(domain.RoleAdmin)
	if !ok {
		t.Fatal("snapshot missing after reopen")
	}
	if len(got.Books) != 1 || got.Books[0].Title != "Dune" {
		t.Fatalf("books = %+v", got.Books)
	}
	txn := got.Transactions[0]
	if txn.DueDate.String() != "2024-01-24" {
		t.Fatalf("due date = %s", txn.DueDate)
	}
	if txn.ReturnDate == nil || !txn.ReturnDate.Equal(time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("return date = %v", txn.ReturnDate)
	}
	if !got.FetchedAt.Equal(sampleSnapshot().FetchedAt) {
		t.Fatalf("fetched at = %v", got.FetchedAt)
	}

	if _, ok := s.LoadSnapshot(domain.RoleMember); ok {
		t.Fatal("member snapshot should not exist")
	}
}

func TestClearRemovesSnapshots(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleMember} {
		if err := s.SaveSnapshot(role, sampleSnapshot()); err != nil {
			t.Fatalf("SaveSnapshot(%s): %v", role, err)
		}
		// Promote into the memory cache too
		if _, ok := s.LoadSnapshot(role); !ok {
			t.Fatalf("LoadSnapshot(%s) missing", role)
		}
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleMember} {
		if _, ok := s.LoadSnapshot(role); ok {
			t.Fatalf("%s snapshot survived Clear", role)
		}
	}
}

func TestMemoryOnlyStore(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveSnapshot(domain.RoleMember, sampleSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if _, ok := s.LoadSnapshot(domain.RoleMember); !ok {
		t.Fatal("memory store lost snapshot")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := s.LoadSnapshot(domain.RoleMember); ok {
		t.Fatal("snapshot survived Clear")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
