package search

import (
	"testing"

	"github.com/mmcdole/libdesk/internal/domain"
)

var books = []domain.Book{
	{ID: "1", Title: "Dune", Author: "Frank Herbert"},
	{ID: "2", Title: "Emma", Author: "Jane Austen"},
	{ID: "3", Title: "Cien años de soledad", Author: "Gabriel García Márquez"},
}

func TestFilterBooks(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2", "3"}},
		{"dune", []string{"1"}},
		{"AUSTEN", []string{"2"}},
		{"garcia", []string{"3"}},
		{"anos", []string{"3"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		got := FilterBooks(tt.query, books)
		if len(got) != len(tt.want) {
			t.Fatalf("FilterBooks(%q) = %d books, want %v", tt.query, len(got), tt.want)
		}
		for i, b := range got {
			if b.ID != tt.want[i] {
				t.Fatalf("FilterBooks(%q)[%d] = %s, want %s", tt.query, i, b.ID, tt.want[i])
			}
		}
	}
}

func TestFilterMembersMatchesEmail(t *testing.T) {
	members := []domain.Member{
		{ID: "m1", FullName: "Ada Lovelace", Email: "ada@example.com"},
		{ID: "m2", FullName: "Grace Hopper", Email: "grace@navy.mil"},
	}
	got := FilterMembers("navy", members)
	if len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("FilterMembers = %+v", got)
	}
}

func TestFilterTransactions(t *testing.T) {
	txns := []domain.Transaction{
		{ID: "t1", BookTitle: "Dune", MemberName: "Ada Lovelace"},
		{ID: "t2", BookTitle: "Emma", MemberName: "Grace Hopper"},
	}
	got := FilterTransactions("grace", txns)
	if len(got) != 1 || got[0].ID != "t2" {
		t.Fatalf("FilterTransactions = %+v", got)
	}
}

func TestRankCopiesHighlightsMatch(t *testing.T) {
	copies := []domain.AvailableCopy{
		{CopyID: "c1", Title: "Emma", Author: "Jane Austen"},
		{CopyID: "c2", Title: "Dune", Author: "Frank Herbert"},
	}
	got := RankCopies("dune", copies)
	if len(got) != 1 {
		t.Fatalf("RankCopies = %+v", got)
	}
	if got[0].Index != 1 || got[0].Label != "Dune by Frank Herbert" {
		t.Fatalf("match = %+v", got[0])
	}
	want := []int{0, 1, 2, 3}
	for i, idx := range want {
		if got[0].MatchedIndexes[i] != idx {
			t.Fatalf("matched indexes = %v, want %v", got[0].MatchedIndexes, want)
		}
	}
	if Rank("  ", []string{"x"}) != nil {
		t.Fatal("blank query should rank nothing")
	}
}
