// Package search filters and ranks the dashboard's collections.
package search

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/libdesk/internal/domain"
	sfuzzy "github.com/sahilm/fuzzy"
)

// matches reports whether query fuzzily matches any of fields.
// Case and diacritics are ignored.
func matches(query string, fields ...string) bool {
	for _, f := range fields {
		if fuzzy.MatchNormalizedFold(query, f) {
			return true
		}
	}
	return false
}

// FilterBooks keeps books whose title or author matches query.
// An empty query returns books unchanged.
func FilterBooks(query string, books []domain.Book) []domain.Book {
	query = strings.TrimSpace(query)
	if query == "" {
		return books
	}
	var out []domain.Book
	for _, b := range books {
		if matches(query, b.Title, b.Author) {
			out = append(out, b)
		}
	}
	return out
}

// FilterMembers keeps members whose name or email matches query
func FilterMembers(query string, members []domain.Member) []domain.Member {
	query = strings.TrimSpace(query)
	if query == "" {
		return members
	}
	var out []domain.Member
	for _, m := range members {
		if matches(query, m.FullName, m.Email) {
			out = append(out, m)
		}
	}
	return out
}

// FilterTransactions keeps loans whose book title or member name matches
func FilterTransactions(query string, txns []domain.Transaction) []domain.Transaction {
	query = strings.TrimSpace(query)
	if query == "" {
		return txns
	}
	var out []domain.Transaction
	for _, t := range txns {
		if matches(query, t.BookTitle, t.MemberName) {
			out = append(out, t)
		}
	}
	return out
}

// Match is a ranked hit with the label positions that matched, for
// highlighting
type Match struct {
	Index          int // index into the ranked slice
	Label          string
	MatchedIndexes []int
	Score          int // higher is better
}

// labelIndex implements sahilm/fuzzy.Source over pre-lowered labels
type labelIndex struct {
	labels []string
	lower  []string
}

func (l labelIndex) String(i int) string { return l.lower[i] }
func (l labelIndex) Len() int            { return len(l.lower) }

func newLabelIndex(labels []string) labelIndex {
	lower := make([]string, len(labels))
	for i, s := range labels {
		lower[i] = strings.ToLower(s)
	}
	return labelIndex{labels: labels, lower: lower}
}

// Rank orders labels by fuzzy match quality against query, best first.
// Labels that don't match are dropped.
func Rank(query string, labels []string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	idx := newLabelIndex(labels)
	found := sfuzzy.FindFrom(query, idx)

	out := make([]Match, len(found))
	for i, m := range found {
		out[i] = Match{
			Index:          m.Index,
			Label:          idx.labels[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return out
}

// CopyLabel is the display label of an available copy: "Title by Author"
func CopyLabel(c domain.AvailableCopy) string {
	if c.Author == "" {
		return c.Title
	}
	return c.Title + " by " + c.Author
}

// RankCopies ranks available copies by their display label
func RankCopies(query string, copies []domain.AvailableCopy) []Match {
	labels := make([]string, len(copies))
	for i, c := range copies {
		labels[i] = CopyLabel(c)
	}
	return Rank(query, labels)
}

// RankBooks ranks books by "Title Author"
func RankBooks(query string, books []domain.Book) []Match {
	labels := make([]string, len(books))
	for i, b := range books {
		labels[i] = b.Title + " " + b.Author
	}
	return Rank(query, labels)
}
