package api

import (
	"strings"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
)

// timestampLayouts are tried in order. The backend writes Python isoformat
// strings, which may lack a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// parseTimestamp parses a backend timestamp. Zone-less values are read in
// loc. Returns the zero time for empty or unrecognized input.
func parseTimestamp(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MapBook converts a book row to a domain Book
func MapBook(b BookDTO) domain.Book {
	subject := b.Subject
	if subject == "" {
		subject = b.SubjectID.String()
	}
	return domain.Book{
		ID:       b.ID.String(),
		Title:    b.Title,
		Author:   b.Author,
		ISBN:     b.ISBN,
		Subject:  subject,
		Language: b.Language,
	}
}

// MapBooks converts book rows
func MapBooks(rows []BookDTO) []domain.Book {
	books := make([]domain.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, MapBook(r))
	}
	return books
}

// MapAvailableCopies converts available-copy rows
func MapAvailableCopies(rows []AvailableCopyDTO) []domain.AvailableCopy {
	copies := make([]domain.AvailableCopy, 0, len(rows))
	for _, r := range rows {
		copies = append(copies, domain.AvailableCopy{
			CopyID: r.CopyID.String(),
			BookID: r.BookID.String(),
			Title:  r.Title,
			Author: r.Author,
		})
	}
	return copies
}

// MapMembers converts member rows
func MapMembers(rows []MemberDTO) []domain.Member {
	members := make([]domain.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, domain.Member{
			ID:       r.ID.String(),
			FullName: r.FullName,
			Email:    r.Email,
			Phone:    r.Phone,
			Type:     r.MemberType,
		})
	}
	return members
}

// MapTransaction converts a transaction row. A missing due date is filled
// with the loan-policy default and flagged as estimated.
func MapTransaction(r TransactionDTO, loc *time.Location) domain.Transaction {
	id := r.TransactionID.String()
	if id == "" {
		id = r.ID.String()
	}

	t := domain.Transaction{
		ID:             id,
		BookCopyID:     r.BookCopyID.String(),
		MemberID:       r.MemberID.String(),
		BookTitle:      r.BookTitle,
		MemberName:     r.MemberName,
		Author:         r.Author,
		IssueDate:      parseTimestamp(r.IssueDate, loc),
		ReportedStatus: r.Status,
	}

	if due, err := domain.ParseDate(r.DueDate); err == nil {
		t.DueDate = due
	} else if !t.IssueDate.IsZero() {
		t.DueDate = domain.DefaultDueDate(t.IssueDate)
		t.DueEstimated = true
	}

	if r.ReturnDate != nil && strings.TrimSpace(*r.ReturnDate) != "" {
		returned := parseTimestamp(*r.ReturnDate, loc)
		if returned.IsZero() {
			// Unparseable but present still means the loan is closed
			returned = t.IssueDate
		}
		t.ReturnDate = &returned
	}

	return t
}

// MapTransactions converts transaction rows
func MapTransactions(rows []TransactionDTO, loc *time.Location) []domain.Transaction {
	txns := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		txns = append(txns, MapTransaction(r, loc))
	}
	return txns
}

// MapSummary converts the analytics body. Totals fall back to the top-level
// fields when the pulse block omits them.
func MapSummary(s SummaryDTO) domain.Summary {
	var sum domain.Summary
	if s.Pulse != nil {
		sum = domain.Summary{
			TotalBooks:      s.Pulse.TotalBooks,
			TotalCopies:     s.Pulse.TotalCopies,
			AvailableCopies: s.Pulse.AvailableCopies,
			IssuedCopies:    s.Pulse.IssuedCopies,
			OverdueCount:    s.Pulse.OverdueCount,
			ActiveMembers:   s.Pulse.ActiveMembers,
		}
	}
	if sum.TotalBooks == 0 && s.TotalBooks != nil {
		sum.TotalBooks = *s.TotalBooks
	}
	if sum.ActiveMembers == 0 && s.TotalMembers != nil {
		sum.ActiveMembers = *s.TotalMembers
	}
	sum.ByMemberType = s.ByMemberType
	sum.ByLanguage = s.ByLanguage
	return sum
}
