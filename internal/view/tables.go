package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
)

// Filter narrows the transactions table
type Filter int

const (
	FilterAll Filter = iota
	FilterActive
	FilterOverdue
	FilterReturned
)

var filterNames = []string{"all", "active", "overdue", "returned"}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return filterNames[0]
	}
	return filterNames[f]
}

// Next cycles to the following filter
func (f Filter) Next() Filter {
	return (f + 1) % Filter(len(filterNames))
}

// ParseFilter accepts all/active/overdue/returned
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for i, name := range filterNames {
		if name == s {
			return Filter(i), nil
		}
	}
	return FilterAll, fmt.Errorf("unknown filter %q (want one of %s)", s, strings.Join(filterNames, ", "))
}

func (f Filter) keep(s domain.Status) bool {
	switch f {
	case FilterActive:
		return s == domain.StatusActive
	case FilterOverdue:
		return s == domain.StatusOverdue
	case FilterReturned:
		return s == domain.StatusReturned
	default:
		return true
	}
}

// TxnRow is one transaction as displayed
type TxnRow struct {
	ID       string
	Book     string
	Member   string
	Issued   string
	Due      string
	Returned string
	Status   domain.Status

	DueEstimated bool
	CanReturn    bool
}

func txnRow(t domain.Transaction, now time.Time) TxnRow {
	row := TxnRow{
		ID:           t.ID,
		Book:         orDash(t.BookTitle),
		Member:       orDash(t.MemberName),
		Issued:       dayString(t.IssueDate),
		Due:          orDash(t.DueDate.String()),
		Returned:     placeholder,
		Status:       domain.DeriveStatus(t, now),
		DueEstimated: t.DueEstimated,
		CanReturn:    t.IsOpen(),
	}
	if t.ReturnDate != nil {
		row.Returned = dayString(*t.ReturnDate)
	}
	return row
}

// TransactionRows renders txns matching filter, status derived at now
func TransactionRows(txns []domain.Transaction, filter Filter, now time.Time) []TxnRow {
	var rows []TxnRow
	for _, t := range txns {
		row := txnRow(t, now)
		if filter.keep(row.Status) {
			rows = append(rows, row)
		}
	}
	return rows
}

// ActiveLoans renders the open transactions (active or overdue)
func ActiveLoans(txns []domain.Transaction, now time.Time) []TxnRow {
	var rows []TxnRow
	for _, t := range txns {
		if t.IsOpen() {
			rows = append(rows, txnRow(t, now))
		}
	}
	return rows
}

// MyBookRows renders a member's current loans
func MyBookRows(loans []domain.Transaction, now time.Time) []TxnRow {
	rows := ActiveLoans(loans, now)
	for i := range rows {
		rows[i].CanReturn = false
	}
	return rows
}

// MyHistoryRows renders a member's full loan history
func MyHistoryRows(history []domain.Transaction, now time.Time) []TxnRow {
	rows := TransactionRows(history, FilterAll, now)
	for i := range rows {
		rows[i].CanReturn = false
	}
	return rows
}

// BookRow is one catalog entry as displayed
type BookRow struct {
	ID       string
	Title    string
	Author   string
	ISBN     string
	Subject  string
	Language string
}

// BookRows renders the catalog
func BookRows(books []domain.Book) []BookRow {
	rows := make([]BookRow, len(books))
	for i, b := range books {
		rows[i] = BookRow{
			ID:       b.ID,
			Title:    orDash(b.Title),
			Author:   orDash(b.Author),
			ISBN:     orDash(b.ISBN),
			Subject:  orDash(b.Subject),
			Language: orDash(b.Language),
		}
	}
	return rows
}

// MemberRow is one member as displayed
type MemberRow struct {
	ID    string
	Name  string
	Email string
	Type  string
	Phone string
}

// MemberRows renders the membership list
func MemberRows(members []domain.Member) []MemberRow {
	rows := make([]MemberRow, len(members))
	for i, m := range members {
		rows[i] = MemberRow{
			ID:    m.ID,
			Name:  orDash(m.FullName),
			Email: orDash(m.Email),
			Type:  orDash(m.Type),
			Phone: orDash(m.Phone),
		}
	}
	return rows
}
