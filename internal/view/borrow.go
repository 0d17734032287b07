package view

import (
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/loan"
	"github.com/mmcdole/libdesk/internal/search"
)

// Option is a selectable entry; Value is the id sent to the backend
type Option struct {
	Value string
	Label string
}

// BorrowModel is the issue/return page
type BorrowModel struct {
	Members []Option
	Copies  []Option

	// DuePlaceholder previews the due date of a loan issued now. The
	// backend's due date is what gets stored.
	DuePlaceholder string

	ActiveLoans []TxnRow
}

// BorrowForm builds the issue/return page
func BorrowForm(st loan.State, now time.Time) BorrowModel {
	m := BorrowModel{
		DuePlaceholder: domain.DefaultDueDate(now).In(now.Location()).Format("Mon, Jan 2, 2006"),
		ActiveLoans:    ActiveLoans(st.Transactions, now),
	}
	for _, mem := range st.Members {
		m.Members = append(m.Members, Option{Value: mem.ID, Label: mem.FullName + " (" + mem.Email + ")"})
	}
	for _, c := range st.Available {
		m.Copies = append(m.Copies, Option{Value: c.CopyID, Label: search.CopyLabel(c)})
	}
	return m
}
