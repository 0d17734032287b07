package domain

import "time"

// LoanPeriod is the fixed lending policy: due date = issue date + 14 days
const LoanPeriod = 14

// Status is the lifecycle state of a transaction
type Status int

const (
	StatusActive Status = iota
	StatusOverdue
	StatusReturned
)

func (s Status) String() string {
	switch s {
	case StatusOverdue:
		return "Overdue"
	case StatusReturned:
		return "Returned"
	default:
		return "Active"
	}
}

// DeriveStatus computes a transaction's status at now.
//
// A returned transaction is terminal. An open one is overdue once its due
// date is strictly before today's calendar date (in now's location);
// time of day is ignored. Must be re-evaluated at render time since a loan
// becomes overdue without any event.
func DeriveStatus(t Transaction, now time.Time) Status {
	if t.ReturnDate != nil {
		return StatusReturned
	}
	if !t.DueDate.IsZero() && t.DueDate.Before(DateOf(now)) {
		return StatusOverdue
	}
	return StatusActive
}

// DefaultDueDate is the placeholder due date for a loan issued at issued.
// The backend is authoritative; this is only shown when it omits one.
func DefaultDueDate(issued time.Time) Date {
	return DateOf(issued).AddDays(LoanPeriod)
}
