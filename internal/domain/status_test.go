package domain

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestDeriveStatus(t *testing.T) {
	returned := time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		txn  Transaction
		now  time.Time
		want Status
	}{
		{
			name: "open and not yet due",
			txn:  Transaction{DueDate: mustDate(t, "2024-01-24")},
			now:  time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
			want: StatusActive,
		},
		{
			name: "due today is still active",
			txn:  Transaction{DueDate: mustDate(t, "2024-01-24")},
			now:  time.Date(2024, 1, 24, 23, 59, 0, 0, time.UTC),
			want: StatusActive,
		},
		{
			name: "day after due date is overdue",
			txn:  Transaction{DueDate: mustDate(t, "2024-01-24")},
			now:  time.Date(2024, 1, 25, 0, 0, 1, 0, time.UTC),
			want: StatusOverdue,
		},
		{
			name: "long past due",
			txn:  Transaction{DueDate: mustDate(t, "2024-01-24")},
			now:  time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
			want: StatusOverdue,
		},
		{
			name: "returned late is returned, not overdue",
			txn:  Transaction{DueDate: mustDate(t, "2024-01-10"), ReturnDate: &returned},
			now:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want: StatusReturned,
		},
		{
			name: "backend label is ignored",
			txn:  Transaction{DueDate: mustDate(t, "2024-01-24"), ReportedStatus: "Overdue"},
			now:  time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
			want: StatusActive,
		},
		{
			name: "missing due date never goes overdue",
			txn:  Transaction{},
			now:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			want: StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.txn, tt.now); got != tt.want {
				t.Fatalf("DeriveStatus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveStatusUsesCalendarDateOfNowsLocation(t *testing.T) {
	// 2024-01-25 03:00 in UTC+5 is still 2024-01-24 in UTC.
	zone := time.FixedZone("UTC+5", 5*60*60)
	txn := Transaction{DueDate: mustDate(t, "2024-01-24")}

	local := time.Date(2024, 1, 25, 3, 0, 0, 0, zone)
	if got := DeriveStatus(txn, local); got != StatusOverdue {
		t.Fatalf("local: got %v, want Overdue", got)
	}
	if got := DeriveStatus(txn, local.UTC()); got != StatusActive {
		t.Fatalf("utc: got %v, want Active", got)
	}
}

func TestDefaultDueDate(t *testing.T) {
	issued := time.Date(2024, 1, 10, 16, 30, 0, 0, time.UTC)
	if got := DefaultDueDate(issued).String(); got != "2024-01-24" {
		t.Fatalf("DefaultDueDate = %s, want 2024-01-24", got)
	}

	// Crosses a month boundary in a leap year
	issued = time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	if got := DefaultDueDate(issued).String(); got != "2024-03-05" {
		t.Fatalf("DefaultDueDate = %s, want 2024-03-05", got)
	}
}

func TestParseDate(t *testing.T) {
	d := mustDate(t, "2024-01-24T10:15:00+00:00")
	if d.String() != "2024-01-24" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("24/01/2024"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
	if !mustDate(t, "2023-12-31").Before(mustDate(t, "2024-01-01")) {
		t.Fatal("expected year rollover ordering")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != FailureNone {
		t.Fatal("nil should be FailureNone")
	}
	if KindOf(Validation("x")) != FailureValidation {
		t.Fatal("expected validation")
	}
	if KindOf(ErrConflict) != FailureConflict {
		t.Fatal("expected conflict")
	}
	if KindOf(ErrAuth) != FailureAuth {
		t.Fatal("expected auth")
	}
}

func TestNewBookNormalize(t *testing.T) {
	b := NewBook{Title: "  Dune ", Author: "Herbert"}.Normalize()
	if b.Title != "Dune" || b.Language != DefaultLanguage {
		t.Fatalf("unexpected %+v", b)
	}
	if err := (NewBook{Title: "Dune"}).Normalize().Validate(); KindOf(err) != FailureValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewMemberValidate(t *testing.T) {
	m := NewMember{FullName: "Ada", Email: "ada@example.com"}.Normalize()
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	if m.Type != DefaultMemberType {
		t.Fatalf("type = %q", m.Type)
	}
	if err := (NewMember{FullName: "Ada", Email: "nope"}).Validate(); err == nil {
		t.Fatal("expected invalid email")
	}
}
