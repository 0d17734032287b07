package view

import (
	"fmt"
	"testing"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/loan"
)

// Thursday
var now = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) domain.Date {
	return domain.Date{Year: y, Month: m, Day: d}
}

func loanOf(id, title string, issued time.Time, due domain.Date, returned *time.Time) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		BookTitle:  title,
		MemberName: "Ada Lovelace",
		IssueDate:  issued,
		DueDate:    due,
		ReturnDate: returned,
	}
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "Just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{-time.Minute, "Just now"},
	}
	for _, tt := range tests {
		if got := TimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("TimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if TimeAgo(time.Time{}, now) != "" {
		t.Error("zero time should render empty")
	}
}

func TestTransactionFilterUsesDerivedStatus(t *testing.T) {
	returned := now.Add(-time.Hour)
	txns := []domain.Transaction{
		loanOf("active", "Dune", now.AddDate(0, 0, -2), date(2024, 2, 13), nil),
		// Backend still says "Active" but the calendar says otherwise
		func() domain.Transaction {
			tx := loanOf("overdue", "Emma", now.AddDate(0, 0, -22), date(2024, 1, 24), nil)
			tx.ReportedStatus = "Active"
			return tx
		}(),
		loanOf("returned", "Ulysses", now.AddDate(0, 0, -10), date(2024, 1, 20), &returned),
	}

	for _, tt := range []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"active", "overdue", "returned"}},
		{FilterActive, []string{"active"}},
		{FilterOverdue, []string{"overdue"}},
		{FilterReturned, []string{"returned"}},
	} {
		rows := TransactionRows(txns, tt.filter, now)
		if len(rows) != len(tt.want) {
			t.Fatalf("%s: got %d rows, want %d", tt.filter, len(rows), len(tt.want))
		}
		for i, r := range rows {
			if r.ID != tt.want[i] {
				t.Fatalf("%s: row %d = %s, want %s", tt.filter, i, r.ID, tt.want[i])
			}
			if r.CanReturn != (r.ID != "returned") {
				t.Fatalf("%s: CanReturn wrong for %s", tt.filter, r.ID)
			}
		}
	}

	rows := TransactionRows(txns[2:], FilterAll, now)
	if rows[0].Returned != "2024-02-01" || rows[0].Status != domain.StatusReturned {
		t.Fatalf("returned row = %+v", rows[0])
	}
}

func TestFilterCycleAndParse(t *testing.T) {
	f := FilterAll
	for _, want := range []Filter{FilterActive, FilterOverdue, FilterReturned, FilterAll} {
		f = f.Next()
		if f != want {
			t.Fatalf("Next = %v, want %v", f, want)
		}
	}
	if got, err := ParseFilter("Overdue"); err != nil || got != FilterOverdue {
		t.Fatalf("ParseFilter = %v, %v", got, err)
	}
	if _, err := ParseFilter("late"); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}

func TestOverview(t *testing.T) {
	var txns []domain.Transaction
	// 9 loans: 3x a long title, 2x Dune, the rest single
	titles := []string{
		"The Hitchhiker's Guide to the Galaxy", "Dune", "The Hitchhiker's Guide to the Galaxy",
		"Emma", "Dune", "The Hitchhiker's Guide to the Galaxy", "Ulysses", "Beloved", "Middlemarch",
	}
	for i, title := range titles {
		issued := now.AddDate(0, 0, -i).Add(-time.Hour)
		txns = append(txns, loanOf(fmt.Sprint(i), title, issued, domain.DefaultDueDate(issued), nil))
	}

	st := loan.State{
		Role:         domain.RoleAdmin,
		Transactions: txns,
		Summary: &domain.Summary{
			TotalBooks: 7, TotalCopies: 12, AvailableCopies: 3,
			IssuedCopies: 9, OverdueCount: 1, ActiveMembers: 4,
		},
	}
	m := Overview(st, now)

	if len(m.Cards) != 6 || !m.Cards[4].Warn || m.Cards[4].Value != 1 {
		t.Fatalf("cards = %+v", m.Cards)
	}
	if m.Availability[1].Value != 8 || m.Availability[2].Value != 1 {
		t.Fatalf("availability = %+v", m.Availability)
	}

	if len(m.Recent) != RecentLimit {
		t.Fatalf("recent has %d rows, want %d", len(m.Recent), RecentLimit)
	}
	if m.Recent[0].When != "1h ago" || m.Recent[0].Kind != ActivityIssue {
		t.Fatalf("recent[0] = %+v", m.Recent[0])
	}

	if len(m.Popular) != PopularLimit {
		t.Fatalf("popular has %d bars, want %d", len(m.Popular), PopularLimit)
	}
	if m.Popular[0].Label != "The Hitchhiker's Gui..." || m.Popular[0].Value != 3 {
		t.Fatalf("popular[0] = %+v", m.Popular[0])
	}
	if m.Popular[1].Label != "Dune" || m.Popular[2].Label != "Emma" {
		t.Fatalf("popular = %+v", m.Popular)
	}

	wantDays := []string{"Fri", "Sat", "Sun", "Mon", "Tue", "Wed", "Thu"}
	for i, bar := range m.Trend {
		if bar.Label != wantDays[i] || bar.Value != 1 {
			t.Fatalf("trend[%d] = %+v, want %s with 1 loan", i, bar, wantDays[i])
		}
	}
}

func TestOverviewWithoutSummary(t *testing.T) {
	m := Overview(loan.State{}, now)
	if m.Cards != nil || m.Availability != nil || len(m.Recent) != 0 {
		t.Fatalf("empty state rendered %+v", m)
	}
	if len(m.Trend) != TrendDays {
		t.Fatalf("trend has %d days", len(m.Trend))
	}
}

func TestOverdueRecentActivity(t *testing.T) {
	st := loan.State{Transactions: []domain.Transaction{
		loanOf("1", "Dune", now.AddDate(0, 0, -20), date(2024, 1, 24), nil),
	}}
	if k := Overview(st, now).Recent[0].Kind; k != ActivityOverdue {
		t.Fatalf("kind = %v, want overdue", k)
	}
}

func TestBorrowForm(t *testing.T) {
	st := loan.State{
		Members:   []domain.Member{{ID: "mem-7", FullName: "Ada Lovelace", Email: "ada@example.com"}},
		Available: []domain.AvailableCopy{{CopyID: "copy-42", Title: "Dune", Author: "Frank Herbert"}},
		Transactions: []domain.Transaction{
			loanOf("t1", "Emma", now, date(2024, 2, 15), nil),
			loanOf("t2", "Emma", now, date(2024, 2, 15), &now),
		},
	}
	m := BorrowForm(st, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	if m.Members[0] != (Option{Value: "mem-7", Label: "Ada Lovelace (ada@example.com)"}) {
		t.Fatalf("member option = %+v", m.Members[0])
	}
	if m.Copies[0] != (Option{Value: "copy-42", Label: "Dune by Frank Herbert"}) {
		t.Fatalf("copy option = %+v", m.Copies[0])
	}
	if m.DuePlaceholder != "Wed, Jan 24, 2024" {
		t.Fatalf("due placeholder = %q", m.DuePlaceholder)
	}
	if len(m.ActiveLoans) != 1 || m.ActiveLoans[0].ID != "t1" {
		t.Fatalf("active loans = %+v", m.ActiveLoans)
	}
}

func TestMemberRowsHideReturnAction(t *testing.T) {
	loans := []domain.Transaction{loanOf("t1", "Dune", now, date(2024, 2, 15), nil)}
	for _, r := range MyBookRows(loans, now) {
		if r.CanReturn {
			t.Fatal("members cannot return from their own list")
		}
	}
	rows := BookRows([]domain.Book{{ID: "b", Title: "Dune"}})
	if rows[0].Author != "-" || rows[0].Language != "-" {
		t.Fatalf("book row = %+v", rows[0])
	}
}
