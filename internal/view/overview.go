// Package view maps application state to what the screens show. Every
// function is pure: same state and clock, same output.
package view

import (
	"sort"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/loan"
)

const (
	RecentLimit  = 8
	PopularLimit = 5
	TitleWidth   = 20
	TrendDays    = 7
)

// Card is one KPI tile
type Card struct {
	Label string
	Value int
	Warn  bool
}

// Bar is a labelled count (chart segment or bar)
type Bar struct {
	Label string
	Value int
}

// ActivityKind picks the icon of a recent-transactions row
type ActivityKind int

const (
	ActivityIssue ActivityKind = iota
	ActivityReturn
	ActivityOverdue
)

// Activity is a recent-transactions row
type Activity struct {
	Kind   ActivityKind
	Title  string
	Member string
	When   string
}

// OverviewModel is the admin landing page
type OverviewModel struct {
	Cards        []Card // empty until a summary has been fetched
	Availability []Bar
	Recent       []Activity
	Popular      []Bar
	Trend        []Bar
}

// Overview builds the admin landing page. Counts come only from the
// fetched summary; lists are computed from the current transactions.
func Overview(st loan.State, now time.Time) OverviewModel {
	var m OverviewModel

	if s := st.Summary; s != nil {
		m.Cards = []Card{
			{Label: "Total Books", Value: s.TotalBooks},
			{Label: "Total Copies", Value: s.TotalCopies},
			{Label: "Available", Value: s.AvailableCopies},
			{Label: "Issued", Value: s.IssuedCopies},
			{Label: "Overdue", Value: s.OverdueCount, Warn: s.OverdueCount > 0},
			{Label: "Active Members", Value: s.ActiveMembers},
		}
		m.Availability = []Bar{
			{Label: "Available", Value: s.AvailableCopies},
			{Label: "Issued", Value: max(0, s.IssuedCopies-s.OverdueCount)},
			{Label: "Overdue", Value: s.OverdueCount},
		}
	}

	m.Recent = recent(st.Transactions, now)
	m.Popular = popular(st.Transactions)
	m.Trend = trend(st.Transactions, now)
	return m
}

func recent(txns []domain.Transaction, now time.Time) []Activity {
	n := min(len(txns), RecentLimit)
	out := make([]Activity, 0, n)
	for _, t := range txns[:n] {
		kind := ActivityIssue
		switch domain.DeriveStatus(t, now) {
		case domain.StatusOverdue:
			kind = ActivityOverdue
		case domain.StatusReturned:
			kind = ActivityReturn
		}
		out = append(out, Activity{
			Kind:   kind,
			Title:  orUnknown(t.BookTitle, "Unknown Book"),
			Member: orUnknown(t.MemberName, "Unknown"),
			When:   TimeAgo(t.IssueDate, now),
		})
	}
	return out
}

// popular ranks titles by loan count; ties keep first-seen order
func popular(txns []domain.Transaction) []Bar {
	counts := make(map[string]int)
	var order []string
	for _, t := range txns {
		title := orUnknown(t.BookTitle, "Unknown")
		if counts[title] == 0 {
			order = append(order, title)
		}
		counts[title]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	n := min(len(order), PopularLimit)
	out := make([]Bar, n)
	for i, title := range order[:n] {
		out[i] = Bar{Label: Truncate(title, TitleWidth), Value: counts[title]}
	}
	return out
}

// trend counts loans issued on each of the last TrendDays calendar days,
// oldest first, labelled by weekday
func trend(txns []domain.Transaction, now time.Time) []Bar {
	today := domain.DateOf(now)
	out := make([]Bar, TrendDays)
	for i := range out {
		day := today.AddDays(i - (TrendDays - 1))
		out[i].Label = weekday(day)
		for _, t := range txns {
			if !t.IssueDate.IsZero() && domain.DateOf(t.IssueDate.In(now.Location())) == day {
				out[i].Value++
			}
		}
	}
	return out
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
