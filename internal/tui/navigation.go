package tui

import (
	"strings"

	"github.com/mmcdole/libdesk/internal/domain"
)

// Page is one tab of the dashboard
type Page int

const (
	PageOverview Page = iota
	PageBooks
	PageMembers
	PageTransactions
	PageBorrow
	PageMyBooks
	PageHistory
)

func (p Page) String() string {
	switch p {
	case PageBooks:
		return "Books"
	case PageMembers:
		return "Members"
	case PageTransactions:
		return "Transactions"
	case PageBorrow:
		return "Borrow"
	case PageMyBooks:
		return "My Books"
	case PageHistory:
		return "History"
	default:
		return "Overview"
	}
}

// PagesFor returns the tabs a role may visit, in display order
func PagesFor(role domain.Role) []Page {
	if role == domain.RoleAdmin {
		return []Page{PageOverview, PageBooks, PageMembers, PageTransactions, PageBorrow}
	}
	return []Page{PageMyBooks, PageHistory}
}

// ParsePage matches a page name case-insensitively, ignoring spaces,
// dashes and underscores ("my-books" == "My Books")
func ParsePage(s string) (Page, bool) {
	norm := func(v string) string {
		return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(v))
	}
	want := norm(s)
	for p := PageOverview; p <= PageHistory; p++ {
		if norm(p.String()) == want {
			return p, true
		}
	}
	return PageOverview, false
}

// pageIndex returns the position of p in pages, or 0 if absent
func pageIndex(pages []Page, p Page) int {
	for i, q := range pages {
		if q == p {
			return i
		}
	}
	return 0
}
