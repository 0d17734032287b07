package view

import (
	"fmt"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
)

const placeholder = "-"

// TimeAgo renders how long before now t was, coarsely
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
}

// Truncate shortens s to n runes, marking the cut with "..."
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func dayString(t time.Time) string {
	if t.IsZero() {
		return placeholder
	}
	return domain.DateOf(t).String()
}

func weekday(d domain.Date) string {
	return d.In(time.UTC).Weekday().String()[:3]
}
