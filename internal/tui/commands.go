package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/loan"
)

// Command factories for async operations

const mutationTimeout = 30 * time.Second

// mutate runs one engine mutation with a timeout and reports the result
func mutate(action string, success string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			return ErrMsg{Err: err, Context: action}
		}
		return MutationDoneMsg{Message: success}
	}
}

// IssueCmd lends a copy to a member
func IssueCmd(engine *loan.Engine, memberID, copyID, label string) tea.Cmd {
	return mutate("issuing book", "Issued: "+label, func(ctx context.Context) error {
		return engine.Issue(ctx, memberID, copyID)
	})
}

// ReturnCmd closes a loan
func ReturnCmd(engine *loan.Engine, transactionID, title string) tea.Cmd {
	return mutate("returning book", "Returned: "+title, func(ctx context.Context) error {
		return engine.Return(ctx, transactionID)
	})
}

// AddBookCmd creates a catalog entry
func AddBookCmd(engine *loan.Engine, book domain.NewBook) tea.Cmd {
	return mutate("adding book", "Added book: "+book.Title, func(ctx context.Context) error {
		return engine.AddBook(ctx, book)
	})
}

// DeleteBookCmd removes a catalog entry
func DeleteBookCmd(engine *loan.Engine, bookID, title string) tea.Cmd {
	return mutate("deleting book", "Deleted book: "+title, func(ctx context.Context) error {
		return engine.DeleteBook(ctx, bookID)
	})
}

// AddMemberCmd registers a member
func AddMemberCmd(engine *loan.Engine, member domain.NewMember) tea.Cmd {
	return mutate("adding member", "Added member: "+member.FullName, func(ctx context.Context) error {
		return engine.AddMember(ctx, member)
	})
}

// DeleteMemberCmd removes a member
func DeleteMemberCmd(engine *loan.Engine, memberID, name string) tea.Cmd {
	return mutate("deleting member", "Deleted member: "+name, func(ctx context.Context) error {
		return engine.DeleteMember(ctx, memberID)
	})
}

// LogoutCmd ends the session and clears cached data
func LogoutCmd(logout func() error) tea.Cmd {
	return func() tea.Msg {
		return LogoutCompleteMsg{Error: logout()}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}
