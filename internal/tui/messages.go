package tui

import "github.com/mmcdole/libdesk/internal/feed"

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is
func (e ErrMsg) Unwrap() error {
	return e.Err
}

// RefreshDoneMsg signals that a refresh cycle finished. The engine state
// already reflects it when Err is nil.
type RefreshDoneMsg struct {
	Err error
}

// FeedStatusMsg signals a change feed state change
type FeedStatusMsg struct {
	Status feed.Status
}

// MutationDoneMsg signals that an issue/return/add/delete succeeded
type MutationDoneMsg struct {
	Message string
}

// LogoutCompleteMsg signals that logout has finished
type LogoutCompleteMsg struct {
	Error error
}

// TickMsg is a general tick message for animations and clock-driven
// re-rendering
type TickMsg struct{}

// ClearStatusMsg clears the status bar message. Seq guards against
// clearing a newer message.
type ClearStatusMsg struct {
	Seq int
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
