package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libdesk/internal/feed"
)

// ChannelObserver adapts background callbacks (feed status, refresh
// completion) to a channel the Bubble Tea program listens on
type ChannelObserver struct {
	ch chan tea.Msg
}

// NewChannelObserver creates a new channel-based observer
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{ch: make(chan tea.Msg, buffer)}
}

// FeedStatus forwards a feed state change
func (o *ChannelObserver) FeedStatus(s feed.Status) {
	o.send(FeedStatusMsg{Status: s})
}

// RefreshDone forwards the outcome of a refresh cycle
func (o *ChannelObserver) RefreshDone(err error) {
	o.send(RefreshDoneMsg{Err: err})
}

// send never blocks; the periodic tick re-reads engine state, so a
// dropped message only delays the redraw
func (o *ChannelObserver) send(msg tea.Msg) {
	select {
	case o.ch <- msg:
	default:
	}
}

// Listen returns a command that delivers the next observed message
func (o *ChannelObserver) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-o.ch
	}
}
