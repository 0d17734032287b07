package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/mmcdole/libdesk/internal/refresh"
	"github.com/mmcdole/libdesk/internal/tui"
	"github.com/spf13/cobra"
)

func runDashboard(cmd *cobra.Command, configFile string) error {
	a, err := newApp(configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireServer(); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	a.logger.Info("starting libdesk", "version", Version, "role", a.session.Role())

	engine, err := a.openEngine()
	if err != nil {
		return err
	}

	observer := tui.NewChannelObserver(64)
	l := a.startLive(engine,
		refresh.Options{OnDone: observer.RefreshDone},
		feed.NotifierOptions{OnStatus: observer.FeedStatus},
	)

	model := tui.NewModel(tui.Deps{
		Engine:    engine,
		Refresher: l.coord,
		Session:   a.session,
		Observer:  observer,
		Logout:    a.logout,
		StartPage: a.cfg.UI.DefaultPage,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	a.logger.Info("starting TUI")

	final, err := p.Run()
	l.stop()
	if err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := final.(tui.Model); ok && m.QuitHint != "" {
		fmt.Fprintln(cmd.OutOrStdout(), m.QuitHint)
	}
	a.logger.Info("shutting down")
	return nil
}
