package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/mmcdole/libdesk/internal/refresh"
	"github.com/mmcdole/libdesk/internal/telemetry"
	"github.com/mmcdole/libdesk/internal/view"
	"github.com/spf13/cobra"
)

func newWatchCmd(configFile *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the change feed without a UI, logging each refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			// Headless runs log to stderr instead of the log file
			a.logger = adapter.NewJSONLogger(os.Stderr, a.cfg.Logging.Level)
			if err := a.requireServer(); err != nil {
				return err
			}
			if err := a.requireSession(); err != nil {
				return err
			}
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			return a.watch(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	return cmd
}

func (a *app) watch(parent context.Context, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := telemetry.New()
	a.client.SetObserver(rec.Request)

	engine, err := a.openEngine()
	if err != nil {
		return err
	}

	authFailed := make(chan struct{}, 1)
	onDone := func(err error) {
		if err != nil {
			a.logger.Error("refresh failed", "kind", domain.KindOf(err), "error", err)
			if errors.Is(err, domain.ErrAuth) {
				select {
				case authFailed <- struct{}{}:
				default:
				}
			}
			return
		}
		st := engine.State()
		now := time.Now()
		attrs := []any{"role", st.Role, "fetched_at", st.FetchedAt}
		if st.Summary != nil {
			attrs = append(attrs,
				"books", st.Summary.TotalBooks,
				"issued", st.Summary.IssuedCopies,
				"overdue", len(view.TransactionRows(st.Transactions, view.FilterOverdue, now)))
		} else {
			attrs = append(attrs, "my_loans", len(st.MyLoans))
		}
		a.logger.Info("refreshed", attrs...)
	}

	l := a.startLive(engine,
		refresh.Options{Recorder: rec, OnDone: onDone},
		feed.NotifierOptions{
			OnStatus: func(s feed.Status) {
				rec.FeedStatus(s)
				a.logger.Info("feed status", "status", s)
			},
			OnEvent: rec.FeedEvent,
		},
	)
	defer l.stop()

	errc := make(chan error, 1)
	if metricsAddr != "" {
		go func() { errc <- rec.Serve(ctx, metricsAddr, a.logger) }()
	}

	l.coord.Trigger()
	a.logger.Info("watching", "server", a.client.BaseURL(), "email", a.session.Email())

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
		return nil
	case <-authFailed:
		return fmt.Errorf("session rejected, run `libdesk login`: %w", domain.ErrAuth)
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}
