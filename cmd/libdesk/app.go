package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/api"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/loan"
	"github.com/mmcdole/libdesk/internal/session"
	"github.com/mmcdole/libdesk/internal/store"
)

// errNotLoggedIn is returned by commands that need a session
var errNotLoggedIn = fmt.Errorf("not logged in, run `libdesk login` first: %w", domain.ErrAuth)

var errSessionExpired = fmt.Errorf("session expired, run `libdesk login` again: %w", domain.ErrAuth)

// app holds the services shared by every command
type app struct {
	cfg     *adapter.Config
	logger  *slog.Logger
	session *session.Manager
	client  *api.Client

	logCloser io.Closer
	store     *store.SnapshotStore
	engine    *loan.Engine
}

// newApp loads configuration, sets up logging and restores any saved
// session. It never touches the network.
func newApp(configFile string) (*app, error) {
	cfg, err := adapter.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, logCloser: closer}
	a.session = session.NewManager(session.ConfigPersister{}, logger)
	a.session.Restore(cfg.Session, time.Now())

	a.client = api.NewClient(cfg.Server.URL, a.session, logger)
	if cfg.Server.Timeout > 0 {
		a.client.SetTimeout(cfg.Server.Timeout)
	}
	return a, nil
}

// requireServer fails early when no server URL is configured
func (a *app) requireServer() error {
	if !a.cfg.IsConfigured() {
		return errors.New("no server configured, pass --server to `libdesk login` or set LIBDESK_SERVER_URL")
	}
	return nil
}

// require checks that a session exists and may use capability c
func (a *app) require(c session.Capability) error {
	if err := a.requireServer(); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	return a.session.Require(c)
}

// requireSession fails when no session is held or its token has expired.
// An expired session is ended so the next run starts clean.
func (a *app) requireSession() error {
	if !a.session.Authenticated() {
		return errNotLoggedIn
	}
	if a.session.Expired(time.Now()) {
		if err := a.session.End(); err != nil {
			a.logger.Warn("failed to clear expired session", "error", err)
		}
		return errSessionExpired
	}
	return nil
}

// openEngine opens the snapshot cache for the signed-in user and starts
// the loan engine, warm from cache when possible
func (a *app) openEngine() (*loan.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	if !a.session.Authenticated() {
		return nil, errNotLoggedIn
	}

	st, err := store.Open(a.cfg.CacheDirFor(a.session.Email()))
	if err != nil {
		// The cache is advisory; run without it
		a.logger.Warn("snapshot cache unavailable", "error", err)
		st, _ = store.Open("")
	}
	a.store = st

	a.engine = loan.NewEngine(a.client, st, a.logger)
	if a.engine.Start(a.session.Role()) {
		a.logger.Info("warm start from snapshot cache")
	}
	return a.engine, nil
}

// logout ends the session and wipes this user's cached snapshots
func (a *app) logout() error {
	dir := a.cfg.CacheDirFor(a.session.Email())

	var errs []error
	if a.engine != nil {
		errs = append(errs, a.engine.Reset())
	}
	errs = append(errs, a.session.End())
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	errs = append(errs, adapter.ClearCache(dir))
	return errors.Join(errs...)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close snapshot cache", "error", err)
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}
