package main

import (
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/api/apitest"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/session"
)

func newTestApp(t *testing.T, ttl time.Duration) *app {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	cfg := adapter.DefaultConfig()
	cfg.Server.URL = srv.URL
	a := &app{cfg: cfg, logger: adapter.NullLogger()}
	a.session = session.NewManager(nil, a.logger)
	res := &domain.AuthResult{Token: srv.Token(apitest.AdminEmail, domain.RoleAdmin, ttl), Email: apitest.AdminEmail, Role: domain.RoleAdmin}
	if err := a.session.Begin(res); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return a
}

func TestRequireRejectsExpiredSession(t *testing.T) {
	a := newTestApp(t, -time.Minute)

	err := a.require(session.CapCatalog)
	if !errors.Is(err, errSessionExpired) || !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("require: got %v, want expired session", err)
	}
	if a.session.Authenticated() {
		t.Fatal("expired session was not ended")
	}
	if err := a.require(session.CapCatalog); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("second require: got %v, want not logged in", err)
	}
}

func TestRequireAcceptsLiveSession(t *testing.T) {
	a := newTestApp(t, time.Hour)

	if err := a.require(session.CapCatalog); err != nil {
		t.Fatalf("require: %v", err)
	}
}
