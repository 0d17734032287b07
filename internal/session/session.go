package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/domain"
)

// Capability is an action gated by role
type Capability int

const (
	CapCatalog     Capability = iota // list/add/delete books
	CapMembers                       // list/add/delete members
	CapCirculation                   // issue/return, current transactions, available copies
	CapAnalytics                     // summary
	CapOwnLoans                      // my books, my history
)

func (c Capability) String() string {
	switch c {
	case CapCatalog:
		return "catalog"
	case CapMembers:
		return "members"
	case CapCirculation:
		return "circulation"
	case CapAnalytics:
		return "analytics"
	case CapOwnLoans:
		return "own loans"
	default:
		return "unknown"
	}
}

// Persister stores the session across restarts
type Persister interface {
	Save(token, email string, role domain.Role) error
	Clear() error
}

// ConfigPersister writes the session into the config file
type ConfigPersister struct{}

func (ConfigPersister) Save(token, email string, role domain.Role) error {
	return adapter.SaveSession(token, email, role)
}

func (ConfigPersister) Clear() error {
	return adapter.ClearSession()
}

// Manager holds the signed-in user's token, email and role.
// It implements domain.TokenSource for the API client.
type Manager struct {
	mu        sync.RWMutex
	token     string
	email     string
	role      domain.Role
	persister Persister
	logger    *slog.Logger
}

// NewManager creates an unauthenticated manager. persister may be nil.
func NewManager(persister Persister, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{persister: persister, logger: logger}
}

// Begin starts a session from a login or registration result
func (m *Manager) Begin(res *domain.AuthResult) error {
	if res == nil || res.Token == "" {
		return fmt.Errorf("begin session: %w", domain.ErrAuth)
	}

	m.mu.Lock()
	m.token, m.email, m.role = res.Token, res.Email, res.Role
	m.mu.Unlock()

	m.logger.Info("session started", "email", res.Email, "role", res.Role)

	if m.persister != nil {
		if err := m.persister.Save(res.Token, res.Email, res.Role); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}
	return nil
}

// Restore loads a persisted session. Returns false when there is nothing
// to restore or the token has expired (the stale entry is cleared).
func (m *Manager) Restore(cfg adapter.SessionConfig, now time.Time) bool {
	if cfg.Token == "" {
		return false
	}
	if tokenExpired(cfg.Token, now) {
		m.logger.Info("persisted session expired", "email", cfg.Email)
		if m.persister != nil {
			if err := m.persister.Clear(); err != nil {
				m.logger.Warn("failed to clear expired session", "error", err)
			}
		}
		return false
	}

	m.mu.Lock()
	m.token, m.email, m.role = cfg.Token, cfg.Email, domain.ParseRole(cfg.Role)
	m.mu.Unlock()

	m.logger.Debug("session restored", "email", cfg.Email, "role", cfg.Role)
	return true
}

// End clears the session in memory and on disk
func (m *Manager) End() error {
	m.mu.Lock()
	email := m.email
	m.token, m.email, m.role = "", "", ""
	m.mu.Unlock()

	m.logger.Info("session ended", "email", email)

	if m.persister != nil {
		if err := m.persister.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return nil
}

// Token returns the bearer token, or "" when signed out
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Email returns the signed-in email
func (m *Manager) Email() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.email
}

// Role returns the signed-in role, "" when signed out
func (m *Manager) Role() domain.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.role
}

// Authenticated reports whether a token is held
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// Can reports whether the current role grants c
func (m *Manager) Can(c Capability) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" {
		return false
	}
	switch c {
	case CapOwnLoans:
		return true
	case CapCatalog, CapMembers, CapCirculation, CapAnalytics:
		return m.role == domain.RoleAdmin
	default:
		return false
	}
}

// Require returns an ErrAuth-wrapped error when c is not granted
func (m *Manager) Require(c Capability) error {
	if !m.Authenticated() {
		return fmt.Errorf("not signed in: %w", domain.ErrAuth)
	}
	if !m.Can(c) {
		return fmt.Errorf("%s requires admin role: %w", c, domain.ErrAuth)
	}
	return nil
}

// Expired reports whether the held token's exp claim is in the past
func (m *Manager) Expired(now time.Time) bool {
	token := m.Token()
	return token == "" || tokenExpired(token, now)
}

// tokenExpired reads the exp claim without verifying the signature; the
// server does that. Tokens that are not JWTs never expire locally.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
