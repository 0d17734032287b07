package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/domain"
)

type memoryPersister struct {
	token, email string
	role         domain.Role
	cleared      int
}

func (p *memoryPersister) Save(token, email string, role domain.Role) error {
	p.token, p.email, p.role = token, email, role
	return nil
}

func (p *memoryPersister) Clear() error {
	p.token, p.email, p.role = "", "", ""
	p.cleared++
	return nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin@library.com",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestBeginPersistsAndEndClears(t *testing.T) {
	p := &memoryPersister{}
	m := NewManager(p, adapter.NullLogger())

	err := m.Begin(&domain.AuthResult{Token: "tok", Email: "admin@library.com", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if m.Token() != "tok" || p.token != "tok" || p.role != domain.RoleAdmin {
		t.Fatalf("session not stored: manager=%q persisted=%+v", m.Token(), p)
	}

	if err := m.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if m.Authenticated() || p.token != "" {
		t.Fatal("expected session cleared")
	}
}

func TestBeginRejectsEmptyToken(t *testing.T) {
	m := NewManager(nil, adapter.NullLogger())
	if err := m.Begin(&domain.AuthResult{}); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("got %v, want ErrAuth", err)
	}
}

func TestCapabilitiesByRole(t *testing.T) {
	m := NewManager(nil, adapter.NullLogger())

	if m.Can(CapOwnLoans) {
		t.Fatal("signed out user has no capabilities")
	}

	_ = m.Begin(&domain.AuthResult{Token: "t", Email: "ada@example.com", Role: domain.RoleMember})
	if !m.Can(CapOwnLoans) {
		t.Fatal("member can see own loans")
	}
	for _, c := range []Capability{CapCatalog, CapMembers, CapCirculation, CapAnalytics} {
		if m.Can(c) {
			t.Fatalf("member should not have %s", c)
		}
		if err := m.Require(c); !errors.Is(err, domain.ErrAuth) {
			t.Fatalf("Require(%s) = %v, want ErrAuth", c, err)
		}
	}

	_ = m.Begin(&domain.AuthResult{Token: "t", Email: "admin@library.com", Role: domain.RoleAdmin})
	if err := m.Require(CapCirculation); err != nil {
		t.Fatalf("admin Require: %v", err)
	}
}

func TestRestore(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	p := &memoryPersister{}
	m := NewManager(p, adapter.NullLogger())

	if m.Restore(adapter.SessionConfig{}, now) {
		t.Fatal("nothing to restore")
	}

	valid := signedToken(t, now.Add(time.Hour))
	if !m.Restore(adapter.SessionConfig{Token: valid, Email: "admin@library.com", Role: "admin"}, now) {
		t.Fatal("expected restore")
	}
	if m.Role() != domain.RoleAdmin || m.Expired(now) {
		t.Fatalf("role=%q expired=%v", m.Role(), m.Expired(now))
	}
	if !m.Expired(now.Add(2 * time.Hour)) {
		t.Fatal("token should expire after exp")
	}

	m2 := NewManager(p, adapter.NullLogger())
	expired := signedToken(t, now.Add(-time.Minute))
	if m2.Restore(adapter.SessionConfig{Token: expired, Role: "admin"}, now) {
		t.Fatal("expired token must not restore")
	}
	if p.cleared != 1 {
		t.Fatalf("expired session cleared %d times, want 1", p.cleared)
	}
}

func TestOpaqueTokensNeverExpireLocally(t *testing.T) {
	m := NewManager(nil, adapter.NullLogger())
	if !m.Restore(adapter.SessionConfig{Token: "opaque", Role: "member"}, time.Now()) {
		t.Fatal("opaque token should restore")
	}
	if m.Expired(time.Now().Add(24 * time.Hour)) {
		t.Fatal("opaque token has no exp claim")
	}
}
