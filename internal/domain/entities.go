package domain

import (
	"strings"
	"time"
)

// Role is the authenticated user's role, as issued by the backend at login
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole normalizes a backend role string. Anything that is not
// explicitly admin is treated as a regular member.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleMember
}

// DefaultLanguage is applied to new books that don't specify one
const DefaultLanguage = "English"

// DefaultMemberType is applied to new members that don't specify one
const DefaultMemberType = "Student"

// Book is a catalog title. Copies are tracked separately.
type Book struct {
	ID       string
	Title    string
	Author   string
	ISBN     string
	Subject  string
	Language string
}

// BookCopy is a physical copy of a Book
type BookCopy struct {
	ID         string
	BookID     string
	CopyNumber int
	Available  bool // true when no open transaction references this copy
}

// AvailableCopy is a row of the available-copies collection: a copy joined
// with its parent book's display fields.
type AvailableCopy struct {
	CopyID string
	BookID string
	Title  string
	Author string
}

// Member is a registered library patron
type Member struct {
	ID       string
	FullName string
	Email    string
	Phone    string
	Type     string // e.g. "Student", "Faculty", "Admin"
}

// IsAdmin reports whether the member row is flagged as an administrator
func (m Member) IsAdmin() bool {
	return strings.EqualFold(m.Type, string(RoleAdmin))
}

// Transaction is a single loan of a book copy to a member.
// Status is never stored here; use DeriveStatus.
type Transaction struct {
	ID         string
	BookCopyID string
	MemberID   string
	BookTitle  string
	MemberName string
	Author     string

	IssueDate    time.Time
	DueDate      Date
	DueEstimated bool       // DueDate was filled from DefaultDueDate, not the backend
	ReturnDate   *time.Time // nil while the loan is open

	// ReportedStatus is the backend's own status label, kept for display
	// diagnostics only. It can lag behind the calendar.
	ReportedStatus string
}

// IsOpen reports whether the copy is still out on this transaction
func (t Transaction) IsOpen() bool {
	return t.ReturnDate == nil
}

// Summary is the server-computed aggregate snapshot ("pulse").
// It is recomputed on every refresh and never adjusted locally.
type Summary struct {
	TotalBooks      int
	TotalCopies     int
	AvailableCopies int
	IssuedCopies    int
	OverdueCount    int
	ActiveMembers   int

	ByMemberType map[string]int
	ByLanguage   map[string]int
}

// NewBook carries the fields for creating a catalog entry
type NewBook struct {
	Title    string
	Author   string
	ISBN     string
	Language string
}

// Normalize trims fields and applies defaults
func (b NewBook) Normalize() NewBook {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Language = strings.TrimSpace(b.Language)
	if b.Language == "" {
		b.Language = DefaultLanguage
	}
	return b
}

// Validate checks required fields before any request is made
func (b NewBook) Validate() error {
	if b.Title == "" || b.Author == "" {
		return Validation("title and author are required")
	}
	return nil
}

// NewMember carries the fields for registering a member
type NewMember struct {
	FullName string
	Email    string
	Phone    string
	Type     string
}

// Normalize trims fields and applies defaults
func (m NewMember) Normalize() NewMember {
	m.FullName = strings.TrimSpace(m.FullName)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Type = strings.TrimSpace(m.Type)
	if m.Type == "" {
		m.Type = DefaultMemberType
	}
	return m
}

// Validate checks required fields before any request is made
func (m NewMember) Validate() error {
	if m.FullName == "" || m.Email == "" {
		return Validation("name and email are required")
	}
	if !strings.Contains(m.Email, "@") {
		return Validation("email address is invalid")
	}
	return nil
}

// Credentials are used for login
type Credentials struct {
	Email    string
	Password string
}

// Registration carries self-service signup fields. Registered users are
// always members; admins are provisioned by the backend.
type Registration struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// AuthResult contains the result of a successful login or registration
type AuthResult struct {
	Token string
	Email string
	Role  Role
}
