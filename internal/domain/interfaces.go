package domain

import "context"

// CatalogRepository: book catalog operations (admin only)
type CatalogRepository interface {
	ListBooks(ctx context.Context) ([]Book, error)
	AddBook(ctx context.Context, book NewBook) error
	DeleteBook(ctx context.Context, bookID string) error
}

// MemberRepository: membership operations (admin only)
type MemberRepository interface {
	ListMembers(ctx context.Context) ([]Member, error)
	AddMember(ctx context.Context, member NewMember) error
	DeleteMember(ctx context.Context, memberID string) error
}

// CirculationRepository: loan issue/return and loan listings
type CirculationRepository interface {
	ListAvailableCopies(ctx context.Context) ([]AvailableCopy, error)
	ListCurrentTransactions(ctx context.Context) ([]Transaction, error)

	// IssueBook opens a transaction for copyID. Returns ErrConflict if the
	// copy already has an open transaction.
	IssueBook(ctx context.Context, copyID, memberID string) error

	// ReturnBook closes a transaction. Returns ErrConflict if it is
	// already returned.
	ReturnBook(ctx context.Context, transactionID string) error

	// Member self-service views
	MyBooks(ctx context.Context) ([]Transaction, error)
	MyHistory(ctx context.Context) ([]Transaction, error)
}

// AnalyticsRepository: server-computed aggregates
type AnalyticsRepository interface {
	Summary(ctx context.Context) (Summary, error)
}

// LibraryClient combines every repository the remote API implements
type LibraryClient interface {
	CatalogRepository
	MemberRepository
	CirculationRepository
	AnalyticsRepository
}

// Authenticator exchanges credentials for a session token
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, reg Registration) (*AuthResult, error)
}

// TokenSource supplies the bearer token for outgoing requests.
// An empty token means unauthenticated.
type TokenSource interface {
	Token() string
}
