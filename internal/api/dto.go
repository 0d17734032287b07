package api

import "encoding/json"

// flexID accepts ids encoded as either JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// listEnvelope is the {"data": [...], "count": n} wrapper on list endpoints
type listEnvelope struct {
	Data  *json.RawMessage `json:"data"`
	Count int              `json:"count,omitempty"`
}

// messageEnvelope is the {"message": "..."} wrapper on mutations
type messageEnvelope struct {
	Message *string `json:"message"`
}

// BookDTO is a row of GET /books
type BookDTO struct {
	ID        flexID `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn,omitempty"`
	SubjectID flexID `json:"subject_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Language  string `json:"language,omitempty"`
}

// AvailableCopyDTO is a row of GET /books/available
type AvailableCopyDTO struct {
	CopyID flexID `json:"copy_id"`
	BookID flexID `json:"book_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// MemberDTO is a row of GET /members
type MemberDTO struct {
	ID         flexID `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	MemberType string `json:"member_type,omitempty"`
}

// TransactionDTO covers /transactions/current and the /my endpoints.
// The views name the id "transaction_id"; raw table rows use "id".
type TransactionDTO struct {
	TransactionID flexID  `json:"transaction_id,omitempty"`
	ID            flexID  `json:"id,omitempty"`
	BookCopyID    flexID  `json:"book_copy_id,omitempty"`
	MemberID      flexID  `json:"member_id,omitempty"`
	BookTitle     string  `json:"book_title,omitempty"`
	MemberName    string  `json:"member_name,omitempty"`
	Author        string  `json:"author,omitempty"`
	IssueDate     string  `json:"issue_date,omitempty"`
	DueDate       string  `json:"due_date,omitempty"`
	ReturnDate    *string `json:"return_date,omitempty"`
	Status        string  `json:"status,omitempty"`
}

// PulseDTO is the aggregate block of GET /analytics/summary
type PulseDTO struct {
	TotalBooks      int `json:"total_books"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	IssuedCopies    int `json:"issued_copies"`
	OverdueCount    int `json:"overdue_count"`
	ActiveMembers   int `json:"active_members"`
}

// SummaryDTO is the body of GET /analytics/summary
type SummaryDTO struct {
	Pulse        *PulseDTO      `json:"pulse"`
	TotalBooks   *int           `json:"total_books,omitempty"`
	TotalMembers *int           `json:"total_members,omitempty"`
	ByMemberType map[string]int `json:"by_member_type,omitempty"`
	ByLanguage   map[string]int `json:"by_language,omitempty"`
}

// BookRequest is the body of POST /books
type BookRequest struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn,omitempty"`
	Language string `json:"language"`
}

// MemberRequest is the body of POST /members
type MemberRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	MemberType string `json:"member_type"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// TokenResponse is returned by both auth endpoints
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

func (f flexID) String() string { return string(f) }
