// Package apitest runs an in-process library backend for tests. It enforces
// the loan invariants the real backend owns: one open transaction per copy,
// returns are terminal, due date is issue date plus the loan period.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mmcdole/libdesk/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminEmail    = "admin@library.com"
	AdminPassword = "admin123"
)

var signingKey = []byte("apitest-signing-key")

type book struct {
	ID       string
	Title    string
	Author   string
	ISBN     string
	Language string
}

type bookCopy struct {
	ID        string
	BookID    string
	Number    int
	Available bool
}

type member struct {
	ID       string
	FullName string
	Email    string
	Phone    string
	Type     string
}

type transaction struct {
	ID        string
	CopyID    string
	MemberID  string
	IssuedAt  time.Time
	DueDate   string
	Returned  *time.Time
	createdAt int
}

// Server is a fake library API
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	now       func() time.Time
	users     map[string][]byte // email -> bcrypt hash
	books     map[string]*book
	copies    map[string]*bookCopy
	members   map[string]*member
	txns      map[string]*transaction
	seq       int
	hits      map[string]int
	lastQuery map[string]string
	lastHdr   map[string]http.Header
	failGET   int // status to fail every GET with, 0 = off
	omitDue   bool
}

// NewServer starts a fake backend with the default admin account
func NewServer() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		now:       time.Now,
		users:     make(map[string][]byte),
		books:     make(map[string]*book),
		copies:    make(map[string]*bookCopy),
		members:   make(map[string]*member),
		txns:      make(map[string]*transaction),
		hits:      make(map[string]int),
		lastQuery: make(map[string]string),
		lastHdr:   make(map[string]http.Header),
	}
	s.addUser(AdminEmail, AdminPassword)

	s.Server = httptest.NewServer(s.router())
	return s
}

// SetNow fixes the server clock
func (s *Server) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailReads makes every GET return status until called with 0
func (s *Server) FailReads(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGET = status
}

// OmitDueDates drops due_date from transaction listings
func (s *Server) OmitDueDates(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitDue = omit
}

// Hits returns how many times path was requested
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// LastQuery returns the raw query of the last request to path
func (s *Server) LastQuery(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery[path]
}

// LastHeader returns the headers of the last request to path
func (s *Server) LastHeader(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHdr[path]
}

// Token issues a signed token without going through /auth/login
func (s *Server) Token(email string, role domain.Role, ttl time.Duration) string {
	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()
	return signToken(email, role, now.Add(ttl))
}

// SeedBook adds a book with the given copy ids, all available
func (s *Server) SeedBook(id, title, author string, copyIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[id] = &book{ID: id, Title: title, Author: author, Language: domain.DefaultLanguage}
	for i, cid := range copyIDs {
		s.copies[cid] = &bookCopy{ID: cid, BookID: id, Number: i + 1, Available: true}
	}
}

// SeedMember adds a member row and a login for it
func (s *Server) SeedMember(id, name, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = &member{ID: id, FullName: name, Email: email, Type: domain.DefaultMemberType}
	if password != "" {
		s.addUserLocked(email, password)
	}
}

// TransactionSnapshot is a read-only view of a stored transaction
type TransactionSnapshot struct {
	ID       string
	CopyID   string
	MemberID string
	IssuedAt time.Time
	DueDate  string
	Returned *time.Time
}

// Transactions returns all stored transactions for copyID
func (s *Server) Transactions(copyID string) []TransactionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TransactionSnapshot
	for _, t := range s.sortedTxnsLocked() {
		if t.CopyID != copyID {
			continue
		}
		snap := TransactionSnapshot{ID: t.ID, CopyID: t.CopyID, MemberID: t.MemberID, IssuedAt: t.IssuedAt, DueDate: t.DueDate}
		if t.Returned != nil {
			r := *t.Returned
			snap.Returned = &r
		}
		out = append(out, snap)
	}
	return out
}

// OpenTransactions counts transactions for copyID with no return date
func (s *Server) OpenTransactions(copyID string) int {
	n := 0
	for _, t := range s.Transactions(copyID) {
		if t.Returned == nil {
			n++
		}
	}
	return n
}

func (s *Server) addUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(email, password)
}

func (s *Server) addUserLocked(email, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.users[strings.ToLower(email)] = hash
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func (s *Server) sortedTxnsLocked() []*transaction {
	list := make([]*transaction, 0, len(s.txns))
	for _, t := range s.txns {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].createdAt > list[j].createdAt })
	return list
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func signToken(email string, role domain.Role, exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

func roleFor(email string) domain.Role {
	if strings.EqualFold(email, AdminEmail) {
		return domain.RoleAdmin
	}
	return domain.RoleMember
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(s.record)

	r.POST("/auth/login", s.login)
	r.POST("/auth/register", s.register)

	user := r.Group("/", s.authenticate)
	user.GET("/my/books", s.myBooks)
	user.GET("/my/history", s.myHistory)

	admin := r.Group("/", s.authenticate, requireAdmin)
	admin.GET("/books", s.listBooks)
	admin.GET("/books/available", s.listAvailable)
	admin.POST("/books", s.addBook)
	admin.DELETE("/books/:id", s.deleteBook)
	admin.GET("/members", s.listMembers)
	admin.POST("/members", s.addMember)
	admin.DELETE("/members/:id", s.deleteMember)
	admin.GET("/transactions/current", s.currentTransactions)
	admin.POST("/transactions/issue", s.issue)
	admin.POST("/transactions/:id/return", s.returnBook)
	admin.GET("/analytics/summary", s.summary)

	return r
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	path := c.Request.URL.Path
	s.hits[path]++
	s.lastQuery[path] = c.Request.URL.RawQuery
	s.lastHdr[path] = c.Request.Header.Clone()
	fail := s.failGET
	s.mu.Unlock()

	if fail != 0 && c.Request.Method == http.MethodGet {
		c.AbortWithStatusJSON(fail, gin.H{"detail": "injected failure"})
		return
	}
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}

	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()

	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || cl.Subject == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	c.Set("email", cl.Subject)
	c.Set("role", cl.Role)
	c.Next()
}

func requireAdmin(c *gin.Context) {
	if c.GetString("role") != string(domain.RoleAdmin) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Admin access required"})
		return
	}
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	hash, ok := s.users[strings.ToLower(req.Email)]
	now := s.now()
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		return
	}

	role := roleFor(req.Email)
	c.JSON(http.StatusOK, gin.H{
		"access_token": signToken(req.Email, role, now.Add(time.Hour)),
		"token_type":   "bearer",
		"role":         string(role),
	})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	if _, exists := s.users[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
		return
	}
	s.addUserLocked(req.Email, req.Password)
	name := req.FullName
	if name == "" {
		name, _, _ = strings.Cut(req.Email, "@")
	}
	id := s.nextID("mem")
	s.members[id] = &member{ID: id, FullName: name, Email: req.Email, Phone: req.Phone, Type: domain.DefaultMemberType}
	now := s.now()
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"access_token": signToken(req.Email, domain.RoleMember, now.Add(time.Hour)),
		"token_type":   "bearer",
		"role":         string(domain.RoleMember),
	})
}

func (s *Server) listBooks(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]gin.H, 0, len(s.books))
	for _, b := range s.books {
		rows = append(rows, gin.H{"id": b.ID, "title": b.Title, "author": b.Author, "isbn": b.ISBN, "language": b.Language})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i]["title"].(string) < rows[j]["title"].(string) })
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func (s *Server) listAvailable(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]gin.H, 0)
	for _, cp := range s.copies {
		if !cp.Available {
			continue
		}
		b := s.books[cp.BookID]
		if b == nil {
			continue
		}
		rows = append(rows, gin.H{"copy_id": cp.ID, "book_id": b.ID, "title": b.Title, "author": b.Author})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i]["copy_id"].(string) < rows[j]["copy_id"].(string) })
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func (s *Server) addBook(c *gin.Context) {
	var req struct {
		Title    string `json:"title"`
		Author   string `json:"author"`
		ISBN     string `json:"isbn"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" || req.Author == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "title and author are required"})
		return
	}
	if req.Language == "" {
		req.Language = domain.DefaultLanguage
	}

	s.mu.Lock()
	id := s.nextID("book")
	s.books[id] = &book{ID: id, Title: req.Title, Author: req.Author, ISBN: req.ISBN, Language: req.Language}
	copyID := s.nextID("copy")
	s.copies[copyID] = &bookCopy{ID: copyID, BookID: id, Number: 1, Available: true}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Book added successfully", "data": []gin.H{{"id": id}}})
}

func (s *Server) deleteBook(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	delete(s.books, id)
	for cid, cp := range s.copies {
		if cp.BookID == id {
			delete(s.copies, cid)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted successfully"})
}

func (s *Server) listMembers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]gin.H, 0, len(s.members))
	for _, m := range s.members {
		rows = append(rows, gin.H{"id": m.ID, "full_name": m.FullName, "email": m.Email, "phone": m.Phone, "member_type": m.Type})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i]["full_name"].(string) < rows[j]["full_name"].(string) })
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func (s *Server) addMember(c *gin.Context) {
	var req struct {
		FullName   string `json:"full_name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		MemberType string `json:"member_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.FullName == "" || req.Email == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "full_name and email are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if strings.EqualFold(m.Email, req.Email) {
			c.JSON(http.StatusConflict, gin.H{"detail": "Email already registered"})
			return
		}
	}
	id := s.nextID("mem")
	s.members[id] = &member{ID: id, FullName: req.FullName, Email: req.Email, Phone: req.Phone, Type: req.MemberType}
	c.JSON(http.StatusOK, gin.H{"message": "Member added successfully", "data": []gin.H{{"id": id}}})
}

func (s *Server) deleteMember(c *gin.Context) {
	s.mu.Lock()
	delete(s.members, c.Param("id"))
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Member deleted successfully"})
}

func (s *Server) issue(c *gin.Context) {
	copyID := c.Query("book_copy_id")
	memberID := c.Query("member_id")
	if copyID == "" || memberID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "book_copy_id and member_id are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.copies[copyID]
	if cp == nil || !cp.Available {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Book copy is not available"})
		return
	}
	if s.members[memberID] == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Member not found"})
		return
	}

	now := s.now()
	id := s.nextID("txn")
	t := &transaction{
		ID:        id,
		CopyID:    copyID,
		MemberID:  memberID,
		IssuedAt:  now,
		DueDate:   domain.DateOf(now).AddDays(domain.LoanPeriod).String(),
		createdAt: s.seq,
	}
	s.txns[t.ID] = t
	cp.Available = false

	c.JSON(http.StatusOK, gin.H{"message": "Book issued successfully", "data": []gin.H{s.txnRowLocked(t, now)}})
}

func (s *Server) returnBook(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.txns[c.Param("id")]
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Transaction not found"})
		return
	}
	if t.Returned != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Book already returned"})
		return
	}

	now := s.now()
	t.Returned = &now
	if cp := s.copies[t.CopyID]; cp != nil {
		cp.Available = true
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book returned successfully"})
}

func (s *Server) txnRowLocked(t *transaction, now time.Time) gin.H {
	title, author, name := "", "", ""
	if cp := s.copies[t.CopyID]; cp != nil {
		if b := s.books[cp.BookID]; b != nil {
			title, author = b.Title, b.Author
		}
	}
	if m := s.members[t.MemberID]; m != nil {
		name = m.FullName
	}

	status := "Active"
	switch {
	case t.Returned != nil:
		status = "Returned"
	case t.DueDate < domain.DateOf(now).String():
		status = "Overdue"
	}

	row := gin.H{
		"transaction_id": t.ID,
		"book_copy_id":   t.CopyID,
		"member_id":      t.MemberID,
		"book_title":     title,
		"author":         author,
		"member_name":    name,
		"issue_date":     t.IssuedAt.Format(time.RFC3339Nano),
		"status":         status,
	}
	if !s.omitDue {
		row["due_date"] = t.DueDate
	}
	if t.Returned != nil {
		row["return_date"] = t.Returned.Format(time.RFC3339Nano)
	}
	return row
}

func (s *Server) currentTransactions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rows := make([]gin.H, 0, len(s.txns))
	for _, t := range s.sortedTxnsLocked() {
		rows = append(rows, s.txnRowLocked(t, now))
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func (s *Server) memberIDFor(email string) string {
	for _, m := range s.members {
		if strings.EqualFold(m.Email, email) {
			return m.ID
		}
	}
	return ""
}

func (s *Server) myBooks(c *gin.Context) {
	s.myTransactions(c, true)
}

func (s *Server) myHistory(c *gin.Context) {
	s.myTransactions(c, false)
}

func (s *Server) myTransactions(c *gin.Context, openOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.memberIDFor(c.GetString("email"))
	if id == "" {
		c.JSON(http.StatusOK, gin.H{"data": []gin.H{}, "message": "No member profile found"})
		return
	}

	now := s.now()
	rows := make([]gin.H, 0)
	for _, t := range s.sortedTxnsLocked() {
		if t.MemberID != id || (openOnly && t.Returned != nil) {
			continue
		}
		rows = append(rows, s.txnRowLocked(t, now))
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func (s *Server) summary(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	available := 0
	for _, cp := range s.copies {
		if cp.Available {
			available++
		}
	}
	today := domain.DateOf(s.now()).String()
	overdue := 0
	for _, t := range s.txns {
		if t.Returned == nil && t.DueDate < today {
			overdue++
		}
	}
	byType := make(map[string]int)
	for _, m := range s.members {
		byType[m.Type]++
	}
	byLang := make(map[string]int)
	for _, b := range s.books {
		byLang[b.Language]++
	}

	c.JSON(http.StatusOK, gin.H{
		"pulse": gin.H{
			"total_books":      len(s.books),
			"total_copies":     len(s.copies),
			"available_copies": available,
			"issued_copies":    len(s.copies) - available,
			"overdue_count":    overdue,
			"active_members":   len(s.members),
		},
		"total_books":    len(s.books),
		"total_members":  len(s.members),
		"by_member_type": byType,
		"by_language":    byLang,
	})
}
