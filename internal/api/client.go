package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "libdesk/1.0"
)

// RequestObserver is notified after every request completes.
// status is 0 when no response was received.
type RequestObserver func(method, path string, status int, elapsed time.Duration)

// Client implements domain.LibraryClient and domain.Authenticator against
// the library REST API
type Client struct {
	baseURL    string
	tokens     domain.TokenSource
	httpClient *http.Client
	logger     *slog.Logger
	location   *time.Location
	now        func() time.Time
	observer   RequestObserver
}

// NewClient creates a new API client. tokens may be nil for
// unauthenticated use (login, register).
func NewClient(baseURL string, tokens domain.TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:   logger,
		location: time.Local,
		now:      time.Now,
	}
}

// SetTimeout overrides the per-request timeout
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// SetObserver installs a per-request hook (used for metrics)
func (c *Client) SetObserver(o RequestObserver) {
	c.observer = o
}

// SetLocation sets the zone used for zone-less backend timestamps
func (c *Client) SetLocation(loc *time.Location) {
	if loc != nil {
		c.location = loc
	}
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request and returns the body of a 2xx response.
// GETs are cache-busted with a _t parameter and no-cache headers.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	if method == http.MethodGet {
		query.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if method == http.MethodGet {
		req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		req.Header.Set("Pragma", "no-cache")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("api request", "method", method, "path", path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, start)
		c.logger.Error("api request failed", "method", method, "path", path, "error", err)
		return nil, &Error{Method: method, Path: path, Kind: domain.ErrNetwork, Cause: err}
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Kind: domain.ErrNetwork, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := parseDetail(respBody)
		kind := classifyStatus(resp.StatusCode, detail)
		if errors.Is(kind, domain.ErrNetwork) {
			c.logger.Error("api request error", "method", method, "path", path, "status", resp.StatusCode, "detail", detail)
		} else {
			c.logger.Debug("api request rejected", "method", method, "path", path, "status", resp.StatusCode, "detail", detail)
		}
		return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Detail: detail, Kind: kind}
	}

	return respBody, nil
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(method, routeOf(path), status, time.Since(start))
	}
}

// routeOf collapses id segments so metrics labels stay bounded
func routeOf(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) >= 3 {
		switch parts[1] {
		case "books", "members", "transactions":
			if parts[2] != "available" && parts[2] != "current" && parts[2] != "issue" {
				parts[2] = ":id"
			}
		}
	}
	return strings.Join(parts, "/")
}

// getList fetches a list endpoint and decodes its data field into out
func (c *Client) getList(ctx context.Context, path string, out any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return c.malformed(http.MethodGet, path, err)
	}
	if env.Data == nil {
		return c.malformed(http.MethodGet, path, errors.New("response has no data field"))
	}
	if err := json.Unmarshal(*env.Data, out); err != nil {
		return c.malformed(http.MethodGet, path, err)
	}
	return nil
}

// mutate sends a mutation and requires a message field in the reply
func (c *Client) mutate(ctx context.Context, method, path string, query url.Values, body any) (string, error) {
	resp, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return "", err
	}

	var env messageEnvelope
	if err := json.Unmarshal(resp, &env); err != nil {
		return "", c.malformed(method, path, err)
	}
	if env.Message == nil {
		return "", c.malformed(method, path, errors.New("response has no message field"))
	}
	return *env.Message, nil
}

func (c *Client) malformed(method, path string, cause error) error {
	c.logger.Error("malformed api response", "method", method, "path", path, "error", cause)
	return &Error{Method: method, Path: path, Status: http.StatusOK, Kind: domain.ErrNetwork, Cause: cause}
}

// ListBooks returns the catalog
func (c *Client) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var rows []BookDTO
	if err := c.getList(ctx, "/books", &rows); err != nil {
		return nil, err
	}
	return MapBooks(rows), nil
}

// AddBook creates a catalog entry
func (c *Client) AddBook(ctx context.Context, book domain.NewBook) error {
	book = book.Normalize()
	if err := book.Validate(); err != nil {
		return err
	}
	_, err := c.mutate(ctx, http.MethodPost, "/books", nil, BookRequest{
		Title:    book.Title,
		Author:   book.Author,
		ISBN:     book.ISBN,
		Language: book.Language,
	})
	return err
}

// DeleteBook removes a catalog entry
func (c *Client) DeleteBook(ctx context.Context, bookID string) error {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return domain.Validation("book id is required")
	}
	_, err := c.mutate(ctx, http.MethodDelete, "/books/"+url.PathEscape(bookID), nil, nil)
	return err
}

// ListMembers returns all members
func (c *Client) ListMembers(ctx context.Context) ([]domain.Member, error) {
	var rows []MemberDTO
	if err := c.getList(ctx, "/members", &rows); err != nil {
		return nil, err
	}
	return MapMembers(rows), nil
}

// AddMember registers a member
func (c *Client) AddMember(ctx context.Context, member domain.NewMember) error {
	member = member.Normalize()
	if err := member.Validate(); err != nil {
		return err
	}
	_, err := c.mutate(ctx, http.MethodPost, "/members", nil, MemberRequest{
		FullName:   member.FullName,
		Email:      member.Email,
		Phone:      member.Phone,
		MemberType: member.Type,
	})
	return err
}

// DeleteMember removes a member
func (c *Client) DeleteMember(ctx context.Context, memberID string) error {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return domain.Validation("member id is required")
	}
	_, err := c.mutate(ctx, http.MethodDelete, "/members/"+url.PathEscape(memberID), nil, nil)
	return err
}

// ListAvailableCopies returns copies with no open transaction
func (c *Client) ListAvailableCopies(ctx context.Context) ([]domain.AvailableCopy, error) {
	var rows []AvailableCopyDTO
	if err := c.getList(ctx, "/books/available", &rows); err != nil {
		return nil, err
	}
	return MapAvailableCopies(rows), nil
}

// ListCurrentTransactions returns the current-transactions view
func (c *Client) ListCurrentTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var rows []TransactionDTO
	if err := c.getList(ctx, "/transactions/current", &rows); err != nil {
		return nil, err
	}
	return MapTransactions(rows, c.location), nil
}

// IssueBook opens a loan of copyID to memberID
func (c *Client) IssueBook(ctx context.Context, copyID, memberID string) error {
	copyID, memberID = strings.TrimSpace(copyID), strings.TrimSpace(memberID)
	if copyID == "" || memberID == "" {
		return domain.Validation("member and book copy are required")
	}
	query := url.Values{}
	query.Set("book_copy_id", copyID)
	query.Set("member_id", memberID)
	_, err := c.mutate(ctx, http.MethodPost, "/transactions/issue", query, nil)
	return err
}

// ReturnBook closes an open loan
func (c *Client) ReturnBook(ctx context.Context, transactionID string) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.Validation("transaction id is required")
	}
	path := fmt.Sprintf("/transactions/%s/return", url.PathEscape(transactionID))
	_, err := c.mutate(ctx, http.MethodPost, path, nil, nil)
	return err
}

// MyBooks returns the signed-in member's open loans
func (c *Client) MyBooks(ctx context.Context) ([]domain.Transaction, error) {
	var rows []TransactionDTO
	if err := c.getList(ctx, "/my/books", &rows); err != nil {
		return nil, err
	}
	return MapTransactions(rows, c.location), nil
}

// MyHistory returns the signed-in member's loan history
func (c *Client) MyHistory(ctx context.Context) ([]domain.Transaction, error) {
	var rows []TransactionDTO
	if err := c.getList(ctx, "/my/history", &rows); err != nil {
		return nil, err
	}
	return MapTransactions(rows, c.location), nil
}

// Summary returns the server-computed aggregates
func (c *Client) Summary(ctx context.Context) (domain.Summary, error) {
	const path = "/analytics/summary"
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return domain.Summary{}, err
	}

	var dto SummaryDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return domain.Summary{}, c.malformed(http.MethodGet, path, err)
	}
	if dto.Pulse == nil && dto.TotalBooks == nil {
		return domain.Summary{}, c.malformed(http.MethodGet, path, errors.New("response has no pulse field"))
	}
	return MapSummary(dto), nil
}
