package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/libdesk/internal/domain"
)

// Error describes a failed API call. It unwraps to one of the domain
// sentinels (ErrNetwork, ErrConflict, ErrAuth) and to the transport cause,
// if any.
type Error struct {
	Method string
	Path   string
	Status int    // 0 when the request never got a response
	Detail string // FastAPI "detail" or raw body

	Kind  error
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Cause != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Cause)
	case e.Detail != "":
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// conflictPhrases are the 400-level details the backend uses when a loan
// state transition is rejected
var conflictPhrases = []string{
	"not available",
	"already returned",
	"already registered",
}

// classifyStatus maps an HTTP status and error detail to a domain sentinel
func classifyStatus(status int, detail string) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrAuth
	case status == http.StatusConflict:
		return domain.ErrConflict
	case status == http.StatusBadRequest:
		lower := strings.ToLower(detail)
		for _, p := range conflictPhrases {
			if strings.Contains(lower, p) {
				return domain.ErrConflict
			}
		}
		return domain.ErrNetwork
	default:
		return domain.ErrNetwork
	}
}

// parseDetail extracts FastAPI's {"detail": ...}. Validation errors carry
// a list there, which is passed through as JSON text.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}
	return string(envelope.Detail)
}
