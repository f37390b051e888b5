package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	// Reason is the body's "error" field, Message its "message" field.
	Reason  string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("backend %s %s: %d: %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// ServerMessage returns the body's error text, preferring "error" over "message".
func (e *APIError) ServerMessage() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Message
}

// ServerDetail returns the body's error text, preferring "message" over "error".
func (e *APIError) ServerDetail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Reason
}

// IsUnauthorized reports whether the backend rejected the credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// errorBody is the JSON error shape. The backend uses "error" in some handlers and "message" in others.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newAPIError reads resp's body into an APIError.
func newAPIError(method, path string, resp *http.Response) *APIError {
	e := &APIError{Method: method, Path: path, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return e
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		e.Reason = strings.TrimSpace(body.Error)
		e.Message = strings.TrimSpace(body.Message)
	}
	return e
}
