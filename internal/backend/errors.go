package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"wisp/internal/jsonutil"
)

var (
	// ErrNotFound is returned when a single-row query matches nothing.
	ErrNotFound = errors.New("project not found")
	// ErrNotSignedIn is returned when a call needs an access token.
	ErrNotSignedIn = errors.New("not signed in")
)

// APIError is a non-2xx response from the REST or auth service.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("backend: %d: %s", e.Status, msg)
}

// Unauthorized reports whether the token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// decodeAPIError builds an APIError from an error body. Both the REST layer
// ({code, message, details, hint}) and auth ({error, msg, error_description})
// shapes are understood; unparseable bodies keep the raw text.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}
	apiErr.Code = jsonutil.FirstString(m, "code", "error_code", "error")
	if apiErr.Code == "" {
		if c, ok := m["code"]; ok {
			apiErr.Code = jsonutil.ToString(c)
		}
	}
	apiErr.Message = jsonutil.FirstString(m, "message", "msg", "error_description")
	apiErr.Details = jsonutil.GetString(m, "details")
	apiErr.Hint = jsonutil.GetString(m, "hint")
	return apiErr
}
