package backend

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is an error response from the auth backend.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error_code,omitempty"`
	Message string `json:"msg,omitempty"`
	// Older backend versions report {"error": "...", "error_description": "..."}.
	LegacyError       string `json:"error,omitempty"`
	LegacyDescription string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.LegacyDescription
	}
	if msg == "" {
		msg = e.LegacyError
	}
	if msg == "" {
		msg = "unknown backend error"
	}
	return fmt.Sprintf("backend: %s (status %d)", msg, e.Status)
}

// IsSessionMissing reports whether err means there was no session to act on.
// Callers treat this as success when terminating sessions.
func IsSessionMissing(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == "session_not_found" {
		return true
	}
	msg := strings.ToLower(apiErr.Error())
	return strings.Contains(msg, "session missing") || strings.Contains(msg, "session not found")
}

// IsInvalidRefreshToken reports whether err indicates the stored refresh
// token can no longer mint sessions.
func IsInvalidRefreshToken(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == "refresh_token_not_found" {
		return true
	}
	msg := strings.ToLower(apiErr.Error())
	return strings.Contains(msg, "refresh token not found") || strings.Contains(msg, "invalid refresh token")
}
