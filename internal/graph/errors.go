// Package graph is the SharePoint adapter for the Microsoft Graph API:
// client-credential token acquisition, site/drive resolution, item lookup,
// streaming download, folder search, and simple/chunked upload.
package graph

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, graph.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("graph: bad request")
	ErrUnauthorized = errors.New("graph: unauthorized")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrConflict     = errors.New("graph: conflict")
	ErrThrottled    = errors.New("graph: throttled")
	ErrServerError  = errors.New("graph: server error")
)

// ErrNoSelector is returned when an item-addressing operation receives
// neither a path nor an item ID.
var ErrNoSelector = errors.New("graph: provide either a path or an item id")

// ErrTwoSelectors is returned when both a path and an item ID are supplied.
// The two are mutually exclusive ways to address an item.
var ErrTwoSelectors = errors.New("graph: path and item id are mutually exclusive")

// ErrSessionIncomplete is returned when a chunked upload consumes the whole
// buffer without the session ever answering 200/201. Every individual
// request succeeded, so this is not a RemoteError: no request was
// rejected, the session just never produced an item.
var ErrSessionIncomplete = errors.New("graph: upload session ended without an item response")

// ConfigError reports missing credentials at client construction time,
// before any network call is made.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("graph: missing SharePoint/MS Graph configuration: %s (set these in the environment or .env)",
		strings.Join(e.Missing, ", "))
}

// AuthError reports a token endpoint failure. Description carries the
// identity provider's error_description when one was returned.
type AuthError struct {
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("graph: token acquisition failed: %s", e.Description)
	}

	return fmt.Sprintf("graph: token acquisition failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RemoteError wraps a non-success upstream response with its HTTP status,
// request ID, and body preserved for diagnostics. The embedded sentinel
// supports errors.Is checks.
type RemoteError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *RemoteError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graph: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("graph: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
