// Package apierr normalizes transport and runtime failures into a fixed
// error taxonomy. Every failure that crosses a package boundary in the SDK
// is classified here first, so callers deal with exactly one error shape.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// Kind identifies the failure class of a classified error.
type Kind string

// The five failure classes. Classification is total: every raw error maps
// to exactly one of these.
const (
	KindNetwork Kind = "network" // no response reached the client
	KindTimeout Kind = "timeout" // deadline exceeded before a response
	KindHTTP    Kind = "http"    // server responded with an error status
	KindParse   Kind = "parse"   // response body could not be decoded
	KindUnknown Kind = "unknown" // anything not matching the above
)

// Error is a classified API failure. It is created fresh per failure and
// never mutated afterwards.
type Error struct {
	Message   string
	Code      string // server-supplied error code, when present
	Status    int    // HTTP status, zero unless Kind is KindHTTP
	Kind      Kind
	Details   any // decoded server body for HTTP errors
	Timestamp time.Time
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPError is the raw wire-error shape produced by the transport and the
// mock registry before classification. Body holds the undecoded response.
type HTTPError struct {
	Status     int
	StatusText string
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d %s", e.Status, e.StatusText)
}

// serverBody is the conventional error envelope the API returns.
type serverBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Classify maps a raw error to a classified *Error. It is total: any non-nil
// error, however malformed, produces exactly one Kind. Already-classified
// errors pass through unchanged. Returns nil for a nil input.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	now := time.Now().UTC()

	// Timeouts first: a timed-out url.Error would otherwise match the
	// network branch below.
	if isTimeout(err) {
		return &Error{
			Message:   err.Error(),
			Kind:      KindTimeout,
			Timestamp: now,
		}
	}

	var herr *HTTPError
	if errors.As(err, &herr) {
		return classifyHTTP(herr, now)
	}

	if isNetwork(err) {
		return &Error{
			Message:   err.Error(),
			Kind:      KindNetwork,
			Timestamp: now,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{
			Message:   err.Error(),
			Kind:      KindParse,
			Timestamp: now,
		}
	}

	return &Error{
		Message:   err.Error(),
		Kind:      KindUnknown,
		Timestamp: now,
	}
}

// classifyHTTP builds a KindHTTP error from a wire error.
// Message priority: server body message -> status text -> generic fallback.
func classifyHTTP(herr *HTTPError, now time.Time) *Error {
	e := &Error{
		Status:    herr.Status,
		Kind:      KindHTTP,
		Timestamp: now,
	}

	var body serverBody
	if len(herr.Body) > 0 && json.Unmarshal(herr.Body, &body) == nil {
		e.Message = body.Message
		e.Code = body.Code

		var details any
		if json.Unmarshal(herr.Body, &details) == nil {
			e.Details = details
		}
	}
	if e.Message == "" {
		e.Message = herr.StatusText
	}
	if e.Message == "" {
		e.Message = "request failed with status " + http.StatusText(herr.Status)
	}
	return e
}

// isTimeout reports whether err represents a deadline that expired before
// any response arrived.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// isNetwork reports whether err represents a transport failure where no
// HTTP response was received.
func isNetwork(err error) bool {
	var uerr *url.Error
	var oerr *net.OpError
	if errors.As(err, &uerr) || errors.As(err, &oerr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsRetryable reports whether the failure is potentially transient.
// Network failures, timeouts and HTTP 5xx responses are retried; client
// errors are not, including 429 (retrying would amplify the throttling).
func IsRetryable(e *Error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		return e.Status >= http.StatusInternalServerError && e.Status <= 599
	default:
		return false
	}
}

// UserMessage maps a classified error to a sentence suitable for display.
// It is used only for rendering, never for control flow.
func UserMessage(e *Error) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindNetwork:
		return "Network connection failed. Check your internet connection and try again."
	case KindTimeout:
		return "The request timed out. Please try again."
	case KindParse:
		return "Received an unexpected response from the server."
	case KindHTTP:
		return httpUserMessage(e.Status)
	default:
		return "Something went wrong. Please try again."
	}
}

func httpUserMessage(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "Authentication required. Please sign in again."
	case status == http.StatusForbidden:
		return "You don't have permission to do that."
	case status == http.StatusNotFound:
		return "The requested resource was not found."
	case status == http.StatusConflict:
		return "That change conflicts with the current state. Refresh and try again."
	case status == http.StatusTooManyRequests:
		return "You're doing that too often. Please wait a moment and try again."
	case status >= http.StatusInternalServerError:
		return "The server ran into a problem. Please try again shortly."
	default:
		return "The request could not be completed."
	}
}
