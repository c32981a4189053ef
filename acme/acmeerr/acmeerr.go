// Package acmeerr implements the error taxonomy described by spec section 7:
// transport failures, malformed-response failures, server-reported problem
// documents, the special-cased bad-nonce retry signal, the Retry-After
// backoff signal, the terms-of-service re-agreement signal, and caller
// contract violations. All are ordinary Go errors so callers use
// errors.As/errors.Is rather than a checked-exception hierarchy.
package acmeerr

import (
	"fmt"
	"time"

	"github.com/jojo-liu/acme4j/acme/problem"
)

// NetworkError wraps a transport-level failure (DNS, TLS, connection
// reset, timeout). It is retriable at the application's discretion.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("acme: network error requesting %s: %s", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError signals a malformed server response: a missing required
// field, a type mismatch on unmarshal, or a directory missing a resource
// a caller tried to use. Not retriable.
type ProtocolError struct {
	URL     string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.URL == "" {
		return "acme: protocol error: " + e.Message
	}
	return fmt.Sprintf("acme: protocol error for %s: %s", e.URL, e.Message)
}

// ServerError wraps a well-formed application/problem+json response. Its
// Problem.Type discriminates the sub-kind; the IsXxx helpers cover the
// ACME-defined error URNs from RFC 8555 §6.7.
type ServerError struct {
	URL        string
	StatusCode int
	Problem    problem.Problem
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("acme: server error (HTTP %d) for %s: %s", e.StatusCode, e.URL, e.Problem.String())
}

// IsBadNonce reports whether this is a "badNonce" problem.
func (e *ServerError) IsBadNonce() bool { return e.Problem.Is("badNonce") }

// IsRateLimited reports whether this is a "rateLimited" problem.
func (e *ServerError) IsRateLimited() bool { return e.Problem.Is("rateLimited") }

// IsUnauthorized reports whether this is an "unauthorized" problem.
func (e *ServerError) IsUnauthorized() bool { return e.Problem.Is("unauthorized") }

// BadNonceError is the special-cased ServerError variant the Connection
// retries exactly once before giving up and returning it to the caller.
type BadNonceError struct {
	*ServerError
}

// Unwrap returns the wrapped ServerError, so errors.As can match it.
func (e *BadNonceError) Unwrap() error { return e.ServerError }

// RetryAfterError is not strictly an error condition: it carries the instant
// at which the caller should retry an update, per spec section 5's
// "Retry-After surfaced, not swallowed" rule.
type RetryAfterError struct {
	URL        string
	RetryAfter time.Time
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("acme: %s asked for a retry after %s", e.URL, e.RetryAfter.Format(time.RFC3339))
}

// UserActionRequiredError signals the server demands agreement to new terms
// of service before the request can proceed.
type UserActionRequiredError struct {
	Detail         string
	TermsOfService string
}

// NewUserActionRequiredError builds a UserActionRequiredError from a parsed
// Problem, pulling the terms-of-service link out of the Instance field per
// RFC 8555 §7.3.3.
func NewUserActionRequiredError(p problem.Problem) *UserActionRequiredError {
	tos := ""
	if p.Instance != nil {
		tos = p.Instance.String()
	}
	return &UserActionRequiredError{Detail: p.Detail, TermsOfService: tos}
}

func (e *UserActionRequiredError) Error() string {
	return fmt.Sprintf("acme: user action required: %s (terms of service: %s)", e.Detail, e.TermsOfService)
}

// IllegalArgumentError signals a caller contract violation: a nil
// session/URL, an unknown resource, or similar programmer error rather than
// a server or network condition.
type IllegalArgumentError struct {
	Message string
}

func (e *IllegalArgumentError) Error() string {
	return "acme: illegal argument: " + e.Message
}
