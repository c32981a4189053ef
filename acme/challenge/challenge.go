// Package challenge implements the ACME challenge type hierarchy: a
// polymorphic factory keyed by the challenge "type" string, binding incoming
// JSON to the correct variant (http-01, dns-01, tls-alpn-01, or a generic
// fallback) and computing key authorizations. Promoted from
// cpu-acmeshell's flat resources.Challenge struct into the hierarchy spec
// section 4.4/9 describes, grounded on the upstream acme4j Challenge/
// Http01Challenge/Dns01Challenge classes and their test fixtures
// (ChallengeTest.java).
package challenge

import (
	"crypto"
	"fmt"
	"net/http"
	"time"

	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/problem"
	"github.com/jojo-liu/acme4j/acme/status"
)

// Requester is the minimal network surface a Challenge needs to Bind,
// Trigger and Update itself. *acme.Session implements this structurally;
// this package never imports the root acme package, which keeps the
// dependency graph acyclic.
type Requester interface {
	// PostAsGet performs an authenticated GET (signed POST with an empty
	// payload) to url and decodes the JSON body.
	PostAsGet(url string) (jsonview.JSON, http.Header, error)
	// SignedPost performs a signed POST of payload to url, decodes the JSON
	// body.
	SignedPost(url string, payload any) (jsonview.JSON, http.Header, error)
	// AccountSigner returns the crypto.Signer backing the session's active
	// account key, used to compute key authorizations.
	AccountSigner() crypto.Signer
}

// Challenge is the common interface implemented by every challenge variant.
type Challenge interface {
	// Type returns the challenge type string, e.g. "http-01".
	Type() string
	// Status returns the challenge's current status.
	Status() status.Status
	// Location returns the challenge's URL.
	Location() string
	// Validated returns the instant the server validated this challenge, or
	// nil if it has not been validated.
	Validated() *time.Time
	// Error returns the problem the server reported for an invalid
	// challenge, or nil.
	Error() *problem.Problem
	// JSON returns the raw JSON this challenge was bound or unmarshaled
	// from.
	JSON() jsonview.JSON
	// PrepareResponse lets a variant add fields to the payload Trigger will
	// POST. Generic challenges add nothing, so the payload is "{}".
	PrepareResponse(b *Builder)
	// Trigger asks the server to begin validating this challenge.
	Trigger() error
	// Update refreshes this challenge's status and error from the server.
	// Returns an *acmeerr.RetryAfterError (surfaced, not swallowed) if the
	// server asked for a backoff; the challenge's fields are still updated
	// from the response body in that case.
	Update() error
}

// Builder accumulates the JSON payload PrepareResponse/Trigger sends.
type Builder struct {
	fields map[string]any
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{fields: map[string]any{}}
}

// Put adds a field to the payload.
func (b *Builder) Put(key string, value any) *Builder {
	b.fields[key] = value
	return b
}

// ToMap returns the accumulated fields, e.g. for JSON marshaling.
func (b *Builder) ToMap() map[string]any {
	return b.fields
}

// base holds the fields and behavior common to every challenge variant. A
// variant embeds base and must only forward Trigger/Update to
// base.trigger(self)/base.update(self) so PrepareResponse dispatches
// virtually despite Go's lack of embedded-method override.
type base struct {
	typ       string
	status    status.Status
	location  string
	validated *time.Time
	err       *problem.Problem
	raw       jsonview.JSON
	requester Requester
}

func newBase(typeName string, requester Requester, data jsonview.JSON) (base, error) {
	gotType, ok := data.Get("type").AsString()
	if !ok {
		return base{}, newTypeMismatchError(typeName, "(missing)")
	}
	if typeName != "" && gotType != typeName {
		return base{}, newTypeMismatchError(typeName, gotType)
	}

	b := base{
		typ:       gotType,
		status:    status.Parse(data.Get("status").AsStringOr("")),
		location:  data.Get("url").AsStringOr(""),
		raw:       data,
		requester: requester,
	}
	if t, ok := data.Get("validated").AsInstant(); ok {
		b.validated = &t
	}
	if data.Get("error").IsPresent() {
		p := problem.Parse(data.Get("error"))
		b.err = &p
	}
	return b, nil
}

func (b *base) Type() string            { return b.typ }
func (b *base) Status() status.Status   { return b.status }
func (b *base) Location() string        { return b.location }
func (b *base) Validated() *time.Time   { return b.validated }
func (b *base) Error() *problem.Problem { return b.err }
func (b *base) JSON() jsonview.JSON     { return b.raw }

// trigger is called by each variant's Trigger method with itself as self,
// so self.PrepareResponse adds the variant's extra fields to the payload.
func (b *base) trigger(self Challenge) error {
	if b.requester == nil {
		return &invalidStateError{"challenge has no requester; it was not bound or created through a Session"}
	}
	builder := NewBuilder()
	self.PrepareResponse(builder)
	body, _, err := b.requester.SignedPost(b.location, builder.ToMap())
	if err != nil {
		return err
	}
	return b.refreshFrom(self, body)
}

// update is called by each variant's Update method with itself as self.
func (b *base) update(self Challenge) error {
	if b.requester == nil {
		return &invalidStateError{"challenge has no requester; it was not bound or created through a Session"}
	}
	body, header, err := b.requester.PostAsGet(b.location)
	refreshErr := b.refreshFrom(self, body)
	if err != nil {
		return err
	}
	if retryAfter := header.Get("Retry-After"); retryAfter != "" {
		if t, ok := parseRetryAfter(retryAfter); ok {
			if refreshErr != nil {
				return refreshErr
			}
			return &acmeerr.RetryAfterError{URL: b.location, RetryAfter: t}
		}
	}
	return refreshErr
}

// refreshFrom replaces b's fields from a fresh response body, preserving
// requester and type identity. self is only used to re-validate the type
// still matches this variant.
func (b *base) refreshFrom(self Challenge, body jsonview.JSON) error {
	if !body.IsPresent() {
		return nil
	}
	nb, err := newBase(self.Type(), b.requester, body)
	if err != nil {
		return err
	}
	nb.requester = b.requester
	*b = nb
	return nil
}

func parseRetryAfter(header string) (time.Time, bool) {
	if t, err := http.ParseTime(header); err == nil {
		return t, true
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return time.Now().Add(secs), true
	}
	return time.Time{}, false
}

// typeMismatchError wraps an *acmeerr.ProtocolError so callers can classify
// it with errors.As(err, &acmeerr.ProtocolError{}) the way spec section 7
// requires for a type mismatch (or missing "type" field) on unmarshal.
type typeMismatchError struct {
	*acmeerr.ProtocolError
	wanted, got string
}

func newTypeMismatchError(wanted, got string) *typeMismatchError {
	return &typeMismatchError{
		ProtocolError: &acmeerr.ProtocolError{
			Message: fmt.Sprintf("challenge type mismatch: expected %q, got %q", wanted, got),
		},
		wanted: wanted,
		got:    got,
	}
}

// Unwrap returns the embedded ProtocolError, so errors.As can match it.
func (e *typeMismatchError) Unwrap() error { return e.ProtocolError }

type invalidStateError struct {
	msg string
}

func (e *invalidStateError) Error() string { return "acme: " + e.msg }
