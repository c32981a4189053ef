package acme

import (
	"fmt"
	"strings"

	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/jsonview"
)

// Provider injects CA-specific behavior into a Session. Grounded on spec
// section 4.2; cpu-acmeshell has no equivalent (it only ever talks to one
// configured directory URL), so this is new code in the teacher's idiom
// rather than an adaptation of a specific teacher file.
type Provider interface {
	// Accepts reports whether this provider handles the given server URI.
	Accepts(serverURI string) bool
	// Directory fetches the directory JSON for session's server URI.
	Directory(session *Session, serverURI string) (jsonview.JSON, error)
	// CreateChallenge builds a Challenge from JSON, or returns (nil, nil) to
	// defer to the registry's generic fallback.
	CreateChallenge(requester challenge.Requester, data jsonview.JSON) (challenge.Challenge, error)
}

// Registry resolves a server URI to exactly one Provider. Modeled on
// database/sql's driver registry (global map + explicit Register calls at
// init time), the Go-idiomatic replacement spec section 9 calls for in
// place of the Java original's ServiceLoader discovery.
type Registry struct {
	providers []Provider
}

// NewRegistry returns an empty Registry. Tests construct their own Registry
// to avoid polluting global state; applications normally use
// DefaultRegistry via RegisterProvider.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// Resolve returns the single provider accepting serverURI. Zero or more
// than one match is a *acmeerr.IllegalArgumentError naming the ambiguity,
// per spec section 4.2's "exactly one provider must accept" rule.
func (r *Registry) Resolve(serverURI string) (Provider, error) {
	var matches []Provider
	for _, p := range r.providers {
		if p.Accepts(serverURI) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &acmeerr.IllegalArgumentError{
			Message: fmt.Sprintf("no registered provider accepts %q", serverURI),
		}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, p := range matches {
			names[i] = fmt.Sprintf("%T", p)
		}
		return nil, &acmeerr.IllegalArgumentError{
			Message: fmt.Sprintf("%d providers accept %q ambiguously: %s",
				len(matches), serverURI, strings.Join(names, ", ")),
		}
	}
}

// DefaultRegistry is the process-wide registry acme/provider's
// self-registering providers add themselves to via RegisterProvider.
// Session construction still accepts an explicit *Registry so callers can
// avoid the global, per spec section 9's "avoid singletons" note.
var DefaultRegistry = NewRegistry()

// RegisterProvider adds p to DefaultRegistry. Called from acme/provider's
// package-level init functions.
func RegisterProvider(p Provider) {
	DefaultRegistry.Register(p)
}
