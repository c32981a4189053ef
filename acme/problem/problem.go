// Package problem implements the RFC 7807 problem+json document that ACME
// servers use to report errors.
package problem

import (
	"fmt"
	"net/url"

	"github.com/jojo-liu/acme4j/acme/jsonview"
)

// Problem mirrors an RFC 7807 problem document. It is a pure value object;
// acme/acmeerr attaches it to ServerError.
type Problem struct {
	// Type is a URI identifying the problem type. ACME-defined types live
	// under "urn:ietf:params:acme:error:...".
	Type *url.URL
	// Detail is a human-readable explanation of this specific occurrence.
	Detail string
	// Instance identifies this specific occurrence of the problem, if the
	// server supplied one.
	Instance *url.URL
	// Subproblems lists per-identifier problems for a batched failure (RFC
	// 8555 §6.7.1).
	Subproblems []Problem
	// Status is the associated HTTP status code, when known.
	Status int
}

// Parse builds a Problem from a decoded problem+json document.
func Parse(data jsonview.JSON) Problem {
	p := Problem{
		Detail: data.Get("detail").AsStringOr(""),
	}
	if u, ok := data.Get("type").AsURL(); ok {
		p.Type = u
	}
	if u, ok := data.Get("instance").AsURL(); ok {
		p.Instance = u
	}
	if n, ok := data.Get("status").AsInt(); ok {
		p.Status = n
	}
	for _, sub := range data.Get("subproblems").AsArray() {
		p.Subproblems = append(p.Subproblems, Parse(sub))
	}
	return p
}

// TypeURI returns the problem type as a string, or "" if absent.
func (p Problem) TypeURI() string {
	if p.Type == nil {
		return ""
	}
	return p.Type.String()
}

// String renders the problem for logging/error messages.
func (p Problem) String() string {
	if p.Type == nil && p.Detail == "" {
		return "acme problem: (no detail)"
	}
	return fmt.Sprintf("%s: %s", p.TypeURI(), p.Detail)
}

// Is reports whether the problem's type URI matches the given ACME error
// URN suffix, e.g. p.Is("badNonce") matches
// "urn:ietf:params:acme:error:badNonce".
func (p Problem) Is(acmeErrorSuffix string) bool {
	return p.TypeURI() == "urn:ietf:params:acme:error:"+acmeErrorSuffix
}
