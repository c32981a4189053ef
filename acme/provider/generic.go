// Package provider implements acme.Provider for the ACME CAs this library
// ships first-class support for. Generalizes cpu-acmeshell's single
// hardwired DirectoryURL into the pluggable-provider registry spec section
// 4.2 describes; the registry itself lives in the root acme package, this
// package only supplies entries and self-registers them via init, the
// Go-idiomatic replacement for the upstream Java ServiceLoader mechanism
// noted in spec section 9.
package provider

import (
	"strings"

	"github.com/jojo-liu/acme4j/acme"
	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/jsonview"
)

// Generic accepts any http:// or https:// server URI and performs a plain
// unsigned GET for the directory, deferring every challenge type to the
// built-in registry. This is the fallback cpu-acmeshell's Client always
// behaved as, since it never special-cased a CA.
type Generic struct{}

func init() {
	acme.RegisterProvider(Generic{})
}

// Accepts reports whether uri looks like a plain HTTP(S) URL.
func (Generic) Accepts(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// Directory performs an unsigned GET against the server's directory URI.
func (Generic) Directory(session *acme.Session, uri string) (jsonview.JSON, error) {
	body, _, err := session.Get(uri)
	return body, err
}

// CreateChallenge always defers to the built-in type registry.
func (Generic) CreateChallenge(requester challenge.Requester, data jsonview.JSON) (challenge.Challenge, error) {
	return nil, nil
}
