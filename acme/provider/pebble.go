package provider

import (
	"github.com/jojo-liu/acme4j/acme"
	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/jsonview"
)

// pebbleDirectoryURL is Pebble's conventional local test-instance directory
// address, matching the default cpu-acmeshell's README points users at when
// running against Pebble.
const pebbleDirectoryURL = "https://localhost:14000/dir"

// pebbleURI is the pseudo-URI applications pass to NewSession to mean
// "whatever Pebble instance is listening locally", instead of spelling out
// the directory URL themselves.
const pebbleURI = "acme://pebble"

// Pebble accepts the "acme://pebble" pseudo-URI and resolves it to the
// local Pebble test server's directory endpoint. Pebble's challenge types
// are standard RFC 8555 ones, so challenge dispatch is left to the built-in
// registry exactly like Generic.
type Pebble struct{}

func init() {
	acme.RegisterProvider(Pebble{})
}

// Accepts reports whether uri is the Pebble pseudo-URI.
func (Pebble) Accepts(uri string) bool {
	return uri == pebbleURI
}

// Directory performs an unsigned GET against Pebble's local directory URL.
func (Pebble) Directory(session *acme.Session, uri string) (jsonview.JSON, error) {
	body, _, err := session.Get(pebbleDirectoryURL)
	return body, err
}

// CreateChallenge always defers to the built-in type registry.
func (Pebble) CreateChallenge(requester challenge.Requester, data jsonview.JSON) (challenge.Challenge, error) {
	return nil, nil
}
