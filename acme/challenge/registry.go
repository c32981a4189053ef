package challenge

import (
	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/jsonview"
)

type factory func(requester Requester, data jsonview.JSON) (Challenge, error)

// registry maps a challenge type string to its variant constructor. Built
// in, not pluggable at runtime: spec section 4.4 fixes the set of known
// variants, unlike acme/provider's registry which exists precisely so
// applications can add their own entries.
var registry = map[string]factory{
	TypeHTTP01: func(r Requester, d jsonview.JSON) (Challenge, error) {
		return newHTTP01Challenge(r, d)
	},
	TypeDNS01: func(r Requester, d jsonview.JSON) (Challenge, error) {
		return newDNS01Challenge(r, d)
	},
	TypeTLSALPN01: func(r Requester, d jsonview.JSON) (Challenge, error) {
		return newTLSALPN01Challenge(r, d)
	},
}

// createFor dispatches data's "type" field to the matching variant
// constructor, falling back to GenericChallenge for anything unregistered.
// A document with no "type" field fails with a type mismatch error.
func createFor(requester Requester, data jsonview.JSON) (Challenge, error) {
	typeName, _ := data.Get("type").AsString()
	if ctor, ok := registry[typeName]; ok {
		return ctor(requester, data)
	}
	return newGenericChallenge(requester, data)
}

// FromJSON builds the appropriate Challenge variant from an already-decoded
// JSON document, without performing any network request. Used to unmarshal
// challenges embedded in an authorization resource.
func FromJSON(requester Requester, data jsonview.JSON) (Challenge, error) {
	return createFor(requester, data)
}

// Bind fetches the challenge resource at url (POST-as-GET) and returns the
// appropriate Challenge variant bound to it. A nil requester or empty url is
// a caller contract violation, not a network condition.
func Bind(requester Requester, url string) (Challenge, error) {
	if requester == nil {
		return nil, &acmeerr.IllegalArgumentError{Message: "challenge.Bind: nil requester"}
	}
	if url == "" {
		return nil, &acmeerr.IllegalArgumentError{Message: "challenge.Bind: empty url"}
	}
	body, _, err := requester.PostAsGet(url)
	if err != nil {
		return nil, err
	}
	return createFor(requester, body)
}
