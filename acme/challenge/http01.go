package challenge

import "github.com/jojo-liu/acme4j/acme/jsonview"

// TypeHTTP01 is the "http-01" challenge type string.
const TypeHTTP01 = "http-01"

// HTTP01Challenge proves domain control by serving the key authorization
// from "http://<domain>/.well-known/acme-challenge/<token>". Grounded on
// the upstream Http01Challenge, whose only contribution over the base
// challenge is Token/KeyAuthorization/the content-type header for the
// response served at that path.
type HTTP01Challenge struct {
	base
}

func newHTTP01Challenge(requester Requester, data jsonview.JSON) (*HTTP01Challenge, error) {
	b, err := newBase(TypeHTTP01, requester, data)
	if err != nil {
		return nil, err
	}
	return &HTTP01Challenge{base: b}, nil
}

// Token returns the challenge token the server chose.
func (c *HTTP01Challenge) Token() string {
	return c.raw.Get("token").AsStringOr("")
}

// KeyAuthorization computes the key authorization this challenge expects to
// find at "/.well-known/acme-challenge/<token>".
func (c *HTTP01Challenge) KeyAuthorization() (string, error) {
	return keyAuthorizationFor(c.requester, c.Token())
}

// ChallengePath is the absolute HTTP path the validation server will
// request.
func (c *HTTP01Challenge) ChallengePath() string {
	return "/.well-known/acme-challenge/" + c.Token()
}

// PrepareResponse adds no extra fields: http-01's response payload is "{}",
// the key authorization is only ever served over HTTP, never POSTed.
func (c *HTTP01Challenge) PrepareResponse(*Builder) {}

func (c *HTTP01Challenge) Trigger() error { return c.trigger(c) }
func (c *HTTP01Challenge) Update() error  { return c.update(c) }
