package challenge

import "github.com/jojo-liu/acme4j/acme/jsonview"

// GenericChallenge is returned for any challenge type without a dedicated
// variant. A document with no type field is rejected with a type mismatch
// error rather than bound as a generic challenge. Property 4 of spec section 4.4
// requires this fallback rather than an error, so unregistered future
// challenge types degrade gracefully instead of breaking the client.
type GenericChallenge struct {
	base
}

func newGenericChallenge(requester Requester, data jsonview.JSON) (*GenericChallenge, error) {
	// typeName "" disables newBase's type-match check: a generic challenge
	// accepts whatever type string the server sent, but newBase still
	// requires the type field to be present.
	b, err := newBase("", requester, data)
	if err != nil {
		return nil, err
	}
	return &GenericChallenge{base: b}, nil
}

// PrepareResponse adds no extra fields: a generic challenge has no
// variant-specific contribution to the response payload.
func (c *GenericChallenge) PrepareResponse(*Builder) {}

func (c *GenericChallenge) Trigger() error { return c.trigger(c) }
func (c *GenericChallenge) Update() error  { return c.update(c) }
