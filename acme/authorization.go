package acme

import (
	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/status"
)

// Authorization is the server-owned Authorization resource (RFC 8555
// §7.1.4). Grounded on cpu-acmeshell's resources.Authorization plus
// acme/client/resources.go's UpdateAuthz, with Challenges now built through
// acme/challenge's type registry instead of one flat struct.
type Authorization struct {
	session    *Session
	location   string
	status     status.Status
	identifier status.Identifier
	challenges []challenge.Challenge
	wildcard   bool
	raw        jsonview.JSON
}

// Location returns the authorization's URL.
func (a *Authorization) Location() string { return a.location }

// Status returns the authorization's last-known status.
func (a *Authorization) Status() status.Status { return a.status }

// Identifier returns the identifier this authorization covers.
func (a *Authorization) Identifier() status.Identifier { return a.identifier }

// Wildcard reports whether this authorization was created for a wildcard
// identifier (RFC 8555 §7.1.3).
func (a *Authorization) Wildcard() bool { return a.wildcard }

// Challenges returns the challenge variants the server offered for this
// authorization. For a pending authorization the client selects one to
// Trigger; for a valid authorization this is the challenge that succeeded.
func (a *Authorization) Challenges() []challenge.Challenge { return a.challenges }

// FindChallenge returns the first challenge of the given type, or nil.
func (a *Authorization) FindChallenge(challengeType string) challenge.Challenge {
	for _, c := range a.challenges {
		if c.Type() == challengeType {
			return c
		}
	}
	return nil
}

// BindAuthorization fetches an authorization by its location URL. On a
// Retry-After error the returned Authorization still reflects the response
// body, matching Update's own refresh-before-return behavior.
func BindAuthorization(session *Session, location string) (*Authorization, error) {
	a := &Authorization{session: session, location: location}
	return a, a.Update()
}

// Update refreshes this authorization's fields via POST-as-GET.
func (a *Authorization) Update() error {
	if a.location == "" {
		return &acmeerr.IllegalArgumentError{Message: "authorization has no location"}
	}
	body, _, err := a.session.PostAsGet(a.location)
	refreshErr := a.refreshFrom(body)
	if err != nil {
		return err
	}
	return refreshErr
}

func (a *Authorization) refreshFrom(body jsonview.JSON) error {
	if !body.IsPresent() {
		return nil
	}
	a.raw = body
	a.status = status.Parse(body.Get("status").AsStringOr(""))
	a.identifier = status.Identifier{
		Type:  body.Get("identifier").Get("type").AsStringOr(""),
		Value: body.Get("identifier").Get("value").AsStringOr(""),
	}
	a.wildcard, _ = body.Get("wildcard").AsBool()

	a.challenges = nil
	for _, c := range body.Get("challenges").AsArray() {
		bound, err := a.session.CreateChallenge(c)
		if err != nil {
			return err
		}
		a.challenges = append(a.challenges, bound)
	}
	return nil
}

// Deactivate requests the server deactivate this authorization (RFC 8555
// §7.5.2), grounded on cpu-acmeshell's shell/commands deactivateAuthz.
func (a *Authorization) Deactivate() error {
	if a.location == "" {
		return &acmeerr.IllegalArgumentError{Message: "authorization has no location"}
	}
	body, _, err := a.session.SignedPost(a.location, map[string]string{"status": "deactivated"})
	if err != nil {
		return err
	}
	return a.refreshFrom(body)
}
