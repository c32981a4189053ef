package provider

import (
	"github.com/jojo-liu/acme4j/acme"
	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/jsonview"
)

const (
	letsEncryptURI        = "acme://letsencrypt.org"
	letsEncryptStagingURI = "acme://letsencrypt.org/staging"

	letsEncryptProductionDirectory = "https://acme-v02.api.letsencrypt.org/directory"
	letsEncryptStagingDirectory    = "https://acme-staging-v02.api.letsencrypt.org/directory"
)

// LetsEncrypt accepts the "acme://letsencrypt.org" and
// "acme://letsencrypt.org/staging" pseudo-URIs, resolving them to the real
// production/staging directory endpoints. Modeled on the upstream acme4j
// LetsEncryptAcmeProvider/LetsEncryptStagingAcmeProvider pair that
// SPEC_FULL.md's provider section generalizes cpu-acmeshell's
// single-directory design into.
type LetsEncrypt struct{}

func init() {
	acme.RegisterProvider(LetsEncrypt{})
}

// Accepts reports whether uri is one of the two Let's Encrypt pseudo-URIs.
func (LetsEncrypt) Accepts(uri string) bool {
	return uri == letsEncryptURI || uri == letsEncryptStagingURI
}

// Directory performs an unsigned GET against the resolved Let's Encrypt
// directory endpoint, production or staging depending on uri.
func (LetsEncrypt) Directory(session *acme.Session, uri string) (jsonview.JSON, error) {
	target := letsEncryptProductionDirectory
	if uri == letsEncryptStagingURI {
		target = letsEncryptStagingDirectory
	}
	body, _, err := session.Get(target)
	return body, err
}

// CreateChallenge always defers to the built-in type registry: Let's
// Encrypt supports only the standard RFC 8555 challenge types.
func (LetsEncrypt) CreateChallenge(requester challenge.Requester, data jsonview.JSON) (challenge.Challenge, error) {
	return nil, nil
}
