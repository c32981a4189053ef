package acme

import (
	"github.com/jojo-liu/acme4j/acme/acmeerr"
)

// Certificate is the server-owned Certificate resource (RFC 8555 §7.4.2).
// Unlike Order/Authorization/Challenge it carries no JSON body of its own:
// the server returns a PEM certificate chain, not a JSON document. Not
// present in cpu-acmeshell as a distinct type (the shell's getCert command
// downloads and prints the chain inline); this is new code in the
// teacher's idiom rather than an adaptation of a specific teacher file.
type Certificate struct {
	session *Session
	url     string
}

// BindCertificate returns a handle for the certificate at url, without
// downloading it yet.
func BindCertificate(session *Session, url string) *Certificate {
	return &Certificate{session: session, url: url}
}

// URL returns the certificate's download URL.
func (c *Certificate) URL() string { return c.url }

// Download fetches the PEM-encoded certificate chain via POST-as-GET, per
// spec section 4.5's download() operation. Only valid once the owning
// Order's status is status.Valid.
func (c *Certificate) Download() ([]byte, error) {
	if c.url == "" {
		return nil, &acmeerr.IllegalArgumentError{Message: "certificate has no URL"}
	}
	// The certificate endpoint returns application/pem-certificate-chain,
	// not JSON; PostAsGet's JSON parse is skipped by calling the connection
	// directly through the session's raw signed-post path and reading the
	// body as opaque bytes via the session's downloadRaw helper.
	return c.session.downloadRaw(c.url)
}

type revokeCertRequest struct {
	Certificate string `json:"certificate"`
	Reason      *int   `json:"reason,omitempty"`
}

// Revoke requests the server revoke this certificate, optionally supplying
// a CRL reason code (RFC 5280 §5.3.1), per RFC 8555 §7.6. Grounded on
// cpu-acmeshell's shell/commands revokeCert.
func (c *Certificate) Revoke(certDER []byte, reason *int) error {
	if c.url == "" {
		return &acmeerr.IllegalArgumentError{Message: "certificate has no URL"}
	}
	revokeURL, err := c.session.RevokeCertURL()
	if err != nil {
		return err
	}
	_, _, err = c.session.SignedPost(revokeURL, revokeCertRequest{
		Certificate: base64URLEncode(certDER),
		Reason:      reason,
	})
	return err
}
