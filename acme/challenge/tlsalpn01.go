package challenge

import (
	"crypto/sha256"

	"github.com/jojo-liu/acme4j/acme/jsonview"
)

// TypeTLSALPN01 is the "tls-alpn-01" challenge type string.
const TypeTLSALPN01 = "tls-alpn-01"

// acmeTLS1Extension is the OID ACME clients embed the key authorization
// digest under, as the id-pe-acmeIdentifier certificate extension
// (RFC 8737 §3).
var acmeTLS1Extension = []int{1, 3, 6, 1, 5, 5, 7, 1, 31}

// TLSALPN01Challenge proves domain control by presenting a self-signed
// certificate with the acme-tls/1 ALPN protocol and an id-pe-acmeIdentifier
// extension carrying the key authorization digest, per RFC 8737. Grounded
// on the upstream TlsAlpn01Challenge.
type TLSALPN01Challenge struct {
	base
}

func newTLSALPN01Challenge(requester Requester, data jsonview.JSON) (*TLSALPN01Challenge, error) {
	b, err := newBase(TypeTLSALPN01, requester, data)
	if err != nil {
		return nil, err
	}
	return &TLSALPN01Challenge{base: b}, nil
}

// Token returns the challenge token the server chose.
func (c *TLSALPN01Challenge) Token() string {
	return c.raw.Get("token").AsStringOr("")
}

// KeyAuthorization computes this challenge's key authorization.
func (c *TLSALPN01Challenge) KeyAuthorization() (string, error) {
	return keyAuthorizationFor(c.requester, c.Token())
}

// AcmeIdentifierExtensionOID returns the ASN.1 OID of the
// id-pe-acmeIdentifier certificate extension the validation server expects.
func (c *TLSALPN01Challenge) AcmeIdentifierExtensionOID() []int {
	return acmeTLS1Extension
}

// AcmeIdentifierDigest returns the SHA-256 digest of the key authorization
// to embed (DER-encoded OCTET STRING) in the id-pe-acmeIdentifier extension.
func (c *TLSALPN01Challenge) AcmeIdentifierDigest() ([32]byte, error) {
	keyAuth, err := c.KeyAuthorization()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256([]byte(keyAuth)), nil
}

// PrepareResponse adds no extra fields: tls-alpn-01's response payload is
// "{}", the proof is presented over TLS, never POSTed.
func (c *TLSALPN01Challenge) PrepareResponse(*Builder) {}

func (c *TLSALPN01Challenge) Trigger() error { return c.trigger(c) }
func (c *TLSALPN01Challenge) Update() error  { return c.update(c) }
