package challenge

import (
	"github.com/jojo-liu/acme4j/acme/dnsutil"
	"github.com/jojo-liu/acme4j/acme/jsonview"
)

// TypeDNS01 is the "dns-01" challenge type string.
const TypeDNS01 = "dns-01"

// DNS01Challenge proves domain control by publishing a TXT record under
// "_acme-challenge.<domain>". Grounded on the upstream Dns01Challenge, which
// adds Digest/RRName over the base challenge.
type DNS01Challenge struct {
	base
}

func newDNS01Challenge(requester Requester, data jsonview.JSON) (*DNS01Challenge, error) {
	b, err := newBase(TypeDNS01, requester, data)
	if err != nil {
		return nil, err
	}
	return &DNS01Challenge{base: b}, nil
}

// Token returns the challenge token the server chose.
func (c *DNS01Challenge) Token() string {
	return c.raw.Get("token").AsStringOr("")
}

// KeyAuthorization computes this challenge's key authorization.
func (c *DNS01Challenge) KeyAuthorization() (string, error) {
	return keyAuthorizationFor(c.requester, c.Token())
}

// RecordName returns the DNS owner name the TXT record must be published
// under, for the given domain.
func (c *DNS01Challenge) RecordName(domain string) string {
	return dnsutil.TXTRecordName(domain)
}

// DigestValue computes the TXT record's expected value for domain.
func (c *DNS01Challenge) DigestValue(domain string) (string, error) {
	keyAuth, err := c.KeyAuthorization()
	if err != nil {
		return "", err
	}
	return dnsutil.TXTRecordValue(keyAuth), nil
}

// PrepareResponse adds no extra fields: dns-01's response payload is "{}".
func (c *DNS01Challenge) PrepareResponse(*Builder) {}

func (c *DNS01Challenge) Trigger() error { return c.trigger(c) }
func (c *DNS01Challenge) Update() error  { return c.update(c) }
