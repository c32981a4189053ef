// Package dnsutil builds the DNS records ACME's dns-01 challenge requires,
// using github.com/miekg/dns for record construction (not resolution: this
// package never dials the network, it only builds wire-shaped records for a
// test fixture or for a caller's own DNS provider API). Grounded on
// cpu-acmeshell's use of miekg/dns for record parsing in its shell commands,
// redirected here toward dns-01 record construction.
package dnsutil

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/miekg/dns"
)

// TXTRecordName returns the owner name the dns-01 challenge TXT record must
// be published under for domain, per RFC 8555 §8.4.
func TXTRecordName(domain string) string {
	return "_acme-challenge." + dns.Fqdn(domain)
}

// TXTRecordValue computes the TXT record value dns-01 expects: the base64url
// (unpadded) SHA-256 digest of the key authorization, per RFC 8555 §8.4.
func TXTRecordValue(keyAuthorization string) string {
	digest := sha256.Sum256([]byte(keyAuthorization))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// ExpectedTXTRecord builds the *dns.TXT record a dns-01 validation server
// expects to resolve for domain, ready to hand to a test fixture (e.g.
// challtestsrv) or to be rendered into a provider API call.
func ExpectedTXTRecord(domain, keyAuthorization string) *dns.TXT {
	name := TXTRecordName(domain)
	return &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   name,
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    60,
		},
		Txt: []string{TXTRecordValue(keyAuthorization)},
	}
}
