package acme

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
)

// NewCSR builds a DER-encoded PKCS#10 certificate signing request for the
// given domain names, signed by key. The key SHOULD NOT be an account key
// (RFC 8555 §11.1); callers typically generate a fresh one via
// keys.NewSigner. Grounded on acme/client/csr.go's CSR helper, trimmed to
// the DER bytes Order.Finalize consumes.
func NewCSR(domains []string, commonName string, key crypto.Signer) ([]byte, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("acme: NewCSR requires at least one domain")
	}
	if commonName == "" {
		commonName = domains[0]
	}
	template := x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: commonName},
		DNSNames: domains,
	}
	return x509.CreateCertificateRequest(rand.Reader, &template, key)
}

// base64URLEncode is the unpadded base64url encoding RFC 8555 uses
// throughout the wire protocol (DER certificates in revocation requests,
// JWS segments).
func base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
