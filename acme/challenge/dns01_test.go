package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jojo-liu/acme4j/acme/dnsutil"
	"github.com/jojo-liu/acme4j/acme/keys"
)

func TestDNS01Challenge_RecordNameAndDigest(t *testing.T) {
	signer := newTestSigner(t)
	req := &fakeRequester{signer: signer}

	c, err := newDNS01Challenge(req, jsonOf(t, map[string]any{
		"type":   TypeDNS01,
		"status": "pending",
		"token":  "IlirfxKKXAsHtmzK29Pj8A",
	}))
	require.NoError(t, err)

	assert.Equal(t, "_acme-challenge.example.com.", c.RecordName("example.com"))

	digest, err := c.DigestValue("example.com")
	require.NoError(t, err)

	keyAuth, err := keys.KeyAuthorization(signer, "IlirfxKKXAsHtmzK29Pj8A")
	require.NoError(t, err)
	assert.Equal(t, dnsutil.TXTRecordValue(keyAuth), digest)
}
