package jsonview_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jojo-liu/acme4j/acme/jsonview"
)

const sampleDocument = `{
	"type": "http-01",
	"status": "valid",
	"url": "http://example.com/challenge/123",
	"validated": "2015-12-12T17:19:36.336785823Z",
	"externalAccountRequired": true,
	"caaIdentities": ["letsencrypt.org", "example.com"],
	"challenges": [{"type": "dns-01"}, {"type": "tls-alpn-01"}]
}`

func TestParse_TypedAccessors(t *testing.T) {
	doc, err := jsonview.Parse([]byte(sampleDocument))
	require.NoError(t, err)
	require.True(t, doc.IsPresent())

	assert.Equal(t, "http-01", doc.Get("type").AsStringOr(""))
	assert.Equal(t, "valid", doc.Get("status").AsStringOr(""))
	assert.Equal(t, "fallback", doc.Get("notPresent").AsStringOr("fallback"))

	u, ok := doc.Get("url").AsURL()
	require.True(t, ok)
	assert.Equal(t, "http://example.com/challenge/123", u.String())

	_, ok = doc.Get("notPresentUrl").AsURL()
	assert.False(t, ok)

	ts, ok := doc.Get("validated").AsInstant()
	require.True(t, ok)
	want, _ := time.Parse(time.RFC3339Nano, "2015-12-12T17:19:36.336785823Z")
	assert.True(t, want.Equal(ts))

	b, ok := doc.Get("externalAccountRequired").AsBool()
	require.True(t, ok)
	assert.True(t, b)

	assert.Equal(t, []string{"letsencrypt.org", "example.com"}, doc.Get("caaIdentities").AsStringArray())

	challenges := doc.Get("challenges").AsArray()
	require.Len(t, challenges, 2)
	assert.Equal(t, "dns-01", challenges[0].Get("type").AsStringOr(""))
}

func TestEmpty_IsSafeEverywhere(t *testing.T) {
	empty := jsonview.Empty()
	assert.False(t, empty.IsPresent())
	assert.Equal(t, "default", empty.Get("anything").AsStringOr("default"))
	assert.Nil(t, empty.AsArray())
	assert.Nil(t, empty.Keys())

	_, ok := empty.AsString()
	assert.False(t, ok)
}

func TestParse_EmptyInput(t *testing.T) {
	doc, err := jsonview.Parse(nil)
	require.NoError(t, err)
	assert.False(t, doc.IsPresent())
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := jsonview.Parse([]byte("not json"))
	assert.Error(t, err)
}

func TestAsEncodedBytes(t *testing.T) {
	doc := jsonview.Of("aGVsbG8") // base64url(no padding) for "hello"
	b, ok := doc.AsEncodedBytes()
	require.True(t, ok)
	assert.Equal(t, "hello", string(b))
}

func TestAsInt(t *testing.T) {
	doc, err := jsonview.Parse([]byte(`{"status": 403}`))
	require.NoError(t, err)
	n, ok := doc.Get("status").AsInt()
	require.True(t, ok)
	assert.Equal(t, 403, n)
}
