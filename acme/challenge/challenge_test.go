package challenge

import (
	"crypto"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/keys"
	"github.com/jojo-liu/acme4j/acme/status"
)

const testLocation = "https://example.com/acme/some-location"

// fakeRequester is a Requester test double, grounded on the upstream
// TestableConnectionProvider's sendRequest/sendSignedRequest/readJsonResponse
// hooks (ChallengeTest.java), collapsed to plain Go closures.
type fakeRequester struct {
	postAsGetURL string
	postAsGet    func(url string) (jsonview.JSON, http.Header, error)

	signedPostURL     string
	signedPostPayload any
	signedPost        func(url string, payload any) (jsonview.JSON, http.Header, error)

	signer crypto.Signer
}

func (f *fakeRequester) PostAsGet(url string) (jsonview.JSON, http.Header, error) {
	f.postAsGetURL = url
	if f.postAsGet == nil {
		return jsonview.Empty(), nil, nil
	}
	return f.postAsGet(url)
}

func (f *fakeRequester) SignedPost(url string, payload any) (jsonview.JSON, http.Header, error) {
	f.signedPostURL = url
	f.signedPostPayload = payload
	if f.signedPost == nil {
		return jsonview.Empty(), nil, nil
	}
	return f.signedPost(url, payload)
}

func (f *fakeRequester) AccountSigner() crypto.Signer { return f.signer }

func jsonOf(t *testing.T, fields map[string]any) jsonview.JSON {
	t.Helper()
	return jsonview.Of(toAny(fields))
}

// toAny recursively converts map[string]any/[]any literals the way
// encoding/json.Unmarshal into `any` would, so jsonview.Of behaves exactly
// as it would on a real decoded response.
func toAny(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = toAny(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = toAny(val)
		}
		return out
	default:
		return v
	}
}

func newTestSigner(t *testing.T) crypto.Signer {
	t.Helper()
	signer, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)
	return signer
}

// testChallenge: bind restores type/status/location/token (ChallengeTest.testChallenge).
func TestBind_RestoresFields(t *testing.T) {
	req := &fakeRequester{
		postAsGet: func(url string) (jsonview.JSON, http.Header, error) {
			return jsonOf(t, map[string]any{
				"type":   TypeHTTP01,
				"status": "valid",
				"url":    testLocation,
				"token":  "IlirfxKKXAsHtmzK29Pj8A",
			}), http.Header{}, nil
		},
	}

	c, err := Bind(req, testLocation)
	require.NoError(t, err)
	require.Equal(t, testLocation, req.postAsGetURL)

	http01, ok := c.(*HTTP01Challenge)
	require.True(t, ok)
	assert.Equal(t, TypeHTTP01, http01.Type())
	assert.Equal(t, status.Valid, http01.Status())
	assert.Equal(t, testLocation, http01.Location())
	assert.Equal(t, "IlirfxKKXAsHtmzK29Pj8A", http01.Token())
}

// testBadBind: Bind(nil, url) and Bind(req, "") are caller contract
// violations, not network conditions, and must not panic on the
// nil-interface dereference.
func TestBind_NilRequesterOrEmptyURL(t *testing.T) {
	_, err := Bind(nil, testLocation)
	require.Error(t, err)
	var illegalArg *acmeerr.IllegalArgumentError
	assert.ErrorAs(t, err, &illegalArg)

	_, err = Bind(&fakeRequester{}, "")
	require.Error(t, err)
	assert.ErrorAs(t, err, &illegalArg)
}

// testUnmarshal: a generic challenge's fields, validated timestamp, and
// problem all decode correctly.
func TestFromJSON_Unmarshal(t *testing.T) {
	req := &fakeRequester{}
	data := jsonOf(t, map[string]any{
		"type":      "generic-01",
		"status":    "invalid",
		"url":       "http://example.com/challenge/123",
		"validated": "2015-12-12T17:19:36.336785823Z",
		"error": map[string]any{
			"type":     "urn:ietf:params:acme:error:incorrectResponse",
			"detail":   "bad token",
			"instance": "http://example.com/documents/faq.html",
		},
	})

	c, err := FromJSON(req, data)
	require.NoError(t, err)

	generic, ok := c.(*GenericChallenge)
	require.True(t, ok)
	assert.Equal(t, "generic-01", generic.Type())
	assert.Equal(t, status.Invalid, generic.Status())
	assert.Equal(t, "http://example.com/challenge/123", generic.Location())

	require.NotNil(t, generic.Validated())
	wantValidated, err := time.Parse(time.RFC3339Nano, "2015-12-12T17:19:36.336785823Z")
	require.NoError(t, err)
	assert.True(t, wantValidated.Equal(*generic.Validated()))

	require.NotNil(t, generic.Error())
	assert.Equal(t, "urn:ietf:params:acme:error:incorrectResponse", generic.Error().TypeURI())
	assert.Equal(t, "bad token", generic.Error().Detail)
	require.NotNil(t, generic.Error().Instance)
	assert.Equal(t, "http://example.com/documents/faq.html", generic.Error().Instance.String())
}

// testRespond: a generic challenge's PrepareResponse adds nothing.
func TestPrepareResponse_Empty(t *testing.T) {
	c, err := newGenericChallenge(&fakeRequester{}, jsonOf(t, map[string]any{"type": "generic-01"}))
	require.NoError(t, err)

	b := NewBuilder()
	c.PrepareResponse(b)
	assert.Empty(t, b.ToMap())
}

// testNotAcceptable: binding a dns-01 document as an http-01 variant fails.
func TestNewHTTP01Challenge_TypeMismatch(t *testing.T) {
	_, err := newHTTP01Challenge(&fakeRequester{}, jsonOf(t, map[string]any{
		"type":   TypeDNS01,
		"status": "pending",
	}))
	require.Error(t, err)
	var mismatch *typeMismatchError
	assert.ErrorAs(t, err, &mismatch)
	var protocolErr *acmeerr.ProtocolError
	assert.ErrorAs(t, err, &protocolErr)
}

// testTrigger: triggering posts an empty payload and applies the response.
func TestTrigger(t *testing.T) {
	req := &fakeRequester{
		signedPost: func(url string, payload any) (jsonview.JSON, http.Header, error) {
			assert.Equal(t, testLocation, url)
			b, ok := payload.(map[string]any)
			require.True(t, ok)
			assert.Empty(t, b)
			return jsonOf(t, map[string]any{
				"type":   TypeHTTP01,
				"status": "pending",
				"url":    testLocation,
				"token":  "IlirfxKKXAsHtmzK29Pj8A",
			}), http.Header{}, nil
		},
	}

	c, err := newHTTP01Challenge(req, jsonOf(t, map[string]any{
		"type":   TypeHTTP01,
		"status": "pending",
		"url":    testLocation,
		"token":  "IlirfxKKXAsHtmzK29Pj8A",
	}))
	require.NoError(t, err)

	require.NoError(t, c.Trigger())
	assert.Equal(t, status.Pending, c.Status())
	assert.Equal(t, testLocation, c.Location())
}

// testUpdate: update refreshes status from the server.
func TestUpdate(t *testing.T) {
	req := &fakeRequester{
		postAsGet: func(url string) (jsonview.JSON, http.Header, error) {
			return jsonOf(t, map[string]any{
				"type":   TypeHTTP01,
				"status": "valid",
				"url":    testLocation,
				"token":  "IlirfxKKXAsHtmzK29Pj8A",
			}), http.Header{}, nil
		},
	}

	c, err := newHTTP01Challenge(req, jsonOf(t, map[string]any{
		"type":   TypeHTTP01,
		"status": "pending",
		"url":    testLocation,
		"token":  "IlirfxKKXAsHtmzK29Pj8A",
	}))
	require.NoError(t, err)

	require.NoError(t, c.Update())
	assert.Equal(t, status.Valid, c.Status())
	assert.Equal(t, testLocation, c.Location())
}

// testUpdateRetryAfter: a Retry-After header surfaces as an error, but the
// challenge's fields are still refreshed from the body.
func TestUpdate_RetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "30")

	req := &fakeRequester{
		postAsGet: func(url string) (jsonview.JSON, http.Header, error) {
			return jsonOf(t, map[string]any{
				"type":   TypeHTTP01,
				"status": "valid",
				"url":    testLocation,
				"token":  "IlirfxKKXAsHtmzK29Pj8A",
			}), header, nil
		},
	}

	c, err := newHTTP01Challenge(req, jsonOf(t, map[string]any{
		"type":   TypeHTTP01,
		"status": "pending",
		"url":    testLocation,
		"token":  "IlirfxKKXAsHtmzK29Pj8A",
	}))
	require.NoError(t, err)

	err = c.Update()
	require.Error(t, err)
	var retryAfter *acmeerr.RetryAfterError
	require.ErrorAs(t, err, &retryAfter)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), retryAfter.RetryAfter, 2*time.Second)

	assert.Equal(t, status.Valid, c.Status())
}

// testNullChallenge: a challenge with no requester refuses to Trigger/Update.
func TestTrigger_NoRequester(t *testing.T) {
	c, err := newGenericChallenge(nil, jsonOf(t, map[string]any{
		"type":   "generic-01",
		"status": "pending",
		"url":    testLocation,
	}))
	require.NoError(t, err)

	err = c.Trigger()
	require.Error(t, err)
	var invalid *invalidStateError
	assert.ErrorAs(t, err, &invalid)
}

// testBadBind/testBadUnmarshall: a document with no recognizable "type"
// field is rejected, not silently accepted as a generic challenge.
func TestFromJSON_MissingType(t *testing.T) {
	_, err := FromJSON(&fakeRequester{}, jsonOf(t, map[string]any{
		"status": "valid",
	}))
	require.Error(t, err)
	var mismatch *typeMismatchError
	assert.ErrorAs(t, err, &mismatch)
	var protocolErr *acmeerr.ProtocolError
	assert.ErrorAs(t, err, &protocolErr)
}

func TestKeyAuthorization(t *testing.T) {
	signer := newTestSigner(t)
	req := &fakeRequester{signer: signer}

	c, err := newHTTP01Challenge(req, jsonOf(t, map[string]any{
		"type":   TypeHTTP01,
		"status": "pending",
		"url":    testLocation,
		"token":  "IlirfxKKXAsHtmzK29Pj8A",
	}))
	require.NoError(t, err)

	keyAuth, err := c.KeyAuthorization()
	require.NoError(t, err)

	want, err := keys.KeyAuthorization(signer, "IlirfxKKXAsHtmzK29Pj8A")
	require.NoError(t, err)
	assert.Equal(t, want, keyAuth)
}
