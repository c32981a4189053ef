package acme

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/keys"
	"github.com/jojo-liu/acme4j/acme/problem"
)

const (
	libraryVersion = "0.1.0"
	userAgentBase  = "acme4j-go"
)

// Connection performs the three HTTP exchange shapes spec section 4.3
// defines: unsigned GET, signed POST, and POST-as-GET. It holds no
// session-scoped state itself; every method takes the *Session whose key,
// nonce, locale, and key identifier govern the exchange. Grounded on
// cpu-acmeshell's net.ACMENet (the underlying http.Client wrapper) fused
// with acme/client/jws.go's JWS construction and acme/client/nonce.go's
// nonce pump, since spec.md merges all three into one Connection type.
type Connection struct {
	httpClient *http.Client
	verbose    bool
}

// NewConnection wraps an *http.Client for ACME exchanges. A nil httpClient
// uses http.DefaultClient.
func NewConnection(httpClient *http.Client) *Connection {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Connection{httpClient: httpClient}
}

// SetVerbose toggles request/response diagnostic logging via log.Printf,
// mirroring cpu-acmeshell's OutputOptions.PrintRequests/PrintResponses gate.
func (c *Connection) SetVerbose(v bool) { c.verbose = v }

func (c *Connection) userAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s)", userAgentBase, libraryVersion, runtime.GOOS, runtime.GOARCH)
}

// do performs req, logging it (with a correlation id) when verbose, and
// returns the parsed JSON body alongside the raw headers.
func (c *Connection) do(req *http.Request, locale string) (jsonview.JSON, *http.Response, []byte, error) {
	reqID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent())
	if locale != "" {
		req.Header.Set("Accept-Language", locale)
	}

	if c.verbose {
		log.Printf("acme[%s]: %s %s", reqID, req.Method, req.URL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return jsonview.Empty(), nil, nil, &acmeerr.NetworkError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return jsonview.Empty(), resp, nil, &acmeerr.NetworkError{URL: req.URL.String(), Err: err}
	}

	if c.verbose {
		log.Printf("acme[%s]: -> %d (%d bytes)", reqID, resp.StatusCode, len(respBody))
	}

	// A response body that isn't JSON (e.g. a PEM certificate chain from
	// the certificate endpoint) parses to an empty view rather than an
	// error here; callers needing the raw bytes use signedPostRaw, callers
	// expecting JSON receive the empty view and leave their fields as they
	// were.
	body, _ := jsonview.Parse(respBody)
	return body, resp, respBody, nil
}

// Get performs an unsigned GET, used only for the directory per spec
// section 4.3. It still updates the session's nonce if the response
// carries Replay-Nonce.
func (c *Connection) Get(rawURL string, session *Session) (jsonview.JSON, http.Header, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return jsonview.Empty(), nil, &acmeerr.IllegalArgumentError{Message: err.Error()}
	}
	body, resp, respBody, err := c.do(req, session.Locale())
	if err != nil {
		return jsonview.Empty(), nil, err
	}
	session.updateNonce(resp.Header.Get(replayNonceHeader))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return jsonview.Empty(), resp.Header, c.errorFor(rawURL, resp, respBody, body)
	}
	return body, resp.Header, nil
}

// signedPost builds and sends a JWS-signed POST, retrying exactly once on a
// bad-nonce problem. A non-empty allowedStatuses lists the only status codes
// that count as success; an empty allowedStatuses accepts any 2xx.
func (c *Connection) signedPost(rawURL string, payload any, session *Session, allowedStatuses ...int) (jsonview.JSON, http.Header, error) {
	body, header, err := c.signedPostOnce(rawURL, payload, session, allowedStatuses...)
	var badNonce *acmeerr.BadNonceError
	if errors.As(err, &badNonce) {
		session.forceRefreshNonce(c)
		return c.signedPostOnce(rawURL, payload, session, allowedStatuses...)
	}
	return body, header, err
}

func (c *Connection) signedPostOnce(rawURL string, payload any, session *Session, allowedStatuses ...int) (jsonview.JSON, http.Header, error) {
	claims, err := json.Marshal(payload)
	if err != nil {
		return jsonview.Empty(), nil, &acmeerr.IllegalArgumentError{Message: err.Error()}
	}

	jws, err := c.sign(rawURL, claims, session)
	if err != nil {
		return jsonview.Empty(), nil, err
	}

	req, err := http.NewRequest(http.MethodPost, rawURL, bytes.NewReader(jws))
	if err != nil {
		return jsonview.Empty(), nil, &acmeerr.IllegalArgumentError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/jose+json")

	respBodyView, resp, rawRespBody, err := c.do(req, session.Locale())
	if err != nil {
		return jsonview.Empty(), nil, err
	}
	session.updateNonce(resp.Header.Get(replayNonceHeader))

	if !statusAllowed(resp.StatusCode, allowedStatuses) {
		return jsonview.Empty(), resp.Header, c.errorFor(rawURL, resp, rawRespBody, respBodyView)
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if t, ok := parseRetryAfterHeader(retryAfter); ok {
			return respBodyView, resp.Header, &acmeerr.RetryAfterError{URL: rawURL, RetryAfter: t}
		}
	}
	return respBodyView, resp.Header, nil
}

// sign builds the flattened JWS spec section 6 requires: protected header
// {alg, nonce, url, jwk|kid}, signed with the session's active key. jwk is
// used until a key identifier is known, kid afterward, mirroring
// acme/client/jws.go's signEmbedded/signKeyID split.
func (c *Connection) sign(rawURL string, claims []byte, session *Session) ([]byte, error) {
	nonce, err := session.Nonce(c)
	if err != nil {
		return nil, err
	}

	signerKey, embedJWK, err := c.signingKeyFor(session)
	if err != nil {
		return nil, err
	}

	opts := &jose.SignerOptions{
		NonceSource: staticNonceSource{nonce},
		EmbedJWK:    embedJWK,
		ExtraHeaders: map[jose.HeaderKey]any{
			"url": rawURL,
		},
	}

	signer, err := jose.NewSigner(signerKey, opts)
	if err != nil {
		return nil, fmt.Errorf("acme: building JWS signer: %w", err)
	}

	signed, err := signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("acme: signing JWS: %w", err)
	}
	return []byte(signed.FullSerialize()), nil
}

func (c *Connection) signingKeyFor(session *Session) (jose.SigningKey, bool, error) {
	kid := session.KeyIdentifier()
	if kid == "" {
		// No key identifier yet (pre-registration, or a cert-key-signed
		// revocation): embed the JWK rather than referencing a kid, per
		// spec section 6. jose embeds the public key derived from this
		// private signer and uses the signer itself to produce the
		// signature.
		alg, err := keys.SignatureAlgorithm(session.KeyPair())
		if err != nil {
			return jose.SigningKey{}, false, err
		}
		jwk := jose.JSONWebKey{Key: session.KeyPair(), Algorithm: string(alg)}
		return jose.SigningKey{Key: &jwk, Algorithm: alg}, true, nil
	}
	signerKey, err := keys.SigningKeyForSigner(session.KeyPair(), kid)
	return signerKey, false, err
}

// PostAsGet performs a signed POST with an empty payload: an authenticated
// GET, per spec section 4.3 item 3.
func (c *Connection) PostAsGet(rawURL string, session *Session) (jsonview.JSON, http.Header, error) {
	return c.signedPost(rawURL, struct{}{}, session)
}

// signedPostRaw is PostAsGet's raw-bytes counterpart, used by
// Certificate.Download to fetch a PEM certificate chain rather than a JSON
// document.
func (c *Connection) signedPostRaw(rawURL string, session *Session) ([]byte, http.Header, error) {
	claims, _ := json.Marshal(struct{}{})
	jws, err := c.sign(rawURL, claims, session)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, rawURL, bytes.NewReader(jws))
	if err != nil {
		return nil, nil, &acmeerr.IllegalArgumentError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/jose+json")

	bodyView, resp, rawBody, err := c.do(req, session.Locale())
	if err != nil {
		return nil, nil, err
	}
	session.updateNonce(resp.Header.Get(replayNonceHeader))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.Header, c.errorFor(rawURL, resp, rawBody, bodyView)
	}
	return rawBody, resp.Header, nil
}

func (c *Connection) errorFor(rawURL string, resp *http.Response, rawBody []byte, parsed jsonview.JSON) error {
	ct := resp.Header.Get("Content-Type")
	if ct == "application/problem+json" || (len(rawBody) > 0 && parsed.IsPresent()) {
		p := problem.Parse(parsed)
		if p.Is("userActionRequired") {
			return acmeerr.NewUserActionRequiredError(p)
		}
		serverErr := &acmeerr.ServerError{URL: rawURL, StatusCode: resp.StatusCode, Problem: p}
		if serverErr.IsBadNonce() {
			return &acmeerr.BadNonceError{ServerError: serverErr}
		}
		return serverErr
	}
	return &acmeerr.ProtocolError{
		URL:     rawURL,
		Message: fmt.Sprintf("unexpected HTTP status %d with no problem document", resp.StatusCode),
	}
}

func statusAllowed(status int, allowed []int) bool {
	if len(allowed) == 0 {
		return status >= 200 && status < 300
	}
	for _, a := range allowed {
		if a == status {
			return true
		}
	}
	return false
}

// staticNonceSource adapts a single pre-fetched nonce to jose.NonceSource.
// Session.Nonce already performs the fetch-then-consume dance cpu-acmeshell's
// Client.Nonce does, so by the time go-jose asks for a nonce it's just
// handing back the value already retrieved.
type staticNonceSource struct{ nonce string }

func (s staticNonceSource) Nonce() (string, error) { return s.nonce, nil }

// parseRetryAfterHeader parses an HTTP Retry-After value, RFC 7231 §7.1.3:
// either an HTTP-date or a delta-seconds integer.
func parseRetryAfterHeader(header string) (time.Time, bool) {
	if t, err := http.ParseTime(header); err == nil {
		return t, true
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return time.Now().Add(secs), true
	}
	return time.Time{}, false
}

