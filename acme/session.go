// Package acme implements the core of an RFC 8555 ACME client: the
// session and directory cache, the signed-request transport, and the
// resource state machines (Account, Order, Authorization, Certificate).
// Grounded on cpu-acmeshell's acme/client package, restructured around a
// single long-lived Session the way upstream acme4j's Session/Connection
// pair works, since Go's lack of circular imports rules out acme4j's
// original Session<->Challenge<->Connection web of references.
package acme

import (
	"crypto"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/jsonview"
)

// directoryTTL is the default cache lifetime for a fetched directory, per
// spec section 4.1.
const directoryTTL = time.Hour

// directorySnapshot is the whole-object unit the directory cache swaps in
// atomically, grounded on upstream acme4j Session.java's directoryJson/
// resourceMap/metadata triple being replaced together rather than merged
// field-by-field (see SPEC_FULL.md §4's "supplemented features").
type directorySnapshot struct {
	raw       jsonview.JSON
	resources map[Resource]string
	metadata  Metadata
	expires   time.Time
}

// Session is the long-lived handle an application holds: the account key
// pair, key identifier, last nonce, locale, and cached directory. Safe for
// concurrent use; see spec section 5.
type Session struct {
	serverURI string
	conn      *Connection
	provider  Provider

	keyMu  sync.RWMutex
	key    crypto.Signer
	kid    string
	locale string

	nonceMu sync.Mutex
	nonce   string

	dirMu     sync.Mutex
	directory atomic.Pointer[directorySnapshot]
}

// SessionConfig configures a new Session. Modeled directly on
// cpu-acmeshell's client.ClientConfig and its normalize() step.
type SessionConfig struct {
	// ServerURI is the ACME server's directory URL, or a provider pseudo-URI
	// like "acme://pebble". Mandatory.
	ServerURI string
	// KeyPair is the account key pair to sign requests with. Mandatory.
	KeyPair crypto.Signer
	// KeyIdentifier is the account URL, if already known from a previous
	// session (skips newAccount registration). Optional.
	KeyIdentifier string
	// Locale is the Accept-Language value sent with every request. Defaults
	// to "en-us", matching the teacher's net package default.
	Locale string
	// HTTPClient is the underlying transport. A nil value uses
	// http.DefaultClient.
	HTTPClient *http.Client
	// Verbose gates diagnostic request/response logging via log.Printf.
	Verbose bool
	// Registry resolves ServerURI to a Provider. A nil value uses
	// DefaultRegistry, per spec section 9's preference for explicit
	// injection over a hardwired singleton.
	Registry *Registry
}

func (conf *SessionConfig) normalize() error {
	conf.ServerURI = strings.TrimSpace(conf.ServerURI)
	conf.Locale = strings.TrimSpace(conf.Locale)

	if conf.ServerURI == "" {
		return &acmeerr.IllegalArgumentError{Message: "SessionConfig.ServerURI must not be empty"}
	}
	if conf.KeyPair == nil {
		return &acmeerr.IllegalArgumentError{Message: "SessionConfig.KeyPair must not be nil"}
	}
	if conf.Locale == "" {
		conf.Locale = "en-us"
	}
	return nil
}

// NewSession resolves config.ServerURI against the registry (DefaultRegistry
// unless config.Registry is set), satisfying spec section 8 property 7:
// exactly one provider must accept the URI, or construction fails naming
// the candidates (zero or many).
func NewSession(config SessionConfig) (*Session, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}

	registry := config.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	provider, err := registry.Resolve(config.ServerURI)
	if err != nil {
		return nil, err
	}

	s := &Session{
		serverURI: config.ServerURI,
		conn:      NewConnection(config.HTTPClient),
		provider:  provider,
		key:       config.KeyPair,
		kid:       config.KeyIdentifier,
		locale:    config.Locale,
	}
	s.conn.SetVerbose(config.Verbose)
	return s, nil
}

// ServerURI returns the server URI this session was constructed with.
func (s *Session) ServerURI() string { return s.serverURI }

// Provider returns the provider resolved for this session's server URI.
func (s *Session) Provider() Provider { return s.provider }

// KeyPair returns the account signer currently in use.
func (s *Session) KeyPair() crypto.Signer {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	return s.key
}

// SetKeyPair replaces the account signer, used for account key rollover
// (Account.Rollover) after the server has accepted the new key.
func (s *Session) SetKeyPair(key crypto.Signer) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	s.key = key
}

// KeyIdentifier returns the account URL used as the JWS kid header, or ""
// before the account is registered.
func (s *Session) KeyIdentifier() string {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	return s.kid
}

// SetKeyIdentifier records the account URL returned by newAccount.
func (s *Session) SetKeyIdentifier(kid string) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	s.kid = kid
}

// Locale returns the Accept-Language value sent with every request.
func (s *Session) Locale() string {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	return s.locale
}

// SetLocale changes the Accept-Language value.
func (s *Session) SetLocale(locale string) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	s.locale = locale
}

// updateNonce records the server's most recent Replay-Nonce. A Session's
// nonce is single-use (spec section 4.3): an empty header value clears it,
// forcing the next signed request to fetch a fresh one.
func (s *Session) updateNonce(headerValue string) {
	s.nonceMu.Lock()
	defer s.nonceMu.Unlock()
	s.nonce = headerValue
}

// Nonce returns a nonce to sign with, fetching one from the newNonce
// endpoint if none is cached. Implements jose.NonceSource indirectly via
// Connection.sign's staticNonceSource; exported so Connection (and tests)
// can drive it directly.
func (s *Session) Nonce(conn *Connection) (string, error) {
	s.nonceMu.Lock()
	n := s.nonce
	s.nonceMu.Unlock()
	if n != "" {
		return n, nil
	}
	return s.refreshNonce(conn)
}

func (s *Session) refreshNonce(conn *Connection) (string, error) {
	nonceURL, err := s.resourceURL(NewNonce)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodHead, nonceURL, nil)
	if err != nil {
		return "", &acmeerr.IllegalArgumentError{Message: err.Error()}
	}
	_, resp, _, err := conn.do(req, s.Locale())
	if err != nil {
		return "", err
	}
	nonce := resp.Header.Get(replayNonceHeader)
	if nonce == "" {
		return "", &acmeerr.ProtocolError{URL: nonceURL, Message: "newNonce response carried no Replay-Nonce header"}
	}
	s.updateNonce(nonce)
	return nonce, nil
}

// forceRefreshNonce discards any cached nonce and fetches a new one,
// used for the single bad-nonce retry spec section 4.3 mandates.
func (s *Session) forceRefreshNonce(conn *Connection) {
	s.updateNonce("")
	_, _ = s.refreshNonce(conn)
}

// resourceURL fetches the directory (if the cache is empty or expired) and
// returns the URL advertised for resource. Open-question resolution from
// SPEC_FULL.md §4: a directory missing this resource's key is a
// ProtocolError raised here, at point of use, not at fetch time.
func (s *Session) resourceURL(resource Resource) (string, error) {
	snap, err := s.loadDirectory()
	if err != nil {
		return "", err
	}
	url, ok := snap.resources[resource]
	if !ok || url == "" {
		return "", &acmeerr.ProtocolError{
			URL:     s.serverURI,
			Message: fmt.Sprintf("directory does not advertise a %q resource", resource.DirectoryKey()),
		}
	}
	return url, nil
}

// Metadata returns the directory's meta object, fetching the directory if
// needed. Never nil; an empty Metadata is returned if the server omits
// "meta" entirely.
func (s *Session) Metadata() (Metadata, error) {
	snap, err := s.loadDirectory()
	if err != nil {
		return Metadata{}, err
	}
	return snap.metadata, nil
}

// loadDirectory returns the current snapshot, refetching under the
// session's directory mutex if absent or expired. Readers that observe
// a live snapshot never take the mutex at all, only the atomic load.
func (s *Session) loadDirectory() (*directorySnapshot, error) {
	if snap := s.directory.Load(); snap != nil && time.Now().Before(snap.expires) {
		return snap, nil
	}

	s.dirMu.Lock()
	defer s.dirMu.Unlock()

	// Another goroutine may have refreshed it while we waited for the lock.
	if snap := s.directory.Load(); snap != nil && time.Now().Before(snap.expires) {
		return snap, nil
	}

	raw, err := s.provider.Directory(s, s.serverURI)
	if err != nil {
		return nil, err
	}

	resources := make(map[Resource]string, len(resourceDirectoryKeys))
	for r, key := range resourceDirectoryKeys {
		if url, ok := raw.Get(key).AsString(); ok {
			resources[r] = url
		}
	}

	snap := &directorySnapshot{
		raw:       raw,
		resources: resources,
		metadata:  parseMetadata(raw),
		expires:   time.Now().Add(directoryTTL),
	}
	s.directory.Store(snap)
	return snap, nil
}

// CreateChallenge delegates to the session's provider, falling back to the
// built-in challenge type registry when the provider declines to specialize
// (returns a nil Challenge and nil error). Per spec section 4.1, an
// unrecognized type with no fallback available is a ProtocolError; the
// built-in registry's generic fallback means that case is effectively
// unreachable through the default provider.
func (s *Session) CreateChallenge(data jsonview.JSON) (challenge.Challenge, error) {
	if s.provider != nil {
		c, err := s.provider.CreateChallenge(s, data)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return challenge.FromJSON(s, data)
}

// PostAsGet and SignedPost below satisfy challenge.Requester structurally:
// *Session never imports acme/challenge's Requester type by name, it just
// happens to implement the same method set.

// PostAsGet performs an authenticated GET: a signed POST with an empty
// payload.
func (s *Session) PostAsGet(url string) (jsonview.JSON, http.Header, error) {
	return s.conn.PostAsGet(url, s)
}

// SignedPost performs a signed POST of payload to url, accepting any 2xx
// response.
func (s *Session) SignedPost(url string, payload any) (jsonview.JSON, http.Header, error) {
	return s.conn.signedPost(url, payload, s)
}

// SignedPostExpect performs a signed POST restricted to allowedStatuses,
// used by Account.Create and NewOrder, which require a specific status
// (e.g. 201 Created for newOrder).
func (s *Session) SignedPostExpect(url string, payload any, allowedStatuses ...int) (jsonview.JSON, http.Header, error) {
	return s.conn.signedPost(url, payload, s, allowedStatuses...)
}

// Get performs an unsigned GET, used only for fetching the directory.
func (s *Session) Get(url string) (jsonview.JSON, http.Header, error) {
	return s.conn.Get(url, s)
}

// downloadRaw performs a signed POST-as-GET and returns the raw response
// bytes instead of a parsed JSON view, for the certificate endpoint's
// PEM chain response.
func (s *Session) downloadRaw(url string) ([]byte, error) {
	body, _, err := s.conn.signedPostRaw(url, s)
	return body, err
}

// AccountSigner returns the session's account signer, satisfying
// challenge.Requester for variants that compute key authorizations.
func (s *Session) AccountSigner() crypto.Signer {
	return s.KeyPair()
}

// NewOrderURL, NewAccountURL, NewAuthzURL, RevokeCertURL, KeyChangeURL are
// thin Resource-specific wrappers over resourceURL for callers (Account,
// Order, Authorization, Certificate) that shouldn't need to know the
// Resource enum's zero-value ordering.
func (s *Session) NewOrderURL() (string, error)   { return s.resourceURL(NewOrderResource) }
func (s *Session) NewAccountURL() (string, error) { return s.resourceURL(NewAccountResource) }
func (s *Session) NewAuthzURL() (string, error)   { return s.resourceURL(NewAuthz) }
func (s *Session) RevokeCertURL() (string, error) { return s.resourceURL(RevokeCert) }
func (s *Session) KeyChangeURL() (string, error)  { return s.resourceURL(KeyChange) }
