package acme

import (
	"crypto"
	"encoding/json"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/keys"
	"github.com/jojo-liu/acme4j/acme/status"
)

// Account is the server-owned Account resource (RFC 8555 §7.1.2). Grounded
// on cpu-acmeshell's resources.Account and acme/client/resources.go's
// CreateAccount/Rollover, widened from a single hardcoded ecdsa.PrivateKey
// field to any crypto.Signer per spec section 6.
type Account struct {
	session   *Session
	location  string
	status    status.Status
	contact   []string
	ordersURL string
	raw       jsonview.JSON
}

// NewAccount returns an unregistered Account bound to session. Call Create
// to register it with the server.
func NewAccount(session *Session, contact []string) *Account {
	return &Account{session: session, contact: contact}
}

// BindAccount fetches an already-registered account by its location URL.
func BindAccount(session *Session, location string) (*Account, error) {
	a := &Account{session: session, location: location}
	if err := a.Update(); err != nil {
		return nil, err
	}
	return a, nil
}

// Location returns the account's URL, empty until Create succeeds.
func (a *Account) Location() string { return a.location }

// Status returns the account's last-known status.
func (a *Account) Status() status.Status { return a.status }

// Contact returns the account's contact addresses.
func (a *Account) Contact() []string { return a.contact }

// OrdersURL returns the URL the server advertises for listing this
// account's orders, if any.
func (a *Account) OrdersURL() string { return a.ordersURL }

type newAccountRequest struct {
	Contact              []string `json:"contact,omitempty"`
	TermsOfServiceAgreed bool     `json:"termsOfServiceAgreed"`
}

// Create registers this account with the server via newAccount. Mirrors
// acme/client/resources.go's CreateAccount, but lets the caller decide
// termsOfServiceAgreed instead of hardcoding true.
func (a *Account) Create(termsOfServiceAgreed bool) error {
	if a.location != "" {
		return &acmeerr.IllegalArgumentError{Message: "account is already registered"}
	}
	newAccountURL, err := a.session.NewAccountURL()
	if err != nil {
		return err
	}

	body, header, err := a.session.SignedPostExpect(newAccountURL, newAccountRequest{
		Contact:              a.contact,
		TermsOfServiceAgreed: termsOfServiceAgreed,
	}, 200, 201)
	if err != nil {
		return err
	}

	location := header.Get("Location")
	if location == "" {
		return &acmeerr.ProtocolError{URL: newAccountURL, Message: "newAccount response carried no Location header"}
	}
	a.location = location
	a.session.SetKeyIdentifier(location)
	a.refreshFrom(body)
	return nil
}

// Update refreshes this account's fields from the server via POST-as-GET.
func (a *Account) Update() error {
	if a.location == "" {
		return &acmeerr.IllegalArgumentError{Message: "account has no location; call Create first"}
	}
	body, _, err := a.session.PostAsGet(a.location)
	if err != nil {
		return err
	}
	a.refreshFrom(body)
	return nil
}

func (a *Account) refreshFrom(body jsonview.JSON) {
	if !body.IsPresent() {
		return
	}
	a.raw = body
	a.status = status.Parse(body.Get("status").AsStringOr(""))
	a.contact = body.Get("contact").AsStringArray()
	a.ordersURL = body.Get("orders").AsStringOr("")
}

// Deactivate requests the server deactivate this account (RFC 8555 §7.3.6).
func (a *Account) Deactivate() error {
	if a.location == "" {
		return &acmeerr.IllegalArgumentError{Message: "account has no location"}
	}
	body, _, err := a.session.SignedPost(a.location, map[string]string{"status": "deactivated"})
	if err != nil {
		return err
	}
	a.refreshFrom(body)
	return nil
}

// Rollover changes this account's key to newKey via the keyChange protocol
// (RFC 8555 §7.3.5): an inner JWS signed by newKey (embedding newKey's JWK,
// carrying the account URL and the old key's JWK), wrapped in an outer JWS
// signed by the current key. Grounded on acme/client/resources.go's
// Rollover, generalized from ecdsa.PrivateKey to crypto.Signer.
func (a *Account) Rollover(newKey crypto.Signer) error {
	if a.location == "" {
		return &acmeerr.IllegalArgumentError{Message: "account has no location"}
	}

	keyChangeURL, err := a.session.KeyChangeURL()
	if err != nil {
		return err
	}

	oldJWK := keys.JWKForSigner(a.session.KeyPair())
	innerPayload, err := json.Marshal(struct {
		Account string          `json:"account"`
		OldKey  jose.JSONWebKey `json:"oldKey"`
	}{
		Account: a.location,
		OldKey:  oldJWK,
	})
	if err != nil {
		return &acmeerr.IllegalArgumentError{Message: err.Error()}
	}

	innerJWS, err := a.signInner(keyChangeURL, innerPayload, newKey)
	if err != nil {
		return err
	}

	var innerEnvelope any
	if err := json.Unmarshal(innerJWS, &innerEnvelope); err != nil {
		return &acmeerr.ProtocolError{URL: keyChangeURL, Message: err.Error()}
	}

	if _, _, err := a.session.SignedPost(keyChangeURL, innerEnvelope); err != nil {
		return err
	}

	a.session.SetKeyPair(newKey)
	return nil
}

// signInner builds the inner, embedded-JWK-signed JWS for a key rollover
// request, signed by the candidate new key rather than the session's
// active key.
func (a *Account) signInner(url string, payload []byte, newKey crypto.Signer) ([]byte, error) {
	alg, err := keys.SignatureAlgorithm(newKey)
	if err != nil {
		return nil, err
	}
	jwk := jose.JSONWebKey{Key: newKey, Algorithm: string(alg)}
	signerKey := jose.SigningKey{Key: &jwk, Algorithm: alg}

	signer, err := jose.NewSigner(signerKey, &jose.SignerOptions{
		EmbedJWK: true,
		ExtraHeaders: map[jose.HeaderKey]any{
			"url": url,
		},
	})
	if err != nil {
		return nil, err
	}
	signed, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}
	return []byte(signed.FullSerialize()), nil
}
