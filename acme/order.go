package acme

import (
	"encoding/base64"

	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/status"
)

// Order is the server-owned Order resource (RFC 8555 §7.1.3). Grounded on
// cpu-acmeshell's resources.Order plus acme/client/resources.go's
// CreateOrder/UpdateOrder, folded into the update()/finalize() shape spec
// section 4.5 specifies.
type Order struct {
	session        *Session
	location       string
	status         status.Status
	identifiers    []status.Identifier
	authzURLs      []string
	finalizeURL    string
	certificateURL string
	raw            jsonview.JSON
}

// Location returns the order's URL, as set by NewOrder or BindOrder.
func (o *Order) Location() string { return o.location }

// Status returns the order's last-known status.
func (o *Order) Status() status.Status { return o.status }

// Identifiers returns the identifiers this order covers.
func (o *Order) Identifiers() []status.Identifier { return o.identifiers }

// AuthorizationURLs returns the authorization URLs the server created for
// this order's identifiers.
func (o *Order) AuthorizationURLs() []string { return o.authzURLs }

// FinalizeURL returns the URL Finalize posts the CSR to.
func (o *Order) FinalizeURL() string { return o.finalizeURL }

// CertificateURL returns the URL Certificate.Download fetches from, only
// populated once Status() is status.Valid.
func (o *Order) CertificateURL() string { return o.certificateURL }

type newOrderRequest struct {
	Identifiers []status.Identifier `json:"identifiers"`
}

// NewOrder creates a new Order for the given identifiers, per RFC 8555
// §7.4, grounded on acme/client/resources.go's CreateOrder.
func NewOrder(session *Session, identifiers ...status.Identifier) (*Order, error) {
	newOrderURL, err := session.NewOrderURL()
	if err != nil {
		return nil, err
	}
	body, header, err := session.SignedPostExpect(newOrderURL, newOrderRequest{Identifiers: identifiers}, 201)
	if err != nil {
		return nil, err
	}
	location := header.Get("Location")
	if location == "" {
		return nil, &acmeerr.ProtocolError{URL: newOrderURL, Message: "newOrder response carried no Location header"}
	}
	o := &Order{session: session, location: location}
	o.refreshFrom(body)
	return o, nil
}

// BindOrder fetches an existing order by its location URL. On a Retry-After
// error the returned Order still reflects the response body, matching
// Update's own refresh-before-return behavior.
func BindOrder(session *Session, location string) (*Order, error) {
	o := &Order{session: session, location: location}
	return o, o.Update()
}

// Update refreshes this order's fields via POST-as-GET, per spec section
// 4.5's update() polling semantics.
func (o *Order) Update() error {
	if o.location == "" {
		return &acmeerr.IllegalArgumentError{Message: "order has no location"}
	}
	body, _, err := o.session.PostAsGet(o.location)
	o.refreshFrom(body)
	return err
}

func (o *Order) refreshFrom(body jsonview.JSON) {
	if !body.IsPresent() {
		return
	}
	o.raw = body
	o.status = status.Parse(body.Get("status").AsStringOr(""))
	o.finalizeURL = body.Get("finalize").AsStringOr("")
	o.certificateURL = body.Get("certificate").AsStringOr("")

	o.identifiers = nil
	for _, idJSON := range body.Get("identifiers").AsArray() {
		o.identifiers = append(o.identifiers, status.Identifier{
			Type:  idJSON.Get("type").AsStringOr(""),
			Value: idJSON.Get("value").AsStringOr(""),
		})
	}

	o.authzURLs = body.Get("authorizations").AsStringArray()
}

// Authorizations fetches every authorization this order references.
func (o *Order) Authorizations() ([]*Authorization, error) {
	auths := make([]*Authorization, 0, len(o.authzURLs))
	for _, url := range o.authzURLs {
		a, err := BindAuthorization(o.session, url)
		if err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	return auths, nil
}

type finalizeRequest struct {
	CSR string `json:"csr"`
}

// Finalize submits csr (DER-encoded) for this order, per RFC 8555 §7.4.
// Order must be in status.Ready before calling this; the server responds
// with the updated order, often still Processing until issuance completes,
// requiring further Update polling.
func (o *Order) Finalize(csr []byte) error {
	if o.finalizeURL == "" {
		return &acmeerr.IllegalArgumentError{Message: "order has no finalize URL; Update it first"}
	}
	body, _, err := o.session.SignedPost(o.finalizeURL, finalizeRequest{
		CSR: base64.RawURLEncoding.EncodeToString(csr),
	})
	if err != nil {
		return err
	}
	o.refreshFrom(body)
	return nil
}

