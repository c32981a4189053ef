package acme_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jojo-liu/acme4j/acme"
	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/status"
)

// Retry-After on an order update surfaces the backoff but must not drop the
// response body: a caller polling order.Update() needs Status() to reflect
// what the server just said, the same as Challenge.Update.
func TestOrder_Update_RetryAfterStillRefreshesBody(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/dir":
			w.Header().Set("Content-Type", "application/json")
			w.Write(directoryJSON(server.URL))
		case r.URL.Path == "/new-nonce":
			w.Header().Set("Replay-Nonce", "n1")
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/new-order" && r.Method == http.MethodPost:
			w.Header().Set("Replay-Nonce", "n2")
			w.Header().Set("Location", server.URL+"/order/1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"status": "pending"}`))
		case r.URL.Path == "/order/1":
			w.Header().Set("Replay-Nonce", "n3")
			w.Header().Set("Retry-After", "5")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status": "processing", "identifiers": [{"type": "dns", "value": "example.com"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	order, err := acme.NewOrder(session, status.DNSIdentifier("example.com"))
	require.NoError(t, err)

	err = order.Update()
	var retryAfter *acmeerr.RetryAfterError
	require.ErrorAs(t, err, &retryAfter)
	assert.Equal(t, status.Processing, order.Status())
	require.Len(t, order.Identifiers(), 1)
	assert.Equal(t, "example.com", order.Identifiers()[0].Value)
}
