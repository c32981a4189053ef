// Package integration exercises acme/challenge's http-01 and dns-01
// variants against a real validation responder,
// github.com/letsencrypt/challtestsrv, instead of the fakeRequester stand-in
// acme/challenge's own unit tests use. Grounded on
// cpu-acmeshell/shell/acmeshell.go's NewACMEShell (the challtestsrv.New
// construction with HTTPOneAddrs/DNSOneAddrs/Log) and
// shell/commands/challsrv.go's ChallengeServer interface, which documents
// exactly the Add*/Delete* subset this package drives.
package integration

import (
	"crypto"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/letsencrypt/challtestsrv"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/dnsutil"
	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/keys"
)

// stubRequester satisfies challenge.Requester with no network calls beyond
// AccountSigner: these tests build challenges directly from JSON via
// challenge.FromJSON and never call Trigger/Update against a real ACME
// server, only against challtestsrv's validation-side responders.
type stubRequester struct {
	signer crypto.Signer
}

func (s *stubRequester) PostAsGet(string) (jsonview.JSON, http.Header, error) {
	return jsonview.Empty(), nil, nil
}

func (s *stubRequester) SignedPost(string, any) (jsonview.JSON, http.Header, error) {
	return jsonview.Empty(), nil, nil
}

func (s *stubRequester) AccountSigner() crypto.Signer { return s.signer }

func challengeJSON(t *testing.T, typ, token string) jsonview.JSON {
	t.Helper()
	data, err := jsonview.Parse([]byte(fmt.Sprintf(
		`{"type": %q, "status": "pending", "url": "https://example.com/acme/chall/1", "token": %q}`,
		typ, token)))
	require.NoError(t, err)
	return data
}

func newStubRequester(t *testing.T) *stubRequester {
	t.Helper()
	signer, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)
	return &stubRequester{signer: signer}
}

// TestHTTP01Challenge_SatisfiesChallTestSrv builds an HTTP01Challenge's key
// authorization, registers it with challtestsrv's http-01 responder, and
// fetches it back the way a CA's validation server would: GET
// http://<addr><challenge path>.
func TestHTTP01Challenge_SatisfiesChallTestSrv(t *testing.T) {
	const token = "eTOMLIr6GZb5o2cS8IsDnk"
	const addr = "127.0.0.1:18080"

	srv, err := challtestsrv.New(challtestsrv.Config{
		HTTPOneAddrs: []string{addr},
		Log:          log.New(os.Stderr, "challtestsrv: ", log.LstdFlags),
	})
	require.NoError(t, err)
	go srv.Run()
	defer srv.Shutdown()
	time.Sleep(listenerStartupDelay)

	c, err := challenge.FromJSON(newStubRequester(t), challengeJSON(t, challenge.TypeHTTP01, token))
	require.NoError(t, err)
	http01 := c.(*challenge.HTTP01Challenge)

	keyAuth, err := http01.KeyAuthorization()
	require.NoError(t, err)

	srv.AddHTTPOneChallenge(token, keyAuth)
	defer srv.DeleteHTTPOneChallenge(token)

	resp, err := http.Get("http://" + addr + http01.ChallengePath())
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, keyAuth, string(body))
}

// TestDNS01Challenge_SatisfiesChallTestSrv registers a DNS01Challenge's
// digest with challtestsrv's dns-01 responder and resolves it back with a
// plain miekg/dns query, confirming RecordName/DigestValue produce exactly
// the owner name and value a validation server expects.
func TestDNS01Challenge_SatisfiesChallTestSrv(t *testing.T) {
	const token = "eTOMLIr6GZb5o2cS8IsDnk"
	const domain = "example.test"
	const addr = "127.0.0.1:18053"

	srv, err := challtestsrv.New(challtestsrv.Config{
		DNSOneAddrs: []string{addr},
		Log:         log.New(os.Stderr, "challtestsrv: ", log.LstdFlags),
	})
	require.NoError(t, err)
	go srv.Run()
	defer srv.Shutdown()
	time.Sleep(listenerStartupDelay)

	c, err := challenge.FromJSON(newStubRequester(t), challengeJSON(t, challenge.TypeDNS01, token))
	require.NoError(t, err)
	dns01 := c.(*challenge.DNS01Challenge)

	digest, err := dns01.DigestValue(domain)
	require.NoError(t, err)
	assert.Equal(t, dnsutil.TXTRecordName(domain), dns01.RecordName(domain))

	srv.AddDNSOneChallenge(dns01.RecordName(domain), digest)
	defer srv.DeleteDNSOneChallenge(dns01.RecordName(domain))

	client := new(dns.Client)
	msg := new(dns.Msg)
	msg.SetQuestion(dns01.RecordName(domain), dns.TypeTXT)

	resp, _, err := client.Exchange(msg, addr)
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)

	txt, ok := resp.Answer[0].(*dns.TXT)
	require.True(t, ok)
	require.Equal(t, []string{digest}, txt.Txt)
}

// listenerStartupDelay gives challtestsrv's goroutine-started listeners
// (http-01 over TCP, dns-01 over UDP) time to bind before the test dials
// them; Run itself returns nothing to block on.
const listenerStartupDelay = 150 * time.Millisecond
