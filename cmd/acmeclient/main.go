// acmeclient is a minimal flag-driven demonstration of the acme package: it
// registers (or restores) an account, orders a certificate for one or more
// domains, serves the http-01 key authorizations itself on a local port,
// polls until the order is ready, finalizes with a freshly generated CSR key,
// polls until the order is valid and writes the issued certificate chain to
// disk. Grounded on
// cpu-acmeshell's cmd/acmeshell/main.go flag layout, trimmed from a full
// interactive shell to a single straight-line run since spec section 0
// calls for a "minimal flag-driven demonstration binary", not a shell.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jojo-liu/acme4j/acme"
	"github.com/jojo-liu/acme4j/acme/acmeerr"
	"github.com/jojo-liu/acme4j/acme/challenge"
	"github.com/jojo-liu/acme4j/acme/keys"
	"github.com/jojo-liu/acme4j/acme/status"

	"github.com/jojo-liu/acme4j/cmd"

	_ "github.com/jojo-liu/acme4j/acme/provider"
)

const (
	directoryDefault = "https://acme-staging-v02.api.letsencrypt.org/directory"
	contactDefault   = ""
	accountDefault   = ""
	httpPortDefault  = 5002
	outDefault       = "certificate.pem"
	pollInterval     = 2 * time.Second
	pollAttempts     = 30
)

func main() {
	directory := flag.String("directory", directoryDefault, "Directory URL (or provider pseudo-URI, e.g. acme://pebble) for ACME server")
	contact := flag.String("contact", contactDefault, "Contact email for a newly registered account")
	accountPath := flag.String("account", accountDefault, "JSON filepath to save/restore the account key and location")
	httpPort := flag.Int("httpPort", httpPortDefault, "Port to serve http-01 key authorizations on")
	out := flag.String("out", outDefault, "Filepath to write the issued certificate chain to")
	pebble := flag.Bool("pebble", false, "Use the Pebble provider's local directory")
	flag.Parse()

	domains := flag.Args()
	if len(domains) == 0 {
		log.Fatalf("[!] at least one domain argument is required")
	}

	serverURI := *directory
	if *pebble {
		serverURI = "acme://pebble"
	}

	account, session, err := loadOrCreateAccount(serverURI, *accountPath, *contact)
	cmd.FailOnError(err, "setting up account")

	order, err := acme.NewOrder(session, identifiersFor(domains)...)
	cmd.FailOnError(err, "creating order")
	log.Printf("order created: %s (status %s)", order.Location(), order.Status())

	authzs, err := order.Authorizations()
	cmd.FailOnError(err, "fetching authorizations")

	responder := newHTTP01Responder()
	srv := &http.Server{Addr: fmt.Sprintf(":%d", *httpPort), Handler: responder}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[!] http-01 responder: %s", err)
		}
	}()
	defer srv.Close()

	for _, authz := range authzs {
		if authz.Status() == status.Valid {
			continue
		}
		c := authz.FindChallenge(challenge.TypeHTTP01)
		if c == nil {
			log.Fatalf("[!] authorization %s offers no http-01 challenge", authz.Location())
		}
		http01 := c.(*challenge.HTTP01Challenge)
		keyAuth, err := http01.KeyAuthorization()
		cmd.FailOnError(err, "computing key authorization")
		responder.add(http01.ChallengePath(), keyAuth)

		log.Printf("triggering http-01 for %s", authz.Identifier().Value)
		cmd.FailOnError(http01.Trigger(), "triggering challenge")
		cmd.FailOnError(pollUntilTerminal(http01), "waiting for challenge validation")
		if http01.Status() != status.Valid {
			log.Fatalf("[!] challenge for %s did not validate: %+v", authz.Identifier().Value, http01.Error())
		}
	}

	cmd.FailOnError(pollOrderUntilReady(order), "waiting for order to become ready")

	csrKey, err := keys.NewSigner("ecdsa")
	cmd.FailOnError(err, "generating CSR key")
	csrDER, err := acme.NewCSR(domains, domains[0], csrKey)
	cmd.FailOnError(err, "building CSR")
	cmd.FailOnError(order.Finalize(csrDER), "finalizing order")
	cmd.FailOnError(pollOrderUntilValid(order), "waiting for order to become valid")

	cert := acme.BindCertificate(session, order.CertificateURL())
	chain, err := cert.Download()
	cmd.FailOnError(err, "downloading certificate")
	cmd.FailOnError(os.WriteFile(*out, chain, 0o600), "writing certificate")
	log.Printf("certificate written to %q", *out)

	if *accountPath != "" {
		cmd.FailOnError(saveAccount(*accountPath, account, session), "saving account")
	}

	cmd.CatchSignals(func() { log.Printf("shutting down http-01 responder") })
}

func identifiersFor(domains []string) []status.Identifier {
	ids := make([]status.Identifier, len(domains))
	for i, d := range domains {
		ids[i] = status.DNSIdentifier(d)
	}
	return ids
}

func pollUntilTerminal(c challenge.Challenge) error {
	for i := 0; i < pollAttempts; i++ {
		if err := c.Update(); err != nil {
			var retryAfter *acmeerr.RetryAfterError
			if !errors.As(err, &retryAfter) {
				return err
			}
		}
		if c.Status().IsTerminal() {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("acmeclient: challenge %s did not reach a terminal status in time", c.Location())
}

func pollOrderUntilReady(o *acme.Order) error {
	for i := 0; i < pollAttempts; i++ {
		if err := o.Update(); err != nil {
			var retryAfter *acmeerr.RetryAfterError
			if !errors.As(err, &retryAfter) {
				return err
			}
		}
		if o.Status() == status.Ready || o.Status() == status.Valid {
			return nil
		}
		if o.Status() == status.Invalid {
			return fmt.Errorf("acmeclient: order %s is invalid", o.Location())
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("acmeclient: order %s did not become ready in time", o.Location())
}

func pollOrderUntilValid(o *acme.Order) error {
	for i := 0; i < pollAttempts; i++ {
		if err := o.Update(); err != nil {
			var retryAfter *acmeerr.RetryAfterError
			if !errors.As(err, &retryAfter) {
				return err
			}
		}
		switch o.Status() {
		case status.Valid:
			return nil
		case status.Invalid:
			return fmt.Errorf("acmeclient: order %s is invalid", o.Location())
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("acmeclient: order %s did not become valid in time", o.Location())
}

// http01Responder serves key authorizations at the paths challenges are
// triggered for. Grounded on cpu-acmeshell's shell/httpServer, collapsed to
// a single map from challenge path (not bare token) to key authorization.
type http01Responder struct {
	responses map[string]string
}

func newHTTP01Responder() *http01Responder {
	return &http01Responder{responses: map[string]string{}}
}

func (r *http01Responder) add(path, keyAuthorization string) {
	r.responses[path] = keyAuthorization
}

func (r *http01Responder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	keyAuth, ok := r.responses[req.URL.Path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, keyAuth)
}

// savedAccount is the on-disk shape saved/restored by -account, grounded on
// cpu-acmeshell's acme/resources.Account (de)serialization but storing a
// PEM key plus key type tag rather than a hardcoded ecdsa.PrivateKey.
type savedAccount struct {
	Location string   `json:"location"`
	KeyPEM   string   `json:"keyPem"`
	KeyType  string   `json:"keyType"`
	Contact  []string `json:"contact"`
}

func loadOrCreateAccount(serverURI, accountPath, contact string) (*acme.Account, *acme.Session, error) {
	if accountPath != "" {
		if data, err := os.ReadFile(accountPath); err == nil {
			var saved savedAccount
			if err := json.Unmarshal(data, &saved); err != nil {
				return nil, nil, fmt.Errorf("acmeclient: parsing %q: %w", accountPath, err)
			}
			key, err := keys.PEMToSigner([]byte(saved.KeyPEM))
			if err != nil {
				return nil, nil, fmt.Errorf("acmeclient: decoding account key from %q: %w", accountPath, err)
			}
			session, err := acme.NewSession(acme.SessionConfig{
				ServerURI:     serverURI,
				KeyPair:       key,
				KeyIdentifier: saved.Location,
			})
			if err != nil {
				return nil, nil, err
			}
			log.Printf("restored account from %q", accountPath)
			account, err := acme.BindAccount(session, saved.Location)
			return account, session, err
		}
	}

	key, err := keys.NewSigner("ecdsa")
	if err != nil {
		return nil, nil, err
	}
	session, err := acme.NewSession(acme.SessionConfig{
		ServerURI: serverURI,
		KeyPair:   key,
	})
	if err != nil {
		return nil, nil, err
	}

	var contacts []string
	if contact != "" {
		contacts = []string{"mailto:" + contact}
	}
	account := acme.NewAccount(session, contacts)
	if err := account.Create(true); err != nil {
		return nil, nil, err
	}
	log.Printf("registered account %s", account.Location())
	return account, session, nil
}

func saveAccount(path string, account *acme.Account, session *acme.Session) error {
	pemKey, err := keys.SignerToPEM(session.KeyPair())
	if err != nil {
		return err
	}
	saved := savedAccount{
		Location: account.Location(),
		KeyPEM:   pemKey,
		KeyType:  "ecdsa",
		Contact:  account.Contact(),
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
