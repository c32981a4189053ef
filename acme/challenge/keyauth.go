package challenge

import "github.com/jojo-liu/acme4j/acme/keys"

// keyAuthorizationFor computes token + "." + base64url(thumbprint) using the
// account signer behind requester, per spec section 6.
func keyAuthorizationFor(requester Requester, token string) (string, error) {
	if requester == nil {
		return "", &invalidStateError{"challenge has no requester; it was not bound or created through a Session"}
	}
	return keys.KeyAuthorization(requester.AccountSigner(), token)
}
