package acme

// Resource is the closed set of ACME directory entries a Session resolves
// to a URL. Grounded on cpu-acmeshell's acme/constants.go endpoint
// constants, generalized from three (newNonce/newAccount/newOrder) to the
// full RFC 8555 §9.7.5 set.
type Resource int

const (
	NewNonce Resource = iota
	NewAccountResource
	NewOrderResource
	NewAuthz
	RevokeCert
	KeyChange
)

var resourceDirectoryKeys = map[Resource]string{
	NewNonce:           "newNonce",
	NewAccountResource: "newAccount",
	NewOrderResource:   "newOrder",
	NewAuthz:           "newAuthz",
	RevokeCert:         "revokeCert",
	KeyChange:          "keyChange",
}

// DirectoryKey returns the directory object's field name for this resource.
func (r Resource) DirectoryKey() string {
	return resourceDirectoryKeys[r]
}

func (r Resource) String() string {
	if k, ok := resourceDirectoryKeys[r]; ok {
		return k
	}
	return "unknown"
}

// replayNonceHeader is the HTTP response header ACME uses to communicate a
// fresh nonce. See RFC 8555 §7.2.
const replayNonceHeader = "Replay-Nonce"
