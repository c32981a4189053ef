package acme

import "github.com/jojo-liu/acme4j/acme/jsonview"

// Metadata mirrors a directory's optional "meta" object (RFC 8555 §9.7.6).
// The zero value is a valid empty Metadata; Session.Metadata never returns
// nil.
type Metadata struct {
	TermsOfService          string
	Website                 string
	CAAIdentities           []string
	ExternalAccountRequired bool
}

func parseMetadata(data jsonview.JSON) Metadata {
	meta := data.Get("meta")
	return Metadata{
		TermsOfService:          meta.Get("termsOfService").AsStringOr(""),
		Website:                 meta.Get("website").AsStringOr(""),
		CAAIdentities:           meta.Get("caaIdentities").AsStringArray(),
		ExternalAccountRequired: boolOr(meta.Get("externalAccountRequired"), false),
	}
}

func boolOr(v jsonview.JSON, def bool) bool {
	if b, ok := v.AsBool(); ok {
		return b
	}
	return def
}
