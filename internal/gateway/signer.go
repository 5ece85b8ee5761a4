package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

const signatureField = "signature"

// Signer implements DukPay's payload authentication: an HMAC-SHA256 over the
// canonically sorted key=value pairs, keyed with the merchant API key. The
// same scheme signs outbound requests and authenticates inbound callbacks.
type Signer struct {
	apiKey string
}

func NewSigner(apiKey string) *Signer {
	return &Signer{apiKey: apiKey}
}

// canonicalString sorts keys, drops empty values and the signature itself,
// and joins the rest as key=value&key=value.
func canonicalString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == signatureField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func (s *Signer) Sign(params map[string]string) string {
	mac := hmac.New(sha256.New, []byte(s.apiKey))
	mac.Write([]byte(canonicalString(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the payload's signature field matches the payload.
// A missing or empty signature never verifies.
func (s *Signer) Verify(params map[string]string) bool {
	got := params[signatureField]
	if got == "" {
		return false
	}
	want := s.Sign(params)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
