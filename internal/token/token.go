// Package token issues the opaque public access tokens that grant
// unauthenticated clients access to a single quote.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pkg/errors"
)

// entropyBytes is the number of random bytes behind each token.
const entropyBytes = 32

// Length is the encoded length of a generated token.
const Length = 43 // base64url, no padding, 32 bytes

// Generator produces opaque unique tokens.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator implements Generator with crypto/rand.
type RandomGenerator struct{}

// NewGenerator creates the default token generator.
func NewGenerator() Generator {
	return RandomGenerator{}
}

// Generate returns a URL-safe token with 32 bytes of entropy. Tokens are
// generated once per quote and never regenerated.
func (RandomGenerator) Generate() (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes for token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Equal compares two tokens in constant time. Lookup by token must be an
// exact equality match; no prefix or partial matching.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// WellFormed reports whether s has the shape of a generated token. It is
// a cheap pre-filter for public lookups, not an authorization check.
func WellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}
