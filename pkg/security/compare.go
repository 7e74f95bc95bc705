// Package security holds small primitives shared by the protocol code.
package security

import (
	"crypto/subtle"
)

// SecureCompare performs a constant-time comparison of two strings.
// Used for state and nonce checks on authorization responses.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SecureCompareNonEmpty is SecureCompare that never matches an empty expected value.
// A response must not be accepted just because nothing was stored.
func SecureCompareNonEmpty(got, expected string) bool {
	if expected == "" {
		return false
	}
	return SecureCompare(got, expected)
}
