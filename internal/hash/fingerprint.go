// Package hash computes stable content fingerprints for partition universes.
package hash

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns the hex-encoded 128-bit xxh3 digest of s.
//
// Example:
//
//	id := hash.Fingerprint(`"a", "b"`)
func Fingerprint(s string) string {
	sum := xxh3.HashString128(s).Bytes()

	return hex.EncodeToString(sum[:])
}

// KeysFingerprint fingerprints an ordered key list through its JSON encoding.
//
// Two lists with the same keys in a different order produce different fingerprints,
// since order is part of a partition universe's identity.
//
// Parameters:
//   - keys: Ordered partition keys
//
// Returns:
//   - string: Hex digest
func KeysFingerprint(keys []string) string {
	if keys == nil {
		keys = []string{}
	}
	// Marshaling a []string never fails.
	encoded, _ := json.Marshal(keys)

	return Fingerprint(string(encoded))
}
