// Package cryptox provides the credential primitives for the client
// registry: secure random material, the hex digest used to derive client
// identifiers, and password-grade hashing for stored secrets.
package cryptox

import (
	"crypto/rand"
	"crypto/sha1" // #nosec G505 -- digest format is fixed by already-issued client ids
	"encoding/hex"
	"fmt"
)

// SecretSize is the reference byte length for generated client credentials.
const SecretSize = 16

// GenerateSecret returns n cryptographically secure random bytes.
// An error here means the platform's secure random source is unavailable;
// callers should treat it as fatal to the operation, not retry it.
func GenerateSecret(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cryptox: secret size must be positive, got %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("cryptox: secure random unavailable: %w", err)
	}
	return buf, nil
}

// Digest returns the lowercase SHA-1 hex digest (40 chars) of b.
//
// SHA-1 is deliberate: client ids in the wild are `<sha1-hex>.apps.<domain>`
// and the plaintext secret handed to owners is the digest of fresh random
// bytes. The digest is never used where collision resistance protects a
// stored secret; stored secrets go through HashSecret.
func Digest(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
