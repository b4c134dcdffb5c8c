// Package authtoken derives and checks the bearer token cmd/vnmix-server's
// control socket uses to gate mutating verbs. It is grounded on the
// teacher's internal/security/crypto.go DeriveKey, kept to key derivation
// only: vnmix carries no encryption-at-rest, so Encrypt/Decrypt and the key
// locker file format are not adapted (see DESIGN.md).
package authtoken

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// iterations mirrors the teacher's DeriveKey call site.
const iterations = 4096

const keyLen = 32

// Derive turns a shared secret and a per-deployment salt into a stable
// hex-encoded token, suitable for the socket's `AUTH <token>` verb.
func Derive(secret, salt string) string {
	key := pbkdf2.Key([]byte(secret), []byte(salt), iterations, keyLen, sha256.New)
	return hex.EncodeToString(key)
}

// Verify reports whether candidate matches the token derived from secret
// and salt, in constant time.
func Verify(candidate, secret, salt string) bool {
	want := Derive(secret, salt)
	if len(candidate) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(want)) == 1
}
