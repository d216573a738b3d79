// Package auth defines the boundary between the chat state machine and
// the password-hashing primitive, treated as an opaque external
// collaborator out of scope for this module. It owns only the interface
// and a deterministic reference implementation good enough to exercise
// the CSM's CreateAccount/Login command flow in tests — it is not a
// hardened KDF, and production deployments are expected to supply their
// own Hasher.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hasher verifies and derives account credentials. The CSM never sees a
// plaintext password outside of this boundary's two methods.
type Hasher interface {
	// Derive returns a (hash, salt) pair for a new account's password.
	Derive(password string) (hash, salt string, err error)
	// Verify reports whether password matches the stored (hash, salt).
	Verify(password, hash, salt string) bool
}

// referenceHasher is a salted-SHA256 stand-in. It satisfies the Hasher
// boundary for CreateAccount/Login command handling but is explicitly
// not a production-grade KDF.
type referenceHasher struct {
	saltSource func() string
}

// NewReferenceHasher builds the default Hasher used when no production
// implementation is wired in. saltSource is injectable so tests can make
// salt generation deterministic.
func NewReferenceHasher(saltSource func() string) Hasher {
	return &referenceHasher{saltSource: saltSource}
}

func (h *referenceHasher) Derive(password string) (string, string, error) {
	salt := h.saltSource()
	return h.digest(password, salt), salt, nil
}

func (h *referenceHasher) Verify(password, hash, salt string) bool {
	expected := h.digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(hash)) == 1
}

func (h *referenceHasher) digest(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}
