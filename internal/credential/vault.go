// Package credential wraps the one-way password hash used to protect merchant
// secrets. Digests are only ever compared through Verify, never directly.
package credential

import "golang.org/x/crypto/bcrypt"

// Vault hashes and verifies secrets with a tunable bcrypt work factor.
type Vault struct {
	cost int
}

// NewVault builds a Vault. Costs outside bcrypt's supported range fall back
// to the library default.
func NewVault(cost int) *Vault {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Vault{cost: cost}
}

// Hash produces a salted one-way digest of the secret.
func (v *Vault) Hash(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), v.cost)
}

// Verify reports whether the secret matches the digest. Any failure,
// including a malformed digest, reads as a mismatch rather than an error.
func (v *Vault) Verify(secret string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(secret)) == nil
}
