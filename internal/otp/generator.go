package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeSpace covers [100000, 999999]: always six digits, never a leading zero
// that a client-side parser could truncate.
var codeSpace = big.NewInt(900000)

// GenerateCode returns a six-digit code drawn uniformly from a
// cryptographically secure source. Entropy exhaustion is not recoverable,
// so it panics rather than handing out a weak code.
func GenerateCode() string {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		panic(fmt.Sprintf("otp: entropy source failed: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}
