package account

import "time"

// Account represents a registered merchant, keyed by phone number.
type Account struct {
	ID             string
	PhoneNumber    string
	FullName       string
	ShopAddress    string
	TaxID          string
	PayoutID       string
	CredentialHash []byte
	Verified       bool
	Pending        *PendingCode
	CreatedAt      time.Time
}

// PendingCode is a one-time code in flight for an account. Code and
// ExpiresAt are always set together and cleared together.
type PendingCode struct {
	Code      string
	ExpiresAt time.Time
}

// Profile carries the owner-supplied fields collected at signup.
type Profile struct {
	FullName    string
	ShopAddress string
	TaxID       string
	PayoutID    string
}
