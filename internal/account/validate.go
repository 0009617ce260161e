package account

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical field validators. Every boundary that accepts one of these
// formats goes through here; the formats are never re-declared elsewhere.
var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
	taxPattern   = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	upiPattern   = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
)

// NormalizePhone trims whitespace and validates the phone number format:
// 8 to 15 digits with an optional leading plus.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", fmt.Errorf("phone number must be 8-15 digits, optionally starting with +")
	}
	return phone, nil
}

// ValidateCode checks a submitted one-time code is exactly six digits.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return fmt.Errorf("code must be exactly 6 digits")
	}
	return nil
}

// ValidateProfile checks the signup profile fields against their canonical formats.
func ValidateProfile(p Profile) error {
	if len(strings.TrimSpace(p.FullName)) < 3 {
		return fmt.Errorf("full name must be at least 3 characters")
	}
	if len(strings.TrimSpace(p.ShopAddress)) < 5 {
		return fmt.Errorf("shop address must be at least 5 characters")
	}
	if !taxPattern.MatchString(strings.ToUpper(strings.TrimSpace(p.TaxID))) {
		return fmt.Errorf("invalid tax id format")
	}
	if !upiPattern.MatchString(strings.TrimSpace(p.PayoutID)) {
		return fmt.Errorf("invalid payout id format")
	}
	return nil
}

// ValidateSecret enforces the minimum password length.
func ValidateSecret(secret string) error {
	if len(secret) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}
