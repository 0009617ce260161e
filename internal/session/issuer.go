// Package session mints and verifies the opaque bearer credential handed out
// once the auth flow authorizes an account.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long an issued session stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers every verification failure: bad signature, expired,
// malformed. Callers get no finer detail.
var ErrInvalidToken = errors.New("invalid session token")

// Session is the bearer credential returned to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Claims bind a session token to an account identity.
type Claims struct {
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with an HS256 secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds an Issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a session bound to the account id and phone number.
func (i *Issuer) Issue(accountID, phone string) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := &Claims{
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Verify checks the token signature and expiry and returns the bound account id.
func (i *Issuer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
