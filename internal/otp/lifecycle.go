// Package otp owns issuance, expiry, and single-use consumption of the
// one-time codes that gate phone-number verification.
package otp

import (
	"context"
	"errors"
	"time"

	"github.com/nutonium/merchant-auth/internal/account"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 90 * time.Second

var (
	// ErrNoCodeIssued indicates no code is in flight for the account.
	ErrNoCodeIssued = errors.New("no code issued")
	// ErrExpired indicates the code's TTL elapsed before consumption.
	ErrExpired = errors.New("code expired")
	// ErrMismatch indicates the submitted code differs from the stored one.
	ErrMismatch = errors.New("code mismatch")
)

// Lifecycle issues and consumes one-time codes through the account store.
// At most one code per account is live: issuing always supersedes the prior
// code, so two racing resends both succeed but only the last write survives.
type Lifecycle struct {
	repo account.Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewLifecycle builds a Lifecycle. A non-positive ttl falls back to DefaultTTL.
func NewLifecycle(repo account.Repository, ttl time.Duration) *Lifecycle {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lifecycle{repo: repo, ttl: ttl, now: time.Now}
}

// Issue generates a fresh code, persists it with its expiry, and returns it
// for delivery. Any previously issued code is invalidated unconditionally.
func (l *Lifecycle) Issue(ctx context.Context, acct account.Account) (string, error) {
	code := GenerateCode()
	expiresAt := l.now().Add(l.ttl)
	if err := l.repo.SetPendingCode(ctx, acct.ID, code, expiresAt); err != nil {
		return "", err
	}
	return code, nil
}

// Consume validates the submitted code against the account's pending code.
// On success the code is cleared and the account marked verified in a single
// conditional write. An expired code is cleared as part of the failure so it
// can never be retried; a mismatch leaves the code in place for another
// attempt before expiry.
func (l *Lifecycle) Consume(ctx context.Context, acct account.Account, submitted string) error {
	if acct.Pending == nil {
		return ErrNoCodeIssued
	}
	if l.now().After(acct.Pending.ExpiresAt) {
		if err := l.repo.ClearPendingCode(ctx, acct.ID, acct.Pending.Code); err != nil {
			return err
		}
		return ErrExpired
	}
	if submitted != acct.Pending.Code {
		return ErrMismatch
	}
	if err := l.repo.ConsumePendingCode(ctx, acct.ID, submitted); err != nil {
		if errors.Is(err, account.ErrCodeSuperseded) {
			// A concurrent issue replaced the code between our read and write.
			return ErrMismatch
		}
		return err
	}
	return nil
}
