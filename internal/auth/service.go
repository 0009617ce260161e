// Package auth orchestrates merchant registration and login, gated by
// phone-number verification with one-time codes.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nutonium/merchant-auth/internal/account"
	"github.com/nutonium/merchant-auth/internal/credential"
	"github.com/nutonium/merchant-auth/internal/notification"
	"github.com/nutonium/merchant-auth/internal/otp"
	"github.com/nutonium/merchant-auth/internal/session"
)

// ErrInvalidCredentials covers both an unknown phone number and a wrong
// secret. The two cases are indistinguishable on purpose, so a caller cannot
// probe which phone numbers are registered.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginResult is the outcome of a successful credential check. When the
// account has not verified its phone number yet, RequiresVerification is set
// and no session is issued; the client pivots to the code flow.
type LoginResult struct {
	Account              account.Account
	Session              session.Session
	RequiresVerification bool
}

// Service drives the registration and authentication state machine.
type Service struct {
	repo     account.Repository
	vault    *credential.Vault
	codes    *otp.Lifecycle
	sender   notification.Sender
	sessions *session.Issuer
	logger   *slog.Logger

	// dummyDigest keeps the unknown-phone login path in the same latency
	// class as a real credential check.
	dummyDigest []byte
}

// NewService wires the auth service. It precomputes a digest so login can
// burn a hash verification even when no account exists.
func NewService(repo account.Repository, vault *credential.Vault, codes *otp.Lifecycle, sender notification.Sender, sessions *session.Issuer, logger *slog.Logger) (*Service, error) {
	dummy, err := vault.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:        repo,
		vault:       vault,
		codes:       codes,
		sender:      sender,
		sessions:    sessions,
		logger:      logger,
		dummyDigest: dummy,
	}, nil
}

// Register creates a new unverified account, then issues and delivers a
// verification code. Registration is never idempotent: a duplicate phone
// number is always a conflict. Code issuance or delivery failing after the
// account exists does not fail the registration, because the resend path
// recovers it.
func (s *Service) Register(ctx context.Context, profile account.Profile, phone, secret string) (string, error) {
	digest, err := s.vault.Hash(secret)
	if err != nil {
		return "", err
	}

	acct := account.Account{
		ID:             uuid.NewString(),
		PhoneNumber:    phone,
		FullName:       profile.FullName,
		ShopAddress:    profile.ShopAddress,
		TaxID:          profile.TaxID,
		PayoutID:       profile.PayoutID,
		CredentialHash: digest,
		Verified:       false,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return "", err
	}

	s.issueAndDeliver(ctx, acct)
	return acct.ID, nil
}

// Login validates credentials. Unknown phone and wrong secret produce the
// identical error; a valid but unverified account yields a
// RequiresVerification outcome instead of a session.
func (s *Service) Login(ctx context.Context, phone, secret string) (LoginResult, error) {
	acct, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.vault.Verify(secret, s.dummyDigest)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !s.vault.Verify(secret, acct.CredentialHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	if !acct.Verified {
		return LoginResult{Account: acct, RequiresVerification: true}, nil
	}

	sess, err := s.sessions.Issue(acct.ID, acct.PhoneNumber)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Account: acct, Session: sess}, nil
}

// RequestCode issues a fresh verification code for an existing account and
// delivers it. The new code supersedes any prior one unconditionally.
func (s *Service) RequestCode(ctx context.Context, phone string) error {
	acct, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return err
	}
	code, err := s.codes.Issue(ctx, acct)
	if err != nil {
		return err
	}
	s.deliver(ctx, acct.PhoneNumber, code)
	return nil
}

// ResendCode is RequestCode under the name the client knows it by. It adds
// no cooldown beyond the overwrite semantics of issuing.
func (s *Service) ResendCode(ctx context.Context, phone string) error {
	return s.RequestCode(ctx, phone)
}

// VerifyCode consumes the pending code and, on success, mints a session
// directly so a first-time signup does not have to log in again.
func (s *Service) VerifyCode(ctx context.Context, phone, code string) (LoginResult, error) {
	acct, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.codes.Consume(ctx, acct, code); err != nil {
		return LoginResult{}, err
	}

	acct.Verified = true
	acct.Pending = nil

	sess, err := s.sessions.Issue(acct.ID, acct.PhoneNumber)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Account: acct, Session: sess}, nil
}

// Profile loads the account bound to a verified session token's subject.
func (s *Service) Profile(ctx context.Context, accountID string) (account.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

func (s *Service) issueAndDeliver(ctx context.Context, acct account.Account) {
	code, err := s.codes.Issue(ctx, acct)
	if err != nil {
		s.logger.Warn("issue verification code", "phone", acct.PhoneNumber, "error", err)
		return
	}
	s.deliver(ctx, acct.PhoneNumber, code)
}

func (s *Service) deliver(ctx context.Context, phone, code string) {
	if err := s.sender.SendCode(ctx, phone, code); err != nil {
		// Best effort: the account and code are already persisted, and the
		// resend endpoint recovers failed deliveries.
		s.logger.Warn("deliver verification code", "phone", phone, "error", err)
	}
}
