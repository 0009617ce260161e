package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nutonium/merchant-auth/internal/account"
)

func newTestAccount(t *testing.T, repo account.Repository) account.Account {
	t.Helper()
	acct := account.Account{
		ID:          uuid.NewString(),
		PhoneNumber: "9999999999",
		FullName:    "Test Merchant",
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), acct); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct
}

func TestIssueAndConsume(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	ctx := context.Background()
	acct := newTestAccount(t, repo)

	code, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	acct, err = repo.FindByPhone(ctx, acct.PhoneNumber)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if acct.Pending == nil || acct.Pending.Code != code {
		t.Fatalf("expected pending code %q, got %+v", code, acct.Pending)
	}

	if err := lc.Consume(ctx, acct, code); err != nil {
		t.Fatalf("consume: %v", err)
	}

	acct, err = repo.FindByPhone(ctx, acct.PhoneNumber)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !acct.Verified {
		t.Fatal("expected account verified after consume")
	}
	if acct.Pending != nil {
		t.Fatalf("expected pending code cleared, got %+v", acct.Pending)
	}
}

func TestConsumeTwiceFailsNoCodeIssued(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	ctx := context.Background()
	acct := newTestAccount(t, repo)

	code, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	acct, _ = repo.FindByPhone(ctx, acct.PhoneNumber)
	if err := lc.Consume(ctx, acct, code); err != nil {
		t.Fatalf("first consume: %v", err)
	}

	acct, _ = repo.FindByPhone(ctx, acct.PhoneNumber)
	if err := lc.Consume(ctx, acct, code); !errors.Is(err, ErrNoCodeIssued) {
		t.Fatalf("expected ErrNoCodeIssued, got %v", err)
	}
}

func TestConsumeWithoutIssue(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	acct := newTestAccount(t, repo)

	if err := lc.Consume(context.Background(), acct, "123456"); !errors.Is(err, ErrNoCodeIssued) {
		t.Fatalf("expected ErrNoCodeIssued, got %v", err)
	}
}

func TestConsumeExpiredClearsCode(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	ctx := context.Background()
	acct := newTestAccount(t, repo)

	code, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	lc.now = func() time.Time { return time.Now().Add(91 * time.Second) }

	acct, _ = repo.FindByPhone(ctx, acct.PhoneNumber)
	if err := lc.Consume(ctx, acct, code); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// The expired code must be cleared by the failed attempt itself.
	acct, _ = repo.FindByPhone(ctx, acct.PhoneNumber)
	if acct.Pending != nil {
		t.Fatalf("expected pending code cleared after expiry, got %+v", acct.Pending)
	}
	if err := lc.Consume(ctx, acct, code); !errors.Is(err, ErrNoCodeIssued) {
		t.Fatalf("expected ErrNoCodeIssued after clear, got %v", err)
	}
}

func TestConsumeMismatchKeepsCode(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	ctx := context.Background()
	acct := newTestAccount(t, repo)

	code, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	acct, _ = repo.FindByPhone(ctx, acct.PhoneNumber)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if err := lc.Consume(ctx, acct, wrong); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}

	// A mismatch leaves the code retryable until it expires.
	acct, _ = repo.FindByPhone(ctx, acct.PhoneNumber)
	if err := lc.Consume(ctx, acct, code); err != nil {
		t.Fatalf("retry with correct code: %v", err)
	}
}

func TestReissueSupersedesPriorCode(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	ctx := context.Background()
	acct := newTestAccount(t, repo)

	first, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	acct, _ = repo.FindByPhone(ctx, acct.PhoneNumber)
	if first != second {
		if err := lc.Consume(ctx, acct, first); !errors.Is(err, ErrMismatch) {
			t.Fatalf("expected superseded code to mismatch, got %v", err)
		}
	}
	if err := lc.Consume(ctx, acct, second); err != nil {
		t.Fatalf("consume latest code: %v", err)
	}
}

// Two resends racing on the same account both succeed at the storage layer,
// but only the code from the last write remains consumable.
func TestConcurrentReissueLastWriteWins(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	ctx := context.Background()
	acct := newTestAccount(t, repo)

	codes := make([]string, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := lc.Issue(ctx, acct)
			if err != nil {
				t.Errorf("issue %d: %v", i, err)
				return
			}
			codes[i] = code
		}(i)
	}
	wg.Wait()

	reloaded, err := repo.FindByPhone(ctx, acct.PhoneNumber)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Pending == nil {
		t.Fatal("expected a pending code after concurrent issues")
	}

	stored := reloaded.Pending.Code
	if stored != codes[0] && stored != codes[1] {
		t.Fatalf("stored code %q is neither issued code", stored)
	}
	if err := lc.Consume(ctx, reloaded, stored); err != nil {
		t.Fatalf("consume surviving code: %v", err)
	}
	for _, code := range codes {
		if code == stored {
			continue
		}
		loser, _ := repo.FindByPhone(ctx, acct.PhoneNumber)
		if err := lc.Consume(ctx, loser, code); err == nil {
			t.Fatalf("superseded code %q should not be consumable", code)
		}
	}
}

// Simulates a resend interleaving between the user reading the code and
// submitting it: the conditional write refuses the stale code.
func TestConsumeRefusesStaleReadAfterReissue(t *testing.T) {
	repo := account.NewMemoryRepository()
	lc := NewLifecycle(repo, 90*time.Second)
	ctx := context.Background()
	acct := newTestAccount(t, repo)

	first, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	stale, _ := repo.FindByPhone(ctx, acct.PhoneNumber)

	second, err := lc.Issue(ctx, acct)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	for second == first {
		if second, err = lc.Issue(ctx, acct); err != nil {
			t.Fatalf("reissue: %v", err)
		}
	}

	// The stale snapshot still holds the first code, but the store has moved on.
	if err := lc.Consume(ctx, stale, first); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch on stale consume, got %v", err)
	}

	reloaded, _ := repo.FindByPhone(ctx, acct.PhoneNumber)
	if reloaded.Verified {
		t.Fatal("stale consume must not verify the account")
	}
	if reloaded.Pending == nil {
		t.Fatal("latest code must survive a stale consume attempt")
	}
}
