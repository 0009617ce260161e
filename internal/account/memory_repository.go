package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.Mutex
	accounts map[string]Account
}

// NewMemoryRepository builds an in-memory account store for testing and
// development without a database.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[acct.PhoneNumber]; exists {
		return ErrPhoneExists
	}
	for _, existing := range r.accounts {
		if existing.TaxID == acct.TaxID {
			return ErrTaxIDExists
		}
	}
	r.accounts[acct.PhoneNumber] = cloneAccount(acct)
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[phone]
	if !ok {
		return Account{}, ErrNotFound
	}
	return cloneAccount(acct), nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range r.accounts {
		if acct.ID == id {
			return cloneAccount(acct), nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) UpdateCredential(_ context.Context, id string, digest []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, phone, ok := r.lookupLocked(id)
	if !ok {
		return ErrNotFound
	}
	acct.CredentialHash = append([]byte(nil), digest...)
	r.accounts[phone] = acct
	return nil
}

func (r *memoryRepository) SetPendingCode(_ context.Context, id, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, phone, ok := r.lookupLocked(id)
	if !ok {
		return ErrNotFound
	}
	acct.Pending = &PendingCode{Code: code, ExpiresAt: expiresAt}
	r.accounts[phone] = acct
	return nil
}

func (r *memoryRepository) ClearPendingCode(_ context.Context, id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, phone, ok := r.lookupLocked(id)
	if !ok {
		return ErrNotFound
	}
	if acct.Pending != nil && acct.Pending.Code == code {
		acct.Pending = nil
		r.accounts[phone] = acct
	}
	return nil
}

func (r *memoryRepository) ConsumePendingCode(_ context.Context, id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, phone, ok := r.lookupLocked(id)
	if !ok {
		return ErrNotFound
	}
	if acct.Pending == nil || acct.Pending.Code != code {
		return ErrCodeSuperseded
	}
	acct.Pending = nil
	acct.Verified = true
	r.accounts[phone] = acct
	return nil
}

func (r *memoryRepository) lookupLocked(id string) (Account, string, bool) {
	for phone, acct := range r.accounts {
		if acct.ID == id {
			return acct, phone, true
		}
	}
	return Account{}, "", false
}

func cloneAccount(acct Account) Account {
	out := acct
	out.CredentialHash = append([]byte(nil), acct.CredentialHash...)
	if acct.Pending != nil {
		pending := *acct.Pending
		out.Pending = &pending
	}
	return out
}
