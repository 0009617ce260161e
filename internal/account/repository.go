package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates no account exists for the given key.
	ErrNotFound = errors.New("account not found")
	// ErrPhoneExists indicates the phone number is already registered.
	ErrPhoneExists = errors.New("phone number already registered")
	// ErrTaxIDExists indicates the tax id is already registered.
	ErrTaxIDExists = errors.New("tax id already registered")
	// ErrCodeSuperseded indicates the stored pending code no longer matches
	// the one the caller observed, so the conditional write did not apply.
	ErrCodeSuperseded = errors.New("pending code superseded")
	// ErrUnavailable wraps transient storage failures so callers can retry safely.
	ErrUnavailable = errors.New("account store unavailable")
)

// Repository persists merchant accounts.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	FindByPhone(ctx context.Context, phone string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	UpdateCredential(ctx context.Context, id string, digest []byte) error
	// SetPendingCode overwrites any pending code unconditionally; the latest
	// issued code always supersedes a prior one.
	SetPendingCode(ctx context.Context, id, code string, expiresAt time.Time) error
	// ClearPendingCode clears the pending code only if it still equals the
	// code the caller observed. A superseding write in between is left intact.
	ClearPendingCode(ctx context.Context, id, code string) error
	// ConsumePendingCode atomically flips verified and clears the code in a
	// single conditional write. Returns ErrCodeSuperseded if the stored code
	// no longer matches.
	ConsumePendingCode(ctx context.Context, id, code string) error
}

// Querier is the subset of pgxpool.Pool the repository needs. Narrowed so the
// SQL paths are testable with pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, phone_number, full_name, shop_address, tax_id, payout_id, credential_hash, verified, otp_code, otp_expires, created_at`

// Create inserts a new account, mapping unique violations to typed conflicts.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	acctID, err := uuid.Parse(acct.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, phone_number, full_name, shop_address, tax_id, payout_id, credential_hash, verified, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		acctID, acct.PhoneNumber, acct.FullName, acct.ShopAddress, acct.TaxID, acct.PayoutID, acct.CredentialHash, acct.Verified, acct.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "accounts_tax_id_key" {
				return ErrTaxIDExists
			}
			return ErrPhoneExists
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FindByPhone fetches an account by its normalized phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone_number = $1`, phone)
	return scanAccount(row)
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, acctID)
	return scanAccount(row)
}

// UpdateCredential replaces the stored credential digest.
func (r *PostgresRepository) UpdateCredential(ctx context.Context, id string, digest []byte) error {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET credential_hash = $1 WHERE id = $2`, digest, acctID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPendingCode stores a freshly issued code, overwriting any prior one.
func (r *PostgresRepository) SetPendingCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET otp_code = $1, otp_expires = $2 WHERE id = $3`,
		code, expiresAt.UTC(), acctID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearPendingCode removes the pending code if it still matches the observed one.
func (r *PostgresRepository) ClearPendingCode(ctx context.Context, id, code string) error {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `UPDATE accounts SET otp_code = NULL, otp_expires = NULL WHERE id = $1 AND otp_code = $2`,
		acctID, code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ConsumePendingCode marks the account verified and clears the code in one
// conditional statement, so both fields change together or not at all.
func (r *PostgresRepository) ConsumePendingCode(ctx context.Context, id, code string) error {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET verified = TRUE, otp_code = NULL, otp_expires = NULL WHERE id = $1 AND otp_code = $2`,
		acctID, code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrCodeSuperseded
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acct      Account
		id        uuid.UUID
		code      *string
		expires   *time.Time
		createdAt time.Time
	)
	if err := row.Scan(&id, &acct.PhoneNumber, &acct.FullName, &acct.ShopAddress, &acct.TaxID, &acct.PayoutID,
		&acct.CredentialHash, &acct.Verified, &code, &expires, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	acct.ID = id.String()
	acct.CreatedAt = createdAt.UTC()
	if code != nil && expires != nil {
		acct.Pending = &PendingCode{Code: *code, ExpiresAt: expires.UTC()}
	}
	return acct, nil
}
