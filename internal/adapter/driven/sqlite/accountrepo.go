package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port
// interface. The FinTS PIN is encrypted before write and decrypted after
// read; an empty PIN is stored as is.
type AccountRepo struct {
	db     *DB
	cipher pinCipher
}

// NewAccountRepo creates a new AccountRepo. key must be 32 bytes for
// AES-256-GCM, or nil; without a key accounts carrying a PIN can be neither
// stored nor loaded and those operations return driven.ErrEncryptionKeyNotSet.
func NewAccountRepo(db *DB, key []byte) *AccountRepo {
	return &AccountRepo{db: db, cipher: pinCipher{key: key}}
}

const accountColumns = `id, backend, fints_url, bank_code, username, pin, ident, created_at, updated_at`

// Get returns the account, or (nil, nil) if it does not exist.
func (r *AccountRepo) Get(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := r.scanAccount(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return account, nil
}

// ListAll returns every account ordered by id.
func (r *AccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Upsert inserts the account or replaces its settings.
func (r *AccountRepo) Upsert(ctx context.Context, account model.Account) error {
	var pin string
	if account.FinTS.PIN != "" {
		sealed, err := r.cipher.seal(account.FinTS.PIN)
		if err != nil {
			return fmt.Errorf("encrypt pin of %s: %w", account.ID, err)
		}
		pin = sealed
	}

	const query = `
		INSERT INTO accounts (id, backend, fints_url, bank_code, username, pin, ident)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			backend = excluded.backend,
			fints_url = excluded.fints_url,
			bank_code = excluded.bank_code,
			username = excluded.username,
			pin = excluded.pin,
			ident = excluded.ident,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		account.ID, account.Backend,
		account.FinTS.URL, account.FinTS.BankCode, account.FinTS.Username, pin, account.FinTS.Ident,
	)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", account.ID, err)
	}
	return nil
}

func (r *AccountRepo) scanAccount(s scanner) (*model.Account, error) {
	var a model.Account
	var pin, createdAt, updatedAt string

	err := s.Scan(
		&a.ID, &a.Backend,
		&a.FinTS.URL, &a.FinTS.BankCode, &a.FinTS.Username, &pin, &a.FinTS.Ident,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pin != "" {
		if a.FinTS.PIN, err = r.cipher.open(pin); err != nil {
			return nil, fmt.Errorf("decrypt pin of %s: %w", a.ID, err)
		}
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &a, nil
}
