package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TransactionStore = (*TransactionRepo)(nil)

// TransactionRepo is the SQLite implementation of the TransactionStore port
// interface. Amounts are stored as canonical decimal text; a unique index
// over the booking fields makes repeated imports idempotent.
type TransactionRepo struct {
	db *DB
}

// NewTransactionRepo creates a new TransactionRepo backed by the given DB.
func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Insert stores tx unless the same booking was imported before.
func (r *TransactionRepo) Insert(ctx context.Context, tx model.Transaction) (bool, error) {
	const query = `
		INSERT OR IGNORE INTO transactions
			(account, booked_at, amount, description, x_name, x_bank, x_account)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		tx.Account, formatTime(tx.BookedAt), tx.Amount.String(),
		tx.Description, tx.XName, tx.XBank, tx.XAccount,
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction %s: %w", tx, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// LatestBookedAt returns the newest booking time of the account, or nil.
func (r *TransactionRepo) LatestBookedAt(ctx context.Context, account string) (*time.Time, error) {
	const query = `SELECT MAX(booked_at) FROM transactions WHERE account = ?`

	var latest sql.NullString
	if err := r.db.Reader.QueryRowContext(ctx, query, account).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest booking of %s: %w", account, err)
	}

	t, err := parseNullTime(latest)
	if err != nil {
		return nil, fmt.Errorf("parse booked_at: %w", err)
	}
	return t, nil
}

// ListByAccount returns the account's transactions, oldest first.
func (r *TransactionRepo) ListByAccount(ctx context.Context, account string) ([]model.Transaction, error) {
	const query = `
		SELECT id, account, booked_at, amount, description, x_name, x_bank, x_account
		FROM transactions
		WHERE account = ?
		ORDER BY booked_at, id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("list transactions of %s: %w", account, err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		var bookedAt, amount string
		if err := rows.Scan(&tx.ID, &tx.Account, &bookedAt, &amount,
			&tx.Description, &tx.XName, &tx.XBank, &tx.XAccount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		if tx.BookedAt, err = parseTime(bookedAt); err != nil {
			return nil, fmt.Errorf("parse booked_at: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}
