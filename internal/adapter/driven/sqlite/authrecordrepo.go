package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthRecordStore = (*AuthRecordRepo)(nil)

// AuthRecordRepo is the SQLite implementation of the AuthRecordStore port
// interface. The persisted protocol state is stored as an opaque BLOB.
type AuthRecordRepo struct {
	db *DB
}

// NewAuthRecordRepo creates a new AuthRecordRepo backed by the given DB.
func NewAuthRecordRepo(db *DB) *AuthRecordRepo {
	return &AuthRecordRepo{db: db}
}

const authRecordColumns = `account, tan_mode, tan_medium, persisted_state, last_auth, auth_expires,
	warning_level, last_warning_sent, created_at, updated_at`

// Get returns the record of an account, or (nil, nil) if none exists.
func (r *AuthRecordRepo) Get(ctx context.Context, account string) (*model.AuthRecord, error) {
	query := `SELECT ` + authRecordColumns + ` FROM auth_records WHERE account = ?`

	record, err := scanAuthRecord(r.db.Reader.QueryRowContext(ctx, query, account))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth record for %s: %w", account, err)
	}
	return record, nil
}

// Save inserts the record or replaces every field of the existing one.
// created_at is kept on update.
func (r *AuthRecordRepo) Save(ctx context.Context, record *model.AuthRecord) error {
	const query = `
		INSERT INTO auth_records (account, tan_mode, tan_medium, persisted_state, last_auth,
			auth_expires, warning_level, last_warning_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			tan_mode = excluded.tan_mode,
			tan_medium = excluded.tan_medium,
			persisted_state = excluded.persisted_state,
			last_auth = excluded.last_auth,
			auth_expires = excluded.auth_expires,
			warning_level = excluded.warning_level,
			last_warning_sent = excluded.last_warning_sent,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		record.Account,
		record.TanMode,
		record.TanMedium,
		record.PersistedState,
		formatNullTime(record.LastAuth),
		formatNullTime(record.AuthExpires),
		record.WarningLevel,
		formatNullTime(record.LastWarningSent),
	)
	if err != nil {
		return fmt.Errorf("save auth record for %s: %w", record.Account, err)
	}
	return nil
}

// UpdateWarning writes the warning fields of an account whose auth_expires
// is unchanged since it was read. The session state and validity window are
// never touched here.
func (r *AuthRecordRepo) UpdateWarning(ctx context.Context, account string, level int, sentAt, expectedExpires *time.Time) (bool, error) {
	const query = `
		UPDATE auth_records
		SET warning_level = ?, last_warning_sent = ?, updated_at = CURRENT_TIMESTAMP
		WHERE account = ? AND auth_expires IS ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		level,
		formatNullTime(sentAt),
		account,
		formatNullTime(expectedExpires),
	)
	if err != nil {
		return false, fmt.Errorf("update warning for %s: %w", account, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update warning for %s: %w", account, err)
	}
	return n > 0, nil
}

// ListAll returns every record ordered by account.
func (r *AuthRecordRepo) ListAll(ctx context.Context) ([]model.AuthRecord, error) {
	query := `SELECT ` + authRecordColumns + ` FROM auth_records ORDER BY account`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list auth records: %w", err)
	}
	defer rows.Close()

	var records []model.AuthRecord
	for rows.Next() {
		record, err := scanAuthRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auth record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth records: %w", err)
	}
	return records, nil
}

func scanAuthRecord(s scanner) (*model.AuthRecord, error) {
	var rec model.AuthRecord
	var lastAuth, authExpires, lastWarning sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&rec.Account, &rec.TanMode, &rec.TanMedium, &rec.PersistedState,
		&lastAuth, &authExpires, &rec.WarningLevel, &lastWarning,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.LastAuth, err = parseNullTime(lastAuth); err != nil {
		return nil, fmt.Errorf("parse last_auth: %w", err)
	}
	if rec.AuthExpires, err = parseNullTime(authExpires); err != nil {
		return nil, fmt.Errorf("parse auth_expires: %w", err)
	}
	if rec.LastWarningSent, err = parseNullTime(lastWarning); err != nil {
		return nil, fmt.Errorf("parse last_warning_sent: %w", err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rec, nil
}
