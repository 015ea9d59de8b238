package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// AuthRecordStore defines the driven port for authentication state
// persistence. Get returns (nil, nil) when no record exists for the account,
// which is distinct from a record that exists but is not configured.
type AuthRecordStore interface {
	Get(ctx context.Context, account string) (*model.AuthRecord, error)

	// Save inserts or replaces the whole record.
	Save(ctx context.Context, record *model.AuthRecord) error

	// ListAll returns every stored record ordered by account.
	ListAll(ctx context.Context) ([]model.AuthRecord, error)

	// UpdateWarning sets only the warning level and the time the warning was
	// sent, and only while the record's expiry still equals expectedExpires.
	// It reports false when the record is missing or was re-authenticated
	// since it was read.
	UpdateWarning(ctx context.Context, account string, level int, sentAt, expectedExpires *time.Time) (bool, error)
}
