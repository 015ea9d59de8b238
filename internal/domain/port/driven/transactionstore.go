package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// TransactionStore defines the driven port for imported transactions.
type TransactionStore interface {
	// Insert stores a transaction unless an identical booking already
	// exists. It reports whether a row was written.
	Insert(ctx context.Context, tx model.Transaction) (bool, error)

	// LatestBookedAt returns the booking time of the newest transaction of
	// the account, or nil when the account has none.
	LatestBookedAt(ctx context.Context, account string) (*time.Time, error)

	ListByAccount(ctx context.Context, account string) ([]model.Transaction, error)
}
