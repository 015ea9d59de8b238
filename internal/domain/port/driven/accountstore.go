package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by AccountStore writes and reads of
// encrypted fields when BANKSTER_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set BANKSTER_SECRET_KEY")

// AccountStore defines the driven port for registered bank accounts.
// Get returns (nil, nil) when the account does not exist. The adapter
// encrypts the FinTS PIN at rest; this interface operates on plaintext.
type AccountStore interface {
	Get(ctx context.Context, id string) (*model.Account, error)
	ListAll(ctx context.Context) ([]model.Account, error)
	Upsert(ctx context.Context, account model.Account) error
}
