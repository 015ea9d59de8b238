package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// SetupStateStore defines the driven port for the short-lived state of the
// setup wizard. Keys combine the initiating actor and the account so that
// in-flight setups never leak between actors or accounts.
type SetupStateStore interface {
	Put(ctx context.Context, key string, state model.SetupState, ttl time.Duration) error

	// Get returns (nil, nil) when no state exists or it has expired.
	Get(ctx context.Context, key string) (*model.SetupState, error)

	Delete(ctx context.Context, key string) error
}
