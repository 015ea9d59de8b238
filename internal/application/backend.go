package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// Backend is the capability set every import backend offers.
type Backend interface {
	// Identity returns the account the backend imports into.
	Identity() string

	// CheckSetup verifies that the backend can reach the bank and returns a
	// human-readable confirmation.
	CheckSetup(ctx context.Context) (string, error)

	// ImportSince imports all transactions booked on or after since and
	// returns the number of newly stored transactions.
	ImportSince(ctx context.Context, since time.Time) (int, error)
}

// BackendOpener creates a Backend for an account of the opener's kind.
type BackendOpener interface {
	Open(ctx context.Context, account model.Account) (Backend, error)
}

// BackendOpenerFunc adapts a function to the BackendOpener interface.
type BackendOpenerFunc func(ctx context.Context, account model.Account) (Backend, error)

// Open calls f(ctx, account).
func (f BackendOpenerFunc) Open(ctx context.Context, account model.Account) (Backend, error) {
	return f(ctx, account)
}

// BackendRegistry resolves openers by backend kind.
type BackendRegistry map[string]BackendOpener

// Open opens the backend of the account's kind.
func (r BackendRegistry) Open(ctx context.Context, account model.Account) (Backend, error) {
	opener, ok := r[account.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedBackend, account.Backend)
	}
	return opener.Open(ctx, account)
}
