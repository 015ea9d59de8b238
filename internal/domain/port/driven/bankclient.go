package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// BankConnector defines the driven port that opens protocol dialogs with a
// bank. The wire protocol and the challenge cryptography live behind it.
type BankConnector interface {
	// Connect builds a session handle. A nil persisted state starts a fresh
	// anonymous dialog; otherwise the prior session is resumed.
	Connect(ctx context.Context, cfg model.BankConfig, persisted []byte) (BankSession, error)
}

// BankSession is a live protocol-client handle. Errors carry the bank's
// message text, which is the only classification signal available.
type BankSession interface {
	// SelectUnattendedMode selects the reserved mode that needs no challenge.
	SelectUnattendedMode() error

	// SelectMode selects a regular TAN mode by id, with an optional medium.
	SelectMode(modeID, medium string) error

	Login(ctx context.Context) (model.LoginResult, error)

	// SubmitChallengeResponse completes the pending operation serialized in
	// pending with the user's TAN.
	SubmitChallengeResponse(ctx context.Context, pending []byte, response string) error

	ListAccounts(ctx context.Context) (model.AccountsResult, error)
	FetchStatement(ctx context.Context, account model.BankAccount, from, to time.Time) (model.StatementResult, error)

	ListModes(ctx context.Context) ([]model.TanMode, error)
	ListMedia(ctx context.Context, mode model.TanMode) ([]model.TanMedium, error)

	// Persist returns the opaque session state to store and resume later.
	Persist() ([]byte, error)
}
