package model

import "time"

// ImportOutcome classifies the result of importing one account.
type ImportOutcome string

const (
	OutcomeImported                 ImportOutcome = "imported"
	OutcomeSkippedExpired           ImportOutcome = "skipped_expired"
	OutcomeSkippedChallengeRequired ImportOutcome = "skipped_challenge_required"
	OutcomeFailed                   ImportOutcome = "failed"
)

// ImportResult is the per-account report of a batch import.
type ImportResult struct {
	Account  string
	Outcome  ImportOutcome
	Imported int
	Err      error
}

// AuthStatus summarizes the authentication state of an account for display.
type AuthStatus struct {
	Account         string
	Backend         string
	Configured      bool
	TanMode         string
	TanMedium       string
	LastAuth        *time.Time
	AuthExpires     *time.Time
	DaysUntilExpiry int
	Expired         bool
	NeedsWarning    bool
	WarningLevel    int
}
