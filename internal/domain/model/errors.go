package model

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthInvalidated is the classification of a remote error that means
	// the bank dialog or authentication is no longer valid. It never reaches
	// callers of the session API directly.
	ErrAuthInvalidated = errors.New("bank authentication invalidated")

	// ErrSetupSessionExpired is returned by the setup wizard when the
	// transient state of an in-flight setup is missing or unusable.
	ErrSetupSessionExpired = errors.New("setup session expired, please start over")

	// ErrNotConfigured is returned when an account has no TAN mode yet.
	ErrNotConfigured = errors.New("account not yet configured, complete the TAN mode setup via the web interface")

	// ErrNoChallengeResponse is returned when an empty TAN is submitted.
	ErrNoChallengeResponse = errors.New("no TAN provided")

	// ErrUnknownTanMode is returned when a selected mode is not offered.
	ErrUnknownTanMode = errors.New("invalid TAN mode selected")

	// ErrAccountNotFound is returned when an account id is not registered.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnsupportedBackend is returned when an account uses a backend kind
	// that offers no session lifecycle.
	ErrUnsupportedBackend = errors.New("account backend not supported")
)

// AuthExpiredError reports that the authentication of an account passed its
// validity window and could not be renewed without user interaction.
type AuthExpiredError struct {
	Account     string
	DaysExpired int
}

func (e *AuthExpiredError) Error() string {
	msg := fmt.Sprintf("FinTS authentication for account '%s' has expired", e.Account)
	if e.DaysExpired > 0 {
		msg += fmt.Sprintf(" (%d days ago)", e.DaysExpired)
	}
	return msg + ". Please re-authenticate via the web interface."
}

// ChallengeRequiredError reports that an operation demanded a TAN. It is
// surfaced to the caller instead of being retried.
type ChallengeRequiredError struct {
	Account   string
	Challenge *TanChallenge
}

func (e *ChallengeRequiredError) Error() string {
	return fmt.Sprintf("FinTS operation for account '%s' requires TAN input. Please complete authentication via the web interface.", e.Account)
}

// RemoteError is a failure reported by the bank or the protocol gateway.
// Code carries the bank's return code when one was reported.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return "remote operation failed: " + e.Message
	}
	return fmt.Sprintf("remote operation failed: %s %s", e.Code, e.Message)
}
