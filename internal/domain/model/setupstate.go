package model

import "time"

// SetupState is the transient state of an in-flight setup wizard, kept
// between the authentication step and the challenge response.
type SetupState struct {
	Account        string
	TanMode        string
	TanMedium      string
	Pending        []byte
	PersistedState []byte
	CreatedAt      time.Time
}

// AwaitingChallenge reports whether the state carries a pending login.
func (s *SetupState) AwaitingChallenge() bool {
	return s != nil && len(s.Pending) > 0 && len(s.PersistedState) > 0
}
