package model

import "time"

// UnattendedTanModeID is the reserved TAN mode identifier for sessions that
// need no interactive challenge and can therefore be renewed automatically.
const UnattendedTanModeID = "-1"

// AuthRecord is the persisted authentication state of one bank account.
// PersistedState is produced and consumed only by the banking protocol
// client; it is stored and forwarded verbatim.
type AuthRecord struct {
	Account         string
	TanMode         string
	TanMedium       string
	PersistedState  []byte
	LastAuth        *time.Time
	AuthExpires     *time.Time
	WarningLevel    int
	LastWarningSent *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsConfigured reports whether a TAN mode has been selected for the account.
func (r *AuthRecord) IsConfigured() bool {
	return r != nil && r.TanMode != ""
}

// IsUnattended reports whether the record uses the unattended TAN mode.
func (r *AuthRecord) IsUnattended() bool {
	return r != nil && r.TanMode == UnattendedTanModeID
}

// MarkAuthenticated records a successful full authentication at now. The
// expiry is set to now plus validity and the warning bookkeeping is reset.
func (r *AuthRecord) MarkAuthenticated(now time.Time, validity time.Duration) {
	lastAuth := now
	expires := now.Add(validity)
	r.LastAuth = &lastAuth
	r.AuthExpires = &expires
	r.WarningLevel = 0
	r.LastWarningSent = nil
}

// MarkExpired forces the record to be considered expired from now on.
func (r *AuthRecord) MarkExpired(now time.Time) {
	expires := now
	r.AuthExpires = &expires
}
