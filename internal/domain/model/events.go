package model

import "time"

// AuthEventKind distinguishes authentication lifecycle events.
type AuthEventKind string

const (
	AuthEventExpiring AuthEventKind = "auth_expiring"
	AuthEventExpired  AuthEventKind = "auth_expired"
	AuthEventRenewed  AuthEventKind = "auth_renewed"
)

// AuthEvent is published when the authentication state of an account
// changes in a way a user should hear about.
type AuthEvent struct {
	Kind            AuthEventKind `json:"kind"`
	Account         string        `json:"account"`
	WarningLevel    int           `json:"warning_level"`
	DaysUntilExpiry int           `json:"days_until_expiry"`
	AuthExpires     *time.Time    `json:"auth_expires,omitempty"`
	OccurredAt      time.Time     `json:"occurred_at"`
}
