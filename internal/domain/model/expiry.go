package model

import (
	"math"
	"time"
)

// Defaults for the validity window and the warning threshold. Both are
// overridable through configuration.
const (
	DefaultAuthValidity     = 90 * 24 * time.Hour
	DefaultWarningThreshold = 7 * 24 * time.Hour
)

// NoExpiryDays is returned by DaysUntilExpiry when a record carries no expiry.
const NoExpiryDays = -1

// ExpiryPolicy evaluates an AuthRecord against a point in time. It has no
// side effects. A nil record is treated as absent.
type ExpiryPolicy struct {
	Validity         time.Duration
	WarningThreshold time.Duration
}

// DefaultExpiryPolicy returns the policy with a 90 day validity window and a
// 7 day warning threshold.
func DefaultExpiryPolicy() ExpiryPolicy {
	return ExpiryPolicy{
		Validity:         DefaultAuthValidity,
		WarningThreshold: DefaultWarningThreshold,
	}
}

// IsExpired is true when the record or its expiry is missing, or when now is
// at or after the expiry.
func (p ExpiryPolicy) IsExpired(r *AuthRecord, now time.Time) bool {
	if r == nil || r.AuthExpires == nil {
		return true
	}
	return !now.Before(*r.AuthExpires)
}

// NeedsWarning is true when the record or its expiry is missing, or when the
// expiry falls within the warning threshold from now.
func (p ExpiryPolicy) NeedsWarning(r *AuthRecord, now time.Time) bool {
	if r == nil || r.AuthExpires == nil {
		return true
	}
	return !now.Add(p.WarningThreshold).Before(*r.AuthExpires)
}

// DaysUntilExpiry returns the whole days between now and the expiry, rounded
// towards negative infinity: 5 days ahead yields 5, 4 days and 23 hours
// yields 4, one hour past expiry yields -1. Records without an expiry yield
// NoExpiryDays; callers must check IsExpired to tell it apart.
func (p ExpiryPolicy) DaysUntilExpiry(r *AuthRecord, now time.Time) int {
	if r == nil || r.AuthExpires == nil {
		return NoExpiryDays
	}
	remaining := r.AuthExpires.Sub(now)
	return int(math.Floor(remaining.Hours() / 24))
}

// DaysExpired is the positive number of days since expiry, or 0 when the
// record has not expired or has no expiry at all.
func (p ExpiryPolicy) DaysExpired(r *AuthRecord, now time.Time) int {
	if r == nil || r.AuthExpires == nil {
		return 0
	}
	days := -p.DaysUntilExpiry(r, now)
	if days < 0 {
		return 0
	}
	return days
}

// WarningLevel maps the record state to the escalation level used for expiry
// notifications: 0 nothing to report, 1 expiring soon, 2 expired.
func (p ExpiryPolicy) WarningLevel(r *AuthRecord, now time.Time) int {
	switch {
	case p.IsExpired(r, now):
		return WarningLevelExpired
	case p.NeedsWarning(r, now):
		return WarningLevelExpiring
	default:
		return WarningLevelNone
	}
}

// Warning escalation levels stored on AuthRecord.WarningLevel.
const (
	WarningLevelNone     = 0
	WarningLevelExpiring = 1
	WarningLevelExpired  = 2
)
