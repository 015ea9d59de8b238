package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Session is a live bank session of one account. It carries the renewal
// guard: a renewal is attempted at most once at a time per Session value,
// and the guard is never persisted so a new process always gets a fresh
// attempt.
type Session struct {
	factory *SessionFactory
	account model.Account
	record  *model.AuthRecord
	client  driven.BankSession

	renewalAttempted bool
}

// Account returns the account the session belongs to.
func (s *Session) Account() model.Account {
	return s.account
}

// Record returns the session's current AuthRecord.
func (s *Session) Record() *model.AuthRecord {
	return s.record
}

// Client returns the current protocol handle. A renewal replaces it.
func (s *Session) Client() driven.BankSession {
	return s.client
}

// Expired reports whether the session's authentication has expired.
func (s *Session) Expired() bool {
	return s.factory.expiry.IsExpired(s.record, s.factory.now())
}

// DaysExpired returns the days since the authentication expired.
func (s *Session) DaysExpired() int {
	return s.factory.expiry.DaysExpired(s.record, s.factory.now())
}

// CanAutoRenew reports whether an unattended renewal may be attempted: the
// record uses the unattended mode and no renewal is in progress for this
// session.
func (s *Session) CanAutoRenew() bool {
	return s.record.IsUnattended() && !s.renewalAttempted
}

// AttemptAutoRenewal re-authenticates without user interaction. It never
// returns an error or panics; every failure is logged and reported as false.
func (s *Session) AttemptAutoRenewal(ctx context.Context) (renewed bool) {
	// Set before any remote call so a renewal that itself trips a classified
	// auth error cannot recurse.
	s.renewalAttempted = true
	log := s.factory.logger.With("account", s.account.ID)

	defer func() {
		if v := recover(); v != nil {
			log.Error("auto-renewal failed", "panic", v)
			renewed = false
		}
	}()

	log.Info("attempting auto-renewal")

	if err := s.renew(ctx); err != nil {
		log.Error("auto-renewal failed", "error", err)
		return false
	}

	s.renewalAttempted = false
	log.Info("auto-renewal successful", "auth_expires", s.record.AuthExpires)
	return true
}

// errRenewalChallenge reports that the bank demanded a TAN during an
// unattended login, which means the exemption was revoked.
var errRenewalChallenge = fmt.Errorf("TAN required during unattended renewal: %w", model.ErrAuthInvalidated)

func (s *Session) renew(ctx context.Context) error {
	f := s.factory
	cfg := f.bankConfig(s.account)

	// A renewal always starts a clean anonymous dialog.
	fresh, err := connectWithMode(ctx, f.connector, cfg, nil, model.UnattendedTanModeID, "")
	if err != nil {
		return err
	}

	login, err := fresh.Login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if login.NeedsChallenge() {
		return errRenewalChallenge
	}

	state, err := fresh.Persist()
	if err != nil {
		return fmt.Errorf("persist renewed session: %w", err)
	}

	now := f.now()
	record, err := saveAuthenticated(ctx, f.records, s.account.ID, s.record.TanMode, s.record.TanMedium, state, now, f.expiry.Validity)
	if err != nil {
		return err
	}

	client, err := connectWithMode(ctx, f.connector, cfg, record.PersistedState, model.UnattendedTanModeID, "")
	if err != nil {
		return fmt.Errorf("resume renewed session: %w", err)
	}

	s.record = record
	s.client = client
	s.publishRenewed(ctx, now)
	return nil
}

func (s *Session) publishRenewed(ctx context.Context, now time.Time) {
	if s.factory.events == nil {
		return
	}
	event := model.AuthEvent{
		Kind:            model.AuthEventRenewed,
		Account:         s.account.ID,
		DaysUntilExpiry: s.factory.expiry.DaysUntilExpiry(s.record, now),
		AuthExpires:     s.record.AuthExpires,
		OccurredAt:      now,
	}
	if err := s.factory.events.Publish(ctx, event); err != nil {
		s.factory.logger.Warn("publish renewal event failed", "account", s.account.ID, "error", err)
	}
}

// PersistState stores the protocol client's current session state. Call it
// after operations that advanced the session.
func (s *Session) PersistState(ctx context.Context) error {
	state, err := s.client.Persist()
	if err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}
	s.record.PersistedState = state
	if err := s.factory.records.Save(ctx, s.record); err != nil {
		return fmt.Errorf("save auth record for %s: %w", s.account.ID, err)
	}
	return nil
}

// markExpired pessimistically invalidates the stored authentication.
func (s *Session) markExpired(ctx context.Context) {
	s.record.MarkExpired(s.factory.now())
	if err := s.factory.records.Save(ctx, s.record); err != nil {
		s.factory.logger.Error("mark authentication expired failed", "account", s.account.ID, "error", err)
		return
	}
	s.factory.logger.Warn("marked authentication as expired", "account", s.account.ID)
}
