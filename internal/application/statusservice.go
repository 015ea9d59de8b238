package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// StatusService assembles the authentication status of accounts for the
// HTTP API and the web GUI. It depends only on port interfaces.
type StatusService struct {
	accounts driven.AccountStore
	records  driven.AuthRecordStore
	expiry   model.ExpiryPolicy
	now      func() time.Time
}

// NewStatusService creates a new StatusService with the required dependencies.
func NewStatusService(accounts driven.AccountStore, records driven.AuthRecordStore, expiry model.ExpiryPolicy) *StatusService {
	return &StatusService{
		accounts: accounts,
		records:  records,
		expiry:   expiry,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *StatusService) WithClock(now func() time.Time) *StatusService {
	s.now = now
	return s
}

// ListStatuses returns the status of every registered account.
func (s *StatusService) ListStatuses(ctx context.Context) ([]model.AuthStatus, error) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]model.AuthStatus, 0, len(accounts))
	for _, account := range accounts {
		status, err := s.statusFor(ctx, account)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// GetStatus returns the status of one account, or (nil, nil) when the
// account does not exist.
func (s *StatusService) GetStatus(ctx context.Context, id string) (*model.AuthStatus, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}
	status, err := s.statusFor(ctx, *account)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *StatusService) statusFor(ctx context.Context, account model.Account) (model.AuthStatus, error) {
	status := model.AuthStatus{Account: account.ID, Backend: account.Backend}
	if account.Backend != model.BackendFinTS {
		return status, nil
	}

	record, err := s.records.Get(ctx, account.ID)
	if err != nil {
		return status, fmt.Errorf("load auth record for %s: %w", account.ID, err)
	}

	now := s.now()
	status.Configured = record.IsConfigured()
	status.Expired = s.expiry.IsExpired(record, now)
	status.NeedsWarning = s.expiry.NeedsWarning(record, now)
	status.DaysUntilExpiry = s.expiry.DaysUntilExpiry(record, now)
	if record != nil {
		status.TanMode = record.TanMode
		status.TanMedium = record.TanMedium
		status.LastAuth = record.LastAuth
		status.AuthExpires = record.AuthExpires
		status.WarningLevel = record.WarningLevel
	}
	return status, nil
}
