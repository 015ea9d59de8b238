package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// WarningService notifies about authentications that are about to expire or
// have expired. Each escalation level is announced once; a successful
// authentication resets the level.
type WarningService struct {
	records  driven.AuthRecordStore
	events   driven.AuthEventPublisher
	expiry   model.ExpiryPolicy
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewWarningService creates a WarningService.
func NewWarningService(
	records driven.AuthRecordStore,
	events driven.AuthEventPublisher,
	expiry model.ExpiryPolicy,
	interval time.Duration,
	logger *slog.Logger,
) *WarningService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarningService{
		records:  records,
		events:   events,
		expiry:   expiry,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *WarningService) WithClock(now func() time.Time) *WarningService {
	s.now = now
	return s
}

// Start checks immediately, then on the configured interval, until the
// context is canceled.
func (s *WarningService) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	if _, err := s.CheckAll(ctx); err != nil {
		s.logger.Error("expiry warning check failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CheckAll(ctx); err != nil {
				s.logger.Error("expiry warning check failed", "error", err)
			}
		}
	}
}

// CheckAll escalates the warning level of every configured record that
// crossed a threshold and returns how many notifications were sent.
func (s *WarningService) CheckAll(ctx context.Context) (int, error) {
	records, err := s.records.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var sent int
	for i := range records {
		record := &records[i]
		if !record.IsConfigured() {
			continue
		}

		level := s.expiry.WarningLevel(record, now)
		if level <= record.WarningLevel {
			continue
		}

		// Claim the level first so a concurrent renewal wins over a stale
		// snapshot: the update only applies while auth_expires is unchanged.
		sentAt := now
		claimed, err := s.records.UpdateWarning(ctx, record.Account, level, &sentAt, record.AuthExpires)
		if err != nil {
			s.logger.Error("save warning level failed", "account", record.Account, "error", err)
			continue
		}
		if !claimed {
			s.logger.Debug("auth record changed since read, skipping warning", "account", record.Account)
			continue
		}

		kind := model.AuthEventExpiring
		if level == model.WarningLevelExpired {
			kind = model.AuthEventExpired
		}
		event := model.AuthEvent{
			Kind:            kind,
			Account:         record.Account,
			WarningLevel:    level,
			DaysUntilExpiry: s.expiry.DaysUntilExpiry(record, now),
			AuthExpires:     record.AuthExpires,
			OccurredAt:      now,
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Error("publish expiry warning failed", "account", record.Account, "error", err)
			// Roll back so the next check retries this level.
			if _, err := s.records.UpdateWarning(ctx, record.Account, record.WarningLevel, record.LastWarningSent, record.AuthExpires); err != nil {
				s.logger.Error("restore warning level failed", "account", record.Account, "error", err)
			}
			continue
		}

		s.logger.Info("expiry warning sent", "account", record.Account, "level", level, "days_until_expiry", event.DaysUntilExpiry)
		sent++
	}
	return sent, nil
}
