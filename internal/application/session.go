package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// ProductInfo identifies this software towards the bank.
type ProductInfo struct {
	Name    string
	Version string
}

// SessionFactory opens ready-to-use bank sessions for accounts. It resumes
// the persisted protocol state, selects the stored TAN mode and renews an
// expired unattended authentication before handing the session out.
type SessionFactory struct {
	connector driven.BankConnector
	records   driven.AuthRecordStore
	policy    *PolicyProvider
	expiry    model.ExpiryPolicy
	product   ProductInfo
	events    driven.AuthEventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewSessionFactory creates a SessionFactory. events may be nil. A nil
// logger falls back to slog.Default().
func NewSessionFactory(
	connector driven.BankConnector,
	records driven.AuthRecordStore,
	policy *PolicyProvider,
	expiry model.ExpiryPolicy,
	product ProductInfo,
	events driven.AuthEventPublisher,
	logger *slog.Logger,
) *SessionFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionFactory{
		connector: connector,
		records:   records,
		policy:    policy,
		expiry:    expiry,
		product:   product,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (f *SessionFactory) WithClock(now func() time.Time) *SessionFactory {
	f.now = now
	return f
}

// Open builds a session for the account. It fails with model.ErrNotConfigured
// when no TAN mode has been set up, and with *model.AuthExpiredError when the
// authentication expired and could not be renewed unattended. Open may
// update the stored AuthRecord through a renewal.
func (f *SessionFactory) Open(ctx context.Context, account model.Account) (*Session, error) {
	record, err := f.records.Get(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("load auth record for %s: %w", account.ID, err)
	}
	if !record.IsConfigured() {
		return nil, model.ErrNotConfigured
	}

	client, err := f.connect(ctx, account, record.PersistedState, record.TanMode, record.TanMedium)
	if err != nil {
		return nil, err
	}

	s := &Session{
		factory: f,
		account: account,
		record:  record,
		client:  client,
	}

	if f.expiry.IsExpired(record, f.now()) {
		f.logger.Info("expired authentication detected on open", "account", account.ID)
		if !s.CanAutoRenew() || !s.AttemptAutoRenewal(ctx) {
			return nil, &model.AuthExpiredError{
				Account:     account.ID,
				DaysExpired: f.expiry.DaysExpired(s.record, f.now()),
			}
		}
	}

	return s, nil
}

// bankConfig assembles the connection settings of an account.
func (f *SessionFactory) bankConfig(account model.Account) model.BankConfig {
	return bankConfigFor(account, f.product)
}

func bankConfigFor(account model.Account, product ProductInfo) model.BankConfig {
	return model.BankConfig{
		URL:            account.FinTS.URL,
		BankCode:       account.FinTS.BankCode,
		Username:       account.FinTS.Username,
		PIN:            account.FinTS.PIN,
		ProductName:    product.Name,
		ProductVersion: product.Version,
	}
}

// connect opens a protocol handle and selects the given TAN mode. An empty
// mode leaves the selection to the caller.
func (f *SessionFactory) connect(ctx context.Context, account model.Account, persisted []byte, mode, medium string) (driven.BankSession, error) {
	return connectWithMode(ctx, f.connector, f.bankConfig(account), persisted, mode, medium)
}

func connectWithMode(ctx context.Context, connector driven.BankConnector, cfg model.BankConfig, persisted []byte, mode, medium string) (driven.BankSession, error) {
	client, err := connector.Connect(ctx, cfg, persisted)
	if err != nil {
		return nil, fmt.Errorf("connect to bank: %w", err)
	}

	switch mode {
	case "":
	case model.UnattendedTanModeID:
		if err := client.SelectUnattendedMode(); err != nil {
			return nil, fmt.Errorf("select unattended TAN mode: %w", err)
		}
	default:
		if err := client.SelectMode(mode, medium); err != nil {
			return nil, fmt.Errorf("select TAN mode %s: %w", mode, err)
		}
	}
	return client, nil
}

// saveAuthenticated writes a successful authentication for the account,
// replacing the persisted state wholesale and restarting the validity window.
func saveAuthenticated(
	ctx context.Context,
	records driven.AuthRecordStore,
	account, mode, medium string,
	state []byte,
	now time.Time,
	validity time.Duration,
) (*model.AuthRecord, error) {
	record, err := records.Get(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load auth record for %s: %w", account, err)
	}
	if record == nil {
		record = &model.AuthRecord{Account: account}
	}

	record.TanMode = mode
	record.TanMedium = medium
	record.PersistedState = state
	record.MarkAuthenticated(now, validity)

	if err := records.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save auth record for %s: %w", account, err)
	}
	return record, nil
}
