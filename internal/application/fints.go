package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// FinTSOpener opens FinTS backends through the SessionFactory.
type FinTSOpener struct {
	sessions     *SessionFactory
	transactions driven.TransactionStore
	logger       *slog.Logger
}

// NewFinTSOpener creates a FinTSOpener.
func NewFinTSOpener(sessions *SessionFactory, transactions driven.TransactionStore, logger *slog.Logger) *FinTSOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinTSOpener{sessions: sessions, transactions: transactions, logger: logger}
}

// Open opens a session for the account. Expired or unconfigured accounts fail
// here, before any business operation is attempted.
func (o *FinTSOpener) Open(ctx context.Context, account model.Account) (Backend, error) {
	session, err := o.sessions.Open(ctx, account)
	if err != nil {
		return nil, err
	}
	return &FinTSBackend{
		session:      session,
		transactions: o.transactions,
		logger:       o.logger.With("account", account.ID),
		now:          o.sessions.now,
	}, nil
}

// FinTSBackend imports transactions over a renewable FinTS session.
type FinTSBackend struct {
	session      *Session
	transactions driven.TransactionStore
	logger       *slog.Logger
	now          func() time.Time
}

// Identity returns the account id.
func (b *FinTSBackend) Identity() string {
	return b.session.Account().ID
}

// CheckSetup identifies the bank account and persists the session state.
func (b *FinTSBackend) CheckSetup(ctx context.Context) (string, error) {
	if !b.session.Record().IsConfigured() {
		return "", model.ErrNotConfigured
	}

	account, err := b.identifyAccount(ctx)
	if err != nil {
		return "", err
	}
	if err := b.session.PersistState(ctx); err != nil {
		return "", err
	}
	return "Connected successfully to account " + account.AccountNumber, nil
}

// identifyAccount picks the bank account to import: the first one reported,
// or the one whose number or IBAN contains the configured ident.
func (b *FinTSBackend) identifyAccount(ctx context.Context) (model.BankAccount, error) {
	id := b.session.Account().ID
	ident := b.session.Account().FinTS.Ident

	return RunWithRenewal(ctx, b.session, func(ctx context.Context, client driven.BankSession) (model.BankAccount, error) {
		res, err := client.ListAccounts(ctx)
		if err != nil {
			return model.BankAccount{}, err
		}
		if res.Challenge != nil {
			return model.BankAccount{}, &model.ChallengeRequiredError{Account: id, Challenge: res.Challenge}
		}
		if len(res.Accounts) == 0 {
			return model.BankAccount{}, errors.New("bank reported no accounts")
		}
		b.logger.Info("found accounts", "count", len(res.Accounts))

		selected := res.Accounts[0]
		if ident != "" {
			for _, acc := range res.Accounts {
				if strings.Contains(acc.AccountNumber, ident) || strings.Contains(acc.IBAN, ident) {
					selected = acc
					break
				}
			}
		}
		return selected, nil
	})
}

// ImportSince fetches the statement from since until now and stores its
// bookings. Future-dated bookings and bookings before since are skipped.
func (b *FinTSBackend) ImportSince(ctx context.Context, since time.Time) (int, error) {
	id := b.session.Account().ID
	if b.session.Expired() {
		return 0, &model.AuthExpiredError{Account: id, DaysExpired: b.session.DaysExpired()}
	}

	account, err := b.identifyAccount(ctx)
	if err != nil {
		return 0, err
	}

	now := b.now()
	today := calendarDate(now)
	sinceDate := calendarDate(since)

	return RunWithRenewal(ctx, b.session, func(ctx context.Context, client driven.BankSession) (int, error) {
		res, err := client.FetchStatement(ctx, account, since, now)
		if err != nil {
			return 0, err
		}
		if res.Challenge != nil {
			return 0, &model.ChallengeRequiredError{Account: id, Challenge: res.Challenge}
		}

		var stored int
		for _, entry := range res.Transactions {
			tx := toTransaction(id, entry)

			booked := calendarDate(tx.BookedAt)
			if booked.After(today) {
				b.logger.Warn("skipping future transaction", "transaction", tx.String())
				continue
			}
			if booked.Before(sinceDate) {
				b.logger.Warn("skipping too old transaction", "transaction", tx.String())
				continue
			}

			inserted, err := b.transactions.Insert(ctx, tx)
			if err != nil {
				return stored, fmt.Errorf("store transaction: %w", err)
			}
			if inserted {
				stored++
			}
		}

		if err := b.session.PersistState(ctx); err != nil {
			return stored, err
		}
		return stored, nil
	})
}

// calendarDate returns the date of t in its own location as UTC midnight,
// so dates from different zones compare by calendar day.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// toTransaction converts a statement entry; debits are negated.
func toTransaction(account string, entry model.StatementEntry) model.Transaction {
	amount := entry.Amount
	if entry.CreditDebit == model.Debit {
		amount = amount.Neg()
	}

	var parts []string
	for _, p := range []string{entry.MainDescription, entry.BookingText} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return model.Transaction{
		Account:     account,
		BookedAt:    entry.BookingDate,
		Amount:      amount,
		Description: strings.Join(parts, "\n"),
		XName:       entry.Name,
		XBank:       entry.BankCode,
		XAccount:    entry.AccountNumber,
	}
}
