package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/domain/model"
)

var (
	giroAccount    = model.BankAccount{AccountNumber: "1234567", IBAN: "DE02120300000001234567", BankCode: "12030000"}
	savingsAccount = model.BankAccount{AccountNumber: "7654321", IBAN: "DE02120300000007654321", BankCode: "12030000"}
)

func statementFixture() []model.StatementEntry {
	return []model.StatementEntry{
		{
			BookingDate:     testNow.Add(-48 * time.Hour),
			Amount:          decimal.RequireFromString("2500.00"),
			CreditDebit:     model.Credit,
			MainDescription: "Gehalt Oktober",
			Name:            "ACME GmbH",
		},
		{
			BookingDate:     testNow.Add(-24 * time.Hour),
			Amount:          decimal.RequireFromString("3.99"),
			CreditDebit:     model.Debit,
			MainDescription: "Kaffee",
			BookingText:     "KARTENZAHLUNG",
		},
		{
			BookingDate: testNow.Add(72 * time.Hour),
			Amount:      decimal.RequireFromString("100"),
			CreditDebit: model.Debit,
		},
		{
			BookingDate: testNow.Add(-30 * 24 * time.Hour),
			Amount:      decimal.RequireFromString("1"),
			CreditDebit: model.Credit,
		},
	}
}

func openFinTSBackend(t *testing.T, bank *mockBank, records *mockRecordStore, txs *mockTransactionStore, account model.Account) application.Backend {
	t.Helper()
	opener := application.NewFinTSOpener(newTestFactory(bank, records, nil), txs, quietLogger())
	backend, err := opener.Open(context.Background(), account)
	require.NoError(t, err)
	return backend
}

func TestFinTSBackend_ImportSince(t *testing.T) {
	bank := &mockBank{accounts: []model.BankAccount{giroAccount, savingsAccount}, statement: statementFixture()}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	txs := &mockTransactionStore{}
	backend := openFinTSBackend(t, bank, records, txs, testAccount("acct-1"))

	n, err := backend.ImportSince(context.Background(), testNow.Add(-10*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, txs.txs, 2)
	assert.True(t, decimal.RequireFromString("2500").Equal(txs.txs[0].Amount))
	assert.True(t, decimal.RequireFromString("-3.99").Equal(txs.txs[1].Amount))
	assert.Equal(t, "Kaffee\nKARTENZAHLUNG", txs.txs[1].Description)
	assert.Equal(t, "ACME GmbH", txs.txs[0].XName)
	assert.Equal(t, "acct-1", txs.txs[0].Account)

	require.Len(t, bank.fetched, 1)
	assert.Equal(t, giroAccount, bank.fetched[0])
	assert.Equal(t, []byte("stored-state+"), records.records["acct-1"].PersistedState)

	n, err = backend.ImportSince(context.Background(), testNow.Add(-10*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "re-import stores nothing twice")
}

func TestFinTSBackend_SelectsAccountByIdent(t *testing.T) {
	bank := &mockBank{accounts: []model.BankAccount{giroAccount, savingsAccount}}
	account := testAccount("acct-1")
	account.FinTS.Ident = "7654321"
	backend := openFinTSBackend(t, bank, newMockRecordStore(authRecord("921", 30)), &mockTransactionStore{}, account)

	_, err := backend.ImportSince(context.Background(), testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, bank.fetched, 1)
	assert.Equal(t, savingsAccount, bank.fetched[0])
}

func TestFinTSBackend_RenewsMidImport(t *testing.T) {
	bank := &mockBank{
		accounts:      []model.BankAccount{giroAccount},
		statement:     statementFixture(),
		statementErrs: []error{errDialogAborted},
	}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	txs := &mockTransactionStore{}
	backend := openFinTSBackend(t, bank, records, txs, testAccount("acct-1"))

	n, err := backend.ImportSince(context.Background(), testNow.Add(-10*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, bank.logins)
	assert.Equal(t, testNow.Add(model.DefaultAuthValidity), *records.records["acct-1"].AuthExpires)
}

func TestFinTSBackend_ChallengeRequired(t *testing.T) {
	challenge := &model.TanChallenge{Text: "Bitte TAN eingeben"}
	bank := &mockBank{accountsChall: challenge}
	backend := openFinTSBackend(t, bank, newMockRecordStore(authRecord("921", 30)), &mockTransactionStore{}, testAccount("acct-1"))

	_, err := backend.ImportSince(context.Background(), testNow)

	var required *model.ChallengeRequiredError
	require.ErrorAs(t, err, &required)
	assert.Same(t, challenge, required.Challenge)
}

func TestFinTSBackend_CheckSetup(t *testing.T) {
	bank := &mockBank{accounts: []model.BankAccount{giroAccount}}
	backend := openFinTSBackend(t, bank, newMockRecordStore(authRecord("921", 30)), &mockTransactionStore{}, testAccount("acct-1"))

	msg, err := backend.CheckSetup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Connected successfully to account 1234567", msg)
	assert.Equal(t, "acct-1", backend.Identity())
}

func TestFinTSBackend_NoAccounts(t *testing.T) {
	backend := openFinTSBackend(t, &mockBank{}, newMockRecordStore(authRecord("921", 30)), &mockTransactionStore{}, testAccount("acct-1"))

	_, err := backend.CheckSetup(context.Background())
	assert.EqualError(t, err, "bank reported no accounts")
}

func TestFinTSOpener_ExpiredAccount(t *testing.T) {
	opener := application.NewFinTSOpener(
		newTestFactory(&mockBank{}, newMockRecordStore(authRecord("921", -2)), nil),
		&mockTransactionStore{},
		quietLogger(),
	)

	_, err := opener.Open(context.Background(), testAccount("acct-1"))

	var expired *model.AuthExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, 2, expired.DaysExpired)
}

func TestFinTSBackend_ChallengeNotMistakenForDialogError(t *testing.T) {
	// The account id contains a dialog-abort return code.
	record := authRecord(model.UnattendedTanModeID, 30)
	record.Account = "giro-9800"
	records := newMockRecordStore(record)
	bank := &mockBank{accountsChall: &model.TanChallenge{Text: "Bitte TAN eingeben"}}
	backend := openFinTSBackend(t, bank, records, &mockTransactionStore{}, testAccount("giro-9800"))

	_, err := backend.ImportSince(context.Background(), testNow)

	var required *model.ChallengeRequiredError
	require.ErrorAs(t, err, &required)
	assert.Equal(t, 0, bank.logins, "a TAN challenge must not trigger a renewal")
	assert.Equal(t, 0, records.saves)
	assert.Equal(t, *record.AuthExpires, *records.records["giro-9800"].AuthExpires)
}

func TestFinTSBackend_ImportSinceComparesCalendarDays(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, berlin)

	bank := &mockBank{
		accounts: []model.BankAccount{giroAccount},
		statement: []model.StatementEntry{
			// Booking dates arrive as UTC midnight.
			{BookingDate: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("12.50"), CreditDebit: model.Debit},
			{BookingDate: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("7"), CreditDebit: model.Debit},
			{BookingDate: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("1"), CreditDebit: model.Debit},
		},
	}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	txs := &mockTransactionStore{}
	factory := newTestFactory(bank, records, nil).WithClock(func() time.Time { return now })
	backend, err := application.NewFinTSOpener(factory, txs, quietLogger()).Open(context.Background(), testAccount("acct-1"))
	require.NoError(t, err)

	n, err := backend.ImportSince(context.Background(), time.Date(2026, 10, 17, 0, 0, 0, 0, berlin))
	require.NoError(t, err)
	assert.Equal(t, 2, n, "today's and yesterday's bookings are stored, tomorrow's is skipped")
}
