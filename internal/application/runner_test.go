package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// scriptedOp returns the scripted errors in order, then "ok". It records
// every client it was invoked with.
type scriptedOp struct {
	errs    []error
	clients []driven.BankSession
}

func (o *scriptedOp) run(_ context.Context, client driven.BankSession) (string, error) {
	o.clients = append(o.clients, client)
	if len(o.errs) > 0 {
		err := o.errs[0]
		o.errs = o.errs[1:]
		return "", err
	}
	return "ok", nil
}

func openSession(t *testing.T, bank *mockBank, records *mockRecordStore) *application.Session {
	t.Helper()
	s, err := newTestFactory(bank, records, nil).Open(context.Background(), testAccount("acct-1"))
	require.NoError(t, err)
	return s
}

func TestRunWithRenewal_Success(t *testing.T) {
	bank := &mockBank{}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	s := openSession(t, bank, records)

	op := &scriptedOp{}
	got, err := application.RunWithRenewal(context.Background(), s, op.run)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Len(t, op.clients, 1)
	assert.Equal(t, 0, records.saves)
}

func TestRunWithRenewal_RenewsAndRetriesOnce(t *testing.T) {
	bank := &mockBank{}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	s := openSession(t, bank, records)

	op := &scriptedOp{errs: []error{errDialogAborted}}
	got, err := application.RunWithRenewal(context.Background(), s, op.run)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	require.Len(t, op.clients, 2)
	assert.NotSame(t, op.clients[0], op.clients[1], "retry runs on the renewed client")

	stored := records.records["acct-1"]
	assert.Equal(t, testNow.Add(model.DefaultAuthValidity), *stored.AuthExpires)
	assert.Equal(t, 1, bank.logins)
	assert.True(t, s.CanAutoRenew(), "successful renewal clears the guard")
}

func TestRunWithRenewal_InteractiveModeNotRetried(t *testing.T) {
	bank := &mockBank{}
	records := newMockRecordStore(authRecord("921", 30))
	s := openSession(t, bank, records)

	op := &scriptedOp{errs: []error{errDialogAborted}}
	_, err := application.RunWithRenewal(context.Background(), s, op.run)

	assert.ErrorIs(t, err, errDialogAborted)
	assert.Len(t, op.clients, 1)
	assert.Equal(t, 0, bank.logins)

	// the record is pessimistically marked expired
	assert.Equal(t, testNow, *records.records["acct-1"].AuthExpires)
	assert.True(t, s.Expired())
}

func TestRunWithRenewal_NonAuthErrorPassesThrough(t *testing.T) {
	bank := &mockBank{}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	s := openSession(t, bank, records)

	netErr := errors.New("connection reset by peer")
	op := &scriptedOp{errs: []error{netErr}}
	_, err := application.RunWithRenewal(context.Background(), s, op.run)

	assert.Same(t, netErr, err)
	assert.Len(t, op.clients, 1)
	assert.Equal(t, 0, records.saves)
	assert.Equal(t, 0, bank.logins)
}

func TestRunWithRenewal_RetryFailureReturnedAsIs(t *testing.T) {
	bank := &mockBank{}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	s := openSession(t, bank, records)

	second := errors.New("9120 Dialog bereits beendet")
	op := &scriptedOp{errs: []error{errDialogAborted, second}}
	_, err := application.RunWithRenewal(context.Background(), s, op.run)

	assert.Same(t, second, err)
	assert.Len(t, op.clients, 2, "no second retry")
	assert.Equal(t, 1, bank.logins)
}

func TestRunWithRenewal_RenewalFailureReturnsOriginalError(t *testing.T) {
	bank := &mockBank{}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	s := openSession(t, bank, records)

	bank.loginChallenge = &model.TanChallenge{Text: "TAN erforderlich"}
	op := &scriptedOp{errs: []error{errDialogAborted}}
	_, err := application.RunWithRenewal(context.Background(), s, op.run)

	assert.Same(t, errDialogAborted, err)
	assert.Len(t, op.clients, 1)
	assert.False(t, s.CanAutoRenew())
	assert.Equal(t, testNow, *records.records["acct-1"].AuthExpires)
}

func TestRunWithRenewal_RemoteErrorCode(t *testing.T) {
	bank := &mockBank{}
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, 30))
	s := openSession(t, bank, records)

	op := &scriptedOp{errs: []error{&model.RemoteError{Code: "9010", Message: "Ungültige Dialogkennung"}}}
	got, err := application.RunWithRenewal(context.Background(), s, op.run)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Len(t, op.clients, 2)
}
