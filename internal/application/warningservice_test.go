package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/domain/model"
)

func newTestWarningService(records *mockRecordStore, events *recordingPublisher) *application.WarningService {
	return application.NewWarningService(records, events, model.DefaultExpiryPolicy(), 0, quietLogger()).WithClock(fixedClock)
}

func TestWarningService_EscalatesOnce(t *testing.T) {
	expiring := authRecord("921", 3)
	expiring.Account = "acct-expiring"
	expired := authRecord(model.UnattendedTanModeID, -1)
	expired.Account = "acct-expired"
	fresh := authRecord("921", 60)
	fresh.Account = "acct-fresh"
	unconfigured := model.AuthRecord{Account: "acct-new"}

	records := newMockRecordStore(expiring, expired, fresh, unconfigured)
	events := &recordingPublisher{}
	svc := newTestWarningService(records, events)

	sent, err := svc.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	byAccount := make(map[string]model.AuthEvent)
	for _, e := range events.events {
		byAccount[e.Account] = e
	}
	assert.Equal(t, model.AuthEventExpiring, byAccount["acct-expiring"].Kind)
	assert.Equal(t, 3, byAccount["acct-expiring"].DaysUntilExpiry)
	assert.Equal(t, model.AuthEventExpired, byAccount["acct-expired"].Kind)
	assert.Equal(t, model.WarningLevelExpired, byAccount["acct-expired"].WarningLevel)

	assert.Equal(t, model.WarningLevelExpiring, records.records["acct-expiring"].WarningLevel)
	assert.Equal(t, testNow, *records.records["acct-expiring"].LastWarningSent)

	sent, err = svc.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "levels are announced once")
	assert.Len(t, events.events, 2)
}

func TestWarningService_EscalatesFromExpiringToExpired(t *testing.T) {
	record := authRecord("921", -2)
	record.WarningLevel = model.WarningLevelExpiring
	records := newMockRecordStore(record)
	events := &recordingPublisher{}

	sent, err := newTestWarningService(records, events).CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, model.WarningLevelExpired, records.records["acct-1"].WarningLevel)
}

func TestWarningService_PublishFailureKeepsLevel(t *testing.T) {
	records := newMockRecordStore(authRecord("921", 2))
	events := &recordingPublisher{err: errors.New("broker unavailable")}

	sent, err := newTestWarningService(records, events).CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, model.WarningLevelNone, records.records["acct-1"].WarningLevel)
}

func TestWarningService_RenewalDuringCheckWins(t *testing.T) {
	records := newMockRecordStore(authRecord(model.UnattendedTanModeID, -1))
	renewed := authRecord(model.UnattendedTanModeID, 90)
	renewed.PersistedState = []byte("renewed-state")
	records.beforeWarningUpdate = func() {
		// A renewal lands after the snapshot was listed.
		records.records["acct-1"] = renewed
	}
	events := &recordingPublisher{}

	sent, err := newTestWarningService(records, events).CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, events.events)

	got := records.records["acct-1"]
	assert.Equal(t, []byte("renewed-state"), got.PersistedState)
	assert.Equal(t, *renewed.AuthExpires, *got.AuthExpires)
	assert.Equal(t, model.WarningLevelNone, got.WarningLevel)
	assert.Equal(t, 0, records.saves, "the warning check never rewrites the whole record")
}
