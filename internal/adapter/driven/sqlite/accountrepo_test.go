package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

func giroAccount() model.Account {
	return model.Account{
		ID:      "giro",
		Backend: model.BackendFinTS,
		FinTS: model.FinTSConfig{
			URL:      "https://banking-dkb.s-fints-pt-dkb.de/fints30",
			BankCode: "12030000",
			Username: "alice",
			PIN:      "s3cret",
			Ident:    "1234567",
		},
	}
}

func TestAccountRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, giroAccount()))

	got, err := repo.Get(ctx, "giro")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, giroAccount().FinTS, got.FinTS)
	assert.Equal(t, model.BackendFinTS, got.Backend)

	var stored string
	require.NoError(t, db.Reader.QueryRow(`SELECT pin FROM accounts WHERE id = 'giro'`).Scan(&stored))
	assert.NotEqual(t, "s3cret", stored)
	assert.NotContains(t, stored, "s3cret")
}

func TestAccountRepo_GetMissing(t *testing.T) {
	repo := NewAccountRepo(setupTestDB(t), testKey)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountRepo_UpsertUpdates(t *testing.T) {
	repo := NewAccountRepo(setupTestDB(t), testKey)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, giroAccount()))
	changed := giroAccount()
	changed.FinTS.PIN = "n3w"
	changed.FinTS.Ident = ""
	require.NoError(t, repo.Upsert(ctx, changed))

	accounts, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "n3w", accounts[0].FinTS.PIN)
	assert.Empty(t, accounts[0].FinTS.Ident)
}

func TestAccountRepo_NoKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := NewAccountRepo(db, nil).Upsert(ctx, giroAccount())
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	// Accounts without a PIN need no key.
	noPin := giroAccount()
	noPin.FinTS.PIN = ""
	require.NoError(t, NewAccountRepo(db, nil).Upsert(ctx, noPin))

	require.NoError(t, NewAccountRepo(db, testKey).Upsert(ctx, giroAccount()))
	_, err = NewAccountRepo(db, nil).Get(ctx, "giro")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestAccountRepo_WrongKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewAccountRepo(db, testKey).Upsert(ctx, giroAccount()))

	other := []byte("fedcba9876543210fedcba9876543210")
	_, err := NewAccountRepo(db, other).Get(ctx, "giro")
	assert.Error(t, err)
}
