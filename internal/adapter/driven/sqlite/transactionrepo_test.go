package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

func makeTransaction(account string, day int, amount string) model.Transaction {
	return model.Transaction{
		Account:     account,
		BookedAt:    time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Description: "Kartenzahlung",
		XName:       "Bäckerei",
	}
}

func TestTransactionRepo_InsertIsIdempotent(t *testing.T) {
	repo := NewTransactionRepo(setupTestDB(t))
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, makeTransaction("giro", 3, "-3.50"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, makeTransaction("giro", 3, "-3.500"))
	require.NoError(t, err)
	assert.False(t, inserted, "equal amounts with different scale are the same booking")

	inserted, err = repo.Insert(ctx, makeTransaction("savings", 3, "-3.50"))
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestTransactionRepo_LatestBookedAt(t *testing.T) {
	repo := NewTransactionRepo(setupTestDB(t))
	ctx := context.Background()

	latest, err := repo.LatestBookedAt(ctx, "giro")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, day := range []int{12, 3, 7} {
		_, err := repo.Insert(ctx, makeTransaction("giro", day, "10"))
		require.NoError(t, err)
	}
	_, err = repo.Insert(ctx, makeTransaction("savings", 20, "10"))
	require.NoError(t, err)

	latest, err = repo.LatestBookedAt(ctx, "giro")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC).Equal(*latest))
}

func TestTransactionRepo_ListByAccount(t *testing.T) {
	repo := NewTransactionRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Insert(ctx, makeTransaction("giro", 9, "-42.10"))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, makeTransaction("giro", 2, "1500"))
	require.NoError(t, err)

	txs, err := repo.ListByAccount(ctx, "giro")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 2, txs[0].BookedAt.Day())
	assert.True(t, decimal.RequireFromString("-42.1").Equal(txs[1].Amount))
	assert.Equal(t, "Bäckerei", txs[1].XName)
	assert.NotZero(t, txs[1].ID)
}
