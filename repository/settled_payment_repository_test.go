package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"giftrank/models"
	"giftrank/period"
	"giftrank/repository/testutil"
	"giftrank/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettledPaymentRepository_CreateAndDedup(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewSettledPaymentRepository(testDB.DB)
	store, talents := seedStore(t, testDB.DB, "ledger-store", "asami")

	settledAt := time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)

	t.Run("empty ledger has no watermark", func(t *testing.T) {
		latest, err := repo.LatestSettledAt(ctx)
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("append once", func(t *testing.T) {
		payment := testutil.CreateTestPayment("pay-1", store.ID, talents[0].ID, 3000, settledAt)
		require.NoError(t, repo.Create(ctx, payment))
		assert.True(t, payment.ID > 0)

		exists, err := repo.ExistsByExternalID(ctx, "pay-1")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByExternalID(ctx, "pay-unknown")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("duplicate external id is a conflict", func(t *testing.T) {
		payment := testutil.CreateTestPayment("pay-1", store.ID, talents[0].ID, 9999, settledAt)
		err := repo.Create(ctx, payment)
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrDuplicatePayment))
		assert.True(t, errors.Is(err, service.ErrConflict))
	})

	t.Run("watermark is the greatest settlement instant", func(t *testing.T) {
		older := testutil.CreateTestPayment("pay-older", store.ID, talents[0].ID, 1000, settledAt.Add(-time.Hour))
		require.NoError(t, repo.Create(ctx, older))

		latest, err := repo.LatestSettledAt(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.True(t, latest.Equal(settledAt), "latest %s", latest)
	})
}

func TestSettledPaymentRepository_SumByTalentInRange(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewSettledPaymentRepository(testDB.DB)
	store, talents := seedStore(t, testDB.DB, "sum-store", "hanako", "sakura")
	hanako, sakura := talents[0], talents[1]

	clock := period.MustClock("Asia/Tokyo")
	january, err := clock.ParseMonth("2025-01")
	require.NoError(t, err)

	lastSecondOfJanuary := time.Date(2025, 1, 31, 23, 59, 59, 0, clock.Location())
	firstInstantOfFebruary := time.Date(2025, 2, 1, 0, 0, 0, 0, clock.Location())

	payments := []*models.SettledPayment{
		testutil.CreateTestPayment("p-1", store.ID, hanako.ID, 3000, january.Start),
		testutil.CreateTestPayment("p-2", store.ID, hanako.ID, 5000, lastSecondOfJanuary),
		testutil.CreateTestPayment("p-3", store.ID, sakura.ID, 1000, january.Start.Add(48*time.Hour)),
		testutil.CreateTestPayment("p-4", store.ID, hanako.ID, 7000, firstInstantOfFebruary),
		testutil.CreateTestPayment("p-5", store.ID, hanako.ID, 2000, january.Start.Add(-time.Second)),
	}
	storeLevel := testutil.CreateTestPayment("p-store", store.ID, "", 10000, january.Start.Add(time.Hour))
	storeLevel.TalentID = nil
	payments = append(payments, storeLevel)

	for _, p := range payments {
		require.NoError(t, repo.Create(ctx, p))
	}

	totals, err := repo.SumByTalentInRange(ctx, january.Start, january.End)
	require.NoError(t, err)

	byTalent := map[string]int64{}
	for _, total := range totals {
		assert.Equal(t, store.ID, total.StoreID)
		byTalent[total.TalentID] = total.TotalAmount
	}
	assert.Equal(t, map[string]int64{hanako.ID: 8000, sakura.ID: 1000}, byTalent)

	february := clock.MonthOf(firstInstantOfFebruary)
	totals, err = repo.SumByTalentInRange(ctx, february.Start, february.End)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(7000), totals[0].TotalAmount)

	listed, err := repo.ListByStoreInRange(ctx, store.ID, january.Start, january.End)
	require.NoError(t, err)
	assert.Len(t, listed, 4)
	assert.Equal(t, "p-1", listed[0].ExternalPaymentID)
}
