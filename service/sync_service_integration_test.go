package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"giftrank/events"
	"giftrank/gateway"
	"giftrank/period"
	"giftrank/repository"
	"giftrank/repository/testutil"
	"giftrank/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncAndCheckout_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, period.MustClock("Asia/Tokyo").Location())
	clock, err := period.NewClockAt("Asia/Tokyo", func() time.Time { return now })
	require.NoError(t, err)

	// Seed catalog
	storeRepo := repository.NewStoreRepository(testDB.DB)
	talentRepo := repository.NewTalentRepository(testDB.DB)
	offerRepo := repository.NewGiftOfferRepository(testDB.DB)

	store := testutil.CreateTestStore("sample-store")
	require.NoError(t, storeRepo.Create(ctx, store))
	talent := testutil.CreateTestTalent(store.ID, "hanako")
	require.NoError(t, talentRepo.Create(ctx, talent))
	offer := testutil.CreateTestOffer(store.ID, talent.ID, "CAT-X", 3000)
	require.NoError(t, offerRepo.Create(ctx, offer))

	// Capture events emitted after commit
	bus := events.NewBus()
	var (
		mu       sync.Mutex
		received []events.Event
	)
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
	}, events.EventTypePaymentSettled, events.EventTypeRankingRefreshed, events.EventTypeCheckoutLinkCreated)

	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, bus)
	fake := gateway.NewFake()

	syncService := service.NewSyncService(uowFactory, fake, clock, service.SyncOptions{Lookback: 24 * time.Hour, RecomputeWorkers: 2})
	rankingService := service.NewRankingService(uowFactory, clock)
	checkoutService := service.NewCheckoutService(uowFactory, fake)

	t.Run("sync appends and ranks a payment", func(t *testing.T) {
		fake.AddPayment(gateway.Payment{
			ExternalID:     "pay-1",
			Amount:         3000,
			SettledAt:      now.Add(-time.Hour).UTC(),
			OrderReference: "ord-1",
		}, "CAT-X")

		result, err := syncService.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.SyncedPayments)
		assert.Equal(t, 1, result.UpdatedStores)

		ranking, err := rankingService.GetStoreRanking(ctx, "sample-store")
		require.NoError(t, err)
		assert.Equal(t, "2025-01", ranking.Month)
		require.Len(t, ranking.Items, 1)
		assert.Equal(t, 1, ranking.Items[0].Rank)
		assert.Equal(t, talent.ID, ranking.Items[0].TalentID)
		assert.Equal(t, "hanako", ranking.Items[0].Slug)
		assert.Equal(t, int64(3000), ranking.Items[0].TotalAmount)
		require.NotNil(t, ranking.Items[0].PhotoURL)
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		result, err := syncService.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.SyncedPayments)

		total, err := repository.NewMonthlyTotalRepository(testDB.DB).Get(ctx, store.ID, talent.ID, "2025-01")
		require.NoError(t, err)
		require.NotNil(t, total)
		assert.Equal(t, int64(3000), total.TotalAmount)
	})

	t.Run("rebuild reproduces the cache", func(t *testing.T) {
		_, err := syncService.Rebuild(ctx, "2025-01")
		require.NoError(t, err)

		ranking, err := rankingService.GetStoreRanking(ctx, store.ID)
		require.NoError(t, err)
		require.Len(t, ranking.Items, 1)
		assert.Equal(t, int64(3000), ranking.Items[0].TotalAmount)
	})

	t.Run("checkout link is minted once", func(t *testing.T) {
		first, err := checkoutService.Resolve(ctx, talent.ID, offer.ID)
		require.NoError(t, err)
		second, err := checkoutService.Resolve(ctx, "", offer.ID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, fake.LinkCalls())

		stored, err := offerRepo.GetByID(ctx, offer.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.CheckoutURL)
		assert.Equal(t, first, *stored.CheckoutURL)
	})

	bus.Wait()
	mu.Lock()
	defer mu.Unlock()

	counts := make(map[events.EventType]int)
	for _, e := range received {
		counts[e.Type()]++
	}
	assert.Equal(t, 1, counts[events.EventTypePaymentSettled])
	assert.Equal(t, 1, counts[events.EventTypeCheckoutLinkCreated])
	// One refresh per sync run with data plus one from the rebuild
	assert.Equal(t, 3, counts[events.EventTypeRankingRefreshed])
}
