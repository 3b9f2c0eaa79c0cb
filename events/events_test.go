package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDelivers(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan PaymentSettledEvent, 1)
	mainBus.Subscribe(EventTypePaymentSettled, func(ctx context.Context, event Event) {
		if e, ok := event.(PaymentSettledEvent); ok {
			received <- e
		}
	})

	settledAt := time.Date(2025, 1, 31, 14, 59, 59, 0, time.UTC)
	transactionalBus.Publish(PaymentSettledEvent{
		PaymentID:         1,
		ExternalPaymentID: "pay-1",
		StoreID:           "store-1",
		TalentID:          "talent-1",
		Amount:            3000,
		SettledAt:         settledAt,
		MonthKey:          "2025-01",
	})
	assert.Equal(t, 1, transactionalBus.Pending())

	transactionalBus.Flush(context.Background())
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case e := <-received:
		assert.Equal(t, "pay-1", e.ExternalPaymentID)
		assert.Equal(t, int64(3000), e.Amount)
		assert.Equal(t, "2025-01", e.MonthKey)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var calls int32
	mainBus.Subscribe(EventTypeRankingRefreshed, func(ctx context.Context, event Event) {
		atomic.AddInt32(&calls, 1)
	})

	transactionalBus.Publish(RankingRefreshedEvent{StoreID: "store-1", MonthKey: "2025-01"})
	transactionalBus.Discard()
	transactionalBus.Flush(context.Background())
	mainBus.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestTransactionalBus_FlushSurvivesCancelledContext(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var ctxErr error
	var mu sync.Mutex
	mainBus.Subscribe(EventTypeRankingRefreshed, func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		ctxErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	transactionalBus.Publish(RankingRefreshedEvent{StoreID: "store-1"})
	cancel()
	transactionalBus.Flush(ctx)
	mainBus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, ctxErr)
}

func TestBus_PanickingHandlerIsolated(t *testing.T) {
	bus := NewBus()

	var delivered int32
	bus.Subscribe(EventTypeCheckoutLinkCreated, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeCheckoutLinkCreated, func(ctx context.Context, event Event) {
		atomic.AddInt32(&delivered, 1)
	})

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), CheckoutLinkCreatedEvent{OfferID: "offer-1"})
		bus.Wait()
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&delivered))
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var seen []EventType
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.Type())
	}, EventTypePaymentSettled, EventTypeRankingRefreshed)

	bus.Emit(context.Background(), PaymentSettledEvent{ExternalPaymentID: "pay-1"})
	bus.Emit(context.Background(), RankingRefreshedEvent{StoreID: "store-1"})
	bus.Emit(context.Background(), CheckoutLinkCreatedEvent{OfferID: "offer-1"})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []EventType{EventTypePaymentSettled, EventTypeRankingRefreshed}, seen)
}
