package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSquareClient(t *testing.T, handler http.HandlerFunc) *SquareClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewSquareClient(SquareConfig{
		AccessToken:   "test-token",
		LocationID:    "LOC1",
		BaseURL:       server.URL,
		RedirectURL:   "http://localhost:3000/stores",
		RatePerSecond: 1000,
		Timeout:       2 * time.Second,
	})
}

func TestSquareClient_ListCompletedPayments(t *testing.T) {
	since := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	var calls int32

	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v2/payments", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, squareAPIVersion, r.Header.Get("Square-Version"))
		assert.Equal(t, "2025-01-10T00:00:00Z", r.URL.Query().Get("begin_time"))
		assert.Equal(t, "LOC1", r.URL.Query().Get("location_id"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"payments": []map[string]interface{}{
					{"id": "pay-1", "status": "COMPLETED", "amount_money": map[string]interface{}{"amount": 3000, "currency": "JPY"}, "created_at": "2025-01-10T01:00:00Z", "order_id": "ord-1"},
					{"id": "pay-2", "status": "FAILED", "amount_money": map[string]interface{}{"amount": 1000, "currency": "JPY"}, "created_at": "2025-01-10T02:00:00Z", "order_id": "ord-2"},
				},
				"cursor": "next",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"payments": []map[string]interface{}{
				{"id": "pay-3", "status": "COMPLETED", "amount_money": map[string]interface{}{"amount": 5000, "currency": "JPY"}, "created_at": "2025-01-10T03:00:00Z", "order_id": "ord-3"},
				{"id": "pay-4", "status": "APPROVED", "amount_money": map[string]interface{}{"amount": 500, "currency": "JPY"}, "created_at": "2025-01-10T04:00:00Z"},
			},
		})
	})

	payments, err := client.ListCompletedPayments(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	assert.Equal(t, "pay-1", payments[0].ExternalID)
	assert.Equal(t, int64(3000), payments[0].Amount)
	assert.Equal(t, "ord-1", payments[0].OrderReference)
	assert.True(t, payments[0].SettledAt.Equal(time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, "pay-3", payments[1].ExternalID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSquareClient_ListCompletedPayments_Unavailable(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":[{"code":"RATE_LIMITED"}]}`))
	})

	payments, err := client.ListCompletedPayments(context.Background(), time.Now())
	require.Error(t, err)
	assert.Nil(t, payments)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "429")
}

func TestSquareClient_GetOrderLineItems(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/orders/ord-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"order": map[string]interface{}{
					"id": "ord-1",
					"line_items": []map[string]interface{}{
						{"catalog_object_id": "CAT-X", "quantity": "2"},
						{"quantity": "1"},
					},
				},
			})
		case "/v2/orders/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	ctx := context.Background()

	t.Run("order with line items", func(t *testing.T) {
		items, err := client.GetOrderLineItems(ctx, "ord-1")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, LineItem{CatalogReference: "CAT-X", Quantity: 2}, items[0])
		assert.Equal(t, "", items[1].CatalogReference)
	})

	t.Run("unknown order has no line items", func(t *testing.T) {
		items, err := client.GetOrderLineItems(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("empty order reference", func(t *testing.T) {
		items, err := client.GetOrderLineItems(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		_, err := client.GetOrderLineItems(ctx, "boom")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
	})
}

func TestSquareClient_CreateCheckoutLink(t *testing.T) {
	var received squarePaymentLinkRequest

	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/online-checkout/payment-links", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"payment_link": map[string]interface{}{"id": "link-1", "url": "https://square.link/u/abc"},
		})
	})
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	url, err := client.CreateCheckoutLink(context.Background(), "CAT-X")
	require.NoError(t, err)

	assert.Equal(t, "https://square.link/u/abc", url)
	assert.Equal(t, IdempotencyKey("CAT-X", fixed), received.IdempotencyKey)
	assert.Equal(t, "LOC1", received.Order.LocationID)
	require.Len(t, received.Order.LineItems, 1)
	assert.Equal(t, "CAT-X", received.Order.LineItems[0].CatalogObjectID)
	assert.Equal(t, "1", received.Order.LineItems[0].Quantity)
	assert.Equal(t, "http://localhost:3000/stores", received.CheckoutOptions.RedirectURL)
}

func TestSquareClient_CreateCheckoutLink_MissingURL(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"payment_link":{"id":"link-1"}}`))
	})

	_, err := client.CreateCheckoutLink(context.Background(), "CAT-X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSquareClient_ContextCancelled(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListCompletedPayments(ctx, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestIdempotencyKey(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, IdempotencyKey("CAT-X", at), IdempotencyKey("CAT-X", at))
	assert.NotEqual(t, IdempotencyKey("CAT-X", at), IdempotencyKey("CAT-X", at.Add(time.Nanosecond)))
	assert.NotEqual(t, IdempotencyKey("CAT-X", at), IdempotencyKey("CAT-Y", at))
	assert.LessOrEqual(t, len(IdempotencyKey("CAT-X", at)), 45)
}

func TestDryRunClient(t *testing.T) {
	client := NewDryRunClient("http://localhost:3000/")
	ctx := context.Background()

	payments, err := client.ListCompletedPayments(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, payments)

	items, err := client.GetOrderLineItems(ctx, "ord-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	url, err := client.CreateCheckoutLink(ctx, "CAT-X")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/stores/sample-store?test=true", url)
}

func TestLinksArePersistent(t *testing.T) {
	assert.False(t, LinksArePersistent(NewDryRunClient("http://localhost:3000")))
	assert.True(t, LinksArePersistent(NewFake()))
	assert.True(t, LinksArePersistent(NewSquareClient(SquareConfig{AccessToken: "t", LocationID: "L"})))
}
