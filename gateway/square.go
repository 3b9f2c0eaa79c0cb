package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	squareProductionURL = "https://connect.squareup.com"
	squareSandboxURL    = "https://connect.squareupsandbox.com"
	squareAPIVersion    = "2024-07-17"

	paymentStatusCompleted = "COMPLETED"

	// maxListPages bounds pagination so a misbehaving cursor cannot loop forever
	maxListPages = 50
)

// SquareConfig configures the Square REST client
type SquareConfig struct {
	AccessToken   string
	LocationID    string
	Environment   string // "production" or "sandbox"
	BaseURL       string // overrides Environment when set
	RedirectURL   string
	RatePerSecond float64
	Timeout       time.Duration
}

// SquareClient implements Client against the Square REST API
type SquareClient struct {
	cfg     SquareConfig
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewSquareClient creates a Square client with sane defaults
func NewSquareClient(cfg SquareConfig) *SquareClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = squareSandboxURL
		if cfg.Environment == "production" {
			baseURL = squareProductionURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}

	return &SquareClient{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		now:     time.Now,
	}
}

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type squarePayment struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	AmountMoney *squareMoney `json:"amount_money"`
	CreatedAt   string       `json:"created_at"`
	OrderID     string       `json:"order_id"`
}

type squareListPaymentsResponse struct {
	Payments []squarePayment `json:"payments"`
	Cursor   string          `json:"cursor"`
}

type squareLineItem struct {
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Quantity        string `json:"quantity"`
}

type squareOrderResponse struct {
	Order *struct {
		ID        string           `json:"id"`
		LineItems []squareLineItem `json:"line_items"`
	} `json:"order"`
}

type squarePaymentLinkRequest struct {
	IdempotencyKey  string `json:"idempotency_key"`
	Order           struct {
		LocationID string           `json:"location_id"`
		LineItems  []squareLineItem `json:"line_items"`
	} `json:"order"`
	CheckoutOptions struct {
		RedirectURL string `json:"redirect_url,omitempty"`
	} `json:"checkout_options"`
}

type squarePaymentLinkResponse struct {
	PaymentLink *struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"payment_link"`
}

// ListCompletedPayments pages through payments created at or after since
func (c *SquareClient) ListCompletedPayments(ctx context.Context, since time.Time) ([]Payment, error) {
	var payments []Payment
	cursor := ""

	for page := 0; page < maxListPages; page++ {
		query := url.Values{}
		query.Set("begin_time", since.UTC().Format(time.RFC3339))
		query.Set("sort_order", "ASC")
		if c.cfg.LocationID != "" {
			query.Set("location_id", c.cfg.LocationID)
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp squareListPaymentsResponse
		if err := c.do(ctx, http.MethodGet, "/v2/payments?"+query.Encode(), nil, &resp); err != nil {
			return nil, unavailable("list payments", err)
		}

		for _, p := range resp.Payments {
			if p.Status != paymentStatusCompleted {
				continue
			}
			payment, err := p.toPayment()
			if err != nil {
				log.WithFields(log.Fields{
					"paymentId": p.ID,
					"error":     err,
				}).Warn("Skipping malformed payment from Square")
				continue
			}
			payments = append(payments, payment)
		}

		if resp.Cursor == "" {
			return payments, nil
		}
		cursor = resp.Cursor
	}

	log.WithField("pages", maxListPages).Warn("Square payment listing truncated at page limit")
	return payments, nil
}

func (p squarePayment) toPayment() (Payment, error) {
	settledAt, err := time.Parse(time.RFC3339, p.CreatedAt)
	if err != nil {
		return Payment{}, fmt.Errorf("invalid created_at %q: %w", p.CreatedAt, err)
	}

	var amount int64
	if p.AmountMoney != nil {
		amount = p.AmountMoney.Amount
	}

	return Payment{
		ExternalID:     p.ID,
		Amount:         amount,
		SettledAt:      settledAt,
		OrderReference: p.OrderID,
	}, nil
}

// GetOrderLineItems fetches an order and returns its catalog line items
func (c *SquareClient) GetOrderLineItems(ctx context.Context, orderReference string) ([]LineItem, error) {
	if orderReference == "" {
		return nil, nil
	}

	var resp squareOrderResponse
	err := c.do(ctx, http.MethodGet, "/v2/orders/"+url.PathEscape(orderReference), nil, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, unavailable("get order", err)
	}

	if resp.Order == nil {
		return nil, nil
	}

	items := make([]LineItem, 0, len(resp.Order.LineItems))
	for _, li := range resp.Order.LineItems {
		quantity, err := strconv.Atoi(li.Quantity)
		if err != nil {
			quantity = 1
		}
		items = append(items, LineItem{
			CatalogReference: li.CatalogObjectID,
			Quantity:         quantity,
		})
	}

	return items, nil
}

// CreateCheckoutLink creates a Square payment link for a single unit of the catalog item
func (c *SquareClient) CreateCheckoutLink(ctx context.Context, catalogReference string) (string, error) {
	var req squarePaymentLinkRequest
	req.IdempotencyKey = IdempotencyKey(catalogReference, c.now())
	req.Order.LocationID = c.cfg.LocationID
	req.Order.LineItems = []squareLineItem{{CatalogObjectID: catalogReference, Quantity: "1"}}
	req.CheckoutOptions.RedirectURL = c.cfg.RedirectURL

	var resp squarePaymentLinkResponse
	if err := c.do(ctx, http.MethodPost, "/v2/online-checkout/payment-links", req, &resp); err != nil {
		return "", unavailable("create payment link", err)
	}

	if resp.PaymentLink == nil || resp.PaymentLink.URL == "" {
		return "", unavailable("create payment link", fmt.Errorf("response did not contain a url"))
	}

	return resp.PaymentLink.URL, nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("square responded with status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == http.StatusNotFound
}

// do performs one throttled request and decodes the JSON response into out
func (c *SquareClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Square-Version", squareAPIVersion)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
