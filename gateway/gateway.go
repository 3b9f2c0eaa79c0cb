package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable marks every failure talking to the payment processor
// (network, auth, rate limit, timeout). Callers retry on the next cycle.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Payment is a completed payment as reported by the processor
type Payment struct {
	ExternalID     string
	Amount         int64
	SettledAt      time.Time
	OrderReference string
}

// LineItem is one line of a processor-side order
type LineItem struct {
	CatalogReference string
	Quantity         int
}

// Client is the polling interface over the payment processor
type Client interface {
	// ListCompletedPayments returns payments in a terminal completed state created at or after since
	ListCompletedPayments(ctx context.Context, since time.Time) ([]Payment, error)

	// GetOrderLineItems returns the line items of an order; empty when none are resolvable
	GetOrderLineItems(ctx context.Context, orderReference string) ([]LineItem, error)

	// CreateCheckoutLink mints a new payable link for a catalog reference
	CreateCheckoutLink(ctx context.Context, catalogReference string) (string, error)
}

// ephemeralLinker is implemented by clients whose checkout links are placeholders
type ephemeralLinker interface {
	EphemeralLinks() bool
}

// LinksArePersistent reports whether links minted by c may be stored and reused
func LinksArePersistent(c Client) bool {
	if e, ok := c.(ephemeralLinker); ok {
		return !e.EphemeralLinks()
	}
	return true
}

// unavailable wraps err so that errors.Is(err, ErrUnavailable) holds
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// IdempotencyKey derives the processor idempotency key for one link creation.
// The key is stable for a (catalogReference, createdAt) pair so retries within
// a single call never mint twice.
func IdempotencyKey(catalogReference string, createdAt time.Time) string {
	name := fmt.Sprintf("%s|%d", catalogReference, createdAt.UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
