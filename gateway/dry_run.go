package gateway

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DryRunClient stands in for the processor when credentials are not configured.
// It never reports payments and hands out a local test link instead of a real checkout.
type DryRunClient struct {
	siteURL string
}

// NewDryRunClient creates a dry-run client that links back to siteURL
func NewDryRunClient(siteURL string) *DryRunClient {
	log.Warn("Payment gateway running in DRY RUN mode - processor calls will be skipped")
	return &DryRunClient{siteURL: strings.TrimRight(siteURL, "/")}
}

func (c *DryRunClient) ListCompletedPayments(ctx context.Context, since time.Time) ([]Payment, error) {
	log.WithField("since", since).Debug("[DRY RUN] list payments skipped")
	return nil, nil
}

func (c *DryRunClient) GetOrderLineItems(ctx context.Context, orderReference string) ([]LineItem, error) {
	log.WithField("orderReference", orderReference).Debug("[DRY RUN] get order skipped")
	return nil, nil
}

func (c *DryRunClient) CreateCheckoutLink(ctx context.Context, catalogReference string) (string, error) {
	log.WithField("catalogReference", catalogReference).Debug("[DRY RUN] checkout link generation skipped")
	return c.siteURL + "/stores/sample-store?test=true", nil
}

// EphemeralLinks marks dry-run links as not memoizable, so real links are minted once credentials are configured
func (c *DryRunClient) EphemeralLinks() bool { return true }
