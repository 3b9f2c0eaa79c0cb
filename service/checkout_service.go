package service

import (
	"context"
	"fmt"

	"giftrank/events"
	"giftrank/gateway"
	"giftrank/infrastructure/observability"
	"giftrank/models"

	log "github.com/sirupsen/logrus"
)

// checkoutService implements the CheckoutService interface
type checkoutService struct {
	uowFactory UnitOfWorkFactory
	gateway    gateway.Client
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(uowFactory UnitOfWorkFactory, gw gateway.Client) CheckoutService {
	return &checkoutService{
		uowFactory: uowFactory,
		gateway:    gw,
	}
}

// Resolve returns the offer's checkout link, minting and memoizing it on first use
func (s *checkoutService) Resolve(ctx context.Context, ownerID, offerID string) (string, error) {
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return "", err
	}

	if ownerID != "" && ownerID != offer.OwnerID() {
		return "", fmt.Errorf("%w: offer %s does not belong to %s", ErrInvalidState, offerID, ownerID)
	}
	if !offer.IsActive {
		return "", fmt.Errorf("%w: offer %s is not active", ErrInvalidState, offerID)
	}

	if offer.HasCheckoutURL() {
		observability.GetMetrics().RecordCheckoutResolution(observability.OutcomeCached)
		return *offer.CheckoutURL, nil
	}

	// The processor call happens outside any transaction
	url, err := s.gateway.CreateCheckoutLink(ctx, offer.CatalogReference)
	if err != nil {
		observability.GetMetrics().RecordGatewayError("create_checkout_link")
		return "", fmt.Errorf("failed to create checkout link for offer %s: %w", offerID, err)
	}

	if !gateway.LinksArePersistent(s.gateway) {
		log.WithField("offerId", offer.ID).Debug("Checkout link is a placeholder, not memoizing")
		observability.GetMetrics().RecordCheckoutResolution(observability.OutcomeMinted)
		return url, nil
	}

	stored, err := s.memoize(ctx, offer, url)
	if err != nil {
		return "", err
	}

	observability.GetMetrics().RecordCheckoutResolution(observability.OutcomeMinted)
	return stored, nil
}

func (s *checkoutService) loadOffer(ctx context.Context, offerID string) (*models.GiftOffer, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	offer, err := uow.GiftOfferRepository().GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	if offer == nil {
		return nil, fmt.Errorf("%w: offer %s", ErrNotFound, offerID)
	}
	return offer, nil
}

// memoize stores url unless a concurrent caller already did, and returns whichever URL won
func (s *checkoutService) memoize(ctx context.Context, offer *models.GiftOffer, url string) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stored, err := uow.GiftOfferRepository().SetCheckoutURL(ctx, offer.ID, url)
	if err != nil {
		return "", fmt.Errorf("failed to store checkout link: %w", err)
	}

	if stored == url {
		uow.EventBus().Publish(events.CheckoutLinkCreatedEvent{
			OfferID:          offer.ID,
			StoreID:          offer.StoreID,
			CatalogReference: offer.CatalogReference,
		})
	} else {
		log.WithFields(log.Fields{
			"offerId": offer.ID,
		}).Info("Checkout link was memoized concurrently, discarding minted link")
	}

	if err := uow.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit checkout link: %w", err)
	}

	return stored, nil
}
