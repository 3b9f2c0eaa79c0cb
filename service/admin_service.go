package service

import (
	"context"
	"fmt"

	"giftrank/models"
	"giftrank/period"

	log "github.com/sirupsen/logrus"
)

// adminService implements the AdminService interface
type adminService struct {
	uowFactory UnitOfWorkFactory
	clock      *period.Clock
}

// NewAdminService creates a new admin service
func NewAdminService(uowFactory UnitOfWorkFactory, clock *period.Clock) AdminService {
	return &adminService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

func (s *adminService) ListOffers(ctx context.Context, storeRef string) ([]*models.GiftOffer, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	store, err := findStore(ctx, uow, storeRef)
	if err != nil {
		return nil, err
	}

	offers, err := uow.GiftOfferRepository().ListByStore(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (s *adminService) SetOfferActive(ctx context.Context, offerID string, active bool) error {
	return s.updateOffer(ctx, offerID, func(repo GiftOfferRepository) error {
		return repo.SetActive(ctx, offerID, active)
	})
}

func (s *adminService) ResetCheckoutLink(ctx context.Context, offerID string) error {
	return s.updateOffer(ctx, offerID, func(repo GiftOfferRepository) error {
		return repo.ClearCheckoutURL(ctx, offerID)
	})
}

func (s *adminService) updateOffer(ctx context.Context, offerID string, fn func(repo GiftOfferRepository) error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow.GiftOfferRepository()); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("offerId", offerID).Info("Gift offer updated")
	return nil
}

func (s *adminService) ListPayments(ctx context.Context, storeRef, monthKey string) ([]*models.SettledPayment, error) {
	month := s.clock.Current()
	if monthKey != "" {
		parsed, err := s.clock.ParseMonth(monthKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		month = parsed
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	store, err := findStore(ctx, uow, storeRef)
	if err != nil {
		return nil, err
	}

	payments, err := uow.SettledPaymentRepository().ListByStoreInRange(ctx, store.ID, month.Start, month.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
