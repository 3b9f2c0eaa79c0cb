package service

import (
	"context"
	"fmt"

	"giftrank/models"
	"giftrank/period"
)

// rankingService implements the RankingService interface
type rankingService struct {
	uowFactory UnitOfWorkFactory
	clock      *period.Clock
}

// NewRankingService creates a new ranking service
func NewRankingService(uowFactory UnitOfWorkFactory, clock *period.Clock) RankingService {
	return &rankingService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// GetStoreRanking returns the leaderboard for the current civil month
func (s *rankingService) GetStoreRanking(ctx context.Context, storeID string) (*models.Ranking, error) {
	return s.ranking(ctx, storeID, s.clock.Current().Key)
}

// GetStoreRankingForMonth returns the leaderboard for a YYYY-MM month key
func (s *rankingService) GetStoreRankingForMonth(ctx context.Context, storeID, monthKey string) (*models.Ranking, error) {
	month, err := s.clock.ParseMonth(monthKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.ranking(ctx, storeID, month.Key)
}

func (s *rankingService) ranking(ctx context.Context, storeRef, monthKey string) (*models.Ranking, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	store, err := findStore(ctx, uow, storeRef)
	if err != nil {
		return nil, err
	}

	entries, err := uow.MonthlyTotalRepository().GetRanking(ctx, store.ID, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get ranking: %w", err)
	}

	items := make([]*models.RankingEntry, 0, len(entries))
	for i, entry := range entries {
		entry.Rank = i + 1
		items = append(items, entry)
	}

	return &models.Ranking{
		Month: monthKey,
		Items: items,
	}, nil
}

// findStore resolves a store by id or, failing that, by slug
func findStore(ctx context.Context, uow UnitOfWork, storeRef string) (*models.Store, error) {
	store, err := uow.StoreRepository().GetByID(ctx, storeRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	if store == nil {
		store, err = uow.StoreRepository().GetBySlug(ctx, storeRef)
		if err != nil {
			return nil, fmt.Errorf("failed to get store: %w", err)
		}
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store %s", ErrNotFound, storeRef)
	}
	return store, nil
}
