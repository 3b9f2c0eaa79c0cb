package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"giftrank/events"
	"giftrank/gateway"
	"giftrank/infrastructure/observability"
	"giftrank/models"
	"giftrank/period"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSyncLookback is the fetch window used while the ledger is empty
	DefaultSyncLookback = 24 * time.Hour

	defaultRecomputeWorkers = 4
)

// SyncOptions tunes the sync service
type SyncOptions struct {
	Lookback         time.Duration
	RecomputeWorkers int
}

// syncService implements the SyncService interface
type syncService struct {
	uowFactory UnitOfWorkFactory
	gateway    gateway.Client
	clock      *period.Clock
	lookback   time.Duration
	workers    int
	mu         sync.Mutex // serializes runs within this process
}

// NewSyncService creates a new sync service
func NewSyncService(uowFactory UnitOfWorkFactory, gw gateway.Client, clock *period.Clock, opts SyncOptions) SyncService {
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultSyncLookback
	}
	if opts.RecomputeWorkers <= 0 {
		opts.RecomputeWorkers = defaultRecomputeWorkers
	}

	return &syncService{
		uowFactory: uowFactory,
		gateway:    gw,
		clock:      clock,
		lookback:   opts.Lookback,
		workers:    opts.RecomputeWorkers,
	}
}

// Run executes one sync cycle
func (s *syncService) Run(ctx context.Context) (*models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result, err := s.run(ctx)
	observability.GetMetrics().RecordSyncRun(time.Since(start), err)

	if err != nil {
		log.WithFields(log.Fields{
			"duration": time.Since(start),
			"error":    err,
		}).Error("Sync run failed")
		return nil, err
	}

	log.WithFields(log.Fields{
		"syncedPayments": result.SyncedPayments,
		"updatedStores":  result.UpdatedStores,
		"skipped":        result.Skipped,
		"duration":       time.Since(start),
	}).Info("Sync run completed")

	return result, nil
}

func (s *syncService) run(ctx context.Context) (*models.SyncResult, error) {
	result := &models.SyncResult{Skipped: make(map[models.SkipReason]int)}

	watermark, err := s.watermark(ctx)
	if err != nil {
		return nil, err
	}

	payments, err := s.gateway.ListCompletedPayments(ctx, watermark)
	if err != nil {
		observability.GetMetrics().RecordGatewayError("list_payments")
		return nil, fmt.Errorf("failed to fetch completed payments: %w", err)
	}

	log.WithFields(log.Fields{
		"watermark": watermark,
		"fetched":   len(payments),
	}).Debug("Fetched completed payments")

	// Oldest first, so that an abort never leaves an unprocessed payment below the next watermark
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].SettledAt.Before(payments[j].SettledAt)
	})

	var appendedAt []time.Time
	for _, payment := range payments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		appended, reason, err := s.reconcile(ctx, payment)
		switch {
		case errors.Is(err, gateway.ErrUnavailable):
			observability.GetMetrics().RecordGatewayError("get_order")
			return nil, fmt.Errorf("failed to resolve order for payment %s: %w", payment.ExternalID, err)

		case err != nil:
			reason = models.SkipReasonAppendFailed
			log.WithFields(log.Fields{
				"externalPaymentId": payment.ExternalID,
				"error":             err,
			}).Error("Failed to append payment")

		case reason == "":
			appendedAt = append(appendedAt, appended.SettledAt)
			result.SyncedPayments++
			observability.GetMetrics().RecordPaymentSynced()
			continue
		}

		result.Skipped[reason]++
		observability.GetMetrics().RecordPaymentSkipped(string(reason))
		if reason != models.SkipReasonAlreadySynced && reason != models.SkipReasonAppendFailed {
			log.WithError(fmt.Errorf("%w: %s", ErrDataQuality, reason)).WithFields(log.Fields{
				"externalPaymentId": payment.ExternalID,
				"orderReference":    payment.OrderReference,
				"reason":            reason,
			}).Warn("Skipping payment")
		}
	}

	stores := make(map[string]struct{})
	for _, month := range s.monthsToRecompute(appendedAt) {
		touched, err := s.recompute(ctx, month)
		if err != nil {
			return nil, err
		}
		for storeID := range touched {
			stores[storeID] = struct{}{}
		}
	}

	result.UpdatedStores = len(stores)
	result.LastSyncTime = s.clock.Now()
	return result, nil
}

// monthsToRecompute is the current month plus any earlier month a late payment landed in
func (s *syncService) monthsToRecompute(appendedAt []time.Time) []period.Month {
	current := s.clock.Current()
	months := []period.Month{current}
	seen := map[string]bool{current.Key: true}
	for _, at := range appendedAt {
		if current.Contains(at) {
			continue
		}
		month := s.clock.MonthOf(at)
		if !seen[month.Key] {
			seen[month.Key] = true
			months = append(months, month)
		}
	}
	return months
}

// watermark is max(settled_at) over the ledger, or now minus the lookback when it is empty
func (s *syncService) watermark(ctx context.Context) (time.Time, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	latest, err := uow.SettledPaymentRepository().LatestSettledAt(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to determine watermark: %w", err)
	}
	if latest == nil {
		return s.clock.Now().Add(-s.lookback), nil
	}
	return *latest, nil
}

// reconcile resolves one payment to an offer and appends it.
// A non-empty reason means the payment was skipped.
func (s *syncService) reconcile(ctx context.Context, payment gateway.Payment) (*models.SettledPayment, models.SkipReason, error) {
	if payment.Amount <= 0 {
		return nil, models.SkipReasonInvalidAmount, nil
	}

	exists, err := s.paymentExists(ctx, payment.ExternalID)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, models.SkipReasonAlreadySynced, nil
	}

	items, err := s.gateway.GetOrderLineItems(ctx, payment.OrderReference)
	if err != nil {
		return nil, "", err
	}
	if len(items) == 0 {
		return nil, models.SkipReasonNoLineItems, nil
	}
	if len(items) > 1 {
		// Orders are single-item by construction; the remainder is ignored.
		log.WithFields(log.Fields{
			"externalPaymentId": payment.ExternalID,
			"lineItems":         len(items),
		}).Debug("Order has more than one line item, using the first")
	}

	catalogReference := items[0].CatalogReference
	if catalogReference == "" {
		return nil, models.SkipReasonNoCatalogRef, nil
	}

	return s.appendPayment(ctx, payment, catalogReference)
}

func (s *syncService) paymentExists(ctx context.Context, externalID string) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.SettledPaymentRepository().ExistsByExternalID(ctx, externalID)
}

func (s *syncService) appendPayment(ctx context.Context, payment gateway.Payment, catalogReference string) (*models.SettledPayment, models.SkipReason, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	offer, err := uow.GiftOfferRepository().GetByCatalogReference(ctx, catalogReference)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up offer: %w", err)
	}
	if offer == nil {
		return nil, models.SkipReasonUnknownOffer, nil
	}

	settled := &models.SettledPayment{
		ExternalPaymentID: payment.ExternalID,
		TalentID:          offer.TalentID,
		StoreID:           offer.StoreID,
		Amount:            payment.Amount,
		SettledAt:         s.clock.InZone(payment.SettledAt),
	}

	if err := uow.SettledPaymentRepository().Create(ctx, settled); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, models.SkipReasonAlreadySynced, nil
		}
		return nil, "", err
	}

	event := events.PaymentSettledEvent{
		PaymentID:         settled.ID,
		ExternalPaymentID: settled.ExternalPaymentID,
		StoreID:           settled.StoreID,
		OfferLabel:        offer.Label,
		Amount:            settled.Amount,
		SettledAt:         settled.SettledAt,
		MonthKey:          s.clock.MonthKey(settled.SettledAt),
	}
	if settled.TalentID != nil {
		event.TalentID = *settled.TalentID
	}
	uow.EventBus().Publish(event)

	if err := uow.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit payment: %w", err)
	}

	log.WithFields(log.Fields{
		"externalPaymentId": settled.ExternalPaymentID,
		"storeId":           settled.StoreID,
		"amount":            settled.Amount,
		"monthKey":          event.MonthKey,
	}).Info("Appended settled payment")

	return settled, "", nil
}

// recompute upserts the month's total for every (store, talent) group with payments.
// Each group is its own transaction; a failing group does not block the others.
// Returns the stores with at least one upserted group.
func (s *syncService) recompute(ctx context.Context, month period.Month) (map[string]struct{}, error) {
	totals, err := s.sumMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	byStore := groupByStore(totals)
	refreshedAt := s.clock.Now()

	var (
		mu      sync.Mutex
		updated = make(map[string]struct{})
	)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for storeID, storeTotals := range byStore {
		g.Go(func() error {
			if s.recomputeStore(ctx, storeID, storeTotals, month, refreshedAt) > 0 {
				mu.Lock()
				updated[storeID] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return updated, nil
}

func (s *syncService) sumMonth(ctx context.Context, month period.Month) ([]*models.TalentTotal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	totals, err := uow.SettledPaymentRepository().SumByTalentInRange(ctx, month.Start, month.End)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate month %s: %w", month.Key, err)
	}
	return totals, nil
}

// recomputeStore upserts each talent total of one store and returns how many succeeded
func (s *syncService) recomputeStore(ctx context.Context, storeID string, totals []*models.TalentTotal, month period.Month, refreshedAt time.Time) int {
	succeeded := 0
	for _, total := range totals {
		err := s.upsertTotal(ctx, total, month, refreshedAt)
		observability.GetMetrics().RecordRankingUpsert(err)
		if err != nil {
			log.WithFields(log.Fields{
				"storeId":  total.StoreID,
				"talentId": total.TalentID,
				"monthKey": month.Key,
				"error":    err,
			}).Error("Failed to upsert monthly total")
			continue
		}
		succeeded++
	}

	if succeeded > 0 {
		s.publishRefresh(ctx, events.RankingRefreshedEvent{
			StoreID:     storeID,
			MonthKey:    month.Key,
			Talents:     succeeded,
			RefreshedAt: refreshedAt,
		})
	}

	return succeeded
}

func (s *syncService) upsertTotal(ctx context.Context, total *models.TalentTotal, month period.Month, refreshedAt time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	err := uow.MonthlyTotalRepository().Upsert(ctx, &models.MonthlyTotal{
		StoreID:     total.StoreID,
		TalentID:    total.TalentID,
		MonthKey:    month.Key,
		TotalAmount: total.TotalAmount,
		RefreshedAt: refreshedAt,
	})
	if err != nil {
		return err
	}

	return uow.Commit()
}

func (s *syncService) publishRefresh(ctx context.Context, event events.RankingRefreshedEvent) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Warn("Failed to publish ranking refresh")
		return
	}
	defer uow.Rollback()

	uow.EventBus().Publish(event)
	if err := uow.Commit(); err != nil {
		log.WithError(err).Warn("Failed to publish ranking refresh")
	}
}

// Rebuild drops one month of cached totals and recomputes it from the ledger in a single transaction
func (s *syncService) Rebuild(ctx context.Context, monthKey string) (*models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	removed, err := uow.MonthlyTotalRepository().DeleteMonth(ctx, month.Key)
	if err != nil {
		return nil, err
	}

	totals, err := uow.SettledPaymentRepository().SumByTalentInRange(ctx, month.Start, month.End)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate month %s: %w", month.Key, err)
	}

	refreshedAt := s.clock.Now()
	byStore := groupByStore(totals)
	for _, total := range totals {
		err := uow.MonthlyTotalRepository().Upsert(ctx, &models.MonthlyTotal{
			StoreID:     total.StoreID,
			TalentID:    total.TalentID,
			MonthKey:    month.Key,
			TotalAmount: total.TotalAmount,
			RefreshedAt: refreshedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild month %s: %w", month.Key, err)
		}
	}

	for storeID, storeTotals := range byStore {
		uow.EventBus().Publish(events.RankingRefreshedEvent{
			StoreID:     storeID,
			MonthKey:    month.Key,
			Talents:     len(storeTotals),
			RefreshedAt: refreshedAt,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rebuild: %w", err)
	}

	log.WithFields(log.Fields{
		"monthKey": month.Key,
		"removed":  removed,
		"groups":   len(totals),
		"stores":   len(byStore),
	}).Info("Rebuilt monthly ranking cache")

	return &models.SyncResult{
		UpdatedStores: len(byStore),
		LastSyncTime:  refreshedAt,
	}, nil
}

func groupByStore(totals []*models.TalentTotal) map[string][]*models.TalentTotal {
	byStore := make(map[string][]*models.TalentTotal)
	for _, total := range totals {
		byStore[total.StoreID] = append(byStore[total.StoreID], total)
	}
	return byStore
}
