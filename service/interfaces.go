package service

import (
	"context"
	"time"

	"giftrank/events"
	"giftrank/models"
)

// GiftOfferRepository defines the interface for gift offer data access
type GiftOfferRepository interface {
	// Create inserts a new offer; ID is generated when empty
	Create(ctx context.Context, offer *models.GiftOffer) error

	// GetByID retrieves an offer by id, nil when absent
	GetByID(ctx context.Context, id string) (*models.GiftOffer, error)

	// GetByCatalogReference retrieves an offer by its external catalog reference, nil when absent
	GetByCatalogReference(ctx context.Context, catalogReference string) (*models.GiftOffer, error)

	// ListByStore returns every offer of a store, talent offers and store templates alike
	ListByStore(ctx context.Context, storeID string) ([]*models.GiftOffer, error)

	// SetCheckoutURL stores url only if the offer has no checkout URL yet.
	// It returns the URL that is stored after the call, which is the earlier
	// value when another writer got there first.
	SetCheckoutURL(ctx context.Context, id string, url string) (string, error)

	// ClearCheckoutURL removes the memoized checkout URL
	ClearCheckoutURL(ctx context.Context, id string) error

	// SetActive toggles the active flag
	SetActive(ctx context.Context, id string, active bool) error
}

// SettledPaymentRepository defines the interface for the append-only payment ledger
type SettledPaymentRepository interface {
	// ExistsByExternalID reports whether a payment was already ingested
	ExistsByExternalID(ctx context.Context, externalPaymentID string) (bool, error)

	// Create appends a payment. Returns ErrDuplicatePayment when the external id is already recorded.
	Create(ctx context.Context, payment *models.SettledPayment) error

	// LatestSettledAt returns the greatest settlement instant in the ledger, nil when empty
	LatestSettledAt(ctx context.Context) (*time.Time, error)

	// SumByTalentInRange sums talent payments settled in [start, end) grouped by store and talent
	SumByTalentInRange(ctx context.Context, start, end time.Time) ([]*models.TalentTotal, error)

	// ListByStoreInRange returns a store's payments settled in [start, end), oldest first
	ListByStoreInRange(ctx context.Context, storeID string, start, end time.Time) ([]*models.SettledPayment, error)
}

// MonthlyTotalRepository defines the interface for the ranking cache
type MonthlyTotalRepository interface {
	// Upsert writes the total for a (store, talent, month) key, replacing any previous value
	Upsert(ctx context.Context, total *models.MonthlyTotal) error

	// Get returns one cached total, nil when absent
	Get(ctx context.Context, storeID, talentID, monthKey string) (*models.MonthlyTotal, error)

	// GetRanking returns a store's totals for a month joined to talent details,
	// ordered by total descending then talent id. Rank is left for the caller.
	GetRanking(ctx context.Context, storeID, monthKey string) ([]*models.RankingEntry, error)

	// DeleteMonth removes every cached total of a month and returns the number of rows removed
	DeleteMonth(ctx context.Context, monthKey string) (int64, error)
}

// StoreRepository defines the interface for store data access
type StoreRepository interface {
	Create(ctx context.Context, store *models.Store) error
	GetByID(ctx context.Context, id string) (*models.Store, error)
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
}

// TalentRepository defines the interface for talent data access
type TalentRepository interface {
	Create(ctx context.Context, talent *models.Talent) error
	GetByID(ctx context.Context, id string) (*models.Talent, error)
	GetBySlug(ctx context.Context, storeID, slug string) (*models.Talent, error)
	ListByStore(ctx context.Context, storeID string) ([]*models.Talent, error)
}

// SyncService pulls settled payments from the gateway and maintains the ranking cache
type SyncService interface {
	// Run executes one watermark, fetch, reconcile, append and recompute cycle
	Run(ctx context.Context) (*models.SyncResult, error)

	// Rebuild drops and recomputes the cached totals of one civil month ("YYYY-MM"),
	// the current month when monthKey is empty
	Rebuild(ctx context.Context, monthKey string) (*models.SyncResult, error)
}

// CheckoutService resolves offers to payable checkout links
type CheckoutService interface {
	// Resolve returns the memoized link for an offer, minting one on first use.
	// ownerID may be empty; when set it must match the offer's talent or, for store templates, its store.
	Resolve(ctx context.Context, ownerID, offerID string) (string, error)
}

// RankingService serves store leaderboards
type RankingService interface {
	// GetStoreRanking returns the current civil month's leaderboard of a store
	GetStoreRanking(ctx context.Context, storeID string) (*models.Ranking, error)

	// GetStoreRankingForMonth returns the leaderboard of a store for a given "YYYY-MM"
	GetStoreRankingForMonth(ctx context.Context, storeID, monthKey string) (*models.Ranking, error)
}

// AdminService covers operator tasks run from the command line
type AdminService interface {
	// ListOffers returns every offer of a store addressed by id or slug
	ListOffers(ctx context.Context, storeRef string) ([]*models.GiftOffer, error)

	// SetOfferActive enables or disables an offer for checkout
	SetOfferActive(ctx context.Context, offerID string, active bool) error

	// ResetCheckoutLink forgets the memoized link so the next checkout mints a new one
	ResetCheckoutLink(ctx context.Context, offerID string) error

	// ListPayments returns a store's ledger rows for a civil month, the current month when monthKey is empty
	ListPayments(ctx context.Context, storeRef, monthKey string) ([]*models.SettledPayment, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	// Repository getters
	GiftOfferRepository() GiftOfferRepository
	SettledPaymentRepository() SettledPaymentRepository
	MonthlyTotalRepository() MonthlyTotalRepository
	StoreRepository() StoreRepository
	TalentRepository() TalentRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
