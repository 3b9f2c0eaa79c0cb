package service

import (
	"context"
	"time"

	"giftrank/events"
	"giftrank/gateway"
	"giftrank/models"

	"github.com/stretchr/testify/mock"
)

// MockGiftOfferRepository is a mock implementation of GiftOfferRepository
type MockGiftOfferRepository struct {
	mock.Mock
}

func (m *MockGiftOfferRepository) Create(ctx context.Context, offer *models.GiftOffer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockGiftOfferRepository) GetByID(ctx context.Context, id string) (*models.GiftOffer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftOffer), args.Error(1)
}

func (m *MockGiftOfferRepository) GetByCatalogReference(ctx context.Context, catalogReference string) (*models.GiftOffer, error) {
	args := m.Called(ctx, catalogReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftOffer), args.Error(1)
}

func (m *MockGiftOfferRepository) ListByStore(ctx context.Context, storeID string) ([]*models.GiftOffer, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiftOffer), args.Error(1)
}

func (m *MockGiftOfferRepository) SetCheckoutURL(ctx context.Context, id string, url string) (string, error) {
	args := m.Called(ctx, id, url)
	return args.String(0), args.Error(1)
}

func (m *MockGiftOfferRepository) ClearCheckoutURL(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGiftOfferRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// MockSettledPaymentRepository is a mock implementation of SettledPaymentRepository
type MockSettledPaymentRepository struct {
	mock.Mock
}

func (m *MockSettledPaymentRepository) ExistsByExternalID(ctx context.Context, externalPaymentID string) (bool, error) {
	args := m.Called(ctx, externalPaymentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettledPaymentRepository) Create(ctx context.Context, payment *models.SettledPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockSettledPaymentRepository) LatestSettledAt(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockSettledPaymentRepository) SumByTalentInRange(ctx context.Context, start, end time.Time) ([]*models.TalentTotal, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TalentTotal), args.Error(1)
}

func (m *MockSettledPaymentRepository) ListByStoreInRange(ctx context.Context, storeID string, start, end time.Time) ([]*models.SettledPayment, error) {
	args := m.Called(ctx, storeID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SettledPayment), args.Error(1)
}

// MockMonthlyTotalRepository is a mock implementation of MonthlyTotalRepository
type MockMonthlyTotalRepository struct {
	mock.Mock
}

func (m *MockMonthlyTotalRepository) Upsert(ctx context.Context, total *models.MonthlyTotal) error {
	args := m.Called(ctx, total)
	return args.Error(0)
}

func (m *MockMonthlyTotalRepository) Get(ctx context.Context, storeID, talentID, monthKey string) (*models.MonthlyTotal, error) {
	args := m.Called(ctx, storeID, talentID, monthKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MonthlyTotal), args.Error(1)
}

func (m *MockMonthlyTotalRepository) GetRanking(ctx context.Context, storeID, monthKey string) ([]*models.RankingEntry, error) {
	args := m.Called(ctx, storeID, monthKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RankingEntry), args.Error(1)
}

func (m *MockMonthlyTotalRepository) DeleteMonth(ctx context.Context, monthKey string) (int64, error) {
	args := m.Called(ctx, monthKey)
	return args.Get(0).(int64), args.Error(1)
}

// MockStoreRepository is a mock implementation of StoreRepository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) Create(ctx context.Context, store *models.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreRepository) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

// MockTalentRepository is a mock implementation of TalentRepository
type MockTalentRepository struct {
	mock.Mock
}

func (m *MockTalentRepository) Create(ctx context.Context, talent *models.Talent) error {
	args := m.Called(ctx, talent)
	return args.Error(0)
}

func (m *MockTalentRepository) GetByID(ctx context.Context, id string) (*models.Talent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Talent), args.Error(1)
}

func (m *MockTalentRepository) GetBySlug(ctx context.Context, storeID, slug string) (*models.Talent, error) {
	args := m.Called(ctx, storeID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Talent), args.Error(1)
}

func (m *MockTalentRepository) ListByStore(ctx context.Context, storeID string) ([]*models.Talent, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Talent), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Repository getters return whatever was configured with SetRepositories.
type MockUnitOfWork struct {
	mock.Mock
	offers   GiftOfferRepository
	payments SettledPaymentRepository
	totals   MonthlyTotalRepository
	stores   StoreRepository
	talents  TalentRepository
	bus      EventPublisher
}

// SetRepositories configures the repositories handed out by the unit of work
func (m *MockUnitOfWork) SetRepositories(offers GiftOfferRepository, payments SettledPaymentRepository, totals MonthlyTotalRepository, stores StoreRepository, talents TalentRepository, bus EventPublisher) {
	m.offers = offers
	m.payments = payments
	m.totals = totals
	m.stores = stores
	m.talents = talents
	m.bus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) GiftOfferRepository() GiftOfferRepository           { return m.offers }
func (m *MockUnitOfWork) SettledPaymentRepository() SettledPaymentRepository { return m.payments }
func (m *MockUnitOfWork) MonthlyTotalRepository() MonthlyTotalRepository     { return m.totals }
func (m *MockUnitOfWork) StoreRepository() StoreRepository                   { return m.stores }
func (m *MockUnitOfWork) TalentRepository() TalentRepository                 { return m.talents }
func (m *MockUnitOfWork) EventBus() EventPublisher                           { return m.bus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockGatewayClient is a mock implementation of gateway.Client
type MockGatewayClient struct {
	mock.Mock
}

var _ gateway.Client = (*MockGatewayClient)(nil)

func (m *MockGatewayClient) ListCompletedPayments(ctx context.Context, since time.Time) ([]gateway.Payment, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.Payment), args.Error(1)
}

func (m *MockGatewayClient) GetOrderLineItems(ctx context.Context, orderReference string) ([]gateway.LineItem, error) {
	args := m.Called(ctx, orderReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.LineItem), args.Error(1)
}

func (m *MockGatewayClient) CreateCheckoutLink(ctx context.Context, catalogReference string) (string, error) {
	args := m.Called(ctx, catalogReference)
	return args.String(0), args.Error(1)
}
