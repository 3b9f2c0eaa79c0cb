package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"giftrank/events"
	"giftrank/models"
)

// memoryStore is an in-memory backing store for service tests.
// Writes apply immediately; only events are held back until commit.
type memoryStore struct {
	mu        sync.Mutex
	stores    map[string]*models.Store
	talents   map[string]*models.Talent
	offers    map[string]*models.GiftOffer
	payments  []*models.SettledPayment
	totals    map[totalKey]*models.MonthlyTotal
	published []events.Event
	nextID    int64

	// upsertErr, when set, decides whether a monthly total upsert fails
	upsertErr func(total *models.MonthlyTotal) error
}

type totalKey struct {
	storeID  string
	talentID string
	monthKey string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		stores:  make(map[string]*models.Store),
		talents: make(map[string]*models.Talent),
		offers:  make(map[string]*models.GiftOffer),
		totals:  make(map[totalKey]*models.MonthlyTotal),
	}
}

func (s *memoryStore) Create() UnitOfWork {
	return &memoryUnitOfWork{store: s}
}

func (s *memoryStore) addStore(id, slug string) *models.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	store := &models.Store{ID: id, Name: "Store " + slug, Slug: slug, IsPublic: true}
	s.stores[id] = store
	return store
}

func (s *memoryStore) addTalent(id, storeID, slug string) *models.Talent {
	s.mu.Lock()
	defer s.mu.Unlock()
	talent := &models.Talent{ID: id, StoreID: storeID, Name: "Talent " + slug, Slug: slug, IsActive: true}
	s.talents[id] = talent
	return talent
}

func (s *memoryStore) addOffer(id, storeID string, talentID *string, catalogReference string, amount int64) *models.GiftOffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer := &models.GiftOffer{
		ID:               id,
		StoreID:          storeID,
		TalentID:         talentID,
		Label:            fmt.Sprintf("Gift %d", amount),
		Amount:           amount,
		CatalogReference: catalogReference,
		IsActive:         true,
	}
	s.offers[id] = offer
	return offer
}

func (s *memoryStore) ledger() []*models.SettledPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.SettledPayment, len(s.payments))
	copy(out, s.payments)
	return out
}

func (s *memoryStore) total(storeID, talentID, monthKey string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.totals[totalKey{storeID, talentID, monthKey}]
	if !ok {
		return 0, false
	}
	return t.TotalAmount, true
}

func (s *memoryStore) events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.published))
	copy(out, s.published)
	return out
}

func (s *memoryStore) eventsOfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, e := range s.events() {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type memoryUnitOfWork struct {
	store   *memoryStore
	begun   bool
	pending []events.Event
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error {
	if u.begun {
		return fmt.Errorf("transaction already started")
	}
	u.begun = true
	return nil
}

func (u *memoryUnitOfWork) Commit() error {
	if !u.begun {
		return fmt.Errorf("no transaction to commit")
	}
	u.begun = false
	u.store.mu.Lock()
	u.store.published = append(u.store.published, u.pending...)
	u.store.mu.Unlock()
	u.pending = nil
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	u.begun = false
	u.pending = nil
	return nil
}

func (u *memoryUnitOfWork) Publish(event events.Event) {
	u.pending = append(u.pending, event)
}

func (u *memoryUnitOfWork) GiftOfferRepository() GiftOfferRepository {
	return memoryOffers{u.store}
}

func (u *memoryUnitOfWork) SettledPaymentRepository() SettledPaymentRepository {
	return memoryPayments{u.store}
}

func (u *memoryUnitOfWork) MonthlyTotalRepository() MonthlyTotalRepository {
	return memoryTotals{u.store}
}

func (u *memoryUnitOfWork) StoreRepository() StoreRepository { return memoryStores{u.store} }

func (u *memoryUnitOfWork) TalentRepository() TalentRepository { return memoryTalents{u.store} }

func (u *memoryUnitOfWork) EventBus() EventPublisher { return u }

type memoryOffers struct{ s *memoryStore }

func (r memoryOffers) Create(ctx context.Context, offer *models.GiftOffer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.offers {
		if o.CatalogReference == offer.CatalogReference {
			return ErrConflict
		}
	}
	copied := *offer
	r.s.offers[offer.ID] = &copied
	return nil
}

func (r memoryOffers) GetByID(ctx context.Context, id string) (*models.GiftOffer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.offers[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, nil
}

func (r memoryOffers) GetByCatalogReference(ctx context.Context, catalogReference string) (*models.GiftOffer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.offers {
		if o.CatalogReference == catalogReference {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (r memoryOffers) ListByStore(ctx context.Context, storeID string) ([]*models.GiftOffer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.GiftOffer
	for _, o := range r.s.offers {
		if o.StoreID == storeID {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r memoryOffers) SetCheckoutURL(ctx context.Context, id string, url string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return "", ErrNotFound
	}
	if o.HasCheckoutURL() {
		return *o.CheckoutURL, nil
	}
	o.CheckoutURL = &url
	return url, nil
}

func (r memoryOffers) ClearCheckoutURL(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return ErrNotFound
	}
	o.CheckoutURL = nil
	return nil
}

func (r memoryOffers) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return ErrNotFound
	}
	o.IsActive = active
	return nil
}

type memoryPayments struct{ s *memoryStore }

func (r memoryPayments) ExistsByExternalID(ctx context.Context, externalPaymentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.ExternalPaymentID == externalPaymentID {
			return true, nil
		}
	}
	return false, nil
}

func (r memoryPayments) Create(ctx context.Context, payment *models.SettledPayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.ExternalPaymentID == payment.ExternalPaymentID {
			return fmt.Errorf("%w: %s", ErrDuplicatePayment, payment.ExternalPaymentID)
		}
	}
	r.s.nextID++
	payment.ID = r.s.nextID
	payment.CreatedAt = time.Now()
	copied := *payment
	r.s.payments = append(r.s.payments, &copied)
	return nil
}

func (r memoryPayments) LatestSettledAt(ctx context.Context) (*time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *time.Time
	for _, p := range r.s.payments {
		if latest == nil || p.SettledAt.After(*latest) {
			at := p.SettledAt
			latest = &at
		}
	}
	return latest, nil
}

func (r memoryPayments) SumByTalentInRange(ctx context.Context, start, end time.Time) ([]*models.TalentTotal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sums := make(map[[2]string]int64)
	for _, p := range r.s.payments {
		if p.TalentID == nil || p.SettledAt.Before(start) || !p.SettledAt.Before(end) {
			continue
		}
		sums[[2]string{p.StoreID, *p.TalentID}] += p.Amount
	}

	out := make([]*models.TalentTotal, 0, len(sums))
	for key, sum := range sums {
		out = append(out, &models.TalentTotal{StoreID: key[0], TalentID: key[1], TotalAmount: sum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].TalentID < out[j].TalentID
	})
	return out, nil
}

func (r memoryPayments) ListByStoreInRange(ctx context.Context, storeID string, start, end time.Time) ([]*models.SettledPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.SettledPayment
	for _, p := range r.s.payments {
		if p.StoreID == storeID && !p.SettledAt.Before(start) && p.SettledAt.Before(end) {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettledAt.Before(out[j].SettledAt) })
	return out, nil
}

type memoryTotals struct{ s *memoryStore }

func (r memoryTotals) Upsert(ctx context.Context, total *models.MonthlyTotal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.upsertErr != nil {
		if err := r.s.upsertErr(total); err != nil {
			return err
		}
	}
	copied := *total
	r.s.totals[totalKey{total.StoreID, total.TalentID, total.MonthKey}] = &copied
	return nil
}

func (r memoryTotals) Get(ctx context.Context, storeID, talentID, monthKey string) (*models.MonthlyTotal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.totals[totalKey{storeID, talentID, monthKey}]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (r memoryTotals) GetRanking(ctx context.Context, storeID, monthKey string) ([]*models.RankingEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.RankingEntry
	for key, t := range r.s.totals {
		if key.storeID != storeID || key.monthKey != monthKey {
			continue
		}
		talent, ok := r.s.talents[key.talentID]
		if !ok {
			continue
		}
		out = append(out, &models.RankingEntry{
			TalentID:    talent.ID,
			Name:        talent.Name,
			Slug:        talent.Slug,
			TotalAmount: t.TotalAmount,
			PhotoURL:    talent.PhotoURL,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].TalentID < out[j].TalentID
	})
	return out, nil
}

func (r memoryTotals) DeleteMonth(ctx context.Context, monthKey string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for key := range r.s.totals {
		if key.monthKey == monthKey {
			delete(r.s.totals, key)
			removed++
		}
	}
	return removed, nil
}

type memoryStores struct{ s *memoryStore }

func (r memoryStores) Create(ctx context.Context, store *models.Store) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *store
	r.s.stores[store.ID] = &copied
	return nil
}

func (r memoryStores) GetByID(ctx context.Context, id string) (*models.Store, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st, ok := r.s.stores[id]; ok {
		copied := *st
		return &copied, nil
	}
	return nil, nil
}

func (r memoryStores) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.stores {
		if st.Slug == slug {
			copied := *st
			return &copied, nil
		}
	}
	return nil, nil
}

type memoryTalents struct{ s *memoryStore }

func (r memoryTalents) Create(ctx context.Context, talent *models.Talent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *talent
	r.s.talents[talent.ID] = &copied
	return nil
}

func (r memoryTalents) GetByID(ctx context.Context, id string) (*models.Talent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.talents[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (r memoryTalents) GetBySlug(ctx context.Context, storeID, slug string) (*models.Talent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.talents {
		if t.StoreID == storeID && t.Slug == slug {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r memoryTalents) ListByStore(ctx context.Context, storeID string) ([]*models.Talent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Talent
	for _, t := range r.s.talents {
		if t.StoreID == storeID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}
