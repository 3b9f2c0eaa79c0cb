package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePaymentSettled      EventType = "payment.settled"
	EventTypeRankingRefreshed    EventType = "ranking.refreshed"
	EventTypeCheckoutLinkCreated EventType = "checkout.link_created"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PaymentSettledEvent is raised once per payment appended to the ledger
type PaymentSettledEvent struct {
	PaymentID         int64     `json:"payment_id"`
	ExternalPaymentID string    `json:"external_payment_id"`
	StoreID           string    `json:"store_id"`
	TalentID          string    `json:"talent_id,omitempty"` // empty for store-level offers
	OfferLabel        string    `json:"offer_label"`
	Amount            int64     `json:"amount"`
	SettledAt         time.Time `json:"settled_at"`
	MonthKey          string    `json:"month_key"`
}

func (e PaymentSettledEvent) Type() EventType {
	return EventTypePaymentSettled
}

// RankingRefreshedEvent is raised after a store's monthly totals were upserted
type RankingRefreshedEvent struct {
	StoreID     string    `json:"store_id"`
	MonthKey    string    `json:"month_key"`
	Talents     int       `json:"talents"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

func (e RankingRefreshedEvent) Type() EventType {
	return EventTypeRankingRefreshed
}

// CheckoutLinkCreatedEvent is raised when a checkout link is minted and memoized for an offer
type CheckoutLinkCreatedEvent struct {
	OfferID          string `json:"offer_id"`
	StoreID          string `json:"store_id"`
	CatalogReference string `json:"catalog_reference"`
}

func (e CheckoutLinkCreatedEvent) Type() EventType {
	return EventTypeCheckoutLinkCreated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds the same handler for several event types
func (b *Bus) SubscribeAll(handler Handler, eventTypes ...EventType) {
	for _, eventType := range eventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers.
// Handlers run asynchronously; a panicking handler is logged and does not affect the others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits, then forwards them to the underlying bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the number of buffered events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	if b.real == nil {
		b.pending = nil
		return
	}

	// Handlers outlive the transaction context
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}

	log.WithField("eventCount", len(b.pending)).Debug("Flushed transactional events")
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
