package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is a scriptable in-memory processor used by tests and local demos
type Fake struct {
	mu        sync.Mutex
	payments  []Payment
	orders    map[string][]LineItem
	links     map[string]int
	listErr   error
	orderErr  error
	linkErr   error
	linkCalls int
	listCalls int
	lastSince time.Time
}

// NewFake creates an empty fake processor
func NewFake() *Fake {
	return &Fake{
		orders: make(map[string][]LineItem),
		links:  make(map[string]int),
	}
}

// AddPayment registers a completed payment whose order holds the given catalog references
func (f *Fake) AddPayment(p Payment, catalogReferences ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.payments = append(f.payments, p)
	if p.OrderReference == "" {
		return
	}
	items := make([]LineItem, 0, len(catalogReferences))
	for _, ref := range catalogReferences {
		items = append(items, LineItem{CatalogReference: ref, Quantity: 1})
	}
	f.orders[p.OrderReference] = items
}

// FailList makes ListCompletedPayments fail until cleared with nil
func (f *Fake) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// FailOrders makes GetOrderLineItems fail until cleared with nil
func (f *Fake) FailOrders(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderErr = err
}

// FailLinks makes CreateCheckoutLink fail until cleared with nil
func (f *Fake) FailLinks(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkErr = err
}

// LinkCalls returns how many times CreateCheckoutLink was invoked
func (f *Fake) LinkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linkCalls
}

// ListCalls returns how many times ListCompletedPayments was invoked
func (f *Fake) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// LastSince returns the watermark passed to the latest ListCompletedPayments call
func (f *Fake) LastSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSince
}

func (f *Fake) ListCompletedPayments(ctx context.Context, since time.Time) ([]Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	f.lastSince = since
	if f.listErr != nil {
		return nil, unavailable("list payments", f.listErr)
	}

	var out []Payment
	for _, p := range f.payments {
		if !p.SettledAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) GetOrderLineItems(ctx context.Context, orderReference string) ([]LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.orderErr != nil {
		return nil, unavailable("get order", f.orderErr)
	}
	items := f.orders[orderReference]
	out := make([]LineItem, len(items))
	copy(out, items)
	return out, nil
}

func (f *Fake) CreateCheckoutLink(ctx context.Context, catalogReference string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.linkCalls++
	if f.linkErr != nil {
		return "", unavailable("create payment link", f.linkErr)
	}
	f.links[catalogReference]++
	return fmt.Sprintf("https://checkout.example.test/%s/%d", catalogReference, f.links[catalogReference]), nil
}
