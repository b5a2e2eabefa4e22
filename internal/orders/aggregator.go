package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

// Aggregator turns a set of product references into a persisted order.
// It never publishes; announcing the order is left to the caller.
type Aggregator struct {
	products ProductFinder
	store    Store
	now      func() time.Time
	newID    func() string
}

func NewAggregator(products ProductFinder, store Store) *Aggregator {
	return &Aggregator{
		products: products,
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

type createOptions struct {
	idempotencyKey string
}

type CreateOption func(*createOptions)

// WithIdempotencyKey records key on the order so a retried request can be
// matched to the order it already created.
func WithIdempotencyKey(key string) CreateOption {
	return func(o *createOptions) {
		o.idempotencyKey = key
	}
}

// CreateOrder prices the products that resolve among productIDs and persists
// an order over them. Unknown ids are dropped from both the references and
// the total; if none resolve, ErrNoProductsFound is returned and nothing is
// stored.
func (a *Aggregator) CreateOrder(ctx context.Context, productIDs []string, requester domain.Identity, opts ...CreateOption) (*domain.Order, error) {
	var options createOptions
	for _, opt := range opts {
		opt(&options)
	}

	ids := uniqueIDs(productIDs)
	if len(ids) == 0 {
		return nil, domain.ErrProductIDsRequired
	}

	found, err := a.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: find products: %w", domain.ErrPersistence, err)
	}
	if len(found) == 0 {
		return nil, domain.ErrNoProductsFound
	}

	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	order := &domain.Order{
		OrderID:    a.newID(),
		ProductIDs: make([]string, 0, len(found)),
		Products:   make([]domain.Product, 0, len(found)),
		Username:   requester.Name(),
		Status:     domain.OrderStatusCompleted,
		CreatedAt:  a.now(),
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		order.ProductIDs = append(order.ProductIDs, p.ID)
		order.Products = append(order.Products, p)
		order.TotalPrice += p.Price
	}

	if err := a.store.Create(ctx, order, options.idempotencyKey); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: save order: %w", domain.ErrPersistence, err)
	}

	return order, nil
}

// uniqueIDs drops empty and repeated ids, keeping first-occurrence order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
