package orders

import (
	"context"
	"fmt"
	"strconv"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

// Resolver looks an order up by either its store key or its order id.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ParsePrimaryKey validates key against the store's key syntax: a positive
// base-10 integer.
func ParsePrimaryKey(key string) (int64, error) {
	pk, err := strconv.ParseInt(key, 10, 64)
	if err != nil || pk <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidOrderKey, key)
	}
	return pk, nil
}

// Resolve tries key as a primary key first and falls back to the order id.
// A key that is not a valid primary key skips straight to the fallback.
func (r *Resolver) Resolve(ctx context.Context, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrOrderKeyRequired
	}

	if pk, err := ParsePrimaryKey(key); err == nil {
		order, err := r.store.GetByPrimaryKey(ctx, pk)
		if err != nil {
			return nil, fmt.Errorf("%w: get order by key: %w", domain.ErrPersistence, err)
		}
		if order != nil {
			return order, nil
		}
	}

	order, err := r.store.GetByOrderID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: get order by order id: %w", domain.ErrPersistence, err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	return order, nil
}
