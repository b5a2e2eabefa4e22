package orders

import (
	"context"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

// ProductFinder resolves product references in a single batch.
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// Store persists orders under two independent unique keys. Lookups return
// nil, nil when nothing matches.
type Store interface {
	Create(ctx context.Context, order *domain.Order, idempotencyKey string) error
	GetByPrimaryKey(ctx context.Context, pk int64) (*domain.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

var _ Store = (*OrderRepository)(nil)
