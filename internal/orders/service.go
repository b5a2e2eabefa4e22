package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

const (
	DefaultTopic = "orders"

	// DefaultPublishTimeout bounds how long a create waits on the broker once
	// the order is committed.
	DefaultPublishTimeout = 10 * time.Second
)

var meter = otel.Meter("orders")

type CreateOrderInput struct {
	ProductIDs     []string
	Requester      domain.Identity
	IdempotencyKey string
}

type CreateResult struct {
	Order *domain.Order
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool
	// PublishErr holds the broker failure, if any. The order is persisted
	// regardless.
	PublishErr error
}

// Service composes the aggregator, resolver and publisher into the
// create-order and get-order operations.
type Service struct {
	aggregator *Aggregator
	resolver   *Resolver
	store      Store
	publisher  EventPublisher
	logger     *slog.Logger

	publishTimeout time.Duration

	created        metric.Int64Counter
	publishFailure metric.Int64Counter
}

// NewService wires the order path. publisher may be nil, in which case no
// events are emitted.
func NewService(products ProductFinder, store Store, publisher EventPublisher, logger *slog.Logger) (*Service, error) {
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders persisted by the create path"))
	if err != nil {
		return nil, fmt.Errorf("create orders.created counter: %w", err)
	}

	publishFailure, err := meter.Int64Counter("orders.publish.failures",
		metric.WithDescription("Order created events that could not be published"))
	if err != nil {
		return nil, fmt.Errorf("create orders.publish.failures counter: %w", err)
	}

	return &Service{
		aggregator:     NewAggregator(products, store),
		resolver:       NewResolver(store),
		store:          store,
		publisher:      publisher,
		logger:         logger,
		publishTimeout: DefaultPublishTimeout,
		created:        created,
		publishFailure: publishFailure,
	}, nil
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateResult, error) {
	if in.IdempotencyKey != "" {
		existing, err := s.store.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("%w: get order by idempotency key: %w", domain.ErrPersistence, err)
		}
		if existing != nil {
			return &CreateResult{Order: existing, Replayed: true}, nil
		}
	}

	order, err := s.aggregator.CreateOrder(ctx, in.ProductIDs, in.Requester, WithIdempotencyKey(in.IdempotencyKey))
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		// A concurrent request with the same key won the insert.
		existing, getErr := s.store.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if getErr != nil || existing == nil {
			return nil, fmt.Errorf("%w: reload order for idempotency key: %w", domain.ErrPersistence, errors.Join(err, getErr))
		}
		return &CreateResult{Order: existing, Replayed: true}, nil
	}
	if err != nil {
		return nil, err
	}

	s.created.Add(ctx, 1)

	result := &CreateResult{Order: order}
	if err := s.publish(ctx, order); err != nil {
		s.publishFailure.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("broker_unavailable", errors.Is(err, domain.ErrBrokerUnavailable)),
		))
		s.logger.Error("failed to publish order created event", "error", err, "order_id", order.OrderID)
		result.PublishErr = err
	}

	return result, nil
}

// publish runs detached from the caller's cancellation: once the order is
// committed, a client that goes away must not drop its event.
func (s *Service) publish(ctx context.Context, order *domain.Order) error {
	if s.publisher == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, order.OrderID, domain.NewOrderCreatedEvent(order)); err != nil {
		return fmt.Errorf("publish order created: %w", err)
	}
	return nil
}

func (s *Service) GetOrder(ctx context.Context, key string) (*domain.Order, error) {
	return s.resolver.Resolve(ctx, key)
}
