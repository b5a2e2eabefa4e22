package orders

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProducts struct {
	mu       sync.Mutex
	products map[string]domain.Product
	err      error
	calls    int
}

func newFakeProducts(products ...domain.Product) *fakeProducts {
	f := &fakeProducts{products: make(map[string]domain.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProducts) FindByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	// Reverse order on purpose: callers must not rely on store ordering.
	var out []domain.Product
	for i := len(ids) - 1; i >= 0; i-- {
		if p, ok := f.products[ids[i]]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) setPrice(id string, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Price = price
	f.products[id] = p
}

type storedOrder struct {
	order          domain.Order
	idempotencyKey string
	unitPrices     map[string]int64
}

type fakeStore struct {
	mu       sync.Mutex
	nextPK   int64
	orders   map[int64]storedOrder
	products *fakeProducts

	createErr error
	getErr    error
	pkLookups int
}

func newFakeStore(products *fakeProducts) *fakeStore {
	return &fakeStore{
		orders:   make(map[int64]storedOrder),
		products: products,
	}
}

func (s *fakeStore) Create(_ context.Context, order *domain.Order, idempotencyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	for _, o := range s.orders {
		if o.order.OrderID == order.OrderID {
			return domain.ErrPersistence
		}
		if idempotencyKey != "" && o.idempotencyKey == idempotencyKey {
			return domain.ErrDuplicateIdempotencyKey
		}
	}

	s.nextPK++
	order.PrimaryKey = strconv.FormatInt(s.nextPK, 10)
	stored := *order
	stored.ProductIDs = append([]string(nil), order.ProductIDs...)
	stored.Products = nil
	prices := make(map[string]int64, len(order.Products))
	for _, p := range order.Products {
		prices[p.ID] = p.Price
	}
	s.orders[s.nextPK] = storedOrder{order: stored, idempotencyKey: idempotencyKey, unitPrices: prices}
	return nil
}

func (s *fakeStore) GetByPrimaryKey(_ context.Context, pk int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pkLookups++
	if s.getErr != nil {
		return nil, s.getErr
	}
	o, ok := s.orders[pk]
	if !ok {
		return nil, nil
	}
	return s.populate(o), nil
}

func (s *fakeStore) GetByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	return s.find(func(o storedOrder) bool { return o.order.OrderID == orderID })
}

func (s *fakeStore) GetByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	return s.find(func(o storedOrder) bool { return o.idempotencyKey == key })
}

func (s *fakeStore) find(match func(storedOrder) bool) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, o := range s.orders {
		if match(o) {
			return s.populate(o), nil
		}
	}
	return nil, nil
}

// populate mirrors the SQL join: catalog details for each reference, priced
// at the unit price recorded when the order was created.
func (s *fakeStore) populate(o storedOrder) *domain.Order {
	order := o.order
	order.Products = []domain.Product{}
	for _, id := range order.ProductIDs {
		if p, ok := s.products.products[id]; ok {
			p.Price = o.unitPrices[id]
			order.Products = append(order.Products, p)
		}
	}
	return &order
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type publishedEvent struct {
	key   string
	event domain.OrderCreatedEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	// kafka.Writer gives up on a done context.
	if err := ctx.Err(); err != nil {
		return err
	}
	p.events = append(p.events, publishedEvent{key: key, event: event.(domain.OrderCreatedEvent)})
	return nil
}

func (p *fakePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func catalog() *fakeProducts {
	return newFakeProducts(
		domain.Product{ID: "p1", Name: "Notebook", Price: 10},
		domain.Product{ID: "p2", Name: "Pen", Price: 15},
		domain.Product{ID: "p3", Name: "Backpack", Price: 4500},
	)
}

// cancelAfterCreate cancels the request context as soon as the order is
// committed, like a client that disconnects mid-request.
type cancelAfterCreate struct {
	*fakeStore
	cancel context.CancelFunc
}

func (s *cancelAfterCreate) Create(ctx context.Context, order *domain.Order, idempotencyKey string) error {
	err := s.fakeStore.Create(ctx, order, idempotencyKey)
	if err == nil {
		s.cancel()
	}
	return err
}
