package orders

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/lib/pq"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

const uniqueViolation = "23505"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and its product references in one transaction and
// sets order.PrimaryKey to the identity assigned by the database. Product
// snapshots in order.Products supply the unit prices recorded per reference.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order, idempotencyKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	key := sql.NullString{String: idempotencyKey, Valid: idempotencyKey != ""}

	var pk int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_id, username, status, total_price, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, order.OrderID, order.Username, order.Status, order.TotalPrice, key, order.CreatedAt).Scan(&pk)
	if err != nil {
		if isUniqueViolation(err, "orders_idempotency_key_key") {
			return domain.ErrDuplicateIdempotencyKey
		}
		return err
	}

	prices := make(map[string]int64, len(order.Products))
	for _, p := range order.Products {
		prices[p.ID] = p.Price
	}

	for i, productID := range order.ProductIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_products (order_pk, position, product_id, unit_price)
			VALUES ($1, $2, $3, $4)
		`, pk, i, productID, prices[productID])
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	order.PrimaryKey = strconv.FormatInt(pk, 10)
	order.UpdatedAt = order.CreatedAt
	return nil
}

func (r *OrderRepository) GetByPrimaryKey(ctx context.Context, pk int64) (*domain.Order, error) {
	return r.getOne(ctx, "id = $1", pk)
}

func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.getOne(ctx, "order_id = $1", orderID)
}

func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.getOne(ctx, "idempotency_key = $1", key)
}

// getOne loads a single order matching where and populates its products.
// It returns nil, nil when no row matches.
func (r *OrderRepository) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	order := &domain.Order{}

	var pk int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, username, status, total_price, created_at, updated_at
		FROM orders
		WHERE `+where, arg).Scan(&pk, &order.OrderID, &order.Username, &order.Status,
		&order.TotalPrice, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	order.PrimaryKey = strconv.FormatInt(pk, 10)

	if err := r.populate(ctx, pk, order); err != nil {
		return nil, err
	}

	return order, nil
}

// populate expands the order's product references into product snapshots
// priced at the unit price recorded on create. References to products that no
// longer exist keep their id but are left out of Products.
func (r *OrderRepository) populate(ctx context.Context, pk int64, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT op.product_id, op.unit_price, p.name, p.description, p.created_at
		FROM order_products op
		LEFT JOIN products p ON p.id = op.product_id
		WHERE op.order_pk = $1
		ORDER BY op.position
	`, pk)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	order.ProductIDs = []string{}
	order.Products = []domain.Product{}

	for rows.Next() {
		var (
			productID   string
			unitPrice   int64
			name        sql.NullString
			description sql.NullString
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&productID, &unitPrice, &name, &description, &createdAt); err != nil {
			return err
		}
		order.ProductIDs = append(order.ProductIDs, productID)
		if !name.Valid {
			continue
		}
		order.Products = append(order.Products, domain.Product{
			ID:          productID,
			Name:        name.String,
			Description: description.String,
			Price:       unitPrice,
			CreatedAt:   createdAt.Time,
		})
	}

	return rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && pqErr.Constraint == constraint
}
