package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// UnknownUsername is recorded when the caller carries no identity.
const UnknownUsername = "unknown"

type Order struct {
	PrimaryKey string      `json:"id"`
	OrderID    string      `json:"order_id"`
	ProductIDs []string    `json:"product_ids"`
	Products   []Product   `json:"products,omitempty"`
	Username   string      `json:"username"`
	Status     OrderStatus `json:"status"`
	TotalPrice int64       `json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
