package domain

import "time"

type OrderCreatedEvent struct {
	OrderID    string      `json:"order_id"`
	Products   []Product   `json:"products"`
	Username   string      `json:"username"`
	Status     OrderStatus `json:"status"`
	TotalPrice int64       `json:"total_price"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewOrderCreatedEvent builds the broker payload for a freshly persisted order.
func NewOrderCreatedEvent(order *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    order.OrderID,
		Products:   order.Products,
		Username:   order.Username,
		Status:     order.Status,
		TotalPrice: order.TotalPrice,
		Timestamp:  order.CreatedAt,
	}
}
