// Package events defines the domain events published after a change commits.
package events

import (
	"context"
	"time"
)

// Routing keys.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	PointsEarned       = "points.earned"
)

// Publisher delivers an event under a routing key. Implementations encode
// the event as JSON.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// OrderCreatedEvent is emitted once an order is stored.
type OrderCreatedEvent struct {
	OrderID      string    `json:"order_id"`
	UserID       string    `json:"user_id,omitempty"`
	CustomerName string    `json:"customer_name"`
	Total        int64     `json:"total"`
	Items        int       `json:"items"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// OrderStatusChangedEvent is emitted for every committed, non-noop transition.
type OrderStatusChangedEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id,omitempty"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PointsEarnedEvent is emitted when a completed order credited points.
type PointsEarnedEvent struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	OrderID    string    `json:"order_id"`
	Points     int64     `json:"points"`
	OccurredAt time.Time `json:"occurred_at"`
}
