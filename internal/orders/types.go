package orders

import (
	"context"
	"time"
)

// Order records one settled checkout for fulfillment follow-up. The session
// store itself stays in-memory; this archive is the durable trail of
// completed payments.
type Order struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	AmountTotal   int64     `json:"amount_total"`
	Currency      string    `json:"currency"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Archive persists completed orders. SaveOrder must be idempotent per
// session id: webhook redelivery may record the same completion twice.
type Archive interface {
	SaveOrder(ctx context.Context, order Order) error
	RecentOrders(ctx context.Context, limit int) ([]Order, error)
	Close() error
}
