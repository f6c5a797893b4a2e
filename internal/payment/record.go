package payment

import "time"

// Status is the lifecycle state of a tracked checkout session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
)

// Record is the latest known payment state for a single checkout session.
// LastEventAt is the time of the most recent accepted event or lookup that
// produced it and drives retention eviction.
type Record struct {
	SessionID     string    `json:"session_id"`
	Status        Status    `json:"status"`
	LastEventAt   time.Time `json:"timestamp"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	AmountTotal   int64     `json:"amount_total,omitempty"`
	Currency      string    `json:"currency,omitempty"`
}
