package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Queue token statuses. The token status is derived from the owning order's
// status; "called" is only reachable through the legacy queue-update path.
const (
	TokenStatusWaiting = "waiting"
	TokenStatusReady   = "ready"
	TokenStatusCalled  = "called"
)

// QueueToken is the customer-facing queue position derived from an order. It
// exists from order creation until the order completes, at which point the row
// is removed.
type QueueToken struct {
	bun.BaseModel `bun:"table:queue_tokens"`

	ID          int64     `bun:",pk,autoincrement"`
	OrderID     int64     `bun:"order_id"`
	TokenNumber int64     `bun:"token_number"`
	Status      string    `bun:"status"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
