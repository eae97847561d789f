package entity

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Order statuses form the fixed vocabulary of the kitchen workflow. Any member
// of the set may be applied directly; ordering is not enforced beyond
// membership.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
)

// OrderStatuses lists every accepted order status.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
}

// NormalizeOrderStatus trims and lowercases raw input and reports whether the
// result names a known order status.
func NormalizeOrderStatus(raw string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range OrderStatuses {
		if status == known {
			return status, true
		}
	}
	return status, false
}

// Order represents a customer order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID        int64     `bun:",pk,autoincrement"`
	Source    string    `bun:"source"`
	Status    string    `bun:"status"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}

// OrderItem is one (menu item, quantity) line belonging to an order.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID         int64 `bun:",pk,autoincrement"`
	OrderID    int64 `bun:"order_id"`
	MenuItemID int64 `bun:"menu_item_id"`
	Quantity   int   `bun:"quantity"`
}
