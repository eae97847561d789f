package dto

import "time"

// OrderResponse represents an order as exposed via the HTTP layer.
type OrderResponse struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItemDetailed is an order line joined with its menu row.
type OrderItemDetailed struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id"`
	MenuItemID int64   `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	MenuName   string  `json:"menu_name"`
	MenuPrice  float64 `json:"menu_price"`
	MenuImage  string  `json:"menu_image,omitempty"`
}

// OrderDetailedResponse is an order together with its joined line items.
type OrderDetailedResponse struct {
	Order OrderResponse       `json:"order"`
	Items []OrderItemDetailed `json:"items"`
}

// OrderCreatedResponse is returned from POST /orders.
type OrderCreatedResponse struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// StatusChangedResponse is returned from PUT /orders/:id/status.
type StatusChangedResponse struct {
	OrderID   int64  `json:"order_id"`
	NewStatus string `json:"new_status"`
}
