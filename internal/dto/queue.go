package dto

import "time"

// QueueTokenResponse represents a queue token as served by GET /queue and as
// carried inside broadcast snapshots.
type QueueTokenResponse struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	TokenNumber int64     `json:"token_number"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
