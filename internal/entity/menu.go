package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// MenuItem is a sellable catalog row. Orders reference menu items by id; the
// order path only reads them.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name"`
	Price     float64   `bun:"price"`
	Available bool      `bun:"available"`
	ImageURL  string    `bun:"image_url,nullzero"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
