package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one consolidated line within a cart. Line identity is the
// (cart, item, notes) triple, so the same dish with different preparation
// notes occupies separate lines.
type CartLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:uq_cart_lines_identity"`
	ItemID         uuid.UUID `gorm:"column:item_id;type:uuid;not null;uniqueIndex:uq_cart_lines_identity"`
	Notes          string    `gorm:"column:notes;not null;default:'';uniqueIndex:uq_cart_lines_identity"`
	Name           string    `gorm:"column:name;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
