package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem captures the snapshot of each cart line at checkout.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ItemID         uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Notes          string    `gorm:"column:notes;not null;default:''"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
