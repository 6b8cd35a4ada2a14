package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks stock per menu item. A null QtyOnHand means the item
// is untracked and never limits checkout.
type InventoryItem struct {
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;primaryKey"`
	QtyOnHand *int      `gorm:"column:qty_on_hand"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
