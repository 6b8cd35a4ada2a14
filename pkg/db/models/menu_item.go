package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
)

// MenuItem is the canonical dish listing.
type MenuItem struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string             `gorm:"column:name;not null"`
	Description *string            `gorm:"column:description"`
	Category    enums.MenuCategory `gorm:"column:category;type:menu_category;not null"`
	PriceCents  int                `gorm:"column:price_cents;not null"`
	Allergens   pq.StringArray     `gorm:"column:allergens;type:text[]"`
	IsActive    bool               `gorm:"column:is_active;not null;default:true"`
	Inventory   *InventoryItem     `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
