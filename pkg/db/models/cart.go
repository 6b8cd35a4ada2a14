package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single mutable draft order for an anonymous session or a user.
// Token is the opaque handle clients present; UserID is set once the cart is
// attached at login and is unique so a user can never own two carts.
type Cart struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token         string     `gorm:"column:token;not null;uniqueIndex:uq_carts_token"`
	UserID        *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex:uq_carts_user"`
	SubtotalCents int        `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents      int        `gorm:"column:tax_cents;not null;default:0"`
	TotalCents    int        `gorm:"column:total_cents;not null;default:0"`
	Lines         []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
