package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
)

// Order is the immutable record produced by a successful checkout.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'placed'"`
	SubtotalCents int               `gorm:"column:subtotal_cents;not null"`
	TaxCents      int               `gorm:"column:tax_cents;not null"`
	TotalCents    int               `gorm:"column:total_cents;not null"`
	Lines         []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CompletedAt   *time.Time        `gorm:"column:completed_at"`
	CanceledAt    *time.Time        `gorm:"column:canceled_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
