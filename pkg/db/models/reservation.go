package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
)

// Reservation books a table for a user at a point in time.
type Reservation struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	PartySize   int                     `gorm:"column:party_size;not null"`
	ReservedFor time.Time               `gorm:"column:reserved_for;not null"`
	Status      enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'booked'"`
	Notes       *string                 `gorm:"column:notes"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
