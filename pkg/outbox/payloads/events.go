package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
)

// CartAttachedEvent is emitted when an anonymous cart is claimed at login.
type CartAttachedEvent struct {
	CartID     uuid.UUID `json:"cart_id"`
	UserID     uuid.UUID `json:"user_id"`
	LineCount  int       `json:"line_count"`
	AttachedAt time.Time `json:"attached_at"`
}

// OrderPlacedEvent signals a checkout that committed successfully.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	UserID        uuid.UUID `json:"user_id"`
	LineCount     int       `json:"line_count"`
	SubtotalCents int       `json:"subtotal_cents"`
	TaxCents      int       `json:"tax_cents"`
	TotalCents    int       `json:"total_cents"`
}

// OrderCanceledEvent is emitted when a placed order is canceled and its
// stock restored.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	CanceledAt time.Time `json:"canceled_at"`
	Reason     string    `json:"reason,omitempty"`
}

// OrderCompletedEvent is emitted when staff marks an order served.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// ReservationBookedEvent signals a new table booking.
type ReservationBookedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	UserID        uuid.UUID `json:"user_id"`
	PartySize     int       `json:"party_size"`
	ReservedFor   time.Time `json:"reserved_for"`
}

// ReservationCanceledEvent signals a canceled booking.
type ReservationCanceledEvent struct {
	ReservationID uuid.UUID               `json:"reservation_id"`
	UserID        uuid.UUID               `json:"user_id"`
	PriorStatus   enums.ReservationStatus `json:"prior_status"`
	CanceledAt    time.Time               `json:"canceled_at"`
}
