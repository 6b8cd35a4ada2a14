package enums

import "fmt"

// ReservationStatus tracks a table reservation's lifecycle.
type ReservationStatus string

const (
	ReservationStatusBooked   ReservationStatus = "booked"
	ReservationStatusSeated   ReservationStatus = "seated"
	ReservationStatusCanceled ReservationStatus = "canceled"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusBooked,
	ReservationStatusSeated,
	ReservationStatusCanceled,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
