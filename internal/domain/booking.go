package domain

import "time"

// Booking status constants.
const (
	BookingStatusPending  = "pending"
	BookingStatusPaid     = "paid"
	BookingStatusCanceled = "canceled"
)

// Booking records a user's purchase of a tour. Price is captured in cents at
// checkout time so later tour price changes do not affect past bookings.
type Booking struct {
	ID                string    `json:"id"`
	TourID            string    `json:"tour_id"`
	UserID            string    `json:"user_id"`
	Price             int64     `json:"price"`
	Status            string    `json:"status"`
	ProviderSessionID string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
