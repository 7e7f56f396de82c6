package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusFailed    BookingStatus = "FAILED"
)

// Terminal reports whether no further transition out of the status is
// allowed. CONFIRMED is not terminal: it can still be cancelled.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusFailed
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type Booking struct {
	ID               string
	PNR              string
	FlightID         int64
	PassengerID      int64
	SeatNo           string
	Status           BookingStatus
	PaymentStatus    PaymentStatus
	LockedPriceCents int64
	CreatedAt        time.Time
	DecidedAt        time.Time
}
