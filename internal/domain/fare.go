package domain

import "time"

// FareHistoryEntry is an append-only priced snapshot of a flight.
// Reason records which path produced it.
type FareHistoryEntry struct {
	FlightID       int64
	PriceCents     int64
	SeatsAvailable int
	DemandFactor   float64
	Reason         string
	RecordedAt     time.Time
}

const (
	FareReasonQuote     = "quote"
	FareReasonBooking   = "booking"
	FareReasonSimulator = "simulator"
)
