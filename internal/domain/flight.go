package domain

import "time"

type Flight struct {
	ID             int64
	FlightNumber   string
	Origin         string
	Destination    string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	TotalSeats     int
	AvailableSeats int
	BaseFareCents  int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the flight is still open for booking and for
// the market simulator.
func (f Flight) Active(now time.Time) bool {
	return f.DepartureTime.After(now)
}
