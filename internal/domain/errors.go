package domain

import "errors"

// Sentinel errors returned by repositories and services. Callers match
// them with errors.Is to tell business rejections from system faults.
var (
	ErrFlightNotFound     = errors.New("flight not found")
	ErrNoSeatsAvailable   = errors.New("no seats available")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrInvalidState       = errors.New("invalid booking state")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
