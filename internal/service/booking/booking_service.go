package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/mlukyanov/skyfare/internal/kafka"
	"github.com/mlukyanov/skyfare/internal/pnr"
	"github.com/mlukyanov/skyfare/internal/pricing"
	"github.com/mlukyanov/skyfare/internal/repository"
)

type BookingUseCase interface {
	StartBooking(ctx context.Context, input StartBookingInput) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID string, outcome PaymentOutcome) (*domain.Booking, error)
	CancelBooking(ctx context.Context, ref string) (*domain.Booking, error)
	GetBooking(ctx context.Context, ref string) (*domain.Booking, error)
	BookingHistory(ctx context.Context, passengerID int64) ([]domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
}

type Cache interface {
	AcquireSeatLock(ctx context.Context, flightID int64, seatNo string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flightID int64, seatNo string) error
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type StartBookingInput struct {
	FlightID    int64  `json:"flight_id"`
	PassengerID int64  `json:"passenger_id"`
	SeatNo      string `json:"seat_no"`
}

// PaymentOutcome is the result of the external payment step. Payment
// failure is a business outcome, not an API error.
type PaymentOutcome struct {
	Approved bool `json:"approved"`
}

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	fares              repository.FareHistoryRepository
	cache              Cache
	producer           Producer
	calc               *pricing.Calculator
	demand             pricing.DemandSource
	bookingTopic       string
	notificationsTopic string
	holdTTL            time.Duration
	seatLockTTL        time.Duration
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithSeatLockTTL decouples the advisory seat lock lifetime from the
// booking hold TTL.
func WithSeatLockTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.seatLockTTL = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	fares repository.FareHistoryRepository,
	cache Cache,
	producer Producer,
	calc *pricing.Calculator,
	demand pricing.DemandSource,
	bookingTopic string,
	holdTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		flights:      flights,
		fares:        fares,
		cache:        cache,
		producer:     producer,
		calc:         calc,
		demand:       demand,
		bookingTopic: bookingTopic,
		holdTTL:      holdTTL,
		seatLockTTL:  holdTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// StartBooking reserves a seat, locks the current price against the
// post-reservation snapshot and creates a PENDING hold. The seat
// decision happens strictly before pricing, so a quote is never issued
// for a seat that turned out unavailable.
func (s *BookingService) StartBooking(ctx context.Context, input StartBookingInput) (*domain.Booking, error) {
	if input.PassengerID <= 0 {
		return nil, errors.New("passenger id is required")
	}

	seatNo := input.SeatNo
	if seatNo != "" && s.cache != nil {
		ok, err := s.cache.AcquireSeatLock(ctx, input.FlightID, seatNo, s.seatLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Seat preference is advisory. Somebody else holds this
			// seat, so fall back to auto-assignment.
			seatNo = ""
		}
	}

	if err := s.flights.ReserveSeat(ctx, input.FlightID); err != nil {
		s.releaseSeatLock(ctx, input.FlightID, seatNo)
		return nil, err
	}

	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		s.compensateReserve(ctx, input.FlightID, seatNo)
		return nil, err
	}

	quote := s.calc.Price(flight, s.now(), s.demand.Draw(input.FlightID))
	if seatNo == "" {
		seatNo = assignSeat(flight.TotalSeats, flight.AvailableSeats)
	}

	booking := &domain.Booking{
		ID:               uuid.NewString(),
		FlightID:         input.FlightID,
		PassengerID:      input.PassengerID,
		SeatNo:           seatNo,
		LockedPriceCents: quote.PriceCents,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		s.compensateReserve(ctx, input.FlightID, seatNo)
		return nil, err
	}

	s.recordFare(ctx, input.FlightID, quote, domain.FareReasonBooking)
	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

// ConfirmPayment settles a PENDING hold. Approval issues a fresh PNR
// and confirms the booking; rejection fails it and returns the seat to
// the pool. A booking that is already decided yields ErrInvalidState
// with no side effects.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID string, outcome PaymentOutcome) (*domain.Booking, error) {
	if !outcome.Approved {
		updated, err := s.bookings.ApplyTransition(ctx, bookingID, repository.Transition{
			From:          []domain.BookingStatus{domain.BookingStatusPending},
			To:            domain.BookingStatusFailed,
			PaymentStatus: domain.PaymentStatusFailed,
		})
		if err != nil {
			return nil, err
		}
		if err := s.flights.ReleaseSeat(ctx, updated.FlightID); err != nil {
			log.Printf("release seat for failed booking %s: %v", updated.ID, err)
		}
		s.releaseSeatLock(ctx, updated.FlightID, updated.SeatNo)
		s.publish(ctx, "booking_failed", updated)
		return updated, nil
	}

	code, err := pnr.Generate(ctx, s.bookings.PNRExists)
	if err != nil {
		return nil, fmt.Errorf("generate pnr: %w", err)
	}

	updated, err := s.bookings.ApplyTransition(ctx, bookingID, repository.Transition{
		From:          []domain.BookingStatus{domain.BookingStatusPending},
		To:            domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPaid,
		PNR:           code,
	})
	if err != nil {
		return nil, err
	}
	s.releaseSeatLock(ctx, updated.FlightID, updated.SeatNo)
	s.publish(ctx, "booking_confirmed", updated)
	return updated, nil
}

// CancelBooking cancels by PNR, falling back to booking id for holds
// that were never confirmed. Cancelling an already-cancelled booking is
// a no-op; the seat is released exactly once because only one guarded
// transition can succeed.
func (s *BookingService) CancelBooking(ctx context.Context, ref string) (*domain.Booking, error) {
	current, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}
	if current.Status == domain.BookingStatusFailed {
		return nil, domain.ErrInvalidState
	}

	updated, err := s.bookings.ApplyTransition(ctx, current.ID, repository.Transition{
		From: []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusConfirmed},
		To:   domain.BookingStatusCancelled,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			// Lost a race against the expiry sweep or another cancel.
			// The winner already released the seat.
			latest, lookupErr := s.bookings.GetByID(ctx, current.ID)
			if lookupErr == nil && latest.Status == domain.BookingStatusCancelled {
				return latest, nil
			}
		}
		return nil, err
	}

	if err := s.flights.ReleaseSeat(ctx, updated.FlightID); err != nil {
		log.Printf("release seat for cancelled booking %s: %v", updated.ID, err)
	}
	s.releaseSeatLock(ctx, updated.FlightID, updated.SeatNo)
	s.publish(ctx, "booking_cancelled", updated)
	return updated, nil
}

// GetBooking resolves a PNR or, for holds that have none yet, a booking id.
func (s *BookingService) GetBooking(ctx context.Context, ref string) (*domain.Booking, error) {
	return s.lookup(ctx, ref)
}

func (s *BookingService) BookingHistory(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	return s.bookings.HistoryByPassenger(ctx, passengerID)
}

// ExpirePendingBookings cancels every hold older than the hold TTL and
// returns each seat to its pool.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	deadline := s.now().Add(-s.holdTTL)
	expired, err := s.bookings.ExpirePendingBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}
	for _, b := range expired {
		if err := s.flights.ReleaseSeat(ctx, b.FlightID); err != nil {
			log.Printf("release seat for expired booking %s: %v", b.ID, err)
		}
		s.releaseSeatLock(ctx, b.FlightID, b.SeatNo)
		s.publish(ctx, "booking_expired", &b)
	}
	return expired, nil
}

func (s *BookingService) lookup(ctx context.Context, ref string) (*domain.Booking, error) {
	current, err := s.bookings.GetByPNR(ctx, ref)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}
	return s.bookings.GetByID(ctx, ref)
}

// compensateReserve undoes a seat reservation when the booking row
// could not be created, keeping the counter consistent with bookings.
func (s *BookingService) compensateReserve(ctx context.Context, flightID int64, seatNo string) {
	if err := s.flights.ReleaseSeat(ctx, flightID); err != nil {
		log.Printf("compensating release for flight %d failed: %v", flightID, err)
	}
	s.releaseSeatLock(ctx, flightID, seatNo)
}

func (s *BookingService) releaseSeatLock(ctx context.Context, flightID int64, seatNo string) {
	if s.cache == nil || seatNo == "" {
		return
	}
	if err := s.cache.ReleaseSeatLock(ctx, flightID, seatNo); err != nil {
		log.Printf("release seat lock for flight %d seat %s: %v", flightID, seatNo, err)
	}
}

func (s *BookingService) recordFare(ctx context.Context, flightID int64, quote pricing.Quote, reason string) {
	entry := &domain.FareHistoryEntry{
		FlightID:       flightID,
		PriceCents:     quote.PriceCents,
		SeatsAvailable: quote.SeatsAvailable,
		DemandFactor:   quote.DemandFactor,
		Reason:         reason,
	}
	if err := s.fares.Append(ctx, entry); err != nil {
		log.Printf("append fare history for flight %d: %v", flightID, err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		PNR:           booking.PNR,
		FlightID:      booking.FlightID,
		PassengerID:   booking.PassengerID,
		SeatNo:        booking.SeatNo,
		Status:        string(booking.Status),
		PaymentStatus: string(booking.PaymentStatus),
		PriceCents:    booking.LockedPriceCents,
		OccurredAt:    s.now(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %s: %v", eventType, booking.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.ID, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for booking %s: %v", eventType, booking.ID, err)
		}
	}
}

// assignSeat derives a seat from occupancy at hold time: row follows
// the number of taken seats, letters cycle A-F.
func assignSeat(totalSeats, availableSeats int) string {
	taken := totalSeats - availableSeats
	if taken < 1 {
		taken = 1
	}
	letter := rune('A' + (taken-1)%6)
	return fmt.Sprintf("%d%c", taken, letter)
}

var _ BookingUseCase = (*BookingService)(nil)
