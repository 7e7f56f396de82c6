package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mlukyanov/skyfare/internal/domain"
)

// MemoryStore implements FlightRepository, BookingRepository and
// FareHistoryRepository in memory. Seat counters live behind a
// per-flight mutex, so reservations on one flight never block another
// flight. Used in tests and for single-node runs without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	flights map[int64]*flightEntry

	bookingMu sync.Mutex
	bookings  map[string]*domain.Booking
	byPNR     map[string]string

	fareMu sync.Mutex
	fares  map[int64][]domain.FareHistoryEntry

	now func() time.Time
}

type flightEntry struct {
	mu     sync.Mutex
	flight domain.Flight
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flights:  make(map[int64]*flightEntry),
		bookings: make(map[string]*domain.Booking),
		byPNR:    make(map[string]string),
		fares:    make(map[int64][]domain.FareHistoryEntry),
		now:      time.Now,
	}
}

// SetClock overrides the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

// AddFlight seeds the catalog. Capacity is fixed after this point.
func (s *MemoryStore) AddFlight(f domain.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[f.ID] = &flightEntry{flight: f}
}

func (s *MemoryStore) entry(flightID int64) (*flightEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.flights[flightID]
	return e, ok
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.Flight, error) {
	s.mu.RLock()
	entries := make([]*flightEntry, 0, len(s.flights))
	for _, e := range s.flights {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	flights := make([]domain.Flight, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		flights = append(flights, e.flight)
		e.mu.Unlock()
	}
	sort.Slice(flights, func(i, j int) bool { return flights[i].DepartureTime.Before(flights[j].DepartureTime) })
	return flights, nil
}

func (s *MemoryStore) Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	y, m, d := date.Date()
	out := make([]domain.Flight, 0)
	for _, f := range all {
		fy, fm, fd := f.DepartureTime.Date()
		if strings.EqualFold(f.Origin, origin) && strings.EqualFold(f.Destination, destination) &&
			fy == y && fm == m && fd == d {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	e.mu.Lock()
	f := e.flight
	e.mu.Unlock()
	return &f, nil
}

func (s *MemoryStore) ReserveSeat(ctx context.Context, flightID int64) error {
	e, ok := s.entry(flightID)
	if !ok {
		return domain.ErrFlightNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flight.AvailableSeats <= 0 {
		return domain.ErrNoSeatsAvailable
	}
	e.flight.AvailableSeats--
	e.flight.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ReleaseSeat(ctx context.Context, flightID int64) error {
	e, ok := s.entry(flightID)
	if !ok {
		return domain.ErrFlightNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flight.AvailableSeats < e.flight.TotalSeats {
		e.flight.AvailableSeats++
		e.flight.UpdatedAt = s.now()
	}
	return nil
}

func (s *MemoryStore) ReconcileSeats(ctx context.Context) error {
	held := make(map[int64]int)
	s.bookingMu.Lock()
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusPending || b.Status == domain.BookingStatusConfirmed {
			held[b.FlightID]++
		}
	}
	s.bookingMu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, e := range s.flights {
		e.mu.Lock()
		e.flight.AvailableSeats = e.flight.TotalSeats - held[id]
		e.mu.Unlock()
	}
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, booking *domain.Booking) error {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	booking.Status = domain.BookingStatusPending
	booking.PaymentStatus = domain.PaymentStatusPending
	booking.CreatedAt = s.now()
	stored := *booking
	s.bookings[booking.ID] = &stored
	return nil
}

func (s *MemoryStore) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	id, ok := s.byPNR[pnr]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	b := *s.bookings[id]
	return &b, nil
}

func (s *MemoryStore) GetBookingByID(ctx context.Context, id string) (*domain.Booking, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (s *MemoryStore) HistoryByPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.PassengerID == passengerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) PNRExists(ctx context.Context, pnr string) (bool, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	_, ok := s.byPNR[pnr]
	return ok, nil
}

func (s *MemoryStore) ApplyTransition(ctx context.Context, id string, tr Transition) (*domain.Booking, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	allowed := false
	for _, from := range tr.From {
		if b.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, domain.ErrInvalidState
	}
	b.Status = tr.To
	if tr.PaymentStatus != "" {
		b.PaymentStatus = tr.PaymentStatus
	}
	if tr.PNR != "" {
		b.PNR = tr.PNR
		s.byPNR[tr.PNR] = b.ID
	}
	b.DecidedAt = s.now()
	out := *b
	return &out, nil
}

func (s *MemoryStore) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	var expired []domain.Booking
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusPending && !b.CreatedAt.After(deadline) {
			b.Status = domain.BookingStatusCancelled
			b.DecidedAt = s.now()
			expired = append(expired, *b)
		}
	}
	return expired, nil
}

func (s *MemoryStore) Append(ctx context.Context, entry *domain.FareHistoryEntry) error {
	s.fareMu.Lock()
	defer s.fareMu.Unlock()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	s.fares[entry.FlightID] = append(s.fares[entry.FlightID], *entry)
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, flightID int64, limit int) ([]domain.FareHistoryEntry, error) {
	s.fareMu.Lock()
	defer s.fareMu.Unlock()
	all := s.fares[flightID]
	out := make([]domain.FareHistoryEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Bookings exposes the store as a BookingRepository. A separate view is
// needed because GetByID has a different signature on the flight side.
func (s *MemoryStore) Bookings() BookingRepository {
	return memoryBookings{s}
}

type memoryBookings struct {
	s *MemoryStore
}

func (m memoryBookings) Create(ctx context.Context, booking *domain.Booking) error {
	return m.s.Create(ctx, booking)
}

func (m memoryBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return m.s.GetBookingByID(ctx, id)
}

func (m memoryBookings) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	return m.s.GetByPNR(ctx, pnr)
}

func (m memoryBookings) HistoryByPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	return m.s.HistoryByPassenger(ctx, passengerID)
}

func (m memoryBookings) PNRExists(ctx context.Context, pnr string) (bool, error) {
	return m.s.PNRExists(ctx, pnr)
}

func (m memoryBookings) ApplyTransition(ctx context.Context, id string, tr Transition) (*domain.Booking, error) {
	return m.s.ApplyTransition(ctx, id, tr)
}

func (m memoryBookings) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	return m.s.ExpirePendingBefore(ctx, deadline)
}

var (
	_ FlightRepository      = (*MemoryStore)(nil)
	_ FareHistoryRepository = (*MemoryStore)(nil)
	_ BookingRepository     = (memoryBookings{})
)
