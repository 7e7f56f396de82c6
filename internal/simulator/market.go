package simulator

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/mlukyanov/skyfare/config"
	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/mlukyanov/skyfare/internal/kafka"
	"github.com/mlukyanov/skyfare/internal/pricing"
	"github.com/mlukyanov/skyfare/internal/repository"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Market perturbs seat availability and repricing on a timer, competing
// with booking requests for the same seat ledger. Perturbation goes
// through ReserveSeat/ReleaseSeat only; there is no direct write to the
// counters.
type Market struct {
	flights   repository.FlightRepository
	fares     repository.FareHistoryRepository
	calc      *pricing.Calculator
	demand    pricing.DemandSource
	producer  Producer
	fareTopic string
	cfg       config.SimulatorConfig

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewMarket(
	flights repository.FlightRepository,
	fares repository.FareHistoryRepository,
	calc *pricing.Calculator,
	demand pricing.DemandSource,
	producer Producer,
	fareTopic string,
	cfg config.SimulatorConfig,
	rng *rand.Rand,
) *Market {
	return &Market{
		flights:   flights,
		fares:     fares,
		calc:      calc,
		demand:    demand,
		producer:  producer,
		fareTopic: fareTopic,
		cfg:       cfg,
		rng:       rng,
		now:       time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (m *Market) SetClock(now func() time.Time) {
	m.now = now
}

// Tick runs one simulation pass over every active flight: draw a demand
// signal, nudge seat availability by a bounded delta, reprice, record
// fare history.
func (m *Market) Tick(ctx context.Context) error {
	flights, err := m.flights.List(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	for _, f := range flights {
		if !f.Active(now) {
			continue
		}
		if err := m.simulateFlight(ctx, f.ID, now); err != nil {
			log.Printf("simulate flight %d: %v", f.ID, err)
		}
	}
	return nil
}

func (m *Market) simulateFlight(ctx context.Context, flightID int64, now time.Time) error {
	delta := m.seatDelta()
	m.perturbSeats(ctx, flightID, delta)

	flight, err := m.flights.GetByID(ctx, flightID)
	if err != nil {
		return err
	}

	quote := m.calc.Price(flight, now, m.demand.Draw(flightID))
	entry := &domain.FareHistoryEntry{
		FlightID:       flightID,
		PriceCents:     quote.PriceCents,
		SeatsAvailable: quote.SeatsAvailable,
		DemandFactor:   quote.DemandFactor,
		Reason:         domain.FareReasonSimulator,
	}
	if err := m.fares.Append(ctx, entry); err != nil {
		return err
	}

	m.publishFare(ctx, entry)
	return nil
}

// perturbSeats applies the delta one seat at a time through the ledger
// primitives, so the simulator serializes against bookings on the same
// flight and can never break the counter invariants. A negative delta
// takes seats, a positive one returns them; it stops early once the
// pool is empty or full.
func (m *Market) perturbSeats(ctx context.Context, flightID int64, delta int) {
	for i := 0; i < -delta; i++ {
		if err := m.flights.ReserveSeat(ctx, flightID); err != nil {
			if !errors.Is(err, domain.ErrNoSeatsAvailable) {
				log.Printf("simulator reserve on flight %d: %v", flightID, err)
			}
			return
		}
	}
	for i := 0; i < delta; i++ {
		if err := m.flights.ReleaseSeat(ctx, flightID); err != nil {
			log.Printf("simulator release on flight %d: %v", flightID, err)
			return
		}
	}
}

func (m *Market) seatDelta() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	span := m.cfg.MaxSeatDelta - m.cfg.MinSeatDelta + 1
	return m.cfg.MinSeatDelta + m.rng.Intn(span)
}

func (m *Market) publishFare(ctx context.Context, entry *domain.FareHistoryEntry) {
	if m.producer == nil || m.fareTopic == "" {
		return
	}
	event := kafka.FareEvent{
		FlightID:       entry.FlightID,
		PriceCents:     entry.PriceCents,
		SeatsAvailable: entry.SeatsAvailable,
		DemandFactor:   entry.DemandFactor,
		Reason:         entry.Reason,
		RecordedAt:     entry.RecordedAt,
	}
	if err := m.producer.Publish(ctx, m.fareTopic, strconv.FormatInt(entry.FlightID, 10), event); err != nil {
		log.Printf("WARNING: failed to publish fare event for flight %d: %v", entry.FlightID, err)
	}
}
