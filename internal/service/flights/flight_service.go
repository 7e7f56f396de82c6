package flights

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/mlukyanov/skyfare/internal/pricing"
	"github.com/mlukyanov/skyfare/internal/repository"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, origin, destination string, date time.Time, sortBy string) ([]PricedFlight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	CurrentPrice(ctx context.Context, flightID int64) (*PricedFlight, error)
	FareHistory(ctx context.Context, flightID int64, limit int) ([]domain.FareHistoryEntry, error)
}

// Sort orders accepted by Search.
const (
	SortByPrice    = "price"
	SortByDuration = "duration"
)

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

// PricedFlight pairs a flight snapshot with the dynamic price computed
// from that same snapshot.
type PricedFlight struct {
	Flight       domain.Flight
	PriceCents   int64
	DemandFactor float64
}

type FlightService struct {
	repo   repository.FlightRepository
	fares  repository.FareHistoryRepository
	cache  FlightCache
	calc   *pricing.Calculator
	demand pricing.DemandSource
	now    func() time.Time
}

func NewFlightService(repo repository.FlightRepository, fares repository.FareHistoryRepository, cache FlightCache, calc *pricing.Calculator, demand pricing.DemandSource) *FlightService {
	return &FlightService{repo: repo, fares: fares, cache: cache, calc: calc, demand: demand, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (s *FlightService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			log.Printf("cache flights: %v", err)
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// Search finds flights on a route for a departure date and prices each
// match. Quotes from a search are not recorded in the fare history;
// only explicit price requests and bookings are.
func (s *FlightService) Search(ctx context.Context, origin, destination string, date time.Time, sortBy string) ([]PricedFlight, error) {
	if sortBy != "" && sortBy != SortByPrice && sortBy != SortByDuration {
		return nil, fmt.Errorf("sort must be %q or %q", SortByPrice, SortByDuration)
	}

	flights, err := s.repo.Search(ctx, origin, destination, date)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]PricedFlight, 0, len(flights))
	for _, f := range flights {
		quote := s.calc.Price(&f, now, s.demand.Draw(f.ID))
		out = append(out, PricedFlight{Flight: f, PriceCents: quote.PriceCents, DemandFactor: quote.DemandFactor})
	}

	switch sortBy {
	case SortByPrice:
		sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	case SortByDuration:
		sort.Slice(out, func(i, j int) bool {
			di := out[i].Flight.ArrivalTime.Sub(out[i].Flight.DepartureTime)
			dj := out[j].Flight.ArrivalTime.Sub(out[j].Flight.DepartureTime)
			return di < dj
		})
	}
	return out, nil
}

// CurrentPrice quotes the dynamic fare for one flight from a fresh
// snapshot and records the quote in the fare history.
func (s *FlightService) CurrentPrice(ctx context.Context, flightID int64) (*PricedFlight, error) {
	flight, err := s.repo.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}

	quote := s.calc.Price(flight, s.now(), s.demand.Draw(flightID))
	entry := &domain.FareHistoryEntry{
		FlightID:       flightID,
		PriceCents:     quote.PriceCents,
		SeatsAvailable: quote.SeatsAvailable,
		DemandFactor:   quote.DemandFactor,
		Reason:         domain.FareReasonQuote,
	}
	if err := s.fares.Append(ctx, entry); err != nil {
		log.Printf("append fare history for flight %d: %v", flightID, err)
	}

	return &PricedFlight{Flight: *flight, PriceCents: quote.PriceCents, DemandFactor: quote.DemandFactor}, nil
}

func (s *FlightService) FareHistory(ctx context.Context, flightID int64, limit int) ([]domain.FareHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := s.repo.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	return s.fares.Recent(ctx, flightID, limit)
}

var _ FlightUseCase = (*FlightService)(nil)
