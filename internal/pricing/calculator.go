package pricing

import (
	"math"
	"time"

	"github.com/mlukyanov/skyfare/config"
	"github.com/mlukyanov/skyfare/internal/domain"
)

// Calculator computes a dynamic fare from a flight snapshot, the time
// of the quote and a demand signal. It is pure: same inputs, same
// price. Randomness only ever enters through the demand argument.
type Calculator struct {
	cfg config.PricingConfig
}

func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Quote is the priced result of one calculation, ready to be recorded
// as fare history.
type Quote struct {
	PriceCents     int64
	SeatsAvailable int
	DemandFactor   float64
}

// Price applies base_fare * (1 + occupancy + time + demand + tier),
// with every factor clamped, the sum capped so the price never exceeds
// CeilingMultiple times base fare, and the result floored at
// FloorCents.
func (c *Calculator) Price(flight *domain.Flight, now time.Time, demand float64) Quote {
	occupancy := occupancyFactor(flight.AvailableSeats, flight.TotalSeats)
	timeF := c.timeFactor(flight.DepartureTime, now)
	demandF := demandFactor(demand)
	tier := c.tierBonus(flight.BaseFareCents)

	multiplier := 1 + occupancy + timeF + demandF + tier
	if max := c.cfg.CeilingMultiple; multiplier > max {
		multiplier = max
	}

	price := int64(math.Round(float64(flight.BaseFareCents) * multiplier))
	if price < c.cfg.FloorCents {
		price = c.cfg.FloorCents
	}
	return Quote{PriceCents: price, SeatsAvailable: flight.AvailableSeats, DemandFactor: demandF}
}

// occupancyFactor rises as the share of remaining seats falls. A mostly
// empty flight is discounted slightly.
func occupancyFactor(available, total int) float64 {
	if total < 1 {
		total = 1
	}
	ratio := float64(available) / float64(total)
	switch {
	case ratio < 0.10:
		return 0.8
	case ratio < 0.25:
		return 0.5
	case ratio < 0.50:
		return 0.2
	default:
		return -0.05
	}
}

// timeFactor rises as departure approaches. Beyond the configured
// horizon the flat baseline applies.
func (c *Calculator) timeFactor(departure, now time.Time) float64 {
	hoursLeft := departure.Sub(now).Hours()
	if hoursLeft < 0 {
		hoursLeft = 0
	}
	switch {
	case hoursLeft <= 24:
		return 0.6
	case hoursLeft <= c.cfg.HorizonHours:
		return 0.25
	default:
		return -0.05
	}
}

// demandFactor clamps the raw signal to [-0.5, 1.0] and scales it so
// demand contributes at most [-0.2, +0.4] to the multiplier.
func demandFactor(demand float64) float64 {
	if demand < -0.5 {
		demand = -0.5
	}
	if demand > 1.0 {
		demand = 1.0
	}
	return demand * 0.4
}

func (c *Calculator) tierBonus(baseFareCents int64) float64 {
	switch {
	case baseFareCents < c.cfg.LowTierCents:
		return 0
	case baseFareCents < c.cfg.HighTierCents:
		return c.cfg.MediumTierBonus
	default:
		return c.cfg.HighTierBonus
	}
}
