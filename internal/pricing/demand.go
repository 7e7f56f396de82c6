package pricing

import (
	"math/rand"
	"sync"

	"github.com/mlukyanov/skyfare/config"
)

// DemandSource produces the simulated market demand signal fed into the
// calculator.
type DemandSource interface {
	Draw(flightID int64) float64
}

// RandDemand draws uniformly from [min, max) using an injected rand, so
// a seeded source makes simulation runs reproducible. Safe for
// concurrent use.
type RandDemand struct {
	mu  sync.Mutex
	rng *rand.Rand
	min float64
	max float64
}

func NewRandDemand(rng *rand.Rand, cfg config.SimulatorConfig) *RandDemand {
	return &RandDemand{rng: rng, min: cfg.MinDemand, max: cfg.MaxDemand}
}

func (d *RandDemand) Draw(flightID int64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.min + d.rng.Float64()*(d.max-d.min)
}

var _ DemandSource = (*RandDemand)(nil)
