package nurture

import (
	"math/rand"
	"time"

	"nurtureflow/models"
)

// Deliverer hands a touchpoint to the outside world and reports whether it
// was delivered. The production email path is backed by SMTP; everything
// else runs against the simulator.
type Deliverer interface {
	Deliver(lead *models.Lead, rec TouchpointRecord) (bool, error)
}

// Per-channel delivery probabilities for the simulator. A stand-in for real
// provider integrations.
var deliveryRates = map[Channel]float64{
	ChannelEmail:  0.95,
	ChannelSocial: 0.90,
	ChannelVoice:  0.80,
}

// Simulator fakes delivery with a random draw against the per-channel rate
type Simulator struct {
	Rand *rand.Rand
}

func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{Rand: rng}
}

func (s *Simulator) Deliver(_ *models.Lead, rec TouchpointRecord) (bool, error) {
	rate, ok := deliveryRates[rec.Channel]
	if !ok {
		rate = 0.80
	}
	return s.Rand.Float64() < rate, nil
}

// ChannelRouter dispatches delivery per channel, falling back to Default for
// channels with no dedicated deliverer.
type ChannelRouter struct {
	PerChannel map[Channel]Deliverer
	Default    Deliverer
}

func (r *ChannelRouter) Deliver(lead *models.Lead, rec TouchpointRecord) (bool, error) {
	if d, ok := r.PerChannel[rec.Channel]; ok {
		return d.Deliver(lead, rec)
	}
	return r.Default.Deliver(lead, rec)
}
