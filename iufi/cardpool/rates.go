package cardpool

import "fmt"

// Rates maps a tier to its drop weight. Missing tiers weigh zero.
type Rates map[Tier]float64

// DefaultRates are the stock drop weights. They are normalized when a pool is built.
func DefaultRates() Rates {
	return Rates{
		TierCommon:    0.9,
		TierRare:      0.08,
		TierEpic:      0.007,
		TierLegendary: 0.003,
		TierMystic:    0.001,
		TierCelestial: 0.0005,
	}
}

// Normalize returns a copy scaled to sum to 1. Weights must be non-negative and
// non-increasing from common to celestial.
func (r Rates) Normalize() (Rates, error) {
	var total float64
	prev := -1.0
	for _, t := range Tiers() {
		w := r[t]
		if w < 0 {
			return nil, fmt.Errorf("%w: %s has negative weight %v", ErrInvalidRates, t, w)
		}
		if prev >= 0 && w > prev {
			return nil, fmt.Errorf("%w: %s (%v) is more common than the tier before it (%v)", ErrInvalidRates, t, w, prev)
		}
		prev = w
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", ErrInvalidRates)
	}

	out := make(Rates, len(r))
	for _, t := range Tiers() {
		out[t] = r[t] / total
	}
	return out, nil
}

// WithLuck multiplies every non-common weight by its luck multiplier (missing
// multipliers count as 1) and renormalizes. The result is only used for sampling,
// so the monotonic ordering is not enforced here.
func (r Rates) WithLuck(luck Rates) Rates {
	if len(luck) == 0 {
		return r
	}
	out := make(Rates, len(r))
	var total float64
	for _, t := range Tiers() {
		w := r[t]
		if t != TierCommon {
			if m, ok := luck[t]; ok && m > 0 {
				w *= m
			}
		}
		out[t] = w
		total += w
	}
	if total <= 0 {
		return r
	}
	for t, w := range out {
		out[t] = w / total
	}
	return out
}

// UniformLuck returns a luck table applying the same multiplier to every non-common tier.
func UniformLuck(multiplier float64) Rates {
	luck := make(Rates)
	for _, t := range Tiers()[1:] {
		luck[t] = multiplier
	}
	return luck
}
