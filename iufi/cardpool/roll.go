package cardpool

import (
	"fmt"
	"math/rand/v2"
)

// DefaultRollAmount is the number of cards shown by a normal roll.
const DefaultRollAmount = 3

type rollOptions struct {
	included    Tier
	hasIncluded bool
	avoid       map[Tier]bool
	luck        Rates
}

type RollOption func(*rollOptions)

// Include forces the last slot of the roll to the given tier.
func Include(t Tier) RollOption {
	return func(o *rollOptions) {
		o.included = t
		o.hasIncluded = true
	}
}

// Avoid keeps the given tiers out of every weighted slot.
func Avoid(tiers ...Tier) RollOption {
	return func(o *rollOptions) {
		if o.avoid == nil {
			o.avoid = make(map[Tier]bool, len(tiers))
		}
		for _, t := range tiers {
			o.avoid[t] = true
		}
	}
}

// WithLuck biases non-common tiers by the given multipliers.
func WithLuck(luck Rates) RollOption {
	return func(o *rollOptions) {
		o.luck = luck
	}
}

// Roll draws amount distinct unowned cards. Each slot picks a tier by weight and
// then a card uniformly within that tier. Rolling never claims: the returned cards
// are still unowned.
//
// A slot whose tier has no cards left is redrawn among the allowed tiers that still
// have cards. ErrTierExhausted is returned when an included tier is empty and
// ErrNoCardsAvailable when no allowed tier has cards left.
func (p *Pool) Roll(amount int, opts ...RollOption) ([]*Card, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var o rollOptions
	for _, opt := range opts {
		opt(&o)
	}
	weights := p.rates.WithLuck(o.luck)

	p.mu.RLock()
	defer p.mu.RUnlock()
	p.rngMu.Lock()
	defer p.rngMu.Unlock()

	tiers := make([]Tier, amount)
	for i := range tiers {
		t, ok := p.drawTier(weights, o.avoid, nil)
		if !ok {
			return nil, ErrNoCardsAvailable
		}
		tiers[i] = t
	}

	picked := make(map[*Card]struct{}, amount)
	taken := make(map[Tier]int)
	cards := make([]*Card, amount)
	weighted := amount

	// The forced slot is filled first so earlier slots cannot use up its tier.
	if o.hasIncluded {
		weighted--
		l := p.available[o.included]
		if l == nil || l.len() == 0 {
			return nil, fmt.Errorf("%w: %s", ErrTierExhausted, o.included)
		}
		c := l.sample(p.rng, picked, 0)
		picked[c] = struct{}{}
		taken[o.included]++
		cards[amount-1] = c
	}

	for i := 0; i < weighted; i++ {
		t := tiers[i]
		if p.remaining(t, taken) == 0 {
			var ok bool
			t, ok = p.drawTier(weights, o.avoid, taken)
			if !ok {
				return nil, ErrNoCardsAvailable
			}
		}
		c := p.available[t].sample(p.rng, picked, taken[t])
		picked[c] = struct{}{}
		taken[t]++
		cards[i] = c
	}
	return cards, nil
}

// drawTier picks a tier by weight. A draw landing on an avoided tier is redrawn
// from the allowed tiers only. When taken is non-nil, tiers with no cards left
// are skipped as well.
func (p *Pool) drawTier(weights Rates, avoid map[Tier]bool, taken map[Tier]int) (Tier, bool) {
	usable := func(t Tier) bool {
		return taken == nil || p.remaining(t, taken) > 0
	}
	t, ok := weightedChoice(p.rng, weights, usable)
	if !ok || !avoid[t] {
		return t, ok
	}
	return weightedChoice(p.rng, weights, func(t Tier) bool {
		return !avoid[t] && usable(t)
	})
}

func (p *Pool) remaining(t Tier, taken map[Tier]int) int {
	l := p.available[t]
	if l == nil {
		return 0
	}
	return l.len() - taken[t]
}

func weightedChoice(rng *rand.Rand, weights Rates, allowed func(Tier) bool) (Tier, bool) {
	var total float64
	for _, t := range Tiers() {
		if allowed(t) {
			total += weights[t]
		}
	}
	if total <= 0 {
		return 0, false
	}
	x := rng.Float64() * total
	var last Tier
	found := false
	for _, t := range Tiers() {
		if !allowed(t) || weights[t] <= 0 {
			continue
		}
		last, found = t, true
		x -= weights[t]
		if x < 0 {
			return t, true
		}
	}
	return last, found
}
