package cardpool

import (
	"math"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRollFrequencies(t *testing.T) {
	p := newTestPool(t, 5)
	weights := p.Rates()

	const draws = 100_000
	counts := make(map[Tier]int)
	for i := 0; i < draws; i++ {
		cards, err := p.Roll(1)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		counts[cards[0].Tier()]++
	}
	for _, tier := range Tiers() {
		got := float64(counts[tier]) / draws
		require.InDelta(t, weights[tier], got, 0.01, "tier %s", tier)
	}
}

func TestRollNeverClaims(t *testing.T) {
	p := newTestPool(t, 3)
	cards, err := p.Roll(DefaultRollAmount)
	require.NoError(t, err)
	require.Len(t, cards, DefaultRollAmount)
	for _, c := range cards {
		require.False(t, c.Owned())
		require.True(t, p.IsAvailable(c))
	}
	require.NoError(t, p.CheckInvariants())
}

func TestRollInclude(t *testing.T) {
	p := newTestPool(t, 2)
	for i := 0; i < 1000; i++ {
		cards, err := p.Roll(3, Include(TierLegendary))
		require.NoError(t, err)
		require.Equal(t, TierLegendary, cards[2].Tier())
	}
}

func TestRollAvoid(t *testing.T) {
	p := newTestPool(t, 2)
	for i := 0; i < 10_000; i++ {
		cards, err := p.Roll(3, Avoid(TierMystic, TierCelestial))
		require.NoError(t, err)
		for _, c := range cards {
			require.NotEqual(t, TierMystic, c.Tier())
			require.NotEqual(t, TierCelestial, c.Tier())
		}
	}
}

func TestRollDistinctCards(t *testing.T) {
	p, err := New(WithRand(rand.New(rand.NewPCG(7, 7))))
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := p.AddCard(strconv.Itoa(i), TierCommon)
		require.NoError(t, err)
	}

	for i := 0; i < 200; i++ {
		cards, err := p.Roll(3)
		require.NoError(t, err)
		seen := make(map[string]bool)
		for _, c := range cards {
			require.False(t, seen[c.ID()], "card %s rolled twice", c.ID())
			seen[c.ID()] = true
		}
	}

	_, err = p.Roll(4)
	require.ErrorIs(t, err, ErrNoCardsAvailable)
}

func TestRollExhaustedTierFallsBack(t *testing.T) {
	// Only rare cards exist, so every common draw has to be redrawn.
	p, err := New(WithRand(rand.New(rand.NewPCG(3, 4))))
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err := p.AddCard(strconv.Itoa(i), TierRare)
		require.NoError(t, err)
	}
	for i := 0; i < 100; i++ {
		cards, err := p.Roll(3)
		require.NoError(t, err)
		for _, c := range cards {
			require.Equal(t, TierRare, c.Tier())
		}
	}
}

func TestRollErrors(t *testing.T) {
	p := newTestPool(t, 1)

	_, err := p.Roll(0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	c := p.GetCard("4")
	require.Equal(t, TierLegendary, c.Tier())
	p.ChangeOwner(c, 1)
	_, err = p.Roll(3, Include(TierLegendary))
	require.ErrorIs(t, err, ErrTierExhausted)

	empty, err := New()
	require.NoError(t, err)
	_, err = empty.Roll(1)
	require.ErrorIs(t, err, ErrNoCardsAvailable)
}

func TestRollWithLuck(t *testing.T) {
	p := newTestPool(t, 5)
	luck := UniformLuck(10)
	boosted := p.Rates().WithLuck(luck)

	const draws = 50_000
	common := 0
	for i := 0; i < draws; i++ {
		cards, err := p.Roll(1, WithLuck(luck))
		require.NoError(t, err)
		if cards[0].Tier() == TierCommon {
			common++
		}
	}
	require.InDelta(t, boosted[TierCommon], float64(common)/draws, 0.01)
	require.Less(t, boosted[TierCommon], p.Rates()[TierCommon])
}

func TestRatesNormalize(t *testing.T) {
	tests := []struct {
		name    string
		rates   Rates
		wantErr bool
	}{
		{name: "default", rates: DefaultRates()},
		{name: "flat", rates: Rates{TierCommon: 1, TierRare: 1}},
		{name: "negative", rates: Rates{TierCommon: 1, TierRare: -1}, wantErr: true},
		{name: "not monotonic", rates: Rates{TierCommon: 0.1, TierRare: 0.5}, wantErr: true},
		{name: "zero", rates: Rates{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rates.Normalize()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRates)
				return
			}
			require.NoError(t, err)
			var sum float64
			for _, w := range got {
				sum += w
			}
			require.True(t, math.Abs(sum-1) < 1e-9)
		})
	}
}
