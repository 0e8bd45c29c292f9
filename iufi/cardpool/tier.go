package cardpool

import (
	"fmt"
	"strings"
)

// Tier is a rarity class. Higher values are rarer.
type Tier uint8

const (
	TierCommon Tier = iota
	TierRare
	TierEpic
	TierLegendary
	TierMystic
	TierCelestial
)

var tierInfo = [...]struct {
	name  string
	emoji string
	price int64
}{
	TierCommon:    {"common", "🥬", 1},
	TierRare:      {"rare", "🌸", 10},
	TierEpic:      {"epic", "💎", 40},
	TierLegendary: {"legendary", "👑", 100},
	TierMystic:    {"mystic", "🦄", 250},
	TierCelestial: {"celestial", "💫", 500},
}

// Tiers returns every tier from most common to rarest.
func Tiers() []Tier {
	return []Tier{TierCommon, TierRare, TierEpic, TierLegendary, TierMystic, TierCelestial}
}

func (t Tier) Valid() bool {
	return int(t) < len(tierInfo)
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
	return tierInfo[t].name
}

func (t Tier) Emoji() string {
	if !t.Valid() {
		return "❔"
	}
	return tierInfo[t].emoji
}

// Price is the stock candy value of the tier. Pool.Price applies configured
// overrides and is what conversions pay.
func (t Tier) Price() int64 {
	if !t.Valid() {
		return 0
	}
	return tierInfo[t].price
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier resolves a tier by name, case-insensitively.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tiers() {
		if tierInfo[t].name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}
