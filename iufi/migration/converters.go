package migration

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/database/models"
)

// convertCard maps a legacy card document to a row. Tags that would not pass
// today's validation are dropped, as are tags and frames on unowned cards.
func convertCard(lc LegacyCard) (*models.Card, error) {
	id := cardpool.NormalizeID(lc.ID)
	if id == "" {
		return nil, fmt.Errorf("card %q: empty id", lc.ID)
	}
	tier, err := cardpool.ParseTier(lc.Tier)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", id, err)
	}
	owner, err := parseDiscordID(lc.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("card %s owner: %w", id, err)
	}

	c := &models.Card{
		ID:            id,
		Tier:          tier.String(),
		OwnerID:       owner,
		Stars:         min(max(lc.Stars, cardpool.MinStars), cardpool.MaxStars),
		LastTradeTime: unixTime(lc.LastTradeTime),
	}
	if owner != 0 {
		c.Frame = lc.Frame
		if tag, err := cardpool.ValidateTag(lc.Tag); err == nil && lc.Tag != "" {
			c.Tag = tag
		}
	}
	return c, nil
}

func convertUser(lu LegacyUser) (*models.User, error) {
	id, err := parseDiscordID(lu.ID)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	if id == 0 {
		return nil, fmt.Errorf("user: missing id")
	}
	cards := make([]string, 0, len(lu.Cards))
	seen := make(map[string]struct{}, len(lu.Cards))
	for _, raw := range lu.Cards {
		cid := cardpool.NormalizeID(raw)
		if cid == "" {
			continue
		}
		if _, dup := seen[cid]; dup {
			continue
		}
		seen[cid] = struct{}{}
		cards = append(cards, cid)
	}
	return &models.User{
		ID:            id,
		Cards:         cards,
		Candies:       max(lu.Candies, 0),
		Exp:           max(lu.Exp, 0),
		RollCooldown:  unixTime(lu.Cooldown.Roll),
		ClaimCooldown: unixTime(lu.Cooldown.Claim),
	}, nil
}

// parseDiscordID accepts the id shapes found in the old store: int64, int32,
// float64 and decimal strings. nil means no id.
func parseDiscordID(v any) (int64, error) {
	switch id := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return id, nil
	case int32:
		return int64(id), nil
	case float64:
		if id != math.Trunc(id) || id < 0 {
			return 0, fmt.Errorf("invalid id %v", id)
		}
		return int64(id), nil
	case string:
		if id == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q: %w", id, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

func unixTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
