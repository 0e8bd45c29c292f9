package models

import (
	"time"

	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/uptrace/bun"
)

// Card is the persisted state of one photocard. The id and tier come from the
// asset inventory; everything else changes through patches.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID            string    `bun:"id,pk"`
	Tier          string    `bun:"tier,notnull"`
	OwnerID       int64     `bun:"owner_id,nullzero"`
	Stars         int       `bun:"stars,notnull,default:1"`
	Tag           string    `bun:"tag,nullzero"`
	Frame         string    `bun:"frame,nullzero"`
	LastTradeTime time.Time `bun:"last_trade_time,nullzero"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

var (
	CardOwner = patch.Field[Card, int64]{
		Column: "owner_id",
		Get:    func(c *Card) int64 { return c.OwnerID },
		Set:    func(c *Card, v int64) { c.OwnerID = v },
	}
	CardStars = patch.Field[Card, int]{
		Column: "stars",
		Get:    func(c *Card) int { return c.Stars },
		Set:    func(c *Card, v int) { c.Stars = v },
	}
	CardTag = patch.Field[Card, string]{
		Column: "tag",
		Get:    func(c *Card) string { return c.Tag },
		Set:    func(c *Card, v string) { c.Tag = v },
	}
	CardFrame = patch.Field[Card, string]{
		Column: "frame",
		Get:    func(c *Card) string { return c.Frame },
		Set:    func(c *Card, v string) { c.Frame = v },
	}
	CardLastTradeTime = patch.Field[Card, time.Time]{
		Column: "last_trade_time",
		Get:    func(c *Card) time.Time { return c.LastTradeTime },
		Set:    func(c *Card, v time.Time) { c.LastTradeTime = v },
	}
)
