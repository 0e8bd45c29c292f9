package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/config"
)

// TierColor is the embed accent for a tier.
func TierColor(t cardpool.Tier) int {
	if !t.Valid() {
		return config.EmbedDefaultColor
	}
	return config.TierColors[t]
}

// FormatCardLine renders one card as a single collection line.
func FormatCardLine(c *cardpool.Card) string {
	return fmt.Sprintf("%s %s %s %s", c.DisplayID(), c.Tier().Emoji(), c.DisplayTag(), c.DisplayStars())
}

// FormatCardDetails is the description block of /cardinfo.
func FormatCardDetails(c *cardpool.Card, price int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", c.DisplayID())
	fmt.Fprintf(&b, "%s\n", c.DisplayTag())
	fmt.Fprintf(&b, "%s\n", c.DisplayFrame())
	fmt.Fprintf(&b, "%s %s\n", c.Tier().Emoji(), strings.ToUpper(c.Tier().String()[:1])+c.Tier().String()[1:])
	fmt.Fprintf(&b, "🍬 `%d`\n", price)
	if owner := c.OwnerID(); owner != 0 {
		fmt.Fprintf(&b, "👤 %s\n", Mention(owner))
	} else {
		b.WriteString("👤 `unowned`\n")
	}
	b.WriteString(c.DisplayStars())
	return b.String()
}

func Mention(id snowflake.ID) string {
	return fmt.Sprintf("<@%s>", id)
}

// FormatRemaining renders a cooldown the way Discord shows relative times.
func FormatRemaining(now time.Time, d time.Duration) string {
	return fmt.Sprintf("<t:%d:R>", now.Add(d).Unix())
}
