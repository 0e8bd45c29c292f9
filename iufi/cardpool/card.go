package cardpool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	MinStars     = 1
	MaxStars     = 10
	DefaultStars = 1
)

// Card is one collectible unit. The pool owns every Card; fields are only mutated
// through Pool methods so the tag and available indexes stay consistent.
type Card struct {
	id   string
	tier Tier

	mu            sync.RWMutex
	ownerID       snowflake.ID
	stars         int
	tag           string
	frame         string
	lastTradeTime time.Time

	image    []byte
	imageGen uint64
}

// Snapshot is a read-only copy of a card's state.
type Snapshot struct {
	ID            string
	Tier          Tier
	OwnerID       snowflake.ID
	Stars         int
	Tag           string
	Frame         string
	LastTradeTime time.Time
}

func (c *Card) ID() string { return c.id }

func (c *Card) Tier() Tier { return c.tier }

func (c *Card) OwnerID() snowflake.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ownerID
}

func (c *Card) Owned() bool {
	return c.OwnerID() != 0
}

func (c *Card) Stars() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stars
}

func (c *Card) Tag() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tag
}

func (c *Card) Frame() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame
}

func (c *Card) LastTradeTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastTradeTime
}

func (c *Card) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		ID:            c.id,
		Tier:          c.tier,
		OwnerID:       c.ownerID,
		Stars:         c.stars,
		Tag:           c.tag,
		Frame:         c.frame,
		LastTradeTime: c.lastTradeTime,
	}
}

func (c *Card) DisplayID() string {
	return fmt.Sprintf("🆔`%s`", padID(c.id))
}

func (c *Card) DisplayTag() string {
	tag := c.Tag()
	if tag == "" {
		return "🏷️`-`"
	}
	return fmt.Sprintf("🏷️`%s`", tag)
}

func (c *Card) DisplayFrame() string {
	frame := c.Frame()
	if frame == "" {
		return "🖼️`-`"
	}
	return fmt.Sprintf("🖼️`%s`", frame)
}

func (c *Card) DisplayStars() string {
	stars := c.Stars()
	return strings.Repeat("⭐", stars) + strings.Repeat("▪️", MaxStars-stars)
}

func (c *Card) String() string {
	return fmt.Sprintf("%s %s %s %s", c.DisplayID(), c.tier.Emoji(), c.DisplayTag(), c.DisplayFrame())
}

// ImageBytes returns the rendered PNG for this card, rendering it on first use.
// Concurrent invalidation discards a render that started before it.
func (c *Card) ImageBytes(ctx context.Context, r *Renderer) ([]byte, error) {
	c.mu.RLock()
	if c.image != nil {
		img := c.image
		c.mu.RUnlock()
		return img, nil
	}
	gen := c.imageGen
	frame, stars := c.frame, c.stars
	c.mu.RUnlock()

	img, err := r.Render(ctx, c.id, c.tier, frame, stars)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.imageGen == gen {
		c.image = img
	}
	c.mu.Unlock()
	return img, nil
}

// changeOwner sets the owner and reports whether anything changed. The caller holds
// the pool lock and is responsible for the tag and available indexes.
func (c *Card) changeOwner(owner snowflake.ID, clearTag, clearFrame bool) (oldTag string, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ownerID == owner {
		return "", false
	}
	c.ownerID = owner
	if clearTag {
		oldTag = c.tag
		c.tag = ""
	}
	if clearFrame && c.frame != "" {
		c.frame = ""
		c.invalidateImageLocked()
	}
	return oldTag, true
}

func (c *Card) changeTag(tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == tag {
		return false
	}
	c.tag = tag
	return true
}

func (c *Card) changeFrame(frame string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == frame {
		return false
	}
	c.frame = frame
	c.invalidateImageLocked()
	return true
}

func (c *Card) changeStars(stars int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stars == stars {
		return
	}
	c.stars = stars
	c.invalidateImageLocked()
}

func (c *Card) changeLastTradeTime(t time.Time) {
	c.mu.Lock()
	c.lastTradeTime = t
	c.mu.Unlock()
}

func (c *Card) invalidateImage() {
	c.mu.Lock()
	c.invalidateImageLocked()
	c.mu.Unlock()
}

func (c *Card) invalidateImageLocked() {
	c.image = nil
	c.imageGen++
}

func padID(id string) string {
	if len(id) >= 5 {
		return id
	}
	return strings.Repeat("0", 5-len(id)) + id
}

func clampStars(n int) int {
	return max(MinStars, min(MaxStars, n))
}
