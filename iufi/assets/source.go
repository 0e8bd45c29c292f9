// Package assets lists and opens the card and frame images the pool is built
// from, either on local disk or in a DigitalOcean Spaces bucket.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/iufi-bot/iufi/iufi/cardpool"
)

var ErrAssetNotFound = errors.New("asset not found")

// DefaultExtensions are the image types recognised when none are configured.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// Asset is one card image: its card id, tier and storage key.
type Asset struct {
	ID   string
	Tier cardpool.Tier
	Key  string
}

type Source interface {
	cardpool.ImageSource
	// ListCards returns the card images stored for a tier.
	ListCards(ctx context.Context, tier cardpool.Tier) ([]Asset, error)
	// ListFrames returns the names of the available frame overlays.
	ListFrames(ctx context.Context) ([]string, error)
}

// keyCache remembers which storage key holds each card and frame so opening
// one never needs another listing.
type keyCache struct {
	mu     sync.RWMutex
	cards  map[string]string
	frames map[string]string
}

func newKeyCache() *keyCache {
	return &keyCache{cards: make(map[string]string), frames: make(map[string]string)}
}

func cardKey(tier cardpool.Tier, id string) string {
	return tier.String() + "/" + id
}

func (c *keyCache) card(tier cardpool.Tier, id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.cards[cardKey(tier, id)]
	return k, ok
}

func (c *keyCache) frame(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.frames[strings.ToLower(name)]
	return k, ok
}

func (c *keyCache) putCard(a Asset) {
	c.mu.Lock()
	c.cards[cardKey(a.Tier, a.ID)] = a.Key
	c.mu.Unlock()
}

func (c *keyCache) putFrame(name, key string) {
	c.mu.Lock()
	c.frames[strings.ToLower(name)] = key
	c.mu.Unlock()
}

// parseCardName turns "00042.png" into "42". Names that are not numeric or use
// another extension are rejected.
func parseCardName(name string, exts []string) (string, bool) {
	stem, ok := trimExt(name, exts)
	if !ok || stem == "" {
		return "", false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return cardpool.NormalizeID(stem), true
}

func trimExt(name string, exts []string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return strings.TrimSuffix(name, path.Ext(name)), true
		}
	}
	return "", false
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrAssetNotFound, what)
}
