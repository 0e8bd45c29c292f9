package cardpool

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/iufi-bot/iufi/iufi/logger"
)

// Pool is the authoritative in-memory registry of every card.
//
// Lock order is pool before card. Every change of ownership updates the
// available index inside the same critical section, so a card is always either
// owned or available for its tier, never both and never neither.
type Pool struct {
	mu        sync.RWMutex
	cards     map[string]*Card
	tags      map[string]*Card
	available map[Tier]*availableList
	frames    map[string]string

	rates  Rates
	prices map[Tier]int64

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Pool)

// WithRates sets the tier drop weights. They are normalized by New.
func WithRates(r Rates) Option {
	return func(p *Pool) {
		p.rates = r
	}
}

// WithPrices overrides the candy value of the given tiers.
func WithPrices(prices map[Tier]int64) Option {
	return func(p *Pool) {
		for t, v := range prices {
			if t.Valid() && v >= 0 {
				p.prices[t] = v
			}
		}
	}
}

// WithRand sets the random source used by Roll. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(p *Pool) {
		p.rng = r
	}
}

func New(opts ...Option) (*Pool, error) {
	p := &Pool{
		cards:     make(map[string]*Card),
		tags:      make(map[string]*Card),
		available: make(map[Tier]*availableList),
		frames:    make(map[string]string),
		rates:     DefaultRates(),
		prices:    make(map[Tier]int64),
	}
	for _, t := range Tiers() {
		p.prices[t] = t.Price()
	}
	for _, opt := range opts {
		opt(p)
	}
	rates, err := p.rates.Normalize()
	if err != nil {
		return nil, err
	}
	p.rates = rates
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for _, t := range Tiers() {
		p.available[t] = newAvailableList()
	}
	return p, nil
}

// Price is the candy value of a card of tier t.
func (p *Pool) Price(t Tier) int64 {
	return p.prices[t]
}

// Rates returns a copy of the normalized drop weights.
func (p *Pool) Rates() Rates {
	out := make(Rates, len(p.rates))
	for t, w := range p.rates {
		out[t] = w
	}
	return out
}

// CardOption sets persisted state on a card while it is registered.
type CardOption func(*Card)

func WithOwner(owner snowflake.ID) CardOption {
	return func(c *Card) { c.ownerID = owner }
}

func WithStars(stars int) CardOption {
	return func(c *Card) { c.stars = clampStars(stars) }
}

func WithTag(tag string) CardOption {
	return func(c *Card) { c.tag = NormalizeTag(tag) }
}

func WithFrame(frame string) CardOption {
	return func(c *Card) { c.frame = frame }
}

func WithLastTradeTime(t time.Time) CardOption {
	return func(c *Card) { c.lastTradeTime = t }
}

// AddCard registers a card. It fails with ErrDuplicatedCard when the id is taken
// and with ErrDuplicatedTag when its tag belongs to another card; in both cases
// nothing is registered.
func (p *Pool) AddCard(id string, tier Tier, opts ...CardOption) (*Card, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, uint8(tier))
	}
	c := &Card{id: NormalizeID(id), tier: tier, stars: DefaultStars}
	for _, opt := range opts {
		opt(c)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.cards[c.id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatedCard, c.id)
	}
	if c.tag != "" {
		if other, ok := p.tags[tagKey(c.tag)]; ok {
			return nil, fmt.Errorf("%w: %q is used by card %s", ErrDuplicatedTag, c.tag, other.id)
		}
		p.tags[tagKey(c.tag)] = c
	}
	p.cards[c.id] = c
	if c.ownerID == 0 {
		p.available[tier].add(c)
	}
	return c, nil
}

// GetCard resolves a card id (leading zeros ignored) or, failing that, a tag
// (case-insensitive). It returns nil when nothing matches.
func (p *Pool) GetCard(identifier string) *Card {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if isNumeric(identifier) {
		if c, ok := p.cards[NormalizeID(identifier)]; ok {
			return c
		}
	}
	if c, ok := p.cards[identifier]; ok {
		return c
	}
	return p.tags[tagKey(identifier)]
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cards)
}

// Cards returns every card sorted by numeric id.
func (p *Pool) Cards() []*Card {
	p.mu.RLock()
	out := make([]*Card, 0, len(p.cards))
	for _, c := range p.cards {
		out = append(out, c)
	}
	p.mu.RUnlock()
	sortByID(out)
	return out
}

// CardsOwnedBy returns the cards owned by owner sorted by id.
func (p *Pool) CardsOwnedBy(owner snowflake.ID) []*Card {
	if owner == 0 {
		return nil
	}
	p.mu.RLock()
	var out []*Card
	for _, c := range p.cards {
		if c.OwnerID() == owner {
			out = append(out, c)
		}
	}
	p.mu.RUnlock()
	sortByID(out)
	return out
}

// AvailableCount returns how many unowned cards the tier has.
func (p *Pool) AvailableCount(t Tier) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if l, ok := p.available[t]; ok {
		return l.len()
	}
	return 0
}

// IsAvailable reports whether the card is in its tier's available index.
func (p *Pool) IsAvailable(c *Card) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available[c.tier].contains(c)
}

// AddAvailableCard puts an unowned card back in its tier's index. It refuses
// owned cards so the index can never disagree with ownership.
func (p *Pool) AddAvailableCard(c *Card) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner := c.OwnerID(); owner != 0 {
		return &ClaimedError{CardID: c.id, Owner: owner}
	}
	p.available[c.tier].add(c)
	return nil
}

// RemoveAvailableCard drops an owned card from its tier's index. It refuses
// unowned cards.
func (p *Pool) RemoveAvailableCard(c *Card) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.OwnerID() == 0 {
		return fmt.Errorf("%w: %s", ErrNotOwned, c.id)
	}
	p.available[c.tier].remove(c)
	return nil
}

type ownerOptions struct {
	keepTag   bool
	keepFrame bool
}

type OwnerOption func(*ownerOptions)

// KeepTag leaves the tag in place across an owner change.
func KeepTag() OwnerOption {
	return func(o *ownerOptions) { o.keepTag = true }
}

// KeepFrame leaves the frame in place across an owner change.
func KeepFrame() OwnerOption {
	return func(o *ownerOptions) { o.keepFrame = true }
}

// ChangeOwner moves c to owner (0 releases it). Unless told otherwise the tag is
// dropped from the registry and the frame cleared. It reports false, with no side
// effects at all, when owner already owns the card.
func (p *Pool) ChangeOwner(c *Card, owner snowflake.ID, opts ...OwnerOption) bool {
	var o ownerOptions
	for _, opt := range opts {
		opt(&o)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changeOwnerLocked(c, owner, o)
}

func (p *Pool) changeOwnerLocked(c *Card, owner snowflake.ID, o ownerOptions) bool {
	previous := c.OwnerID()
	oldTag, changed := c.changeOwner(owner, !o.keepTag, !o.keepFrame)
	if !changed {
		return false
	}
	if oldTag != "" && p.tags[tagKey(oldTag)] == c {
		delete(p.tags, tagKey(oldTag))
	}
	switch {
	case previous == 0:
		p.available[c.tier].remove(c)
	case owner == 0:
		p.available[c.tier].add(c)
	}
	return true
}

// Claim gives the card identified by id to owner if, and only if, it is unowned.
// A lost race returns a *ClaimedError naming the current owner.
func (p *Pool) Claim(id string, owner snowflake.ID) (*Card, error) {
	if owner == 0 {
		return nil, fmt.Errorf("%w: claimant is empty", ErrNotOwned)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.cards[NormalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	if current := c.OwnerID(); current != 0 {
		return c, &ClaimedError{CardID: c.id, Owner: current}
	}
	p.changeOwnerLocked(c, owner, ownerOptions{})
	return c, nil
}

// ReleaseFrom returns every card to the pool, provided owner still owns all of
// them. Nothing is released when one of them changed hands.
func (p *Pool) ReleaseFrom(owner snowflake.ID, cards ...*Card) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range cards {
		if c.OwnerID() != owner || owner == 0 {
			return fmt.Errorf("%w: %s", ErrNotOwner, c.id)
		}
	}
	for _, c := range cards {
		p.changeOwnerLocked(c, 0, ownerOptions{})
		c.changeStars(DefaultStars)
		c.changeLastTradeTime(time.Time{})
	}
	return nil
}

// Transfer moves c from one owner to another and stamps the trade time. It fails
// with ErrNotOwner, changing nothing, unless from owns the card.
func (p *Pool) Transfer(c *Card, from, to snowflake.ID, at time.Time) error {
	if from == 0 || to == 0 || from == to {
		return fmt.Errorf("%w: %s", ErrNotOwner, c.id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.OwnerID() != from {
		return fmt.Errorf("%w: %s", ErrNotOwner, c.id)
	}
	p.changeOwnerLocked(c, to, ownerOptions{})
	c.changeLastTradeTime(at)
	return nil
}

// Restore puts a card back into the exact state captured by s. It is used to
// undo in-memory changes when persisting them failed.
func (p *Pool) Restore(s Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.cards[s.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCardNotFound, s.ID)
	}
	if s.Tag != "" {
		if other, ok := p.tags[tagKey(s.Tag)]; ok && other != c {
			return fmt.Errorf("%w: %q is used by card %s", ErrDuplicatedTag, s.Tag, other.id)
		}
	}
	p.changeOwnerLocked(c, s.OwnerID, ownerOptions{})
	if old := c.Tag(); old != "" && p.tags[tagKey(old)] == c {
		delete(p.tags, tagKey(old))
	}
	if s.Tag != "" {
		p.tags[tagKey(s.Tag)] = c
	}
	c.changeTag(s.Tag)
	c.changeFrame(s.Frame)
	c.changeStars(clampStars(s.Stars))
	c.changeLastTradeTime(s.LastTradeTime)
	return nil
}

// AddTag tags an untagged card. The tag is normalized first.
func (p *Pool) AddTag(c *Card, raw string) (string, error) {
	tag, err := ValidateTag(raw)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing := c.Tag(); existing != "" {
		return "", fmt.Errorf("%w: card %s is tagged %q", ErrAlreadyTagged, c.id, existing)
	}
	if other, ok := p.tags[tagKey(tag)]; ok && other != c {
		return "", fmt.Errorf("%w: %q", ErrDuplicatedTag, tag)
	}
	p.tags[tagKey(tag)] = c
	c.changeTag(tag)
	return tag, nil
}

// ChangeTag replaces the card's tag, or sets it if the card has none. Availability
// of the new tag is checked before either registry entry is touched.
func (p *Pool) ChangeTag(c *Card, raw string) (string, error) {
	tag, err := ValidateTag(raw)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if other, ok := p.tags[tagKey(tag)]; ok && other != c {
		return "", fmt.Errorf("%w: %q", ErrDuplicatedTag, tag)
	}
	if old := c.Tag(); old != "" && p.tags[tagKey(old)] == c {
		delete(p.tags, tagKey(old))
	}
	p.tags[tagKey(tag)] = c
	c.changeTag(tag)
	return tag, nil
}

// RemoveTag clears the card's tag and reports whether it had one.
func (p *Pool) RemoveTag(c *Card) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := c.Tag()
	if old == "" {
		return false
	}
	if p.tags[tagKey(old)] == c {
		delete(p.tags, tagKey(old))
	}
	c.changeTag("")
	return true
}

// RegisterFrame adds a frame to the catalog of frames cards may use.
func (p *Pool) RegisterFrame(frame string) {
	frame = strings.TrimSpace(frame)
	if frame == "" {
		return
	}
	p.mu.Lock()
	p.frames[strings.ToLower(frame)] = frame
	p.mu.Unlock()
}

// Frames returns the registered frame names sorted alphabetically.
func (p *Pool) Frames() []string {
	p.mu.RLock()
	out := make([]string, 0, len(p.frames))
	for _, f := range p.frames {
		out = append(out, f)
	}
	p.mu.RUnlock()
	sort.Strings(out)
	return out
}

// SetFrame applies a registered frame, or clears it when frame is empty.
func (p *Pool) SetFrame(c *Card, frame string) (string, error) {
	frame = strings.TrimSpace(frame)
	p.mu.Lock()
	defer p.mu.Unlock()
	if frame == "" {
		c.changeFrame("")
		return "", nil
	}
	name, ok := p.frames[strings.ToLower(frame)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFrame, frame)
	}
	c.changeFrame(name)
	return name, nil
}

// SetStars sets the card's stars clamped to [MinStars, MaxStars] and returns the
// stored value.
func (p *Pool) SetStars(c *Card, stars int) int {
	stars = clampStars(stars)
	p.mu.Lock()
	c.changeStars(stars)
	p.mu.Unlock()
	return stars
}

// SetOwnedStars is SetStars for a card that must still belong to owner.
func (p *Pool) SetOwnedStars(c *Card, owner snowflake.ID, stars int) (int, error) {
	stars = clampStars(stars)
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner == 0 || c.OwnerID() != owner {
		return 0, fmt.Errorf("%w: %s", ErrNotOwner, c.id)
	}
	c.changeStars(stars)
	return stars, nil
}

// InvalidateImages drops every cached render, e.g. after frame assets changed.
func (p *Pool) InvalidateImages() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.cards {
		c.invalidateImage()
	}
}

// CheckInvariants verifies the available index and the tag registry against the
// cards' own state.
func (p *Pool) CheckInvariants() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	want := make(map[Tier]int)
	for _, c := range p.cards {
		owned := c.OwnerID() != 0
		inIndex := p.available[c.tier].contains(c)
		if owned == inIndex {
			return fmt.Errorf("card %s: owned=%t but available=%t", c.id, owned, inIndex)
		}
		if !owned {
			want[c.tier]++
		}
		if tag := c.Tag(); tag != "" {
			if p.tags[tagKey(tag)] != c {
				return fmt.Errorf("card %s: tag %q not registered to it", c.id, tag)
			}
		}
	}
	for t, l := range p.available {
		if l.len() != want[t] {
			return fmt.Errorf("tier %s: index has %d cards, expected %d", t, l.len(), want[t])
		}
	}
	for key, c := range p.tags {
		if tagKey(c.Tag()) != key {
			return fmt.Errorf("tag %q points at card %s tagged %q", key, c.id, c.Tag())
		}
	}
	return nil
}

// LogStats writes a one-line summary of the pool.
func (p *Pool) LogStats() {
	attrs := []any{
		slog.Int("cards", p.Len()),
		slog.Int("frames", len(p.Frames())),
	}
	for _, t := range Tiers() {
		attrs = append(attrs, slog.Int("available_"+t.String(), p.AvailableCount(t)))
	}
	logger.LogPool("Card pool ready", attrs...)
}

func sortByID(cards []*Card) {
	sort.Slice(cards, func(i, j int) bool {
		a, b := cards[i].id, cards[j].id
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
