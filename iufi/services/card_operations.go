package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/iufi-bot/iufi/iufi/economy/claim"
	"github.com/iufi-bot/iufi/iufi/interfaces"
	"github.com/iufi-bot/iufi/iufi/logger"
)

var (
	ErrNotOwner            = cardpool.ErrNotOwner
	ErrNotTagged           = errors.New("card has no tag")
	ErrNoCards             = errors.New("no cards given")
	ErrMaxStars            = errors.New("card is already at max stars")
	ErrTierMismatch        = errors.New("upgrade cards must share the card's tier")
	ErrUpgradeSelf         = errors.New("a card cannot upgrade itself")
	ErrSelfTrade           = errors.New("cannot trade with yourself")
	ErrInsufficientCandies = errors.New("not enough candies")
	ErrInvalidPrice        = errors.New("price cannot be negative")
)

// TradeCooldownError is returned when a card changed hands too recently.
type TradeCooldownError struct {
	CardID    string
	Remaining time.Duration
}

func (e *TradeCooldownError) Error() string {
	return fmt.Sprintf("card %s can be traded again in %s", e.CardID, e.Remaining.Round(time.Second))
}

// UserLocker is the busy-user set shared with rolls and claims.
type UserLocker interface {
	LockUser(userID snowflake.ID) bool
	ReleaseUser(userID snowflake.ID)
}

// CardOperationsService applies user requested card changes to the pool and
// persists them. When persisting fails the pool is put back the way it was.
// Every user involved is marked busy for the whole operation.
type CardOperationsService struct {
	pool          *cardpool.Pool
	store         interfaces.Store
	locks         UserLocker
	tradeCooldown time.Duration
	now           func() time.Time
}

func NewCardOperationsService(pool *cardpool.Pool, store interfaces.Store, locks UserLocker, tradeCooldown time.Duration) *CardOperationsService {
	return &CardOperationsService{
		pool:          pool,
		store:         store,
		locks:         locks,
		tradeCooldown: tradeCooldown,
		now:           time.Now,
	}
}

// lock marks every user busy or none of them. It fails with claim.ErrUserBusy.
func (s *CardOperationsService) lock(users ...snowflake.ID) (func(), error) {
	held := make([]snowflake.ID, 0, len(users))
	unlock := func() {
		for _, u := range held {
			s.locks.ReleaseUser(u)
		}
	}
	for _, u := range users {
		if !s.locks.LockUser(u) {
			unlock()
			return nil, claim.ErrUserBusy
		}
		held = append(held, u)
	}
	return unlock, nil
}

// OwnedCard resolves identifier to a card owned by userID.
func (s *CardOperationsService) OwnedCard(userID snowflake.ID, identifier string) (*cardpool.Card, error) {
	c := s.pool.GetCard(identifier)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", cardpool.ErrCardNotFound, identifier)
	}
	if c.OwnerID() != userID {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, c.ID())
	}
	return c, nil
}

func (s *CardOperationsService) ownedCards(userID snowflake.ID, identifiers []string) ([]*cardpool.Card, error) {
	if len(identifiers) == 0 {
		return nil, ErrNoCards
	}
	seen := make(map[*cardpool.Card]struct{}, len(identifiers))
	cards := make([]*cardpool.Card, 0, len(identifiers))
	for _, identifier := range identifiers {
		c, err := s.OwnedCard(userID, identifier)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cards = append(cards, c)
	}
	return cards, nil
}

func (s *CardOperationsService) restore(snaps ...cardpool.Snapshot) {
	for _, snap := range snaps {
		if err := s.pool.Restore(snap); err != nil {
			logger.LogDivergent(logger.AttrPool, "Failed to restore card", err, slog.String("card", snap.ID))
		}
	}
}

// SetTag tags one of the user's cards, replacing any previous tag.
func (s *CardOperationsService) SetTag(ctx context.Context, userID snowflake.ID, identifier, tag string) (*cardpool.Card, error) {
	unlock, err := s.lock(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.OwnedCard(userID, identifier)
	if err != nil {
		return nil, err
	}
	before := c.Snapshot()
	tag, err = s.pool.ChangeTag(c, tag)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateCards(ctx, []string{c.ID()}, patch.Set(models.CardTag, tag)); err != nil {
		s.restore(before)
		return nil, fmt.Errorf("failed to store tag: %w", err)
	}
	return c, nil
}

func (s *CardOperationsService) RemoveTag(ctx context.Context, userID snowflake.ID, identifier string) (*cardpool.Card, error) {
	unlock, err := s.lock(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.OwnedCard(userID, identifier)
	if err != nil {
		return nil, err
	}
	before := c.Snapshot()
	if !s.pool.RemoveTag(c) {
		return nil, fmt.Errorf("%w: %s", ErrNotTagged, c.ID())
	}
	if err := s.store.UpdateCards(ctx, []string{c.ID()}, patch.Unset(models.CardTag)); err != nil {
		s.restore(before)
		return nil, fmt.Errorf("failed to remove tag: %w", err)
	}
	return c, nil
}

// SetFrame applies a registered frame. An empty frame removes it.
func (s *CardOperationsService) SetFrame(ctx context.Context, userID snowflake.ID, identifier, frame string) (*cardpool.Card, error) {
	unlock, err := s.lock(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.OwnedCard(userID, identifier)
	if err != nil {
		return nil, err
	}
	before := c.Snapshot()
	name, err := s.pool.SetFrame(c, frame)
	if err != nil {
		return nil, err
	}
	op := patch.Set(models.CardFrame, name)
	if name == "" {
		op = patch.Unset(models.CardFrame)
	}
	if err := s.store.UpdateCards(ctx, []string{c.ID()}, op); err != nil {
		s.restore(before)
		return nil, fmt.Errorf("failed to store frame: %w", err)
	}
	return c, nil
}

type ConvertResult struct {
	CardIDs []string
	Candies int64
	User    *models.User
}

// Convert returns the user's cards to the pool in exchange for candies.
func (s *CardOperationsService) Convert(ctx context.Context, userID snowflake.ID, identifiers []string) (*ConvertResult, error) {
	unlock, err := s.lock(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cards, err := s.ownedCards(userID, identifiers)
	if err != nil {
		return nil, err
	}

	snaps := make([]cardpool.Snapshot, len(cards))
	ids := make([]string, len(cards))
	var candies int64
	for i, c := range cards {
		snaps[i] = c.Snapshot()
		ids[i] = c.ID()
		candies += s.pool.Price(c.Tier())
	}
	if err := s.pool.ReleaseFrom(userID, cards...); err != nil {
		return nil, err
	}

	var user *models.User
	err = runSteps(ctx,
		step{
			name: "release cards",
			do:   func(ctx context.Context) error { return s.store.UpdateCards(ctx, ids, releaseOps()...) },
			undo: func(ctx context.Context) error { return s.restoreDocs(ctx, snaps) },
		},
		step{
			name: "pay candies",
			do: func(ctx context.Context) (err error) {
				user, err = s.store.UpdateUser(ctx, userID,
					patch.Pull(models.UserCards, ids...),
					patch.Inc(models.UserCandies, candies),
				)
				return err
			},
		},
	)
	if err != nil {
		s.restore(snaps...)
		return nil, fmt.Errorf("failed to convert cards: %w", err)
	}

	return &ConvertResult{CardIDs: ids, Candies: candies, User: user}, nil
}

type UpgradeResult struct {
	Card     *cardpool.Card
	Stars    int
	Consumed []string
}

// Upgrade feeds same tier cards into target, one star per card. The fodder goes
// back to the pool.
func (s *CardOperationsService) Upgrade(ctx context.Context, userID snowflake.ID, identifier string, fodderIDs []string) (*UpgradeResult, error) {
	unlock, err := s.lock(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target, err := s.OwnedCard(userID, identifier)
	if err != nil {
		return nil, err
	}
	fodder, err := s.ownedCards(userID, fodderIDs)
	if err != nil {
		return nil, err
	}
	for _, f := range fodder {
		if f == target {
			return nil, fmt.Errorf("%w: %s", ErrUpgradeSelf, f.ID())
		}
		if f.Tier() != target.Tier() {
			return nil, fmt.Errorf("%w: %s is %s", ErrTierMismatch, f.ID(), f.Tier())
		}
	}
	stars := target.Stars()
	if stars >= cardpool.MaxStars {
		return nil, ErrMaxStars
	}
	if stars+len(fodder) > cardpool.MaxStars {
		return nil, fmt.Errorf("%w: only %d more stars fit", ErrMaxStars, cardpool.MaxStars-stars)
	}

	targetBefore := target.Snapshot()
	snaps := make([]cardpool.Snapshot, len(fodder))
	ids := make([]string, len(fodder))
	for i, f := range fodder {
		snaps[i] = f.Snapshot()
		ids[i] = f.ID()
	}
	if err := s.pool.ReleaseFrom(userID, fodder...); err != nil {
		return nil, err
	}
	newStars, err := s.pool.SetOwnedStars(target, userID, stars+len(fodder))
	if err != nil {
		s.restore(snaps...)
		return nil, err
	}

	err = runSteps(ctx,
		step{
			name: "release fodder",
			do:   func(ctx context.Context) error { return s.store.UpdateCards(ctx, ids, releaseOps()...) },
			undo: func(ctx context.Context) error { return s.restoreDocs(ctx, snaps) },
		},
		step{
			name: "store stars",
			do: func(ctx context.Context) error {
				return s.store.UpdateCards(ctx, []string{target.ID()}, patch.Set(models.CardStars, newStars))
			},
			undo: func(ctx context.Context) error {
				return s.store.UpdateCards(ctx, []string{target.ID()}, patch.Set(models.CardStars, stars))
			},
		},
		step{
			name: "remove fodder from user",
			do: func(ctx context.Context) error {
				_, err := s.store.UpdateUser(ctx, userID, patch.Pull(models.UserCards, ids...))
				return err
			},
		},
	)
	if err != nil {
		s.restore(append(snaps, targetBefore)...)
		return nil, fmt.Errorf("failed to upgrade card: %w", err)
	}
	return &UpgradeResult{Card: target, Stars: newStars, Consumed: ids}, nil
}

// Trade sells one of seller's cards to buyer for price candies. Tag and frame
// stay with the seller; the card's trade cooldown starts over.
func (s *CardOperationsService) Trade(ctx context.Context, seller, buyer snowflake.ID, identifier string, price int64) (*cardpool.Card, error) {
	if seller == buyer {
		return nil, ErrSelfTrade
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	unlock, err := s.lock(seller, buyer)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.OwnedCard(seller, identifier)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if last := c.LastTradeTime(); !last.IsZero() && s.tradeCooldown > 0 {
		if left := last.Add(s.tradeCooldown).Sub(now); left > 0 {
			return nil, &TradeCooldownError{CardID: c.ID(), Remaining: left}
		}
	}
	if price > 0 {
		buyerDoc, err := s.store.GetUser(ctx, buyer)
		if err != nil {
			return nil, fmt.Errorf("failed to load buyer: %w", err)
		}
		if buyerDoc.Candies < price {
			return nil, fmt.Errorf("%w: has %d, needs %d", ErrInsufficientCandies, buyerDoc.Candies, price)
		}
	}

	before := c.Snapshot()
	if err := s.pool.Transfer(c, seller, buyer, now); err != nil {
		return nil, err
	}
	id := c.ID()

	err = runSteps(ctx,
		step{
			name: "transfer card",
			do: func(ctx context.Context) error {
				return s.store.UpdateCards(ctx, []string{id},
					patch.Set(models.CardOwner, int64(buyer)),
					patch.Unset(models.CardTag),
					patch.Unset(models.CardFrame),
					patch.Set(models.CardLastTradeTime, now),
				)
			},
			undo: func(ctx context.Context) error { return s.restoreDocs(ctx, []cardpool.Snapshot{before}) },
		},
		step{
			name: "charge buyer",
			do: func(ctx context.Context) error {
				_, err := s.store.UpdateUser(ctx, buyer, patch.Push(models.UserCards, id), patch.Inc(models.UserCandies, -price))
				return err
			},
			undo: func(ctx context.Context) error {
				_, err := s.store.UpdateUser(ctx, buyer, patch.Pull(models.UserCards, id), patch.Inc(models.UserCandies, price))
				return err
			},
		},
		step{
			name: "pay seller",
			do: func(ctx context.Context) error {
				_, err := s.store.UpdateUser(ctx, seller, patch.Pull(models.UserCards, id), patch.Inc(models.UserCandies, price))
				return err
			},
		},
	)
	if err != nil {
		s.restore(before)
		return nil, fmt.Errorf("failed to trade card: %w", err)
	}

	logger.LogPool("Card traded",
		slog.String("card", id),
		slog.String("seller", seller.String()),
		slog.String("buyer", buyer.String()),
		slog.Int64("price", price),
	)
	return c, nil
}

// restoreDocs writes the snapshots back as card documents.
func (s *CardOperationsService) restoreDocs(ctx context.Context, snaps []cardpool.Snapshot) error {
	var errs []error
	for _, snap := range snaps {
		if err := s.store.UpdateCards(ctx, []string{snap.ID}, snapshotOps(snap)...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// releaseOps resets a card document to the state of a card back in the pool.
func releaseOps() []patch.Op[models.Card] {
	return []patch.Op[models.Card]{
		patch.Unset(models.CardOwner),
		patch.Unset(models.CardTag),
		patch.Unset(models.CardFrame),
		patch.Set(models.CardStars, cardpool.DefaultStars),
		patch.Unset(models.CardLastTradeTime),
	}
}

func snapshotOps(s cardpool.Snapshot) []patch.Op[models.Card] {
	ops := []patch.Op[models.Card]{patch.Set(models.CardStars, s.Stars)}
	if s.OwnerID != 0 {
		ops = append(ops, patch.Set(models.CardOwner, int64(s.OwnerID)))
	} else {
		ops = append(ops, patch.Unset(models.CardOwner))
	}
	if s.Tag != "" {
		ops = append(ops, patch.Set(models.CardTag, s.Tag))
	} else {
		ops = append(ops, patch.Unset(models.CardTag))
	}
	if s.Frame != "" {
		ops = append(ops, patch.Set(models.CardFrame, s.Frame))
	} else {
		ops = append(ops, patch.Unset(models.CardFrame))
	}
	if !s.LastTradeTime.IsZero() {
		ops = append(ops, patch.Set(models.CardLastTradeTime, s.LastTradeTime))
	} else {
		ops = append(ops, patch.Unset(models.CardLastTradeTime))
	}
	return ops
}
