package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/sync/errgroup"

	"github.com/iufi-bot/iufi/iufi/assets"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/interfaces"
	"github.com/iufi-bot/iufi/iufi/logger"
)

type LoadStats struct {
	Assets   int
	Loaded   int
	Created  int
	Skipped  int
	Orphaned int
	Frames   int
	Took     time.Duration
}

// CardLoader builds the card pool at startup from the asset inventory and the
// stored card documents.
type CardLoader struct {
	pool  *cardpool.Pool
	store interfaces.Store
	src   assets.Source
}

func NewCardLoader(pool *cardpool.Pool, store interfaces.Store, src assets.Source) *CardLoader {
	return &CardLoader{pool: pool, store: store, src: src}
}

// Load registers one card per asset. Cards without a document get one; the
// document's owner, stars, tag and frame are restored onto the card. A card whose
// id was already registered is logged and skipped.
func (l *CardLoader) Load(ctx context.Context) (LoadStats, error) {
	start := time.Now()
	var stats LoadStats

	tiers := cardpool.Tiers()
	perTier := make([][]assets.Asset, len(tiers))
	var frames []string

	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range tiers {
		g.Go(func() error {
			list, err := l.src.ListCards(gctx, tier)
			if err != nil {
				return fmt.Errorf("failed to list %s cards: %w", tier, err)
			}
			perTier[i] = list
			return nil
		})
	}
	g.Go(func() error {
		list, err := l.src.ListFrames(gctx)
		if err != nil {
			return fmt.Errorf("failed to list frames: %w", err)
		}
		frames = list
		return nil
	})
	var docs []*models.Card
	g.Go(func() error {
		var err error
		docs, err = l.store.LoadCards(gctx)
		if err != nil {
			return fmt.Errorf("failed to load card documents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, f := range frames {
		l.pool.RegisterFrame(f)
	}
	stats.Frames = len(frames)
	known := make(map[string]struct{}, len(frames))
	for _, f := range l.pool.Frames() {
		known[f] = struct{}{}
	}

	byID := make(map[string]*models.Card, len(docs))
	for _, d := range docs {
		byID[cardpool.NormalizeID(d.ID)] = d
	}

	var missing []*models.Card
	seen := make(map[string]struct{})
	for _, list := range perTier {
		for _, a := range list {
			stats.Assets++
			doc, ok := byID[a.ID]
			if !ok {
				doc = &models.Card{ID: a.ID, Tier: a.Tier.String(), Stars: cardpool.DefaultStars}
			} else if doc.Tier != a.Tier.String() {
				logger.LogPoolWarn("Card document tier differs from its asset, using the asset",
					slog.String("card", a.ID),
					slog.String("document_tier", doc.Tier),
					slog.String("asset_tier", a.Tier.String()),
				)
			}
			seen[a.ID] = struct{}{}

			if err := l.add(a, doc, known); err != nil {
				stats.Skipped++
				logger.LogError(logger.AttrPool, "Skipping card", err,
					slog.String("card", a.ID),
					slog.String("tier", a.Tier.String()),
				)
				continue
			}
			if !ok {
				missing = append(missing, doc)
			}
			stats.Loaded++
		}
	}

	for id := range byID {
		if _, ok := seen[id]; !ok {
			stats.Orphaned++
		}
	}
	if stats.Orphaned > 0 {
		logger.LogPoolWarn("Card documents without an image", slog.Int("count", stats.Orphaned))
	}

	if len(missing) > 0 {
		created, err := l.store.CreateCards(ctx, missing)
		if err != nil {
			return stats, fmt.Errorf("failed to create card documents: %w", err)
		}
		stats.Created = created
	}

	stats.Took = time.Since(start)
	return stats, nil
}

func (l *CardLoader) add(a assets.Asset, doc *models.Card, frames map[string]struct{}) error {
	opts := []cardpool.CardOption{cardpool.WithStars(max(doc.Stars, cardpool.MinStars))}
	if !doc.LastTradeTime.IsZero() {
		opts = append(opts, cardpool.WithLastTradeTime(doc.LastTradeTime))
	}
	owned := doc.OwnerID != 0
	if owned {
		opts = append(opts, cardpool.WithOwner(snowflake.ID(doc.OwnerID)))
		if doc.Frame != "" {
			if _, ok := frames[doc.Frame]; ok {
				opts = append(opts, cardpool.WithFrame(doc.Frame))
			} else {
				logger.LogPoolWarn("Dropping unknown frame", slog.String("card", a.ID), slog.String("frame", doc.Frame))
			}
		}
	}

	tagged := owned && doc.Tag != ""
	if tagged {
		if _, err := cardpool.ValidateTag(doc.Tag); err != nil {
			tagged = false
		}
	}
	if !tagged {
		_, err := l.pool.AddCard(a.ID, a.Tier, opts...)
		return err
	}

	_, err := l.pool.AddCard(a.ID, a.Tier, append(opts, cardpool.WithTag(doc.Tag))...)
	if errors.Is(err, cardpool.ErrDuplicatedTag) {
		logger.LogPoolWarn("Dropping duplicated tag", slog.String("card", a.ID), slog.String("tag", doc.Tag))
		_, err = l.pool.AddCard(a.ID, a.Tier, opts...)
	}
	return err
}
