package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/database"
	"github.com/iufi-bot/iufi/iufi/database/models"
)

// Migrator copies card and user documents from the legacy Mongo store into
// Postgres. Cards go through COPY, so the cards table must be empty.
type Migrator struct {
	mongoDB   *mongo.Database
	db        *database.DB
	batchSize int
	stats     Stats
}

func NewMigrator(mongoDB *mongo.Database, db *database.DB) *Migrator {
	return &Migrator{
		mongoDB:   mongoDB,
		db:        db,
		batchSize: config.CardBatchSize,
	}
}

// SetBatchSize overrides the number of rows written per batch.
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

func (m *Migrator) Stats() Stats {
	return m.stats
}

func (m *Migrator) MigrateAll(ctx context.Context) error {
	start := time.Now()
	if err := m.MigrateCards(ctx); err != nil {
		return err
	}
	if err := m.MigrateUsers(ctx); err != nil {
		return err
	}
	slog.Info("Migration finished",
		slog.String("type", "db"),
		slog.Int("cards_read", m.stats.CardsRead),
		slog.Int64("cards_written", m.stats.CardsWritten),
		slog.Int("cards_skipped", m.stats.CardsSkipped),
		slog.Int("users_read", m.stats.UsersRead),
		slog.Int("users_written", m.stats.UsersWritten),
		slog.Int("users_skipped", m.stats.UsersSkipped),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

func (m *Migrator) MigrateCards(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("cards").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query legacy cards: %w", err)
	}
	defer cur.Close(ctx)

	dedup := newTagDeduper()
	batch := make([]*models.Card, 0, m.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := m.db.CopyCards(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to copy cards: %w", err)
		}
		m.stats.CardsWritten += n
		batch = batch[:0]
		return nil
	}

	for cur.Next(ctx) {
		m.stats.CardsRead++
		var lc LegacyCard
		if err := cur.Decode(&lc); err != nil {
			m.skipCard(lc.ID, err)
			continue
		}
		c, err := convertCard(lc)
		if err != nil {
			m.skipCard(lc.ID, err)
			continue
		}
		dedup.apply(c)
		batch = append(batch, c)
		if len(batch) == m.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("failed to read legacy cards: %w", err)
	}
	return flush()
}

func (m *Migrator) skipCard(id string, err error) {
	m.stats.CardsSkipped++
	slog.Warn("Skipping legacy card",
		slog.String("type", "db"),
		slog.String("card", id),
		slog.Any("error", err),
	)
}

func (m *Migrator) MigrateUsers(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("users").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query legacy users: %w", err)
	}
	defer cur.Close(ctx)

	batch := make([]*models.User, 0, m.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.upsertUsers(ctx, batch); err != nil {
			return err
		}
		m.stats.UsersWritten += len(batch)
		batch = batch[:0]
		return nil
	}

	for cur.Next(ctx) {
		m.stats.UsersRead++
		var lu LegacyUser
		if err := cur.Decode(&lu); err != nil {
			m.skipUser(err)
			continue
		}
		u, err := convertUser(lu)
		if err != nil {
			m.skipUser(err)
			continue
		}
		batch = append(batch, u)
		if len(batch) == m.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("failed to read legacy users: %w", err)
	}
	return flush()
}

func (m *Migrator) skipUser(err error) {
	m.stats.UsersSkipped++
	slog.Warn("Skipping legacy user", slog.String("type", "db"), slog.Any("error", err))
}

func (m *Migrator) upsertUsers(ctx context.Context, users []*models.User) error {
	ctx, cancel := context.WithTimeout(ctx, config.BatchQueryTimeout)
	defer cancel()
	return m.db.BunDB().RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&users).
			On("CONFLICT (id) DO UPDATE").
			Set("cards = EXCLUDED.cards").
			Set("candies = EXCLUDED.candies").
			Set("exp = EXCLUDED.exp").
			Set("roll_cooldown = EXCLUDED.roll_cooldown").
			Set("claim_cooldown = EXCLUDED.claim_cooldown").
			Set("updated_at = current_timestamp").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert %d users: %w", len(users), err)
		}
		return nil
	})
}

// tagDeduper drops tags already used by an earlier card, case-insensitively.
type tagDeduper struct {
	seen map[string]string
}

func newTagDeduper() *tagDeduper {
	return &tagDeduper{seen: make(map[string]string)}
}

func (d *tagDeduper) apply(c *models.Card) {
	if c.Tag == "" {
		return
	}
	key := strings.ToLower(c.Tag)
	if first, ok := d.seen[key]; ok {
		slog.Warn("Dropping duplicated legacy tag",
			slog.String("type", "db"),
			slog.String("card", c.ID),
			slog.String("tag", c.Tag),
			slog.String("kept_on", first),
		)
		c.Tag = ""
		return
	}
	d.seen[key] = c.ID
}
