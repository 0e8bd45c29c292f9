package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/iufi-bot/iufi/iufi/logger"
)

type CardRepository interface {
	GetAll(ctx context.Context) ([]*models.Card, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Card, error)
	BulkCreate(ctx context.Context, cards []*models.Card) (int, error)
	Update(ctx context.Context, ids []string, ops ...patch.Op[models.Card]) error
}

type cardRepository struct {
	db *bun.DB
}

func NewCardRepository(db *bun.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) GetAll(ctx context.Context) ([]*models.Card, error) {
	ctx, cancel := withBatchTimeout(ctx)
	defer cancel()

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Order("id ASC").
		Scan(ctx)
	return cards, handleError("get_all", "card", nil, err)
}

func (r *cardRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	return cards, handleError("get_by_ids", "card", ids, err)
}

// BulkCreate inserts cards in batches and skips ids that already exist. It
// returns the number of rows actually inserted.
func (r *cardRepository) BulkCreate(ctx context.Context, cards []*models.Card) (int, error) {
	ctx, cancel := withBatchTimeout(ctx)
	defer cancel()

	ts := now()
	inserted := 0
	for start := 0; start < len(cards); start += config.CardBatchSize {
		end := min(start+config.CardBatchSize, len(cards))
		batch := cards[start:end]
		for _, c := range batch {
			c.CreatedAt, c.UpdatedAt = ts, ts
		}
		res, err := r.db.NewInsert().
			Model(&batch).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return inserted, handleError("bulk_create", "card", nil, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

func (r *cardRepository) Update(ctx context.Context, ids []string, ops ...patch.Op[models.Card]) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	start := time.Now()
	q, err := patch.Update(r.db.NewUpdate().Model((*models.Card)(nil)), ops...)
	if err != nil {
		return err
	}
	res, err := q.
		Set("updated_at = ?", now()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	err = handleError("update", "card", ids, err)
	logger.LogQuery("update", "cards: "+patch.Describe(ops...), time.Since(start), err, slog.Any("ids", ids))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); int(n) != len(ids) {
		slog.Warn("Card update matched fewer rows than requested",
			slog.String("type", logger.AttrDB),
			slog.Any("ids", ids),
			slog.Int64("matched", n),
		)
	}
	return nil
}
