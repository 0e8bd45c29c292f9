package repositories

import (
	"context"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"

	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/iufi-bot/iufi/iufi/logger"
)

type UserRepository interface {
	// Get returns the user, creating an empty document on first use.
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, ops ...patch.Op[models.User]) (*models.User, error)
}

type userRepository struct {
	db    *bun.DB
	cache *lru.Cache
}

// NewUserRepository keeps up to cacheSize user documents in memory. Every write
// goes through Update, which refreshes the cached copy from the returned row.
func NewUserRepository(db *bun.DB, cacheSize int) UserRepository {
	cache, err := lru.New(cacheSize)
	if err != nil {
		cache, _ = lru.New(1)
	}
	return &userRepository{db: db, cache: cache}
}

func (r *userRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cloneUser(cached.(*models.User)), nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ts := now()
	user := &models.User{ID: id, Cards: []string{}, CreatedAt: ts, UpdatedAt: ts}
	if _, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, handleError("create", "user", id, err)
	}

	user = new(models.User)
	if err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		return nil, handleError("get", "user", id, err)
	}

	r.cache.Add(id, user)
	return cloneUser(user), nil
}

func (r *userRepository) Update(ctx context.Context, id int64, ops ...patch.Op[models.User]) (*models.User, error) {
	// Make sure the row exists so the update cannot silently match nothing.
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	q, err := patch.Update(r.db.NewUpdate().Model((*models.User)(nil)), ops...)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	user := new(models.User)
	_, err = q.
		Set("updated_at = ?", now()).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx, user)
	err = handleError("update", "user", id, err)
	logger.LogQuery("update", "users: "+patch.Describe(ops...), time.Since(start), err, slog.Int64("user_id", id))
	if err != nil {
		r.cache.Remove(id)
		return nil, err
	}

	r.cache.Add(id, user)
	return cloneUser(user), nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Cards = slices.Clone(u.Cards)
	return &c
}
