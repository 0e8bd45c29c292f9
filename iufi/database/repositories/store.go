package repositories

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"

	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/iufi-bot/iufi/iufi/interfaces"
)

var _ interfaces.Store = (*Store)(nil)

// Store is the persistence used by the bot: cards by id and users by Discord id.
type Store struct {
	Cards CardRepository
	Users UserRepository
}

func NewStore(db *bun.DB, userCacheSize int) *Store {
	return &Store{
		Cards: NewCardRepository(db),
		Users: NewUserRepository(db, userCacheSize),
	}
}

func (s *Store) LoadCards(ctx context.Context) ([]*models.Card, error) {
	return s.Cards.GetAll(ctx)
}

func (s *Store) CreateCards(ctx context.Context, cards []*models.Card) (int, error) {
	return s.Cards.BulkCreate(ctx, cards)
}

func (s *Store) UpdateCards(ctx context.Context, ids []string, ops ...patch.Op[models.Card]) error {
	return s.Cards.Update(ctx, ids, ops...)
}

func (s *Store) GetUser(ctx context.Context, id snowflake.ID) (*models.User, error) {
	return s.Users.Get(ctx, int64(id))
}

func (s *Store) UpdateUser(ctx context.Context, id snowflake.ID, ops ...patch.Op[models.User]) (*models.User, error) {
	return s.Users.Update(ctx, int64(id), ops...)
}
