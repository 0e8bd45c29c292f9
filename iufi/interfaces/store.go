package interfaces

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/database/patch"
)

//go:generate mockgen -destination=mock/store.go -package=mock . Store

// Store persists cards and users. The in-memory card pool is authoritative;
// writes are awaited so a claim is only acknowledged once it is durable.
type Store interface {
	LoadCards(ctx context.Context) ([]*models.Card, error)
	CreateCards(ctx context.Context, cards []*models.Card) (int, error)
	UpdateCards(ctx context.Context, ids []string, ops ...patch.Op[models.Card]) error
	GetUser(ctx context.Context, id snowflake.ID) (*models.User, error)
	UpdateUser(ctx context.Context, id snowflake.ID, ops ...patch.Op[models.User]) (*models.User, error)
}
