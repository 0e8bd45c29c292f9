package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iufi-bot/iufi/iufi/assets"
	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/interfaces/mock"
)

type fakeSource struct {
	cards   map[cardpool.Tier][]string
	frames  []string
	listErr error
}

func (s *fakeSource) ListCards(_ context.Context, tier cardpool.Tier) ([]assets.Asset, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []assets.Asset
	for _, id := range s.cards[tier] {
		out = append(out, assets.Asset{ID: id, Tier: tier, Key: tier.String() + "/" + id + ".png"})
	}
	return out, nil
}

func (s *fakeSource) ListFrames(context.Context) ([]string, error) {
	return s.frames, nil
}

func (s *fakeSource) OpenCard(context.Context, cardpool.Tier, string) (io.ReadCloser, error) {
	return nil, assets.ErrAssetNotFound
}

func (s *fakeSource) OpenFrame(context.Context, string) (io.ReadCloser, error) {
	return nil, assets.ErrAssetNotFound
}

func TestCardLoaderLoad(t *testing.T) {
	traded := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		cards: map[cardpool.Tier][]string{
			cardpool.TierCommon: {"1", "2", "3"},
			cardpool.TierRare:   {"4", "5"},
			cardpool.TierEpic:   {"2"},
		},
		frames: []string{"hearts"},
	}
	docs := []*models.Card{
		{ID: "1", Tier: "common", OwnerID: 7, Stars: 4, Tag: "Lilac", Frame: "hearts", LastTradeTime: traded},
		{ID: "2", Tier: "common", OwnerID: 8, Tag: "lilac"},
		{ID: "4", Tier: "common", OwnerID: 9, Frame: "gone", Tag: "123"},
		{ID: "5", Tier: "rare", Tag: "free"},
		{ID: "99", Tier: "rare"},
	}

	pool, err := cardpool.New()
	require.NoError(t, err)
	store := mock.NewMockStore(gomock.NewController(t))
	store.EXPECT().LoadCards(gomock.Any()).Return(docs, nil)
	store.EXPECT().CreateCards(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cards []*models.Card) (int, error) {
			require.Len(t, cards, 1)
			require.Equal(t, "3", cards[0].ID)
			require.Equal(t, "common", cards[0].Tier)
			return len(cards), nil
		})

	stats, err := NewCardLoader(pool, store, src).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, stats.Assets)
	require.Equal(t, 5, stats.Loaded)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, stats.Created)
	require.Equal(t, 1, stats.Orphaned)
	require.Equal(t, 1, stats.Frames)

	c := pool.GetCard("lilac")
	require.NotNil(t, c)
	require.Equal(t, "1", c.ID())
	require.EqualValues(t, 7, c.OwnerID())
	require.Equal(t, 4, c.Stars())
	require.Equal(t, "hearts", c.Frame())
	require.Equal(t, traded, c.LastTradeTime())

	// Duplicate tag dropped, card kept.
	c = pool.GetCard("2")
	require.Equal(t, cardpool.TierCommon, c.Tier())
	require.EqualValues(t, 8, c.OwnerID())
	require.Empty(t, c.Tag())

	// Asset tier wins, unknown frame and numeric tag dropped.
	c = pool.GetCard("4")
	require.Equal(t, cardpool.TierRare, c.Tier())
	require.Empty(t, c.Frame())
	require.Empty(t, c.Tag())
	require.False(t, pool.IsAvailable(c))

	// Unowned cards keep no tag and are rollable.
	c = pool.GetCard("5")
	require.Empty(t, c.Tag())
	require.True(t, pool.IsAvailable(c))
	require.Nil(t, pool.GetCard("free"))

	require.Equal(t, 1, pool.AvailableCount(cardpool.TierCommon))
	require.Equal(t, 1, pool.AvailableCount(cardpool.TierRare))
	require.NoError(t, pool.CheckInvariants())
}

func TestCardLoaderListFailure(t *testing.T) {
	pool, err := cardpool.New()
	require.NoError(t, err)
	store := mock.NewMockStore(gomock.NewController(t))
	store.EXPECT().LoadCards(gomock.Any()).Return(nil, nil).AnyTimes()

	_, err = NewCardLoader(pool, store, &fakeSource{listErr: errors.New("bucket gone")}).Load(context.Background())
	require.ErrorContains(t, err, "bucket gone")
	require.Zero(t, pool.Len())
}
