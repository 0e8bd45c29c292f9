package claim

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/iufi-bot/iufi/iufi/interfaces/mock"
)

const (
	roller snowflake.ID = 100
	other  snowflake.ID = 200
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testPool(t *testing.T, n int) *cardpool.Pool {
	t.Helper()
	p, err := cardpool.New(cardpool.WithRand(rand.New(rand.NewPCG(9, 9))))
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		_, err := p.AddCard(strconv.Itoa(i), cardpool.TierCommon)
		require.NoError(t, err)
	}
	return p
}

func testManager(t *testing.T, pool *cardpool.Pool, store *mock.MockStore) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC)}
	m := NewManager(pool, store, DefaultConfig(), WithClock(clock.Now))
	return m, clock
}

// expectClaim accepts one successful claim of cardID by user and checks the
// persisted patches.
func expectClaim(t *testing.T, store *mock.MockStore, cardID string, user snowflake.ID) {
	store.EXPECT().GetUser(gomock.Any(), user).Return(&models.User{ID: int64(user)}, nil)
	store.EXPECT().
		UpdateCards(gomock.Any(), []string{cardID}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, ops ...patch.Op[models.Card]) error {
			doc := models.Card{ID: cardID, Tag: "stale"}
			require.NoError(t, patch.Apply(&doc, ops...))
			require.Equal(t, int64(user), doc.OwnerID)
			require.Empty(t, doc.Tag)
			return nil
		})
	store.EXPECT().
		UpdateUser(gomock.Any(), user, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ snowflake.ID, ops ...patch.Op[models.User]) (*models.User, error) {
			doc := models.User{ID: int64(user)}
			require.NoError(t, patch.Apply(&doc, ops...))
			require.Equal(t, []string{cardID}, doc.Cards)
			require.False(t, doc.ClaimCooldown.IsZero())
			return &doc, nil
		})
}

func TestClaimFlow(t *testing.T) {
	pool := testPool(t, 3)
	store := mock.NewMockStore(gomock.NewController(t))
	m, clock := testManager(t, pool, store)

	s := m.Open(roller, []string{"1", "2", "3"})

	// Others must wait for the priority window.
	res, err := m.Claim(context.Background(), s.ID, 0, other)
	require.NoError(t, err)
	require.Equal(t, StatusPriority, res.Status)
	require.Equal(t, DefaultConfig().PriorityWindow, res.Remaining)

	expectClaim(t, store, "1", roller)
	res, err = m.Claim(context.Background(), s.ID, 0, roller)
	require.NoError(t, err)
	require.Equal(t, StatusClaimed, res.Status)
	require.Equal(t, "1", res.Card.ID())
	require.Equal(t, roller, pool.GetCard("1").OwnerID())

	res, err = m.Claim(context.Background(), s.ID, 1, roller)
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyClaimed, res.Status)

	clock.Advance(DefaultConfig().PriorityWindow)
	res, err = m.Claim(context.Background(), s.ID, 0, other)
	require.NoError(t, err)
	require.Equal(t, StatusTaken, res.Status)
	require.Equal(t, roller, res.Winner)

	expectClaim(t, store, "2", other)
	res, err = m.Claim(context.Background(), s.ID, 1, other)
	require.NoError(t, err)
	require.Equal(t, StatusClaimed, res.Status)

	require.Equal(t, []Slot{{"1", roller}, {"2", other}, {"3", 0}}, s.Slots())
	require.False(t, s.Done())

	_, err = m.Claim(context.Background(), s.ID, 7, 300)
	require.ErrorIs(t, err, ErrInvalidSlot)

	clock.Advance(DefaultConfig().Window)
	res, err = m.Claim(context.Background(), s.ID, 2, 300)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, res.Status)
	require.NoError(t, pool.CheckInvariants())
}

func TestClaimExpiredSession(t *testing.T) {
	pool := testPool(t, 1)
	store := mock.NewMockStore(gomock.NewController(t))
	m, _ := testManager(t, pool, store)

	s := m.Open(roller, []string{"1"})
	got, ok := m.Expire(s.ID)
	require.True(t, ok)
	require.True(t, got.Expired())
	_, ok = m.Expire(s.ID)
	require.False(t, ok)

	res, err := m.Claim(context.Background(), s.ID, 0, roller)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, res.Status)
	require.False(t, pool.GetCard("1").Owned())
}

func TestClaimCooldown(t *testing.T) {
	pool := testPool(t, 1)
	store := mock.NewMockStore(gomock.NewController(t))
	m, clock := testManager(t, pool, store)

	store.EXPECT().GetUser(gomock.Any(), roller).
		Return(&models.User{ClaimCooldown: clock.Now().Add(time.Minute)}, nil)

	s := m.Open(roller, []string{"1"})
	res, err := m.Claim(context.Background(), s.ID, 0, roller)
	require.NoError(t, err)
	require.Equal(t, StatusCooldown, res.Status)
	require.Equal(t, time.Minute, res.Remaining)
	require.False(t, pool.GetCard("1").Owned())
}

func TestClaimRollsBackOnPersistenceFailure(t *testing.T) {
	tests := []struct {
		name   string
		expect func(store *mock.MockStore)
	}{
		{
			name: "card update fails",
			expect: func(store *mock.MockStore) {
				store.EXPECT().UpdateCards(gomock.Any(), []string{"1"}, gomock.Any()).Return(errors.New("db down"))
			},
		},
		{
			name: "user update fails",
			expect: func(store *mock.MockStore) {
				gomock.InOrder(
					store.EXPECT().UpdateCards(gomock.Any(), []string{"1"}, gomock.Any()).Return(nil),
					store.EXPECT().UpdateUser(gomock.Any(), roller, gomock.Any()).Return(nil, errors.New("db down")),
					store.EXPECT().UpdateCards(gomock.Any(), []string{"1"}, gomock.Any()).Return(nil),
				)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := testPool(t, 1)
			store := mock.NewMockStore(gomock.NewController(t))
			m, _ := testManager(t, pool, store)
			store.EXPECT().GetUser(gomock.Any(), roller).Return(&models.User{}, nil)
			tt.expect(store)

			s := m.Open(roller, []string{"1"})
			_, err := m.Claim(context.Background(), s.ID, 0, roller)
			require.Error(t, err)

			c := pool.GetCard("1")
			require.False(t, c.Owned())
			require.True(t, pool.IsAvailable(c))
			require.Equal(t, []Slot{{"1", 0}}, s.Slots())
			require.NoError(t, pool.CheckInvariants())
		})
	}
}

func TestConcurrentClaimsOneWinner(t *testing.T) {
	pool := testPool(t, 3)
	store := mock.NewMockStore(gomock.NewController(t))
	m, clock := testManager(t, pool, store)

	store.EXPECT().GetUser(gomock.Any(), gomock.Any()).Return(&models.User{}, nil).AnyTimes()
	store.EXPECT().UpdateCards(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store.EXPECT().UpdateUser(gomock.Any(), gomock.Any(), gomock.Any()).Return(&models.User{}, nil).AnyTimes()

	s := m.Open(roller, []string{"1", "2", "3"})
	clock.Advance(DefaultConfig().PriorityWindow)

	const claimants = 20
	results := make([]Result, claimants)
	errs := make([]error, claimants)
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Claim(context.Background(), s.ID, 1, snowflake.ID(1000+i))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	winners := 0
	var winner snowflake.ID
	for i, res := range results {
		if res.Status == StatusClaimed {
			winners++
			winner = snowflake.ID(1000 + i)
		}
	}
	require.Equal(t, 1, winners)
	for _, res := range results {
		if res.Status == StatusTaken {
			require.Equal(t, winner, res.Winner)
		}
	}
	require.Equal(t, winner, pool.GetCard("2").OwnerID())
}

func TestClaimSameUserAcrossSessions(t *testing.T) {
	pool := testPool(t, 2)
	store := mock.NewMockStore(gomock.NewController(t))
	m, clock := testManager(t, pool, store)

	first := m.Open(other, []string{"1"})
	second := m.Open(other, []string{"2"})
	clock.Advance(DefaultConfig().PriorityWindow)

	entered := make(chan struct{})
	proceed := make(chan struct{})
	gomock.InOrder(
		store.EXPECT().GetUser(gomock.Any(), roller).
			DoAndReturn(func(context.Context, snowflake.ID) (*models.User, error) {
				close(entered)
				<-proceed
				return &models.User{ID: int64(roller)}, nil
			}),
		store.EXPECT().UpdateCards(gomock.Any(), []string{"1"}, gomock.Any()).Return(nil),
		store.EXPECT().UpdateUser(gomock.Any(), roller, gomock.Any()).Return(&models.User{}, nil),
		store.EXPECT().GetUser(gomock.Any(), roller).
			Return(&models.User{ID: int64(roller), ClaimCooldown: clock.Now().Add(DefaultConfig().ClaimCooldown)}, nil),
	)

	done := make(chan Result, 1)
	go func() {
		res, err := m.Claim(context.Background(), first.ID, 0, roller)
		require.NoError(t, err)
		done <- res
	}()
	<-entered

	// The first claim has read the cooldown but not stored the new one yet.
	res, err := m.Claim(context.Background(), second.ID, 0, roller)
	require.NoError(t, err)
	require.Equal(t, StatusBusy, res.Status)
	require.True(t, pool.IsAvailable(pool.GetCard("2")))

	close(proceed)
	require.Equal(t, StatusClaimed, (<-done).Status)
	require.False(t, m.IsBusy(roller))

	res, err = m.Claim(context.Background(), second.ID, 0, roller)
	require.NoError(t, err)
	require.Equal(t, StatusCooldown, res.Status)
	require.Len(t, pool.CardsOwnedBy(roller), 1)
}

func TestClaimCardWonElsewhere(t *testing.T) {
	pool := testPool(t, 1)
	store := mock.NewMockStore(gomock.NewController(t))
	m, _ := testManager(t, pool, store)
	store.EXPECT().GetUser(gomock.Any(), roller).Return(&models.User{}, nil)

	first := m.Open(other, []string{"1"})
	second := m.Open(roller, []string{"1"})
	_, err := pool.Claim("1", other)
	require.NoError(t, err)

	res, err := m.Claim(context.Background(), second.ID, 0, roller)
	require.NoError(t, err)
	require.Equal(t, StatusTaken, res.Status)
	require.Equal(t, other, res.Winner)
	require.NotEqual(t, first.ID, second.ID)
}

func TestRoll(t *testing.T) {
	pool := testPool(t, 5)
	store := mock.NewMockStore(gomock.NewController(t))
	m, clock := testManager(t, pool, store)

	store.EXPECT().GetUser(gomock.Any(), roller).Return(&models.User{}, nil)
	store.EXPECT().UpdateUser(gomock.Any(), roller, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ snowflake.ID, ops ...patch.Op[models.User]) (*models.User, error) {
			var doc models.User
			require.NoError(t, patch.Apply(&doc, ops...))
			require.Equal(t, clock.Now().Add(DefaultConfig().RollCooldown), doc.RollCooldown)
			return &doc, nil
		})

	s, err := m.Roll(context.Background(), roller, nil)
	require.NoError(t, err)
	require.Len(t, s.CardIDs, cardpool.DefaultRollAmount)
	require.False(t, m.IsBusy(roller))
	got, ok := m.Session(s.ID)
	require.True(t, ok)
	require.Same(t, s, got)

	store.EXPECT().GetUser(gomock.Any(), roller).
		Return(&models.User{RollCooldown: clock.Now().Add(time.Minute)}, nil)
	_, err = m.Roll(context.Background(), roller, nil)
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	require.Equal(t, time.Minute, cd.Remaining)

	require.True(t, m.LockUser(other))
	_, err = m.Roll(context.Background(), other, nil)
	require.ErrorIs(t, err, ErrUserBusy)
	m.ReleaseUser(other)
}

func TestRollTierExhausted(t *testing.T) {
	pool := testPool(t, 3)
	store := mock.NewMockStore(gomock.NewController(t))
	m, _ := testManager(t, pool, store)
	store.EXPECT().GetUser(gomock.Any(), roller).Return(&models.User{}, nil)

	tier := cardpool.TierCelestial
	_, err := m.Roll(context.Background(), roller, &tier)
	require.ErrorIs(t, err, cardpool.ErrTierExhausted)
}

func TestCleanupExpired(t *testing.T) {
	pool := testPool(t, 1)
	store := mock.NewMockStore(gomock.NewController(t))
	m, clock := testManager(t, pool, store)

	s := m.Open(roller, []string{"1"})
	require.True(t, m.LockUser(other))
	clock.Advance(DefaultConfig().Window + time.Second)
	m.cleanupExpired()

	_, ok := m.Session(s.ID)
	require.False(t, ok)
	require.True(t, s.Expired())
	require.False(t, m.IsBusy(other))
}
