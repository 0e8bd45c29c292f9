package cardpool

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
)

// newTestPool builds a seeded pool with n unowned cards per tier. Ids are
// sequential starting at 1, common cards first.
func newTestPool(t *testing.T, n int, opts ...Option) *Pool {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	p, err := New(opts...)
	require.NoError(t, err)

	id := 1
	for _, tier := range Tiers() {
		for i := 0; i < n; i++ {
			_, err := p.AddCard(strconv.Itoa(id), tier)
			require.NoError(t, err)
			id++
		}
	}
	require.NoError(t, p.CheckInvariants())
	return p
}

func TestAddCard(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	c, err := p.AddCard("0042", TierRare)
	require.NoError(t, err)
	require.Equal(t, "42", c.ID())
	require.True(t, p.IsAvailable(c))
	require.Equal(t, 1, p.AvailableCount(TierRare))

	_, err = p.AddCard("42", TierEpic)
	require.ErrorIs(t, err, ErrDuplicatedCard)
	require.Equal(t, 1, p.Len())

	owned, err := p.AddCard("43", TierRare, WithOwner(7), WithTag("Best"), WithStars(15))
	require.NoError(t, err)
	require.False(t, p.IsAvailable(owned))
	require.Equal(t, MaxStars, owned.Stars())
	require.Same(t, owned, p.GetCard("best"))

	_, err = p.AddCard("44", TierRare, WithOwner(8), WithTag("BEST"))
	require.ErrorIs(t, err, ErrDuplicatedTag)
	require.Nil(t, p.GetCard("44"))

	_, err = p.AddCard("45", Tier(99))
	require.ErrorIs(t, err, ErrUnknownTier)

	require.NoError(t, p.CheckInvariants())
}

func TestGetCard(t *testing.T) {
	p := newTestPool(t, 2)
	c := p.GetCard("3")
	require.NotNil(t, c)

	require.Same(t, c, p.GetCard("003"))
	require.Same(t, c, p.GetCard(" 3 "))
	require.Nil(t, p.GetCard("999"))
	require.Nil(t, p.GetCard(""))

	c2 := p.GetCard("4")
	p.ChangeOwner(c2, 1)
	tag, err := p.AddTag(c2, "Jieun")
	require.NoError(t, err)
	require.Equal(t, "Jieun", tag)
	require.Same(t, c2, p.GetCard("JIEUN"))
	require.Same(t, p.GetCard(c2.ID()), p.GetCard(c2.Tag()))
}

func TestNumericTagRejected(t *testing.T) {
	p := newTestPool(t, 1)
	c := p.GetCard("1")
	_, err := p.AddTag(c, "0002")
	require.ErrorIs(t, err, ErrInvalidTag)
	_, err = p.AddTag(c, "!!!")
	require.ErrorIs(t, err, ErrInvalidTag)
	require.Empty(t, c.Tag())
}

func TestTagCollision(t *testing.T) {
	p := newTestPool(t, 2)
	a, b := p.GetCard("1"), p.GetCard("2")
	p.ChangeOwner(a, 100)
	p.ChangeOwner(b, 200)

	_, err := p.AddTag(a, "BEST")
	require.NoError(t, err)

	_, err = p.AddTag(b, "best")
	require.ErrorIs(t, err, ErrDuplicatedTag)
	require.Empty(t, b.Tag())

	_, err = p.AddTag(b, "mine")
	require.NoError(t, err)
	_, err = p.ChangeTag(b, "Best")
	require.ErrorIs(t, err, ErrDuplicatedTag)
	require.Equal(t, "mine", b.Tag())
	require.Same(t, b, p.GetCard("MINE"))

	_, err = p.AddTag(a, "other")
	require.ErrorIs(t, err, ErrAlreadyTagged)

	// Changing the case of your own tag is allowed.
	tag, err := p.ChangeTag(a, "Best")
	require.NoError(t, err)
	require.Equal(t, "Best", tag)

	tag, err = p.ChangeTag(a, "Gold!!")
	require.NoError(t, err)
	require.Equal(t, "Gold", tag)
	require.Nil(t, p.GetCard("best"))

	require.True(t, p.RemoveTag(a))
	require.False(t, p.RemoveTag(a))
	require.Nil(t, p.GetCard("gold"))
	require.NoError(t, p.CheckInvariants())
}

func TestChangeOwnerIdempotent(t *testing.T) {
	p := newTestPool(t, 1)
	p.RegisterFrame("hearts")
	c := p.GetCard("2")

	require.True(t, p.ChangeOwner(c, 5))
	_, err := p.AddTag(c, "mine")
	require.NoError(t, err)
	_, err = p.SetFrame(c, "HEARTS")
	require.NoError(t, err)

	require.False(t, p.ChangeOwner(c, 5))
	require.Equal(t, "mine", c.Tag())
	require.Equal(t, "hearts", c.Frame())

	require.True(t, p.ChangeOwner(c, 6, KeepFrame()))
	require.Empty(t, c.Tag())
	require.Equal(t, "hearts", c.Frame())
	require.Nil(t, p.GetCard("mine"))
	require.NoError(t, p.CheckInvariants())
}

func TestClaimAndRelease(t *testing.T) {
	p := newTestPool(t, 1)
	p.RegisterFrame("stars")
	c := p.GetCard("3")
	tier := c.Tier()

	got, err := p.Claim("003", 11)
	require.NoError(t, err)
	require.Same(t, c, got)
	require.Equal(t, snowflake.ID(11), c.OwnerID())
	require.Equal(t, 0, p.AvailableCount(tier))

	_, err = p.Claim("3", 12)
	var claimed *ClaimedError
	require.ErrorAs(t, err, &claimed)
	require.Equal(t, snowflake.ID(11), claimed.Owner)
	require.True(t, errors.Is(err, ErrAlreadyClaimed))

	_, err = p.Claim("404", 12)
	require.ErrorIs(t, err, ErrCardNotFound)

	require.NoError(t, p.Transfer(c, 11, 12, time.Now()))
	_, err = p.AddTag(c, "keep")
	require.NoError(t, err)
	_, err = p.SetFrame(c, "stars")
	require.NoError(t, err)
	p.SetStars(c, 8)

	require.NoError(t, p.ReleaseFrom(12, c))
	require.ErrorIs(t, p.ReleaseFrom(12, c), ErrNotOwner)
	s := c.Snapshot()
	require.Zero(t, s.OwnerID)
	require.Empty(t, s.Tag)
	require.Empty(t, s.Frame)
	require.Equal(t, DefaultStars, s.Stars)
	require.True(t, s.LastTradeTime.IsZero())
	require.True(t, p.IsAvailable(c))
	require.Equal(t, 1, p.AvailableCount(tier))
	require.Nil(t, p.GetCard("keep"))
	require.NoError(t, p.CheckInvariants())
}

func TestAvailableIndexGuards(t *testing.T) {
	p := newTestPool(t, 1)
	c := p.GetCard("1")

	require.ErrorIs(t, p.RemoveAvailableCard(c), ErrNotOwned)
	require.NoError(t, p.AddAvailableCard(c))
	require.Equal(t, 1, p.AvailableCount(TierCommon))

	p.ChangeOwner(c, 9)
	require.ErrorIs(t, p.AddAvailableCard(c), ErrAlreadyClaimed)
	require.NoError(t, p.RemoveAvailableCard(c))
	require.NoError(t, p.CheckInvariants())
}

func TestRestore(t *testing.T) {
	p := newTestPool(t, 1)
	p.RegisterFrame("lace")
	c := p.GetCard("4")
	p.ChangeOwner(c, 3)
	_, err := p.AddTag(c, "Lily")
	require.NoError(t, err)
	_, err = p.SetFrame(c, "lace")
	require.NoError(t, err)
	p.SetStars(c, 6)
	before := c.Snapshot()

	require.NoError(t, p.ReleaseFrom(3, c))
	require.NoError(t, p.Restore(before))
	require.Equal(t, before, c.Snapshot())
	require.Same(t, c, p.GetCard("lily"))
	require.False(t, p.IsAvailable(c))

	other := p.GetCard("5")
	p.ChangeOwner(other, 4)
	_, err = p.AddTag(other, "Rose")
	require.NoError(t, err)
	snap := c.Snapshot()
	snap.Tag = "rose"
	require.ErrorIs(t, p.Restore(snap), ErrDuplicatedTag)
	require.NoError(t, p.CheckInvariants())
}

func TestSetFrameAndStars(t *testing.T) {
	p := newTestPool(t, 1)
	c := p.GetCard("1")

	_, err := p.SetFrame(c, "missing")
	require.ErrorIs(t, err, ErrUnknownFrame)

	p.RegisterFrame("Cat")
	name, err := p.SetFrame(c, "cat")
	require.NoError(t, err)
	require.Equal(t, "Cat", name)
	require.Equal(t, []string{"Cat"}, p.Frames())

	name, err = p.SetFrame(c, "")
	require.NoError(t, err)
	require.Empty(t, name)
	require.Empty(t, c.Frame())

	require.Equal(t, MaxStars, p.SetStars(c, 11))
	require.Equal(t, MinStars, p.SetStars(c, -3))
}

func TestCardsOwnedBy(t *testing.T) {
	p := newTestPool(t, 4)
	for _, id := range []string{"10", "2", "7"} {
		_, err := p.Claim(id, 77)
		require.NoError(t, err)
	}
	var ids []string
	for _, c := range p.CardsOwnedBy(77) {
		ids = append(ids, c.ID())
	}
	require.Equal(t, []string{"2", "7", "10"}, ids)
	require.Nil(t, p.CardsOwnedBy(0))
	require.Len(t, p.Cards(), 24)
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	p := newTestPool(t, 1)
	c := p.GetCard("6")

	const claimants = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []snowflake.ID
		losers  int
	)
	start := make(chan struct{})
	for i := 1; i <= claimants; i++ {
		wg.Add(1)
		go func(user snowflake.ID) {
			defer wg.Done()
			<-start
			_, err := p.Claim(c.ID(), user)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, user)
				return
			}
			if errors.Is(err, ErrAlreadyClaimed) {
				losers++
			}
		}(snowflake.ID(i))
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	require.Equal(t, claimants-1, losers)
	require.Equal(t, winners[0], c.OwnerID())
	require.False(t, p.IsAvailable(c))
	require.NoError(t, p.CheckInvariants())
}

func TestSuggestTags(t *testing.T) {
	p := newTestPool(t, 1)
	for id, tag := range map[string]string{"1": "Palette", "2": "Lilac", "3": "Celebrity"} {
		c := p.GetCard(id)
		p.ChangeOwner(c, 1)
		_, err := p.AddTag(c, tag)
		require.NoError(t, err)
	}

	got := p.SuggestTags("plt", 3)
	require.NotEmpty(t, got)
	require.Equal(t, "Palette", got[0])
	require.Nil(t, p.SuggestTags("", 3))
	require.Empty(t, p.SuggestTags("zzz", 3))
}

func TestWithPrices(t *testing.T) {
	p := newTestPool(t, 1, WithPrices(map[Tier]int64{TierRare: 25, TierEpic: -1, Tier(42): 9}))
	require.Equal(t, int64(25), p.Price(TierRare))
	require.Equal(t, TierEpic.Price(), p.Price(TierEpic))
	require.Equal(t, TierCommon.Price(), p.Price(TierCommon))
}

func TestReleaseFrom(t *testing.T) {
	p := newTestPool(t, 2)
	a, b := p.GetCard("1"), p.GetCard("2")
	p.ChangeOwner(a, 11)
	p.ChangeOwner(b, 22)
	p.SetStars(a, 4)

	err := p.ReleaseFrom(11, a, b)
	require.ErrorIs(t, err, ErrNotOwner)
	require.Equal(t, snowflake.ID(11), a.OwnerID())
	require.Equal(t, 4, a.Stars())
	require.Equal(t, snowflake.ID(22), b.OwnerID())

	require.NoError(t, p.ReleaseFrom(11, a))
	require.True(t, p.IsAvailable(a))
	require.Equal(t, DefaultStars, a.Stars())

	// A second release by the former owner must not succeed.
	require.ErrorIs(t, p.ReleaseFrom(11, a), ErrNotOwner)
	require.NoError(t, p.CheckInvariants())
}

func TestTransfer(t *testing.T) {
	p := newTestPool(t, 1)
	p.RegisterFrame("lace")
	c := p.GetCard("3")
	p.ChangeOwner(c, 11)
	_, err := p.AddTag(c, "Mine")
	require.NoError(t, err)
	_, err = p.SetFrame(c, "lace")
	require.NoError(t, err)

	at := time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC)
	require.ErrorIs(t, p.Transfer(c, 22, 33, at), ErrNotOwner)
	require.ErrorIs(t, p.Transfer(c, 11, 11, at), ErrNotOwner)
	require.Equal(t, snowflake.ID(11), c.OwnerID())
	require.Equal(t, "Mine", c.Tag())

	require.NoError(t, p.Transfer(c, 11, 22, at))
	require.Equal(t, snowflake.ID(22), c.OwnerID())
	require.Empty(t, c.Tag())
	require.Empty(t, c.Frame())
	require.Equal(t, at, c.LastTradeTime())
	require.Nil(t, p.GetCard("mine"))

	require.ErrorIs(t, p.Transfer(c, 11, 33, at), ErrNotOwner)
	require.NoError(t, p.CheckInvariants())
}

func TestSetOwnedStars(t *testing.T) {
	p := newTestPool(t, 1)
	c := p.GetCard("1")
	_, err := p.SetOwnedStars(c, 11, 5)
	require.ErrorIs(t, err, ErrNotOwner)

	p.ChangeOwner(c, 11)
	stars, err := p.SetOwnedStars(c, 11, 12)
	require.NoError(t, err)
	require.Equal(t, MaxStars, stars)
	require.Equal(t, MaxStars, c.Stars())
}
