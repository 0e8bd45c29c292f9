package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iufi-bot/iufi/iufi/database/models"
)

func TestConvertCard(t *testing.T) {
	tests := []struct {
		name    string
		in      LegacyCard
		want    *models.Card
		wantErr bool
	}{
		{
			name: "owned",
			in:   LegacyCard{ID: "0042", Tier: "Rare", OwnerID: int64(99), Tag: "Lilac!", Frame: "hearts", Stars: 4, LastTradeTime: 1700000000},
			want: &models.Card{ID: "42", Tier: "rare", OwnerID: 99, Tag: "Lilac", Frame: "hearts", Stars: 4, LastTradeTime: time.Unix(1700000000, 0).UTC()},
		},
		{
			name: "unowned drops decoration",
			in:   LegacyCard{ID: "7", Tier: "common", Tag: "x", Frame: "hearts", Stars: 0},
			want: &models.Card{ID: "7", Tier: "common", Stars: 1},
		},
		{
			name: "string owner and numeric tag",
			in:   LegacyCard{ID: "8", Tier: "epic", OwnerID: "123", Tag: "555", Stars: 42},
			want: &models.Card{ID: "8", Tier: "epic", OwnerID: 123, Stars: 10},
		},
		{name: "unknown tier", in: LegacyCard{ID: "9", Tier: "shiny"}, wantErr: true},
		{name: "bad owner", in: LegacyCard{ID: "9", Tier: "rare", OwnerID: "abc"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertCard(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestConvertUser(t *testing.T) {
	lu := LegacyUser{ID: float64(12345), Cards: []string{"001", "1", "", "20"}, Candies: -4, Exp: 10}
	lu.Cooldown.Roll = 1700000000.5

	u, err := convertUser(lu)
	require.NoError(t, err)
	require.Equal(t, int64(12345), u.ID)
	require.Equal(t, []string{"1", "20"}, u.Cards)
	require.Zero(t, u.Candies)
	require.Equal(t, int64(10), u.Exp)
	require.Equal(t, time.Unix(1700000000, 500000000).UTC(), u.RollCooldown)
	require.True(t, u.ClaimCooldown.IsZero())

	_, err = convertUser(LegacyUser{})
	require.Error(t, err)
}

func TestTagDeduper(t *testing.T) {
	d := newTagDeduper()
	a := &models.Card{ID: "1", Tag: "Lilac"}
	b := &models.Card{ID: "2", Tag: "LILAC"}
	c := &models.Card{ID: "3"}
	d.apply(a)
	d.apply(b)
	d.apply(c)
	require.Equal(t, "Lilac", a.Tag)
	require.Empty(t, b.Tag)
	require.Empty(t, c.Tag)
}
