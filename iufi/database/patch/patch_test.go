package patch_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/iufi-bot/iufi/iufi/database/patch"
)

type record struct {
	Owner int64
	Tag   string
	Cards []string
}

var (
	owner = patch.Field[record, int64]{
		Column: "owner_id",
		Get:    func(r *record) int64 { return r.Owner },
		Set:    func(r *record, v int64) { r.Owner = v },
	}
	tag = patch.Field[record, string]{
		Column: "tag",
		Get:    func(r *record) string { return r.Tag },
		Set:    func(r *record, v string) { r.Tag = v },
	}
	cards = patch.Field[record, []string]{
		Column: "cards",
		JSON:   true,
		Get:    func(r *record) []string { return r.Cards },
		Set:    func(r *record, v []string) { r.Cards = v },
	}
)

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		in   record
		ops  []patch.Op[record]
		want record
	}{
		{
			name: "set and unset",
			in:   record{Owner: 1, Tag: "old"},
			ops:  []patch.Op[record]{patch.Set(owner, int64(2)), patch.Unset(tag)},
			want: record{Owner: 2},
		},
		{
			name: "inc",
			in:   record{Owner: 10},
			ops:  []patch.Op[record]{patch.Inc(owner, int64(-3)), patch.Inc(owner, int64(1))},
			want: record{Owner: 8},
		},
		{
			name: "push and pull",
			in:   record{Cards: []string{"1", "2"}},
			ops:  []patch.Op[record]{patch.Push(cards, "3", "4"), patch.Pull(cards, "2", "4")},
			want: record{Cards: []string{"1", "3"}},
		},
		{
			name: "pull missing",
			in:   record{Cards: []string{"1"}},
			ops:  []patch.Op[record]{patch.Pull(cards, "9")},
			want: record{Cards: []string{"1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			require.NoError(t, patch.Apply(&got, tt.ops...))
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPushRequiresJSONColumn(t *testing.T) {
	plain := cards
	plain.JSON = false
	var r record
	require.Error(t, patch.Apply(&r, patch.Push(plain, "1")))
}

func TestUpdate(t *testing.T) {
	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector()), pgdialect.New())
	defer db.Close()

	q, err := patch.Update(db.NewUpdate().Table("users").Where("id = ?", 7),
		patch.Set(tag, "Gold"),
		patch.Inc(owner, int64(5)),
		patch.Push(cards, "42"),
		patch.Unset(tag),
	)
	require.NoError(t, err)

	query := q.String()
	require.Contains(t, query, `"tag" = 'Gold'`)
	require.Contains(t, query, `"owner_id" = "owner_id" + 5`)
	require.Contains(t, query, `"cards" = COALESCE("cards", '[]'::jsonb) || '["42"]'::jsonb`)
	require.Contains(t, query, `"tag" = NULL`)

	_, err = patch.Update[record](db.NewUpdate().Table("users"))
	require.ErrorIs(t, err, patch.ErrNoOps)
}

func TestDescribe(t *testing.T) {
	got := patch.Describe(patch.Set(owner, int64(3)), patch.Pull(cards, "1"))
	require.Equal(t, "set owner_id=3, pull cards-[1]", got)
}
