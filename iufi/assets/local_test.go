package assets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iufi-bot/iufi/iufi/cardpool"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func TestLocalSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cards", "rare", "00042.png"), "rare42")
	writeFile(t, filepath.Join(root, "cards", "rare", "7.JPG"), "rare7")
	writeFile(t, filepath.Join(root, "cards", "rare", "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, "cards", "rare", "cover.png"), "skip")
	writeFile(t, filepath.Join(root, "frames", "Hearts.png"), "hearts")

	src := NewLocalSource(root, nil)
	ctx := context.Background()

	assets, err := src.ListCards(ctx, cardpool.TierRare)
	require.NoError(t, err)
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		require.Equal(t, cardpool.TierRare, a.Tier)
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	require.Equal(t, []string{"42", "7"}, ids)

	empty, err := src.ListCards(ctx, cardpool.TierCelestial)
	require.NoError(t, err)
	require.Empty(t, empty)

	rc, err := src.OpenCard(ctx, cardpool.TierRare, "42")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "rare42", string(b))

	_, err = src.OpenCard(ctx, cardpool.TierEpic, "42")
	require.ErrorIs(t, err, ErrAssetNotFound)

	frames, err := src.ListFrames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Hearts"}, frames)

	rc, err = src.OpenFrame(ctx, "hearts")
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}

func TestParseCardName(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{name: "001.png", want: "1", ok: true},
		{name: "120.webp", want: "120", ok: true},
		{name: "0.gif", want: "0", ok: true},
		{name: "12a.png", ok: false},
		{name: "12.bmp", ok: false},
		{name: ".png", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCardName(tt.name, DefaultExtensions)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
