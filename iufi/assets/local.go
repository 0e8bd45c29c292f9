package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iufi-bot/iufi/iufi/cardpool"
)

// LocalSource reads assets from a directory laid out as
//
//	<root>/cards/<tier>/<id>.<ext>
//	<root>/frames/<name>.<ext>
type LocalSource struct {
	root string
	exts []string
	keys *keyCache
}

func NewLocalSource(root string, exts []string) *LocalSource {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return &LocalSource{root: root, exts: exts, keys: newKeyCache()}
}

func (s *LocalSource) ListCards(ctx context.Context, tier cardpool.Tier) ([]Asset, error) {
	dir := filepath.Join(s.root, "cards", tier.String())
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Tier has no asset directory",
			slog.String("type", "sys"),
			slog.String("tier", tier.String()),
			slog.String("dir", dir),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	assets := make([]Asset, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		id, ok := parseCardName(e.Name(), s.exts)
		if !ok {
			slog.Debug("Skipping non card file", slog.String("type", "sys"), slog.String("file", e.Name()))
			continue
		}
		a := Asset{ID: id, Tier: tier, Key: filepath.Join(dir, e.Name())}
		s.keys.putCard(a)
		assets = append(assets, a)
	}
	return assets, nil
}

func (s *LocalSource) ListFrames(ctx context.Context) ([]string, error) {
	dir := filepath.Join(s.root, "frames")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := trimExt(e.Name(), s.exts)
		if !ok || name == "" {
			continue
		}
		s.keys.putFrame(name, filepath.Join(dir, e.Name()))
		names = append(names, name)
	}
	return names, nil
}

func (s *LocalSource) OpenCard(ctx context.Context, tier cardpool.Tier, id string) (io.ReadCloser, error) {
	key, ok := s.keys.card(tier, id)
	if !ok {
		return nil, notFound(cardKey(tier, id))
	}
	return openFile(ctx, key)
}

func (s *LocalSource) OpenFrame(ctx context.Context, frame string) (io.ReadCloser, error) {
	key, ok := s.keys.frame(frame)
	if !ok {
		return nil, notFound("frames/" + frame)
	}
	return openFile(ctx, key)
}

func openFile(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	return f, err
}
