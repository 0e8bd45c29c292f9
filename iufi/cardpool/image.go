package cardpool

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"
)

const (
	CardWidth    = 200
	CardHeight   = 355
	cornerRadius = 12
	gridGap      = 10
)

var starColor = color.RGBA{R: 255, G: 205, B: 60, A: 255}

// ImageSource opens the raw card and frame assets.
type ImageSource interface {
	OpenCard(ctx context.Context, tier Tier, id string) (io.ReadCloser, error)
	OpenFrame(ctx context.Context, frame string) (io.ReadCloser, error)
}

// Renderer composes card images: tier asset scaled to card size, optional frame
// overlay, star pips and rounded corners.
type Renderer struct {
	src ImageSource
	sem *semaphore.Weighted

	mu     sync.RWMutex
	frames map[string]image.Image
}

func NewRenderer(src ImageSource, maxConcurrent int64) *Renderer {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Renderer{
		src:    src,
		sem:    semaphore.NewWeighted(maxConcurrent),
		frames: make(map[string]image.Image),
	}
}

// Render returns the PNG encoding of a card.
func (r *Renderer) Render(ctx context.Context, id string, tier Tier, frame string, stars int) ([]byte, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	base, err := r.decode(ctx, func() (io.ReadCloser, error) { return r.src.OpenCard(ctx, tier, id) })
	if err != nil {
		return nil, &ImageLoadError{CardID: id, Asset: tier.String() + "/" + id, Err: err}
	}

	bounds := image.Rect(0, 0, CardWidth, CardHeight)
	canvas := image.NewRGBA(bounds)
	xdraw.CatmullRom.Scale(canvas, bounds, base, base.Bounds(), xdraw.Src, nil)

	if frame != "" {
		overlay, err := r.frame(ctx, frame)
		if err != nil {
			return nil, &ImageLoadError{CardID: id, Asset: "frames/" + frame, Err: err}
		}
		draw.Draw(canvas, bounds, overlay, image.Point{}, draw.Over)
	}
	drawStars(canvas, stars)

	out := image.NewRGBA(bounds)
	draw.DrawMask(out, bounds, canvas, image.Point{}, roundedMask{bounds: bounds, radius: cornerRadius}, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode card %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

// frame returns a frame overlay already scaled to card size.
func (r *Renderer) frame(ctx context.Context, name string) (image.Image, error) {
	r.mu.RLock()
	img, ok := r.frames[name]
	r.mu.RUnlock()
	if ok {
		return img, nil
	}

	src, err := r.decode(ctx, func() (io.ReadCloser, error) { return r.src.OpenFrame(ctx, name) })
	if err != nil {
		return nil, err
	}
	scaled := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	r.mu.Lock()
	r.frames[name] = scaled
	r.mu.Unlock()
	return scaled, nil
}

// ForgetFrames drops cached frame overlays.
func (r *Renderer) ForgetFrames() {
	r.mu.Lock()
	r.frames = make(map[string]image.Image)
	r.mu.Unlock()
}

func (r *Renderer) decode(ctx context.Context, open func() (io.ReadCloser, error)) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ComposeGrid lays already rendered card PNGs out side by side.
func ComposeGrid(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to compose")
	}
	width := len(images)*CardWidth + (len(images)-1)*gridGap
	out := image.NewRGBA(image.Rect(0, 0, width, CardHeight))
	for i, b := range images {
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image %d: %w", i, err)
		}
		x := i * (CardWidth + gridGap)
		dst := image.Rect(x, 0, x+CardWidth, CardHeight)
		draw.Draw(out, dst, img, img.Bounds().Min, draw.Over)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawStars(dst draw.Image, stars int) {
	stars = clampStars(stars)
	const size, gap = 12, 6
	total := stars*size + (stars-1)*gap
	x := (CardWidth - total) / 2
	y := CardHeight - size - 10
	fill := image.NewUniform(starColor)
	for i := 0; i < stars; i++ {
		r := image.Rect(x, y, x+size, y+size)
		draw.Draw(dst, r, fill, image.Point{}, draw.Over)
		x += size + gap
	}
}

type roundedMask struct {
	bounds image.Rectangle
	radius int
}

func (m roundedMask) ColorModel() color.Model { return color.AlphaModel }

func (m roundedMask) Bounds() image.Rectangle { return m.bounds }

func (m roundedMask) At(x, y int) color.Color {
	b, r := m.bounds, m.radius
	var cx, cy int
	switch {
	case x < b.Min.X+r && y < b.Min.Y+r:
		cx, cy = b.Min.X+r, b.Min.Y+r
	case x >= b.Max.X-r && y < b.Min.Y+r:
		cx, cy = b.Max.X-r-1, b.Min.Y+r
	case x < b.Min.X+r && y >= b.Max.Y-r:
		cx, cy = b.Min.X+r, b.Max.Y-r-1
	case x >= b.Max.X-r && y >= b.Max.Y-r:
		cx, cy = b.Max.X-r-1, b.Max.Y-r-1
	default:
		return color.Alpha{A: 255}
	}
	dx, dy := x-cx, y-cy
	if dx*dx+dy*dy > r*r {
		return color.Alpha{}
	}
	return color.Alpha{A: 255}
}
