package glyph

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/vector"

	"github.com/gogpu/picogfx/objcache"
)

// Key identifies one rasterized glyph: font instance, glyph index, and
// requested pixel size.
type Key struct {
	FaceID uint64
	GID    GID
	PPEM   uint16
}

// Bitmap is a rasterized glyph coverage mask positioned relative to the
// pen. Left offsets the bitmap right of the pen; Top is the distance from
// the baseline up to the bitmap's first row.
type Bitmap struct {
	GID     GID
	Width   int
	Height  int
	Left    int
	Top     int
	Advance float32
	Cov     []byte // Width*Height bytes of A8 coverage
	// Placeholder marks a substituted fallback box rather than a real
	// glyph.
	Placeholder bool
}

// ByteSize returns the coverage buffer length.
func (b *Bitmap) ByteSize() int { return len(b.Cov) }

// Rasterizer turns glyph outlines into coverage bitmaps, caching results by
// (face, glyph, size). The cache is bounded by glyph count, not bytes;
// capacity 0 disables the bound.
type Rasterizer struct {
	cache  *objcache.Cache[Key, *Bitmap]
	logger *slog.Logger
}

// NewRasterizer creates a rasterizer whose cache holds at most capacity
// glyphs. Pass nil to use a silent logger.
func NewRasterizer(capacity int, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Rasterizer{
		cache:  objcache.New[Key, *Bitmap](int64(capacity)),
		logger: logger,
	}
}

// Rasterize returns a cached or freshly rasterized coverage bitmap for the
// glyph. The returned handle must be released when the caller is done
// compositing. Failures return ErrRasterFailed; callers substitute
// Placeholder instead of aborting the draw pass.
func (r *Rasterizer) Rasterize(face *Face, gid GID, ppem uint16) (*objcache.Handle[Key, *Bitmap], error) {
	key := Key{FaceID: face.id, GID: gid, PPEM: ppem}
	return r.cache.GetOrInsert(key, func() (*Bitmap, int64, error) {
		bm, err := rasterizeOutline(face, gid, ppem)
		if err != nil {
			r.logger.Warn("glyph rasterization failed", "face", face.id, "gid", gid, "ppem", ppem, "err", err)
			return nil, 0, err
		}
		return bm, 1, nil // count-bounded: every glyph costs one slot
	})
}

// Placeholder returns the fallback box substituted for glyphs that fail to
// rasterize: a hollow rectangle proportioned like a typical glyph at the
// given size.
func (r *Rasterizer) Placeholder(ppem uint16) *Bitmap {
	w := int(ppem) * 6 / 10
	h := int(ppem) * 8 / 10
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}
	cov := make([]byte, w*h)
	for x := 0; x < w; x++ {
		cov[x] = 0xFF
		cov[(h-1)*w+x] = 0xFF
	}
	for y := 0; y < h; y++ {
		cov[y*w] = 0xFF
		cov[y*w+w-1] = 0xFF
	}
	return &Bitmap{
		Width:       w,
		Height:      h,
		Left:        int(ppem) / 10,
		Top:         h,
		Advance:     float32(w) + float32(ppem)*0.2,
		Cov:         cov,
		Placeholder: true,
	}
}

// Stats returns glyph cache statistics.
func (r *Rasterizer) Stats() objcache.Stats { return r.cache.Stats() }

// rasterizeOutline scales the glyph outline to ppem and fills it with the
// x/image/vector rasterizer.
func rasterizeOutline(face *Face, gid GID, ppem uint16) (*Bitmap, error) {
	data := face.font.GlyphData(gid)
	outline, ok := data.(font.GlyphOutline)
	if !ok {
		return nil, fmt.Errorf("glyph: gid %d has no outline: %w", gid, ErrRasterFailed)
	}
	advance := face.Advance(gid, ppem)
	scale := float32(ppem) / face.upem

	if len(outline.Segments) == 0 {
		// Whitespace: no coverage, advance only.
		return &Bitmap{GID: gid, Advance: advance}, nil
	}

	// Outline bounds in scaled font space, Y up. Control points bound the
	// curve, so including them is safe.
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	visit := func(p opentype.SegmentPoint) {
		x, y := p.X*scale, p.Y*scale
		minX = math32.Min(minX, x)
		minY = math32.Min(minY, y)
		maxX = math32.Max(maxX, x)
		maxY = math32.Max(maxY, y)
	}
	for _, seg := range outline.Segments {
		for _, p := range seg.Args[:segArgs(seg.Op)] {
			visit(p)
		}
	}

	left := math32.Floor(minX)
	top := math32.Ceil(maxY)
	w := int(math32.Ceil(maxX) - left)
	h := int(top - math32.Floor(minY))
	if w <= 0 || h <= 0 {
		return &Bitmap{GID: gid, Advance: advance}, nil
	}

	// Map scaled font space (Y up) into mask space (Y down, origin at the
	// bitmap's top-left).
	mapX := func(v float32) float32 { return v*scale - left }
	mapY := func(v float32) float32 { return top - v*scale }

	ras := vector.NewRasterizer(w, h)
	ras.DrawOp = draw.Src
	started := false
	for _, seg := range outline.Segments {
		a := seg.Args
		switch seg.Op {
		case opentype.SegmentOpMoveTo:
			// Close the previous contour before starting the next.
			if started {
				ras.ClosePath()
			}
			started = true
			ras.MoveTo(mapX(a[0].X), mapY(a[0].Y))
		case opentype.SegmentOpLineTo:
			ras.LineTo(mapX(a[0].X), mapY(a[0].Y))
		case opentype.SegmentOpQuadTo:
			ras.QuadTo(mapX(a[0].X), mapY(a[0].Y), mapX(a[1].X), mapY(a[1].Y))
		case opentype.SegmentOpCubeTo:
			ras.CubeTo(mapX(a[0].X), mapY(a[0].Y), mapX(a[1].X), mapY(a[1].Y), mapX(a[2].X), mapY(a[2].Y))
		default:
			return nil, fmt.Errorf("glyph: gid %d unknown segment op %d: %w", gid, seg.Op, ErrRasterFailed)
		}
	}
	ras.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	return &Bitmap{
		GID:     gid,
		Width:   w,
		Height:  h,
		Left:    int(left),
		Top:     int(top),
		Advance: advance,
		Cov:     mask.Pix,
	}, nil
}

// segArgs returns how many points of a segment's Args are meaningful.
func segArgs(op opentype.SegmentOp) int {
	switch op {
	case opentype.SegmentOpQuadTo:
		return 2
	case opentype.SegmentOpCubeTo:
		return 3
	default:
		return 1
	}
}
