package pipeline

import (
	"fmt"
	"image"

	"github.com/gogpu/picogfx/decoder"
	"github.com/gogpu/picogfx/pix"
)

// fillUnit draws solid rectangles.
type fillUnit struct{}

// Draw implements Unit.
func (fillUnit) Draw(ps *Pass, prim Primitive, dst *pix.Pixmap, clip image.Rectangle) error {
	p := prim.(Fill)
	dst.FillRect(p.Rect.Intersect(clip), p.Color, p.Opa)
	return nil
}

// imageUnit blits decoded images, resolving pixels through the image cache
// and the decoder registry.
type imageUnit struct{}

// Draw implements Unit.
func (imageUnit) Draw(ps *Pass, prim Primitive, dst *pix.Pixmap, clip image.Rectangle) error {
	p := prim.(ImageBlit)
	cfg := &ps.p.cfg
	key := ImageKey{ID: p.Src.ID, Tag: p.Src.Tag}
	h, err := cfg.Images.GetOrInsert(key, func() (*decoder.Image, int64, error) {
		img, err := cfg.Registry.Decode(p.Src.Tag, cfg.Arena, p.Src.Data, cfg.DecodeOpts)
		if err != nil {
			return nil, 0, err
		}
		return img, img.ByteSize(), nil
	})
	if err != nil {
		return fmt.Errorf("pipeline: image source %d: %w", p.Src.ID, err)
	}
	// The handle pins the decoded pixels for the duration of the blit.
	defer h.Release()

	img := h.Value()
	src := img.Pixmap()
	area := image.Rect(p.Pos.X, p.Pos.Y, p.Pos.X+img.Width, p.Pos.Y+img.Height).Intersect(clip)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			dst.BlendPixel(x, y, src.GetPixel(x-p.Pos.X, y-p.Pos.Y), p.Opa)
		}
	}
	return nil
}

// lineUnit draws straight segments with integer widths.
type lineUnit struct{}

// Draw implements Unit.
func (lineUnit) Draw(ps *Pass, prim Primitive, dst *pix.Pixmap, clip image.Rectangle) error {
	p := prim.(Line)
	w := p.Width
	if w < 1 {
		w = 1
	}

	// Axis-aligned lines are plain rectangles.
	if p.From.Y == p.To.Y {
		x0, x1 := minMax(p.From.X, p.To.X)
		r := image.Rect(x0, p.From.Y-w/2, x1+1, p.From.Y-w/2+w)
		dst.FillRect(r.Intersect(clip), p.Color, p.Opa)
		return nil
	}
	if p.From.X == p.To.X {
		y0, y1 := minMax(p.From.Y, p.To.Y)
		r := image.Rect(p.From.X-w/2, y0, p.From.X-w/2+w, y1+1)
		dst.FillRect(r.Intersect(clip), p.Color, p.Opa)
		return nil
	}

	// Bresenham walk, stamping a w-sized square at each step.
	x0, y0 := p.From.X, p.From.Y
	x1, y1 := p.To.X, p.To.Y
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		stamp(dst, clip, x0, y0, w, p.Color, p.Opa)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
	return nil
}

// stamp fills the w-sized square centered near (x, y), clipped.
func stamp(dst *pix.Pixmap, clip image.Rectangle, x, y, w int, c pix.RGBA8, opa uint8) {
	if w == 1 {
		if image.Pt(x, y).In(clip) {
			dst.BlendPixel(x, y, c, opa)
		}
		return
	}
	r := image.Rect(x-w/2, y-w/2, x-w/2+w, y-w/2+w).Intersect(clip)
	for yy := r.Min.Y; yy < r.Max.Y; yy++ {
		for xx := r.Min.X; xx < r.Max.X; xx++ {
			dst.BlendPixel(xx, yy, c, opa)
		}
	}
}

func minMax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
