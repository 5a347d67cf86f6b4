package pipeline

import (
	"errors"
	"image"

	"github.com/gogpu/picogfx/glyph"
	"github.com/gogpu/picogfx/pix"
)

// glyphUnit composites glyph coverage bitmaps. A glyph that fails to
// rasterize is substituted with the placeholder box; the run keeps
// rendering.
type glyphUnit struct{}

// Draw implements Unit.
func (glyphUnit) Draw(ps *Pass, prim Primitive, dst *pix.Pixmap, clip image.Rectangle) error {
	p := prim.(GlyphRun)
	run := p.Run
	if run.Face == nil {
		return errors.New("pipeline: glyph run without face")
	}
	cfg := &ps.p.cfg
	for _, pg := range run.Glyphs {
		penX := p.Origin.X + int(pg.X)
		penY := p.Origin.Y + int(pg.Y)

		h, err := cfg.Glyphs.Rasterize(run.Face, pg.GID, run.PPEM)
		if err != nil {
			// Substitute the fallback box rather than aborting the run.
			cfg.Counters.GlyphFallbacks.Add(1)
			ps.report.Fallbacks++
			blendCoverage(dst, clip, cfg.Glyphs.Placeholder(run.PPEM), penX, penY, p.Color, p.Opa)
			continue
		}
		blendCoverage(dst, clip, h.Value(), penX, penY, p.Color, p.Opa)
		h.Release()
	}
	return nil
}

// blendCoverage composites one coverage bitmap at the pen position.
func blendCoverage(dst *pix.Pixmap, clip image.Rectangle, bm *glyph.Bitmap, penX, penY int, c pix.RGBA8, opa uint8) {
	left := penX + bm.Left
	top := penY - bm.Top
	area := image.Rect(left, top, left+bm.Width, top+bm.Height).Intersect(clip)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		row := bm.Cov[(y-top)*bm.Width:]
		for x := area.Min.X; x < area.Max.X; x++ {
			cov := row[x-left]
			if cov == 0 {
				continue
			}
			dst.BlendPixel(x, y, c, uint8(int(opa)*int(cov)/255))
		}
	}
}
