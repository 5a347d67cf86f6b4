package pipeline

import (
	"errors"
	"fmt"
	"io"
	"image"
	"log/slog"

	"github.com/gogpu/picogfx/arena"
	"github.com/gogpu/picogfx/decoder"
	"github.com/gogpu/picogfx/glyph"
	"github.com/gogpu/picogfx/objcache"
	"github.com/gogpu/picogfx/pix"
)

// ImageKey identifies a decoded image in the image cache: the stable asset
// identifier plus the encoded format tag.
type ImageKey struct {
	ID  uint64
	Tag decoder.FormatTag
}

// Unit rasterizes one primitive kind. Units are independently pluggable so
// that disabled features degrade to a skipped primitive instead of a failed
// pass.
type Unit interface {
	Draw(ps *Pass, prim Primitive, dst *pix.Pixmap, clip image.Rectangle) error
}

// unitKey dispatches a primitive to the unit registered for its kind on
// the target's pixel format.
type unitKey struct {
	kind   Kind
	format pix.PixelFormat
}

// Config wires the pipeline to the engine's shared resources.
type Config struct {
	// Arena supplies draw buffers for layer composition.
	Arena *arena.Arena

	// Registry decodes image sources on cache miss.
	Registry *decoder.Registry

	// Images caches decoded images. The cache owns the images; the
	// pipeline holds handles only for the duration of a blit.
	Images *objcache.Cache[ImageKey, *decoder.Image]

	// Glyphs rasterizes and caches glyph coverage bitmaps.
	Glyphs *glyph.Rasterizer

	// Counters receives diagnostic increments. Must not be nil.
	Counters *Counters

	// GeometryCap bounds the quarter-circle table cache by entry count.
	GeometryCap int

	// DecodeOpts applies to every decode issued by the image unit.
	DecodeOpts decoder.Options

	// LayerBufLimit caps the byte size of a single layer draw buffer.
	// Larger layers composite directly. Zero means no cap beyond the
	// arena itself.
	LayerBufLimit int

	// Formats lists the pixel formats draw units are registered for.
	// Empty means every format pix supports.
	Formats []pix.PixelFormat

	// Logger may be nil for silence.
	Logger *slog.Logger
}

// Pipeline dispatches primitives to draw units and handles layer
// composition. Create one per engine; it is stateless between passes
// except for its caches.
type Pipeline struct {
	cfg   Config
	units map[unitKey]Unit
	geom  *geomCache
}

// PassReport summarizes one Execute call.
type PassReport struct {
	// Drawn is the number of primitives rendered, including degraded ones.
	Drawn int
	// Skipped is the number of primitives dropped.
	Skipped int
	// Fallbacks is the number of primitives rendered through a degraded
	// path (direct layer composition, placeholder glyphs).
	Fallbacks int
}

// Pass is the per-invocation state handed to draw units.
type Pass struct {
	p      *Pipeline
	report PassReport
	// warnedUnits dedupes the unsupported-format log per pass; the
	// diagnostic counter still increments per primitive.
	warnedUnits map[unitKey]bool
}

// Pipeline returns the owning pipeline, giving units access to shared
// resources.
func (ps *Pass) Pipeline() *Pipeline { return ps.p }

// New creates a pipeline and registers the built-in draw units for every
// configured pixel format.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Counters == nil {
		return nil, errors.New("pipeline: Counters must not be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Pipeline{
		cfg:   cfg,
		units: make(map[unitKey]Unit),
		geom:  newGeomCache(cfg.GeometryCap),
	}
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = []pix.PixelFormat{
			pix.FormatRGB565, pix.FormatRGB565Swapped, pix.FormatRGB888,
			pix.FormatXRGB8888, pix.FormatARGB8888, pix.FormatA8,
			pix.FormatL8, pix.FormatI1,
		}
	}
	for _, f := range formats {
		if !f.Supported() {
			return nil, fmt.Errorf("pipeline: %w: %v", pix.ErrUnsupportedFormat, f)
		}
		p.RegisterUnit(KindFill, f, fillUnit{})
		p.RegisterUnit(KindImage, f, imageUnit{})
		p.RegisterUnit(KindGlyphRun, f, glyphUnit{})
		p.RegisterUnit(KindLine, f, lineUnit{})
		p.RegisterUnit(KindArc, f, arcUnit{})
	}
	return p, nil
}

// RegisterUnit installs (or replaces) the unit handling kind on format.
func (p *Pipeline) RegisterUnit(kind Kind, format pix.PixelFormat, u Unit) {
	p.units[unitKey{kind: kind, format: format}] = u
}

// GeometryStats returns geometry cache statistics.
func (p *Pipeline) GeometryStats() objcache.Stats { return p.geom.stats() }

// Execute renders the primitive list onto target within clip, in
// submission order. Individual primitive failures degrade or skip; the
// only hard failures are a missing target or a target format with no
// codec, which fail the whole pass before any primitive is touched.
func (p *Pipeline) Execute(prims []Primitive, target *pix.Pixmap, clip image.Rectangle) (PassReport, error) {
	if target == nil {
		return PassReport{}, errors.New("pipeline: nil target buffer")
	}
	if !target.Format().Supported() {
		return PassReport{}, fmt.Errorf("pipeline: target %v: %w", target.Format(), pix.ErrUnsupportedFormat)
	}
	clip = clip.Intersect(target.Bounds())
	ps := &Pass{p: p, warnedUnits: make(map[unitKey]bool)}
	for _, prim := range prims {
		p.draw(ps, prim, target, clip)
	}
	return ps.report, nil
}

// draw renders a single primitive, absorbing per-primitive failures.
func (p *Pipeline) draw(ps *Pass, prim Primitive, dst *pix.Pixmap, clip image.Rectangle) {
	if clip.Empty() {
		return
	}
	if layer, ok := prim.(Layer); ok {
		p.drawLayer(ps, layer, dst, clip)
		return
	}
	key := unitKey{kind: prim.Kind(), format: dst.Format()}
	u, ok := p.units[key]
	if !ok {
		p.cfg.Counters.UnsupportedFormat.Add(1)
		p.cfg.Counters.Skipped.Add(1)
		ps.report.Skipped++
		if !ps.warnedUnits[key] {
			ps.warnedUnits[key] = true
			p.cfg.Logger.Warn("no draw unit registered, skipping",
				"kind", key.kind.String(), "format", key.format.String())
		}
		return
	}
	if err := u.Draw(ps, prim, dst, clip); err != nil {
		p.countError(err)
		p.cfg.Counters.Skipped.Add(1)
		ps.report.Skipped++
		p.cfg.Logger.Warn("primitive skipped", "kind", prim.Kind().String(), "err", err)
		return
	}
	ps.report.Drawn++
}

// drawLayer composites a group of children through a temporary draw buffer
// when the arena can supply one, and directly otherwise.
func (p *Pipeline) drawLayer(ps *Pass, l Layer, dst *pix.Pixmap, clip image.Rectangle) {
	rect := l.Rect.Intersect(clip)
	if rect.Empty() {
		return
	}
	need := rect.Dx() * rect.Dy() * 4 // composited as ARGB8888
	var block arena.Block
	var allocErr error
	if p.cfg.LayerBufLimit > 0 && need > p.cfg.LayerBufLimit {
		allocErr = fmt.Errorf("pipeline: layer buffer %d bytes over limit %d: %w",
			need, p.cfg.LayerBufLimit, arena.ErrOutOfMemory)
	} else {
		block, allocErr = p.cfg.Arena.Alloc(need, 0)
	}
	if allocErr != nil {
		// Direct fallback: children render straight onto the target with
		// the group opacity folded into each one. Overlapping
		// semi-transparent children will double-blend; degraded quality
		// beats a failed pass.
		p.cfg.Counters.OutOfMemory.Add(1)
		p.cfg.Counters.LayerFallbacks.Add(1)
		ps.report.Fallbacks++
		p.cfg.Logger.Warn("layer buffer unavailable, compositing directly", "bytes", need, "err", allocErr)
		for _, child := range l.Children {
			p.draw(ps, scaleOpa(child, l.Opa), dst, rect)
		}
		return
	}
	// The draw buffer is scoped to this invocation: released before the
	// pass returns on every path.
	defer p.cfg.Arena.Release(block)

	buf, err := pix.WrapPixmap(p.cfg.Arena.Bytes(block), rect.Dx(), rect.Dy(), pix.FormatARGB8888, rect.Dx()*4)
	if err != nil {
		p.cfg.Counters.Skipped.Add(1)
		ps.report.Skipped++
		p.cfg.Logger.Warn("layer buffer wrap failed", "err", err)
		return
	}
	buf.Clear(pix.Transparent)
	for _, child := range l.Children {
		p.draw(ps, child.Translate(rect.Min), buf, buf.Bounds())
	}
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			dst.BlendPixel(rect.Min.X+x, rect.Min.Y+y, buf.GetPixel(x, y), l.Opa)
		}
	}
	ps.report.Drawn++
}

// countError maps an absorbed error to its diagnostic counter.
func (p *Pipeline) countError(err error) {
	switch {
	case errors.Is(err, arena.ErrOutOfMemory):
		p.cfg.Counters.OutOfMemory.Add(1)
	case errors.Is(err, decoder.ErrCorruptData):
		p.cfg.Counters.CorruptData.Add(1)
	case errors.Is(err, pix.ErrUnsupportedFormat):
		p.cfg.Counters.UnsupportedFormat.Add(1)
	case errors.Is(err, glyph.ErrRasterFailed):
		p.cfg.Counters.GlyphFallbacks.Add(1)
	}
}

// scaleOpa folds a group opacity into a primitive for direct layer
// composition.
func scaleOpa(prim Primitive, opa uint8) Primitive {
	mul := func(a uint8) uint8 { return uint8(int(a) * int(opa) / 255) }
	switch p := prim.(type) {
	case Fill:
		p.Opa = mul(p.Opa)
		return p
	case ImageBlit:
		p.Opa = mul(p.Opa)
		return p
	case GlyphRun:
		p.Opa = mul(p.Opa)
		return p
	case Line:
		p.Opa = mul(p.Opa)
		return p
	case Arc:
		p.Opa = mul(p.Opa)
		return p
	case Layer:
		p.Opa = mul(p.Opa)
		return p
	default:
		return prim
	}
}
