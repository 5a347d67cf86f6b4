package picogfx

import (
	"fmt"
	"image"

	"github.com/gogpu/picogfx/arena"
	"github.com/gogpu/picogfx/decoder"
	"github.com/gogpu/picogfx/glyph"
	"github.com/gogpu/picogfx/objcache"
	"github.com/gogpu/picogfx/pipeline"
	"github.com/gogpu/picogfx/pix"
)

// Engine ties the arena, caches, decoder registry, glyph rasterizer, and
// draw pipeline together behind one configuration surface. All limits are
// fixed at creation for the engine's lifetime.
//
// The engine targets single-threaded cooperative hosts: one logical draw
// pass at a time, no reentrant Execute calls.
type Engine struct {
	arena    *arena.Arena
	registry *decoder.Registry
	images   *objcache.Cache[pipeline.ImageKey, *decoder.Image]
	headers  *objcache.Cache[pipeline.ImageKey, decoder.Header]
	glyphs   *glyph.Rasterizer
	pipe     *pipeline.Pipeline
	counters pipeline.Counters
}

// New creates an engine. Defaults: 48 KiB pool, no expansion region,
// unbounded image cache, 256-glyph cache, 4-entry geometry cache, raw and
// RLE decoders, draw units for every supported pixel format.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := Logger()

	a, err := arena.New(o.poolSize, arena.WithExpandSize(o.expandSize), arena.WithLogger(log))
	if err != nil {
		return nil, err
	}

	e := &Engine{arena: a}

	e.registry = decoder.NewRegistry(log)
	for tag, d := range o.decoders {
		e.registry.Register(tag, d)
	}

	// The image cache owns decoded pixels: dropping an entry returns its
	// arena buffer.
	e.images = objcache.New(
		o.imageBudget,
		objcache.WithReserved[pipeline.ImageKey, *decoder.Image](o.imageReserved),
		objcache.WithEvictFunc(func(_ pipeline.ImageKey, img *decoder.Image) {
			img.Release()
		}),
	)
	e.headers = objcache.New[pipeline.ImageKey, decoder.Header](int64(o.headerCacheCap))
	e.glyphs = glyph.NewRasterizer(o.glyphCacheCap, log)

	e.pipe, err = pipeline.New(pipeline.Config{
		Arena:       a,
		Registry:    e.registry,
		Images:      e.images,
		Glyphs:      e.glyphs,
		Counters:    &e.counters,
		GeometryCap: o.geometryCap,
		DecodeOpts: decoder.Options{
			StrideAlign: o.strideAlign,
			BufAlign:    o.bufAlign,
		},
		LayerBufLimit: o.layerBufLimit,
		Formats:       o.formats,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	log.Info("engine configured",
		"pool", o.poolSize, "expand", o.expandSize,
		"imageBudget", o.imageBudget, "glyphs", o.glyphCacheCap)
	return e, nil
}

// Execute renders the primitive list onto target within clip, in
// submission order. Per-primitive failures degrade or skip and are
// reported through Stats; only an unusable target fails the pass.
func (e *Engine) Execute(prims []pipeline.Primitive, target *pix.Pixmap, clip image.Rectangle) (pipeline.PassReport, error) {
	return e.pipe.Execute(prims, target, clip)
}

// Target is an arena-backed render target. Release returns its memory to
// the pool.
type Target struct {
	*pix.Pixmap
	a     *arena.Arena
	block arena.Block
}

// Release frees the target's arena buffer.
func (t *Target) Release() {
	t.a.Release(t.block)
	t.Pixmap = nil
}

// AllocTarget reserves a render target from the arena. This is the one
// allocation whose failure is a hard error: with no target buffer there is
// nothing to degrade to.
func (e *Engine) AllocTarget(w, h int, format pix.PixelFormat) (*Target, error) {
	stride := format.RowBytes(w)
	block, err := e.arena.Alloc(stride*h, 0)
	if err != nil {
		e.counters.OutOfMemory.Add(1)
		return nil, fmt.Errorf("picogfx: target buffer %dx%d %v: %w", w, h, format, err)
	}
	pm, err := pix.WrapPixmap(e.arena.Bytes(block), w, h, format, stride)
	if err != nil {
		e.arena.Release(block)
		return nil, err
	}
	return &Target{Pixmap: pm, a: e.arena, block: block}, nil
}

// LoadFace parses outline font data for use in glyph runs.
func (e *Engine) LoadFace(data []byte) (*glyph.Face, error) {
	return glyph.LoadFace(data)
}

// Shape builds a left-to-right glyph run from text. See glyph.Shape.
func (e *Engine) Shape(face *glyph.Face, text string, ppem uint16) glyph.Run {
	return glyph.Shape(face, text, ppem)
}

// ProbeHeader returns the dimensions and pixel format of an encoded source
// without decoding its pixels, caching the result by source identity.
func (e *Engine) ProbeHeader(src pipeline.Source) (decoder.Header, error) {
	key := pipeline.ImageKey{ID: src.ID, Tag: src.Tag}
	h, err := e.headers.GetOrInsert(key, func() (decoder.Header, int64, error) {
		hdr, err := e.registry.Probe(src.Tag, src.Data)
		if err != nil {
			return decoder.Header{}, 0, err
		}
		return hdr, 1, nil
	})
	if err != nil {
		return decoder.Header{}, err
	}
	hdr := h.Value()
	h.Release() // headers are value types; the copy outlives the handle
	return hdr, nil
}

// InvalidateImage drops a decoded image from the cache, or marks it for
// removal once the current blit releases it. Hosts call this when an asset
// changes.
func (e *Engine) InvalidateImage(id uint64, tag decoder.FormatTag) {
	key := pipeline.ImageKey{ID: id, Tag: tag}
	e.images.Invalidate(key)
	e.headers.Invalidate(key)
}

// RegisterUnit installs a custom draw unit for kind on format.
func (e *Engine) RegisterUnit(kind pipeline.Kind, format pix.PixelFormat, u pipeline.Unit) {
	e.pipe.RegisterUnit(kind, format, u)
}

// Stats aggregates the engine's diagnostic surface: arena occupancy,
// per-cache residency and hit rates, and the absorbed-error counters.
type Stats struct {
	Arena    arena.Stats
	Images   objcache.Stats
	Headers  objcache.Stats
	Glyphs   objcache.Stats
	Geometry objcache.Stats
	Counters pipeline.CounterSnapshot
}

// Stats returns a snapshot of engine statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		Arena:    e.arena.Stats(),
		Images:   e.images.Stats(),
		Headers:  e.headers.Stats(),
		Glyphs:   e.glyphs.Stats(),
		Geometry: e.pipe.GeometryStats(),
		Counters: e.counters.Snapshot(),
	}
}

// Arena exposes the engine's allocator for hosts that manage auxiliary
// buffers from the same pool.
func (e *Engine) Arena() *arena.Arena { return e.arena }
