package picogfx

import (
	"github.com/gogpu/picogfx/decoder"
	"github.com/gogpu/picogfx/pix"
)

// Defaults for the engine configuration. They mirror a typical small
// embedded profile: a 48 KiB pool, a 24 KiB layer buffer ceiling, 256
// cached glyphs, 4 cached circle tables.
const (
	DefaultPoolSize        = 48 * 1024
	DefaultLayerBufferSize = 24 * 1024
	DefaultGlyphCacheCap   = 256
	DefaultGeometryCap     = 4
	DefaultBufferAlign     = 4
)

// Option configures an Engine during creation.
// Use functional options to customize Engine behavior.
//
// Example:
//
//	// Default engine
//	eng, err := picogfx.New()
//
//	// Tight memory profile with a byte-budgeted image cache
//	eng, err := picogfx.New(
//	    picogfx.WithPoolSize(16*1024),
//	    picogfx.WithImageCacheBudget(8*1024),
//	)
type Option func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
// All values are fixed for the engine's lifetime.
type engineOptions struct {
	poolSize       int
	expandSize     int
	imageBudget    int64
	imageReserved  int
	headerCacheCap int
	glyphCacheCap  int
	geometryCap    int
	layerBufLimit  int
	strideAlign    int
	bufAlign       int
	decoders       map[decoder.FormatTag]decoder.Decoder
	formats        []pix.PixelFormat
}

// defaultOptions returns the default engine options.
func defaultOptions() engineOptions {
	return engineOptions{
		poolSize:      DefaultPoolSize,
		glyphCacheCap: DefaultGlyphCacheCap,
		geometryCap:   DefaultGeometryCap,
		layerBufLimit: DefaultLayerBufferSize,
		strideAlign:   1,
		bufAlign:      DefaultBufferAlign,
		decoders: map[decoder.FormatTag]decoder.Decoder{
			decoder.TagRaw: decoder.Raw{},
			decoder.TagRLE: decoder.RLE{},
		},
	}
}

// WithPoolSize sets the primary arena pool size in bytes.
func WithPoolSize(n int) Option {
	return func(o *engineOptions) { o.poolSize = n }
}

// WithExpandSize enables a secondary arena expansion region, consulted only
// when the primary pool is exhausted. Default 0 (disabled).
func WithExpandSize(n int) Option {
	return func(o *engineOptions) { o.expandSize = n }
}

// WithImageCacheBudget bounds the decoded-image cache to n resident bytes.
// Default 0: unbounded, callers manage lifetime with InvalidateImage.
func WithImageCacheBudget(n int64) Option {
	return func(o *engineOptions) { o.imageBudget = n }
}

// WithReservedImages exempts the n most-recently-used decoded images from
// eviction, to keep icons redrawn every frame resident. Default 0.
func WithReservedImages(n int) Option {
	return func(o *engineOptions) { o.imageReserved = n }
}

// WithHeaderCacheEntries bounds the image header cache to n entries.
// Default 0 (unbounded; headers are a few bytes each).
func WithHeaderCacheEntries(n int) Option {
	return func(o *engineOptions) { o.headerCacheCap = n }
}

// WithGlyphCacheCapacity bounds the glyph cache by glyph count, not bytes.
func WithGlyphCacheCapacity(n int) Option {
	return func(o *engineOptions) { o.glyphCacheCap = n }
}

// WithGeometryCacheCapacity bounds the circle-geometry cache entry count.
func WithGeometryCacheCapacity(n int) Option {
	return func(o *engineOptions) { o.geometryCap = n }
}

// WithLayerBufferLimit caps the byte size of a single layer draw buffer;
// larger layers composite directly. 0 removes the cap.
func WithLayerBufferLimit(n int) Option {
	return func(o *engineOptions) { o.layerBufLimit = n }
}

// WithStrideAlign pads decoded image rows to a multiple of n bytes.
// Default 1 (no padding).
func WithStrideAlign(n int) Option {
	return func(o *engineOptions) { o.strideAlign = n }
}

// WithBufferAlign sets the arena alignment of decoded pixel buffers.
func WithBufferAlign(n int) Option {
	return func(o *engineOptions) { o.bufAlign = n }
}

// WithDecoder registers an image decoder for tag, replacing the built-in
// registration if any. Pass nil to remove a built-in decoder so its format
// fails with ErrUnsupportedFormat.
func WithDecoder(tag decoder.FormatTag, d decoder.Decoder) Option {
	return func(o *engineOptions) {
		if d == nil {
			delete(o.decoders, tag)
			return
		}
		o.decoders[tag] = d
	}
}

// WithDrawFormats restricts draw-unit registration to the given target
// pixel formats. Primitives against other formats are skipped with
// ErrUnsupportedFormat diagnostics. Default: every format pix supports.
func WithDrawFormats(formats ...pix.PixelFormat) Option {
	return func(o *engineOptions) { o.formats = formats }
}
