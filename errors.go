package picogfx

import (
	"github.com/gogpu/picogfx/arena"
	"github.com/gogpu/picogfx/decoder"
	"github.com/gogpu/picogfx/glyph"
	"github.com/gogpu/picogfx/pix"
)

// The error taxonomy of the engine, re-exported from the packages that own
// each failure class. Everything a component can fail with at runtime
// wraps one of these four, so callers dispatch with errors.Is and decide
// whether to degrade, skip, or abort.
var (
	// ErrOutOfMemory: the arena pool (and expansion region, if any) is
	// exhausted. Recoverable: callers skip the effect or degrade quality.
	ErrOutOfMemory = arena.ErrOutOfMemory

	// ErrCorruptData: malformed encoded input. The source is treated as
	// permanently failed for the current draw pass.
	ErrCorruptData = decoder.ErrCorruptData

	// ErrUnsupportedFormat: no decoder, pixel codec, or draw unit is
	// registered for the requested format.
	ErrUnsupportedFormat = pix.ErrUnsupportedFormat

	// ErrGlyphRasterFailed: a glyph outline could not be rasterized; the
	// pipeline substitutes a placeholder glyph.
	ErrGlyphRasterFailed = glyph.ErrRasterFailed
)
