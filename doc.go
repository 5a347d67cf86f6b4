// Package picogfx is a fixed-budget software rendering and caching engine
// for memory-constrained devices.
//
// # Overview
//
// picogfx turns lists of resolved draw primitives (fills, image blits, glyph
// runs, lines, arcs) into pixels on a caller-provided target buffer. All
// dynamic memory is drawn from a single fixed-size arena, decode and
// rasterization results are held in bounded reference-counted caches, and
// every allocation path has a defined degradation fallback because running
// out of memory is an expected condition, not an exceptional one.
//
// # Quick Start
//
//	import "github.com/gogpu/picogfx"
//
//	eng, err := picogfx.New(picogfx.WithPoolSize(160 * 1024))
//	if err != nil {
//	    // ...
//	}
//
//	target, err := eng.AllocTarget(240, 320, pix.FormatRGB565)
//	if err != nil {
//	    // ...
//	}
//	defer target.Release()
//
//	report, err := eng.Execute([]pipeline.Primitive{...}, target.Pixmap, target.Bounds())
//
// # Architecture
//
// The engine is organized into:
//   - arena: fixed-pool allocator with free-list coalescing
//   - objcache: generic refcounted caches with byte or entry budgets
//   - decoder: pluggable image decoders (raw, run-length encoded)
//   - glyph: outline font loading and coverage rasterization
//   - pipeline: draw-unit dispatch and primitive execution
//
// # Concurrency
//
// The engine targets single-threaded cooperative environments. A draw pass
// runs to completion once invoked; callers must not re-enter Execute from a
// callback triggered by the same pass. The caches themselves are safe for
// concurrent use so that hosts with background loaders can warm them.
//
// # Coordinate System
//
// Uses standard computer graphics coordinates:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Angles in degrees, 0 is right, increasing clockwise
package picogfx

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"
)
