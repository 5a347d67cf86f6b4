package pipeline

import "sync/atomic"

// Counters are the engine's diagnostic counters. Every absorbed error
// condition increments one, even when the degradation is visually
// invisible: nothing is silently dropped.
type Counters struct {
	// OutOfMemory counts allocation failures that triggered a degrade or
	// skip.
	OutOfMemory atomic.Uint64
	// CorruptData counts malformed encoded sources.
	CorruptData atomic.Uint64
	// UnsupportedFormat counts primitives or decodes with no registered
	// handler.
	UnsupportedFormat atomic.Uint64
	// GlyphFallbacks counts glyphs substituted with the placeholder.
	GlyphFallbacks atomic.Uint64
	// LayerFallbacks counts layers composited directly because no draw
	// buffer could be allocated.
	LayerFallbacks atomic.Uint64
	// Skipped counts primitives dropped from a pass.
	Skipped atomic.Uint64
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	OutOfMemory       uint64
	CorruptData       uint64
	UnsupportedFormat uint64
	GlyphFallbacks    uint64
	LayerFallbacks    uint64
	Skipped           uint64
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		OutOfMemory:       c.OutOfMemory.Load(),
		CorruptData:       c.CorruptData.Load(),
		UnsupportedFormat: c.UnsupportedFormat.Load(),
		GlyphFallbacks:    c.GlyphFallbacks.Load(),
		LayerFallbacks:    c.LayerFallbacks.Load(),
		Skipped:           c.Skipped.Load(),
	}
}
