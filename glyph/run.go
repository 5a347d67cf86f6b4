package glyph

import (
	"golang.org/x/text/unicode/norm"
)

// Positioned is one glyph of a run with its pen position, relative to the
// run origin on the baseline.
type Positioned struct {
	GID GID
	X   float32
	Y   float32
}

// Run is a resolved sequence of positioned glyphs sharing one face and
// size. Runs are what the draw pipeline consumes; hosts with their own
// shaping produce them directly.
type Run struct {
	Face   *Face
	PPEM   uint16
	Glyphs []Positioned
	// Width is the total advance of the run in pixels.
	Width float32
	// Missing counts input runes the face has no glyph for. Those map to
	// glyph 0 (.notdef) and typically render as the placeholder.
	Missing int
}

// Shape converts text into a left-to-right run using the face's nominal
// glyph mapping and horizontal advances. Input is NFC-normalized first so
// that decomposed sequences hit the same cache keys as their precomposed
// equivalents. This is deliberately simple positioning: no kerning or
// contextual substitution; hosts needing full shaping build Runs
// themselves.
func Shape(face *Face, text string, ppem uint16) Run {
	run := Run{Face: face, PPEM: ppem}
	var x float32
	for _, r := range norm.NFC.String(text) {
		gid, ok := face.Lookup(r)
		if !ok {
			gid = 0
			run.Missing++
		}
		run.Glyphs = append(run.Glyphs, Positioned{GID: gid, X: x})
		x += face.Advance(gid, ppem)
	}
	run.Width = x
	return run
}
