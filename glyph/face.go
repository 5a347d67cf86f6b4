// Package glyph loads outline fonts and rasterizes glyphs into coverage
// bitmaps on demand.
//
// Fonts are parsed with go-text/typesetting; coverage masks are produced by
// the x/image/vector rasterizer. Rasterized glyphs are held in a
// count-bounded cache, because re-rasterizing runtime-loaded outline fonts
// is the dominant cost driver compared to precompiled bitmap fonts.
package glyph

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-text/typesetting/font"
)

// ErrRasterFailed is returned when a glyph outline cannot be rasterized
// (missing glyph, non-outline glyph data, malformed contours). The root
// package re-exports it as picogfx.ErrGlyphRasterFailed.
var ErrRasterFailed = errors.New("glyph: rasterization failed")

// GID is a glyph index within a font.
type GID = font.GID

// faceSeq hands out process-unique face identifiers for cache keys.
var faceSeq atomic.Uint64

// Face is a loaded outline font instance. The identifier is unique within
// the process and participates in glyph cache keys, so reloading the same
// font data yields distinct cache entries.
//
// Face is read-only after creation.
type Face struct {
	id   uint64
	font *font.Face
	upem float32
}

// LoadFace parses TTF/OTF font data.
func LoadFace(data []byte) (*Face, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("glyph: empty font data: %w", ErrRasterFailed)
	}
	ft, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("glyph: parse font: %w", err)
	}
	return &Face{
		id:   faceSeq.Add(1),
		font: ft,
		upem: float32(ft.Upem()),
	}, nil
}

// ID returns the process-unique face identifier.
func (f *Face) ID() uint64 { return f.id }

// Lookup maps a rune to its glyph index. ok is false when the font has no
// glyph for r.
func (f *Face) Lookup(r rune) (GID, bool) {
	return f.font.NominalGlyph(r)
}

// Advance returns the horizontal advance of gid in pixels at the given
// pixel size.
func (f *Face) Advance(gid GID, ppem uint16) float32 {
	return f.font.HorizontalAdvance(gid) * float32(ppem) / f.upem
}

// LineMetrics returns ascent and descent in pixels at the given pixel
// size. Descent is positive, measured downward from the baseline.
func (f *Face) LineMetrics(ppem uint16) (ascent, descent float32) {
	scale := float32(ppem) / f.upem
	ext, ok := f.font.FontHExtents()
	if !ok {
		// Fall back to the em box.
		return float32(ppem) * 0.8, float32(ppem) * 0.2
	}
	return ext.Ascender * scale, -ext.Descender * scale
}
