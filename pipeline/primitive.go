// Package pipeline executes lists of draw primitives against a target
// pixel buffer.
//
// Each primitive type is handled by an independently pluggable draw unit
// registered per (kind, pixel format). Primitives are processed in
// submission order; later primitives composite over earlier ones within the
// clip region. One bad primitive never aborts the pass: an unsupported or
// failing primitive is counted, logged, and skipped while the rest renders.
package pipeline

import (
	"image"

	"github.com/gogpu/picogfx/decoder"
	"github.com/gogpu/picogfx/glyph"
	"github.com/gogpu/picogfx/pix"
)

// Kind discriminates primitive types for draw-unit dispatch.
type Kind uint8

const (
	// KindFill is a solid rectangle fill.
	KindFill Kind = iota + 1
	// KindImage is an image blit from an encoded source.
	KindImage
	// KindGlyphRun is a run of positioned glyphs.
	KindGlyphRun
	// KindLine is a straight line segment.
	KindLine
	// KindArc is a circle, disc, ring, or angular arc.
	KindArc
	// KindLayer is a composition group with its own opacity.
	KindLayer
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFill:
		return "fill"
	case KindImage:
		return "image"
	case KindGlyphRun:
		return "glyph-run"
	case KindLine:
		return "line"
	case KindArc:
		return "arc"
	case KindLayer:
		return "layer"
	default:
		return "unknown"
	}
}

// Primitive is one resolved draw operation. Implementations are plain data:
// the widget and style layers above the engine have already resolved
// geometry, colors, and pixel sources.
type Primitive interface {
	Kind() Kind

	// Translate returns a copy shifted by -d, used when rendering into an
	// offset layer buffer.
	Translate(d image.Point) Primitive
}

// Fill is a solid rectangle.
type Fill struct {
	Rect  image.Rectangle
	Color pix.RGBA8
	Opa   uint8
}

// Kind implements Primitive.
func (Fill) Kind() Kind { return KindFill }

// Translate implements Primitive.
func (p Fill) Translate(d image.Point) Primitive {
	p.Rect = p.Rect.Sub(d)
	return p
}

// Source is a reference to an encoded pixel source, resolved by the UI
// description layer. ID is stable per asset and forms the image cache key
// together with the format tag.
type Source struct {
	ID   uint64
	Tag  decoder.FormatTag
	Data []byte
}

// ImageBlit draws a decoded image with its top-left corner at Pos.
type ImageBlit struct {
	Src Source
	Pos image.Point
	Opa uint8
}

// Kind implements Primitive.
func (ImageBlit) Kind() Kind { return KindImage }

// Translate implements Primitive.
func (p ImageBlit) Translate(d image.Point) Primitive {
	p.Pos = p.Pos.Sub(d)
	return p
}

// GlyphRun draws positioned glyphs with the run origin on the baseline at
// Origin.
type GlyphRun struct {
	Run    glyph.Run
	Origin image.Point
	Color  pix.RGBA8
	Opa    uint8
}

// Kind implements Primitive.
func (GlyphRun) Kind() Kind { return KindGlyphRun }

// Translate implements Primitive.
func (p GlyphRun) Translate(d image.Point) Primitive {
	p.Origin = p.Origin.Sub(d)
	return p
}

// Line is a straight segment of the given pixel width.
type Line struct {
	From  image.Point
	To    image.Point
	Width int
	Color pix.RGBA8
	Opa   uint8
}

// Kind implements Primitive.
func (Line) Kind() Kind { return KindLine }

// Translate implements Primitive.
func (p Line) Translate(d image.Point) Primitive {
	p.From = p.From.Sub(d)
	p.To = p.To.Sub(d)
	return p
}

// Arc draws a circular arc between StartDeg and EndDeg (clockwise, 0 at
// the positive X axis). Width is the ring thickness measured inward from
// Radius; Width >= Radius fills the disc. StartDeg 0 and EndDeg 360 draw
// the full circle without angle tests.
type Arc struct {
	Center   image.Point
	Radius   int
	StartDeg float32
	EndDeg   float32
	Width    int
	Color    pix.RGBA8
	Opa      uint8
}

// Kind implements Primitive.
func (Arc) Kind() Kind { return KindArc }

// Translate implements Primitive.
func (p Arc) Translate(d image.Point) Primitive {
	p.Center = p.Center.Sub(d)
	return p
}

// Layer groups child primitives composited as one unit with a group
// opacity, bounded by Rect. Semi-transparent overlapping children need a
// temporary draw buffer; if the arena cannot supply one, the pipeline falls
// back to direct compositing.
type Layer struct {
	Rect     image.Rectangle
	Opa      uint8
	Children []Primitive
}

// Kind implements Primitive.
func (Layer) Kind() Kind { return KindLayer }

// Translate implements Primitive.
func (p Layer) Translate(d image.Point) Primitive {
	p.Rect = p.Rect.Sub(d)
	children := make([]Primitive, len(p.Children))
	for i, c := range p.Children {
		children[i] = c.Translate(d)
	}
	p.Children = children
	return p
}
