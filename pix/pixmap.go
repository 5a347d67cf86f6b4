package pix

import (
	"fmt"
	"image"
	"image/color"
)

// Pixmap represents a rectangular pixel buffer in one of the supported
// pixel formats. The buffer may be owned (allocated by NewPixmap) or
// borrowed (wrapped around caller memory, e.g. a display framebuffer or an
// arena-backed draw buffer).
type Pixmap struct {
	width  int
	height int
	format PixelFormat
	stride int // bytes per row
	data   []byte
	codec  pixelCodec
}

// NewPixmap creates a new pixmap with the given dimensions and format.
// The row stride is the unpadded row length. Unsupported formats return nil.
func NewPixmap(width, height int, format PixelFormat) *Pixmap {
	stride := format.RowBytes(width)
	p, err := WrapPixmap(make([]byte, stride*height), width, height, format, stride)
	if err != nil {
		return nil
	}
	return p
}

// WrapPixmap creates a pixmap view over an existing buffer without copying.
// The buffer must hold at least stride*height bytes and stride must cover
// one row of pixels in the given format.
func WrapPixmap(buf []byte, width, height int, format PixelFormat, stride int) (*Pixmap, error) {
	codec, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("pix: wrap %v pixmap: %w", format, ErrUnsupportedFormat)
	}
	if width < 0 || height < 0 || stride < format.RowBytes(width) {
		return nil, fmt.Errorf("pix: invalid pixmap geometry %dx%d stride %d", width, height, stride)
	}
	if len(buf) < stride*height {
		return nil, fmt.Errorf("pix: pixmap buffer too small: %d < %d", len(buf), stride*height)
	}
	return &Pixmap{
		width:  width,
		height: height,
		format: format,
		stride: stride,
		data:   buf,
		codec:  codec,
	}, nil
}

// Width returns the width of the pixmap in pixels.
func (p *Pixmap) Width() int { return p.width }

// Height returns the height of the pixmap in pixels.
func (p *Pixmap) Height() int { return p.height }

// Format returns the pixel format of the backing buffer.
func (p *Pixmap) Format() PixelFormat { return p.format }

// Stride returns the byte length of one row including padding.
func (p *Pixmap) Stride() int { return p.stride }

// Data returns the raw backing buffer.
func (p *Pixmap) Data() []byte { return p.data }

// SetPixel sets the color of a single pixel. Out-of-bounds writes are
// silently dropped.
func (p *Pixmap) SetPixel(x, y int, c RGBA8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	p.codec.write(p.data[y*p.stride:(y+1)*p.stride], x, c)
}

// GetPixel returns the color of a single pixel, converted to RGBA8.
// Out-of-bounds reads return Transparent.
func (p *Pixmap) GetPixel(x, y int) RGBA8 {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Transparent
	}
	return p.codec.read(p.data[y*p.stride:(y+1)*p.stride], x)
}

// BlendPixel composites c over the existing pixel using straight-alpha
// source-over, additionally scaled by opa (255 = fully opaque).
func (p *Pixmap) BlendPixel(x, y int, c RGBA8, opa uint8) {
	if opa == 0 {
		return
	}
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	sa := int(c.A) * int(opa) / 255
	if sa == 0 {
		return
	}
	row := p.data[y*p.stride : (y+1)*p.stride]
	if sa == 255 {
		p.codec.write(row, x, c)
		return
	}
	dst := p.codec.read(row, x)
	inv := 255 - sa
	out := RGBA8{
		R: uint8((int(c.R)*sa + int(dst.R)*inv) / 255),
		G: uint8((int(c.G)*sa + int(dst.G)*inv) / 255),
		B: uint8((int(c.B)*sa + int(dst.B)*inv) / 255),
		A: uint8(sa + int(dst.A)*inv/255),
	}
	p.codec.write(row, x, out)
}

// FillRect blends c over every pixel of rect clipped to the pixmap.
func (p *Pixmap) FillRect(rect image.Rectangle, c RGBA8, opa uint8) {
	r := rect.Intersect(p.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.BlendPixel(x, y, c, opa)
		}
	}
}

// Clear overwrites every pixel with c, ignoring existing content.
func (p *Pixmap) Clear(c RGBA8) {
	for y := 0; y < p.height; y++ {
		row := p.data[y*p.stride : (y+1)*p.stride]
		for x := 0; x < p.width; x++ {
			p.codec.write(row, x, c)
		}
	}
}

// ToImage converts the pixmap to an image.NRGBA copy.
func (p *Pixmap) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			c := p.GetPixel(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return img
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	c := p.GetPixel(x, y)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.NRGBAModel
}
