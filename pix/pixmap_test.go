package pix

import (
	"image"
	"testing"
)

func TestFormatProperties(t *testing.T) {
	tests := []struct {
		format PixelFormat
		bpp    int
		row10  int // RowBytes for width 10
	}{
		{FormatRGB565, 16, 20},
		{FormatRGB565Swapped, 16, 20},
		{FormatRGB888, 24, 30},
		{FormatXRGB8888, 32, 40},
		{FormatARGB8888, 32, 40},
		{FormatA8, 8, 10},
		{FormatL8, 8, 10},
		{FormatI1, 1, 2},
	}
	for _, tt := range tests {
		if got := tt.format.BitsPerPixel(); got != tt.bpp {
			t.Errorf("%v: expected %d bpp, got %d", tt.format, tt.bpp, got)
		}
		if got := tt.format.RowBytes(10); got != tt.row10 {
			t.Errorf("%v: expected row bytes %d, got %d", tt.format, tt.row10, got)
		}
		if !tt.format.Supported() {
			t.Errorf("%v: expected supported", tt.format)
		}
	}
	if FormatUnknown.Supported() {
		t.Error("FormatUnknown must not be supported")
	}
}

func TestSetGetPixel(t *testing.T) {
	// White and black are exactly representable in every color format.
	formats := []PixelFormat{
		FormatRGB565, FormatRGB565Swapped, FormatRGB888,
		FormatXRGB8888, FormatARGB8888, FormatL8,
	}
	for _, f := range formats {
		p := NewPixmap(4, 4, f)
		if p == nil {
			t.Fatalf("%v: NewPixmap returned nil", f)
		}
		p.SetPixel(1, 2, White)
		if got := p.GetPixel(1, 2); got != White {
			t.Errorf("%v: expected white, got %+v", f, got)
		}
		if got := p.GetPixel(0, 0); got.R != 0 || got.G != 0 || got.B != 0 {
			t.Errorf("%v: expected black background, got %+v", f, got)
		}
	}
}

func TestRGB565RoundTrip(t *testing.T) {
	p := NewPixmap(1, 1, FormatRGB565)
	// Values already on the 5/6/5 grid survive a round trip exactly.
	c := RGBA8{R: 0xF8, G: 0xFC, B: 0xF8, A: 255}
	p.SetPixel(0, 0, White)
	if got := p.GetPixel(0, 0); got != White {
		t.Errorf("white did not round-trip, got %+v", got)
	}
	p.SetPixel(0, 0, c)
	got := p.GetPixel(0, 0)
	if got.R < 0xF8 || got.G < 0xFC || got.B < 0xF8 {
		t.Errorf("expected near-white, got %+v", got)
	}
}

func TestI1Threshold(t *testing.T) {
	p := NewPixmap(8, 1, FormatI1)

	// Luminance at the threshold stays black; one step above flips white.
	p.SetPixel(0, 0, RGBA8{R: 127, G: 127, B: 127, A: 255})
	if got := p.GetPixel(0, 0); got != Black {
		t.Errorf("expected threshold luminance to stay black, got %+v", got)
	}
	p.SetPixel(1, 0, RGBA8{R: 128, G: 128, B: 128, A: 255})
	if got := p.GetPixel(1, 0); got != White {
		t.Errorf("expected above-threshold luminance to be white, got %+v", got)
	}
}

func TestI1Packing(t *testing.T) {
	p := NewPixmap(8, 1, FormatI1)
	p.SetPixel(0, 0, White)
	p.SetPixel(7, 0, White)
	// MSB-first: pixel 0 is bit 7, pixel 7 is bit 0.
	if p.Data()[0] != 0x81 {
		t.Errorf("expected packed byte 0x81, got %#02x", p.Data()[0])
	}
	// Clearing pixel 0 must not disturb its neighbors.
	p.SetPixel(0, 0, Black)
	if p.Data()[0] != 0x01 {
		t.Errorf("expected packed byte 0x01, got %#02x", p.Data()[0])
	}
}

func TestOutOfBoundsAccess(t *testing.T) {
	p := NewPixmap(2, 2, FormatARGB8888)
	p.SetPixel(-1, 0, White)
	p.SetPixel(0, 5, White)
	if got := p.GetPixel(-1, 0); got != Transparent {
		t.Errorf("expected transparent for out-of-bounds read, got %+v", got)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := p.GetPixel(x, y); got.A != 0 {
				t.Errorf("out-of-bounds write leaked into (%d,%d)", x, y)
			}
		}
	}
}

func TestBlendPixel(t *testing.T) {
	p := NewPixmap(1, 1, FormatARGB8888)
	p.SetPixel(0, 0, Black)

	// Half-opacity white over black lands mid-gray.
	p.BlendPixel(0, 0, White, 128)
	got := p.GetPixel(0, 0)
	if got.R < 120 || got.R > 135 {
		t.Errorf("expected mid-gray after blend, got %+v", got)
	}

	// Zero opacity is a no-op.
	before := p.GetPixel(0, 0)
	p.BlendPixel(0, 0, RGBA8{R: 255, A: 255}, 0)
	if p.GetPixel(0, 0) != before {
		t.Error("zero-opacity blend modified the pixel")
	}

	// Full opacity overwrites.
	p.BlendPixel(0, 0, White, 255)
	if p.GetPixel(0, 0) != White {
		t.Errorf("expected white after opaque blend, got %+v", p.GetPixel(0, 0))
	}
}

func TestFillRectClips(t *testing.T) {
	p := NewPixmap(4, 4, FormatRGB565)
	p.Clear(Black)
	p.FillRect(image.Rect(2, 2, 10, 10), White, 255)

	if got := p.GetPixel(3, 3); got != White {
		t.Errorf("expected fill inside clip, got %+v", got)
	}
	if got := p.GetPixel(1, 1); got != Black {
		t.Errorf("expected untouched pixel outside rect, got %+v", got)
	}
}

func TestWrapPixmap(t *testing.T) {
	buf := make([]byte, 4*4*2)
	p, err := WrapPixmap(buf, 4, 4, FormatRGB565, 8)
	if err != nil {
		t.Fatalf("WrapPixmap failed: %v", err)
	}
	p.SetPixel(0, 0, White)
	// The wrapped pixmap writes through to the caller's buffer.
	if buf[0] == 0 && buf[1] == 0 {
		t.Error("expected write-through into wrapped buffer")
	}

	if _, err := WrapPixmap(make([]byte, 4), 4, 4, FormatRGB565, 8); err == nil {
		t.Error("expected error for undersized buffer")
	}
	if _, err := WrapPixmap(buf, 4, 4, FormatRGB565, 2); err == nil {
		t.Error("expected error for stride shorter than a row")
	}
	if _, err := WrapPixmap(buf, 4, 4, FormatUnknown, 8); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestPaddedStride(t *testing.T) {
	// 3 pixels of RGB888 is 9 bytes; pad rows to 12.
	buf := make([]byte, 12*2)
	p, err := WrapPixmap(buf, 3, 2, FormatRGB888, 12)
	if err != nil {
		t.Fatalf("WrapPixmap failed: %v", err)
	}
	p.SetPixel(2, 1, White)
	if got := p.GetPixel(2, 1); got != White {
		t.Errorf("expected white at padded-row pixel, got %+v", got)
	}
	// Second row starts at the stride boundary, not at the unpadded length.
	if buf[12+6] != 0xFF {
		t.Error("expected row 1 pixel data at stride offset")
	}
}

func TestToImage(t *testing.T) {
	p := NewPixmap(2, 1, FormatARGB8888)
	p.SetPixel(0, 0, RGBA8{R: 10, G: 20, B: 30, A: 40})
	img := p.ToImage()
	c := img.NRGBAAt(0, 0)
	if c.R != 10 || c.G != 20 || c.B != 30 || c.A != 40 {
		t.Errorf("unexpected NRGBA conversion: %+v", c)
	}
}
