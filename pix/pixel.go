// Package pix provides pixel formats, colors, and the Pixmap buffer type
// shared by every stage of the rendering engine.
//
// Format support is table-driven: each supported format registers a pixel
// codec in a capability table, and everything else looks codecs up rather
// than branching on format constants. A format missing from the table is
// unsupported everywhere at once.
package pix

// PixelFormat identifies the memory layout of a pixel buffer.
//
// Multi-byte formats are little-endian: the in-memory byte order for
// ARGB8888 is B, G, R, A. I1 packs eight pixels per byte, most significant
// bit first.
type PixelFormat uint8

const (
	// FormatUnknown is the zero value and is never a valid buffer format.
	FormatUnknown PixelFormat = iota

	// FormatRGB565 is 16-bit 5-6-5 color, the default target depth.
	FormatRGB565

	// FormatRGB565Swapped is RGB565 with the two bytes exchanged, for
	// displays fed over byte-oriented buses.
	FormatRGB565Swapped

	// FormatRGB888 is 24-bit color stored as B, G, R.
	FormatRGB888

	// FormatXRGB8888 is 32-bit color with an unused high byte.
	FormatXRGB8888

	// FormatARGB8888 is 32-bit color with straight (non-premultiplied) alpha.
	FormatARGB8888

	// FormatA8 is an 8-bit alpha-only coverage buffer.
	FormatA8

	// FormatL8 is 8-bit grayscale.
	FormatL8

	// FormatI1 is 1-bit monochrome, packed MSB first.
	FormatI1
)

// i1LumThreshold is the luminance cutoff for writing I1 pixels:
// luminance above the threshold stores a 1 bit.
const i1LumThreshold = 127

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGB565:
		return "RGB565"
	case FormatRGB565Swapped:
		return "RGB565Swapped"
	case FormatRGB888:
		return "RGB888"
	case FormatXRGB8888:
		return "XRGB8888"
	case FormatARGB8888:
		return "ARGB8888"
	case FormatA8:
		return "A8"
	case FormatL8:
		return "L8"
	case FormatI1:
		return "I1"
	default:
		return "Unknown"
	}
}

// BitsPerPixel returns the storage size of one pixel in bits,
// or 0 for unrecognized formats.
func (f PixelFormat) BitsPerPixel() int {
	switch f {
	case FormatRGB565, FormatRGB565Swapped:
		return 16
	case FormatRGB888:
		return 24
	case FormatXRGB8888, FormatARGB8888:
		return 32
	case FormatA8, FormatL8:
		return 8
	case FormatI1:
		return 1
	default:
		return 0
	}
}

// RowBytes returns the unpadded byte length of one row of width pixels.
func (f PixelFormat) RowBytes(width int) int {
	return (width*f.BitsPerPixel() + 7) / 8
}

// RGBA8 is a non-premultiplied 8-bit color. It is the interchange type all
// pixel codecs convert through.
type RGBA8 struct {
	R, G, B, A uint8
}

// Common colors.
var (
	Black       = RGBA8{0, 0, 0, 255}
	White       = RGBA8{255, 255, 255, 255}
	Transparent = RGBA8{0, 0, 0, 0}
)

// luminance returns the ITU-R BT.601 luma approximation used for the
// grayscale and monochrome formats, computed in integer math.
func (c RGBA8) luminance() uint8 {
	return uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000)
}

// pixelCodec reads and writes one pixel within a row. A format with no
// codec in the table is simply unsupported; callers look the codec up,
// they never branch on format constants.
type pixelCodec struct {
	read  func(row []byte, x int) RGBA8
	write func(row []byte, x int, c RGBA8)
}

// codecs is the capability table mapping each supported pixel format to its
// codec. Built once at init; formats configured out of a build would be
// removed here.
var codecs = map[PixelFormat]pixelCodec{
	FormatRGB565: {
		read: func(row []byte, x int) RGBA8 {
			v := uint16(row[2*x]) | uint16(row[2*x+1])<<8
			return rgb565ToRGBA8(v)
		},
		write: func(row []byte, x int, c RGBA8) {
			v := rgba8ToRGB565(c)
			row[2*x] = byte(v)
			row[2*x+1] = byte(v >> 8)
		},
	},
	FormatRGB565Swapped: {
		read: func(row []byte, x int) RGBA8 {
			v := uint16(row[2*x])<<8 | uint16(row[2*x+1])
			return rgb565ToRGBA8(v)
		},
		write: func(row []byte, x int, c RGBA8) {
			v := rgba8ToRGB565(c)
			row[2*x] = byte(v >> 8)
			row[2*x+1] = byte(v)
		},
	},
	FormatRGB888: {
		read: func(row []byte, x int) RGBA8 {
			return RGBA8{R: row[3*x+2], G: row[3*x+1], B: row[3*x], A: 255}
		},
		write: func(row []byte, x int, c RGBA8) {
			row[3*x] = c.B
			row[3*x+1] = c.G
			row[3*x+2] = c.R
		},
	},
	FormatXRGB8888: {
		read: func(row []byte, x int) RGBA8 {
			return RGBA8{R: row[4*x+2], G: row[4*x+1], B: row[4*x], A: 255}
		},
		write: func(row []byte, x int, c RGBA8) {
			row[4*x] = c.B
			row[4*x+1] = c.G
			row[4*x+2] = c.R
			row[4*x+3] = 0xFF
		},
	},
	FormatARGB8888: {
		read: func(row []byte, x int) RGBA8 {
			return RGBA8{R: row[4*x+2], G: row[4*x+1], B: row[4*x], A: row[4*x+3]}
		},
		write: func(row []byte, x int, c RGBA8) {
			row[4*x] = c.B
			row[4*x+1] = c.G
			row[4*x+2] = c.R
			row[4*x+3] = c.A
		},
	},
	FormatA8: {
		read: func(row []byte, x int) RGBA8 {
			return RGBA8{A: row[x]}
		},
		write: func(row []byte, x int, c RGBA8) {
			row[x] = c.A
		},
	},
	FormatL8: {
		read: func(row []byte, x int) RGBA8 {
			v := row[x]
			return RGBA8{R: v, G: v, B: v, A: 255}
		},
		write: func(row []byte, x int, c RGBA8) {
			row[x] = c.luminance()
		},
	},
	FormatI1: {
		read: func(row []byte, x int) RGBA8 {
			if row[x/8]&(0x80>>uint(x%8)) != 0 {
				return White
			}
			return Black
		},
		write: func(row []byte, x int, c RGBA8) {
			mask := byte(0x80 >> uint(x%8))
			if c.luminance() > i1LumThreshold {
				row[x/8] |= mask
			} else {
				row[x/8] &^= mask
			}
		},
	},
}

// Supported reports whether the format has a registered pixel codec.
func (f PixelFormat) Supported() bool {
	_, ok := codecs[f]
	return ok
}

func rgb565ToRGBA8(v uint16) RGBA8 {
	r5 := uint8(v >> 11)
	g6 := uint8(v >> 5 & 0x3F)
	b5 := uint8(v & 0x1F)
	// Expand by bit replication so pure white round-trips to 255.
	return RGBA8{
		R: r5<<3 | r5>>2,
		G: g6<<2 | g6>>4,
		B: b5<<3 | b5>>2,
		A: 255,
	}
}

func rgba8ToRGB565(c RGBA8) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}
