// Package decoder turns encoded image bytes into arena-backed pixel
// buffers.
//
// Decoders are registered by format tag in a Registry; an unknown tag fails
// with pix.ErrUnsupportedFormat. Two decoders are built in: Raw, a direct
// in-memory passthrough for RAM-loaded bitmaps, and RLE, a run-length
// encoding decoded at access time, trading CPU for memory.
//
// Both built-in decoders consume the same 8-byte container header:
//
//	offset 0: magic (0x50)
//	offset 1: pixel format (pix.PixelFormat)
//	offset 2: width, uint16 little-endian
//	offset 4: height, uint16 little-endian
//	offset 6: reserved, must be zero
package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gogpu/picogfx/arena"
	"github.com/gogpu/picogfx/pix"
)

// ErrCorruptData is returned when encoded input is malformed. The root
// package re-exports it as picogfx.ErrCorruptData.
var ErrCorruptData = errors.New("decoder: corrupt data")

// Magic is the first byte of the built-in container header.
const Magic = 0x50

// headerSize is the encoded container header length in bytes.
const headerSize = 8

// FormatTag identifies an encoded image format.
type FormatTag uint8

const (
	// TagRaw is the passthrough format: header followed by unpadded rows.
	TagRaw FormatTag = iota + 1

	// TagRLE is the run-length encoded format.
	TagRLE
)

// String returns the tag name.
func (t FormatTag) String() string {
	switch t {
	case TagRaw:
		return "raw"
	case TagRLE:
		return "rle"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Header describes a decoded image without its pixels. Probing a header is
// cheap and never touches the arena, so headers are cached by count rather
// than bytes.
type Header struct {
	Width  int
	Height int
	Format pix.PixelFormat
}

// Options adjusts how decoded buffers are laid out.
type Options struct {
	// StrideAlign pads each row to a multiple of this many bytes.
	// Zero means no padding.
	StrideAlign int

	// BufAlign is the arena alignment of the decoded buffer.
	// Zero means arena.DefaultAlign.
	BufAlign int
}

// stride returns the padded row length for w pixels of format f.
func (o Options) stride(f pix.PixelFormat, w int) int {
	s := f.RowBytes(w)
	if o.StrideAlign > 1 {
		s = (s + o.StrideAlign - 1) / o.StrideAlign * o.StrideAlign
	}
	return s
}

// Image is a decoded pixel buffer owned by whichever cache entry (or
// caller) holds it. Release returns the backing memory to the arena.
type Image struct {
	Header
	Stride int

	a     *arena.Arena
	block arena.Block
	pm    *pix.Pixmap
}

// Pixmap returns a pixmap view of the decoded pixels.
func (img *Image) Pixmap() *pix.Pixmap { return img.pm }

// ByteSize returns the decoded buffer length, the image's cost against a
// byte-budgeted cache.
func (img *Image) ByteSize() int64 { return int64(img.Stride * img.Height) }

// Release returns the pixel buffer to the arena. The image and any pixmap
// views derived from it must not be used afterwards.
func (img *Image) Release() {
	img.a.Release(img.block)
	img.pm = nil
}

// Decoder decodes one encoded format into an arena-backed Image.
type Decoder interface {
	// Probe parses only the header of src.
	Probe(src []byte) (Header, error)

	// Decode materializes the full image, allocating the pixel buffer
	// from a. Implementations must not leak arena memory on any error
	// path.
	Decode(a *arena.Arena, src []byte, opts Options) (*Image, error)
}

// Registry maps format tags to decoders. The set of registered tags is the
// engine's decode capability table: formats configured out are simply
// absent.
type Registry struct {
	decoders map[FormatTag]Decoder
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. Pass nil to use a silent logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		decoders: make(map[FormatTag]Decoder),
		logger:   logger,
	}
}

// Register adds a decoder for tag, replacing any previous registration.
func (r *Registry) Register(tag FormatTag, d Decoder) {
	r.decoders[tag] = d
}

// Supports reports whether a decoder is registered for tag.
func (r *Registry) Supports(tag FormatTag) bool {
	_, ok := r.decoders[tag]
	return ok
}

// Decode dispatches to the decoder registered for tag.
func (r *Registry) Decode(tag FormatTag, a *arena.Arena, src []byte, opts Options) (*Image, error) {
	d, ok := r.decoders[tag]
	if !ok {
		return nil, fmt.Errorf("decoder: no decoder for %v: %w", tag, pix.ErrUnsupportedFormat)
	}
	img, err := d.Decode(a, src, opts)
	if err != nil {
		r.logger.Warn("image decode failed", "tag", tag.String(), "err", err)
		return nil, err
	}
	return img, nil
}

// Probe dispatches a header-only parse to the decoder registered for tag.
func (r *Registry) Probe(tag FormatTag, src []byte) (Header, error) {
	d, ok := r.decoders[tag]
	if !ok {
		return Header{}, fmt.Errorf("decoder: no decoder for %v: %w", tag, pix.ErrUnsupportedFormat)
	}
	return d.Probe(src)
}

// parseHeader validates the shared container header.
func parseHeader(src []byte) (Header, error) {
	if len(src) < headerSize {
		return Header{}, fmt.Errorf("decoder: truncated header (%d bytes): %w", len(src), ErrCorruptData)
	}
	if src[0] != Magic {
		return Header{}, fmt.Errorf("decoder: bad magic 0x%02x: %w", src[0], ErrCorruptData)
	}
	format := pix.PixelFormat(src[1])
	if !format.Supported() {
		return Header{}, fmt.Errorf("decoder: pixel format %v: %w", format, pix.ErrUnsupportedFormat)
	}
	w := int(binary.LittleEndian.Uint16(src[2:4]))
	h := int(binary.LittleEndian.Uint16(src[4:6]))
	if w == 0 || h == 0 {
		return Header{}, fmt.Errorf("decoder: empty image %dx%d: %w", w, h, ErrCorruptData)
	}
	return Header{Width: w, Height: h, Format: format}, nil
}

// writeHeader emits the shared container header. Used by the encode
// helpers.
func writeHeader(dst []byte, h Header) {
	dst[0] = Magic
	dst[1] = byte(h.Format)
	binary.LittleEndian.PutUint16(dst[2:4], uint16(h.Width))
	binary.LittleEndian.PutUint16(dst[4:6], uint16(h.Height))
	dst[6] = 0
	dst[7] = 0
}

// allocImage reserves the pixel buffer for h from the arena and wraps it in
// an Image. The returned cleanup releases the buffer; callers arrange for
// it to run on every failure path.
func allocImage(a *arena.Arena, h Header, opts Options) (*Image, func(), error) {
	stride := opts.stride(h.Format, h.Width)
	align := opts.BufAlign
	block, err := a.Alloc(stride*h.Height, align)
	if err != nil {
		return nil, nil, fmt.Errorf("decoder: %dx%d %v buffer: %w", h.Width, h.Height, h.Format, err)
	}
	pm, err := pix.WrapPixmap(a.Bytes(block), h.Width, h.Height, h.Format, stride)
	if err != nil {
		a.Release(block)
		return nil, nil, err
	}
	img := &Image{Header: h, Stride: stride, a: a, block: block, pm: pm}
	return img, func() { a.Release(block) }, nil
}
