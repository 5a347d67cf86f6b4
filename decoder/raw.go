package decoder

import (
	"fmt"

	"github.com/gogpu/picogfx/arena"
)

// Raw is the passthrough decoder for RAM-loaded bitmaps: the payload after
// the container header is unpadded rows of pixels, copied (with stride
// padding) into the arena buffer.
type Raw struct{}

// Probe implements Decoder.
func (Raw) Probe(src []byte) (Header, error) {
	return parseHeader(src)
}

// Decode implements Decoder.
func (Raw) Decode(a *arena.Arena, src []byte, opts Options) (*Image, error) {
	h, err := parseHeader(src)
	if err != nil {
		return nil, err
	}
	payload := src[headerSize:]
	srcRow := h.Format.RowBytes(h.Width)
	if len(payload) < srcRow*h.Height {
		return nil, fmt.Errorf("decoder: raw payload %d bytes, want %d: %w",
			len(payload), srcRow*h.Height, ErrCorruptData)
	}

	// Nothing can fail past this point, so the buffer cannot leak.
	img, _, err := allocImage(a, h, opts)
	if err != nil {
		return nil, err
	}
	dst := a.Bytes(img.block)
	if img.Stride == srcRow {
		copy(dst, payload[:srcRow*h.Height])
		return img, nil
	}
	for y := 0; y < h.Height; y++ {
		copy(dst[y*img.Stride:(y+1)*img.Stride], payload[y*srcRow:(y+1)*srcRow])
	}
	return img, nil
}

// EncodeRaw builds a raw container for the given pixel rows. The pixels
// must be len(Format.RowBytes(Width)) * Height bytes of unpadded rows.
// Exposed for asset tooling and tests.
func EncodeRaw(h Header, pixels []byte) ([]byte, error) {
	srcRow := h.Format.RowBytes(h.Width)
	if len(pixels) != srcRow*h.Height {
		return nil, fmt.Errorf("decoder: encode raw: %d pixel bytes, want %d", len(pixels), srcRow*h.Height)
	}
	out := make([]byte, headerSize+len(pixels))
	writeHeader(out, h)
	copy(out[headerSize:], pixels)
	return out, nil
}
