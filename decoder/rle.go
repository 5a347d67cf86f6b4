package decoder

import (
	"fmt"

	"github.com/gogpu/picogfx/arena"
	"github.com/gogpu/picogfx/pix"
)

// RLE decodes the run-length encoded container format.
//
// The payload is a sequence of runs operating on whole pixels:
//
//	control byte 0x01..0x7F: repeat run, the next pixel value appears
//	    control times in the output.
//	control byte 0x81..0xFF: literal run, the next (control & 0x7F)
//	    pixel values are copied verbatim.
//	control bytes 0x00 and 0x80 are invalid.
//
// Runs never span rows conceptually, but the decoder does not require row
// alignment; it fills the unpadded pixel stream and re-pads rows to the
// requested stride. Formats narrower than one byte per pixel (I1) cannot be
// run-length encoded and fail with pix.ErrUnsupportedFormat.
type RLE struct{}

// Probe implements Decoder.
func (RLE) Probe(src []byte) (Header, error) {
	return parseHeader(src)
}

// Decode implements Decoder.
func (RLE) Decode(a *arena.Arena, src []byte, opts Options) (*Image, error) {
	h, err := parseHeader(src)
	if err != nil {
		return nil, err
	}
	pixSize := h.Format.BitsPerPixel() / 8
	if pixSize == 0 {
		return nil, fmt.Errorf("decoder: rle cannot encode %v: %w", h.Format, pix.ErrUnsupportedFormat)
	}

	img, release, err := allocImage(a, h, opts)
	if err != nil {
		return nil, err
	}
	if err := decodeRuns(a.Bytes(img.block), src[headerSize:], h, img.Stride, pixSize); err != nil {
		release()
		return nil, err
	}
	return img, nil
}

// decodeRuns expands the run stream into dst, padding rows to stride.
func decodeRuns(dst, payload []byte, h Header, stride, pixSize int) error {
	srcRow := h.Format.RowBytes(h.Width)
	total := srcRow * h.Height
	written := 0 // unpadded output offset
	pos := 0     // payload offset

	put := func(p []byte) {
		// Translate the unpadded offset into the padded buffer.
		row := written / srcRow
		col := written % srcRow
		copy(dst[row*stride+col:], p)
		written += len(p)
	}

	for written < total {
		if pos >= len(payload) {
			return fmt.Errorf("decoder: rle stream truncated at %d/%d bytes: %w", written, total, ErrCorruptData)
		}
		ctrl := payload[pos]
		pos++
		count := int(ctrl & 0x7F)
		if count == 0 {
			return fmt.Errorf("decoder: rle zero-length run at offset %d: %w", pos-1, ErrCorruptData)
		}
		if ctrl&0x80 == 0 {
			// Repeat run: one pixel value, count copies.
			if pos+pixSize > len(payload) {
				return fmt.Errorf("decoder: rle repeat run truncated: %w", ErrCorruptData)
			}
			value := payload[pos : pos+pixSize]
			pos += pixSize
			if written+count*pixSize > total {
				return fmt.Errorf("decoder: rle output overflow: %w", ErrCorruptData)
			}
			for i := 0; i < count; i++ {
				// Pixels may straddle row boundaries in the unpadded
				// stream; put handles the re-padding per write.
				put(value)
			}
		} else {
			// Literal run: count pixels verbatim.
			n := count * pixSize
			if pos+n > len(payload) {
				return fmt.Errorf("decoder: rle literal run truncated: %w", ErrCorruptData)
			}
			if written+n > total {
				return fmt.Errorf("decoder: rle output overflow: %w", ErrCorruptData)
			}
			for i := 0; i < count; i++ {
				put(payload[pos : pos+pixSize])
				pos += pixSize
			}
		}
	}
	return nil
}

// EncodeRLE compresses unpadded pixel rows into the RLE container format.
// Exposed for asset tooling and tests; decoding EncodeRLE output yields the
// input pixels exactly.
func EncodeRLE(h Header, pixels []byte) ([]byte, error) {
	pixSize := h.Format.BitsPerPixel() / 8
	if pixSize == 0 {
		return nil, fmt.Errorf("decoder: encode rle: %v: %w", h.Format, pix.ErrUnsupportedFormat)
	}
	srcRow := h.Format.RowBytes(h.Width)
	if len(pixels) != srcRow*h.Height {
		return nil, fmt.Errorf("decoder: encode rle: %d pixel bytes, want %d", len(pixels), srcRow*h.Height)
	}

	out := make([]byte, headerSize, headerSize+len(pixels)/2)
	writeHeader(out, h)

	n := len(pixels) / pixSize
	at := func(i int) []byte { return pixels[i*pixSize : (i+1)*pixSize] }
	same := func(i, j int) bool {
		a, b := at(i), at(j)
		for k := range a {
			if a[k] != b[k] {
				return false
			}
		}
		return true
	}

	for i := 0; i < n; {
		// Measure the repeat run starting at i.
		run := 1
		for i+run < n && run < 0x7F && same(i, i+run) {
			run++
		}
		if run >= 2 {
			out = append(out, byte(run))
			out = append(out, at(i)...)
			i += run
			continue
		}
		// Literal run: collect pixels until a repeat of >= 3 starts.
		start := i
		i++
		for i < n && i-start < 0x7F {
			if i+2 < n && same(i, i+1) && same(i, i+2) {
				break
			}
			i++
		}
		out = append(out, byte(i-start)|0x80)
		out = append(out, pixels[start*pixSize:i*pixSize]...)
	}
	return out, nil
}
