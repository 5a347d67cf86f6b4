package pix

import "errors"

// ErrUnsupportedFormat is returned when no pixel codec, decoder, or draw
// unit is registered for a requested format. The root package re-exports it
// as picogfx.ErrUnsupportedFormat.
var ErrUnsupportedFormat = errors.New("pix: unsupported format")
