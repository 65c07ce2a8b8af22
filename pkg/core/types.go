package core

import (
	"fmt"
)

// ChunkSize is the fixed capacity of the input and output chunk buffers
// every codec session moves bytes through. Buffers are reused across
// successive reads of the same source; a driver never issues a new read
// into a buffer while a write of its previous contents is outstanding.
const ChunkSize = 16 * 1024

// Format identifies the stream framing a codec session produces or
// consumes.
type Format uint8

const (
	// FormatGzip is a gzip-framed deflate stream. The default.
	FormatGzip Format = 0

	// FormatLZ4 is an LZ4 frame stream.
	FormatLZ4 Format = 1
)

// String returns the human-readable name of a format.
func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// Ext returns the conventional file extension for the format, including
// the leading dot.
func (f Format) Ext() string {
	switch f {
	case FormatLZ4:
		return ".lz4"
	default:
		return ".gz"
	}
}

// ParseFormat parses a format from its string representation.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "gzip":
		return FormatGzip, nil
	case "lz4":
		return FormatLZ4, nil
	default:
		return 0, fmt.Errorf("unknown format: %q", name)
	}
}

// DerivedOutputName derives a decompression destination from a source
// path: a recognized compression extension (".gz" or ".lz4") is stripped;
// otherwise ".out" is appended so the output never collides with its
// source. No escaping is performed.
func DerivedOutputName(src string) string {
	for _, ext := range []string{".gz", ".lz4"} {
		if len(src) > len(ext) && src[len(src)-len(ext):] == ext {
			return src[:len(src)-len(ext)]
		}
	}
	return src + ".out"
}
