package core

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// compressor is one compression session: codec state plus the staging
// buffer compressed output accumulates in between passes. It is owned by
// exactly one driver and never shared.
type compressor struct {
	staged   bytes.Buffer
	w        io.WriteCloser
	flush    func() error
	finished bool
}

// newCompressor initializes codec state in the framing mode for format.
// The level applies to gzip (flate levels); lz4 uses its default.
func newCompressor(format Format, level int) (*compressor, error) {
	c := &compressor{}
	switch format {
	case FormatGzip:
		gw, err := gzip.NewWriterLevel(&c.staged, level)
		if err != nil {
			return nil, fmt.Errorf("init gzip writer: %w", err)
		}
		c.w = gw
		c.flush = gw.Flush
	case FormatLZ4:
		lw := lz4.NewWriter(&c.staged)
		c.w = lw
		c.flush = lw.Flush
	default:
		return nil, fmt.Errorf("unknown format: %d", format)
	}
	return c, nil
}

// pass runs exactly one codec pass over chunk and returns the compressed
// bytes it produced. The returned slice aliases the staging buffer and is
// valid until the next pass; drivers finish writing it before they read
// the next input chunk.
func (c *compressor) pass(chunk []byte) ([]byte, error) {
	c.staged.Reset()
	if _, err := c.w.Write(chunk); err != nil {
		return nil, fmt.Errorf("compress pass: %w", err)
	}
	if err := c.flush(); err != nil {
		return nil, fmt.Errorf("compress flush: %w", err)
	}
	return c.staged.Bytes(), nil
}

// finish finalizes the codec state exactly once and returns the stream
// tail (final block and frame trailer).
func (c *compressor) finish() ([]byte, error) {
	if c.finished {
		return nil, nil
	}
	c.finished = true
	c.staged.Reset()
	if err := c.w.Close(); err != nil {
		return nil, fmt.Errorf("finish compression: %w", err)
	}
	return c.staged.Bytes(), nil
}

// decompressor is one decompression session over a framed source. Its
// readChunk primitive blocks for the duration of the underlying disk and
// codec work, so drivers only ever call it from a worker goroutine.
type decompressor struct {
	zr     io.Reader
	closer func() error
}

// newDecompressor wraps src in the decoder for format. For gzip the
// frame header is read (and validated) immediately.
func newDecompressor(format Format, src io.Reader) (*decompressor, error) {
	d := &decompressor{}
	switch format {
	case FormatGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("init gzip reader: %w", err)
		}
		d.zr = zr
		d.closer = zr.Close
	case FormatLZ4:
		d.zr = lz4.NewReader(src)
		d.closer = func() error { return nil }
	default:
		return nil, fmt.Errorf("unknown format: %d", format)
	}
	return d, nil
}

// readChunk decompresses up to len(buf) bytes from the source. End of
// stream is reported as (0, io.EOF).
func (d *decompressor) readChunk(buf []byte) (int, error) {
	n, err := d.zr.Read(buf)
	if n > 0 {
		return n, nil
	}
	if err == io.EOF {
		return 0, io.EOF
	}
	if err != nil {
		return 0, fmt.Errorf("decompress pass: %w", err)
	}
	return 0, nil
}

func (d *decompressor) close() error {
	return d.closer()
}
