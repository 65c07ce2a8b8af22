package core

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"gzpipe/pkg/logger"
	"gzpipe/pkg/progress"
	"gzpipe/pkg/reactor"
	"gzpipe/pkg/stream"
)

// Option configures a driver at construction.
type Option func(*options)

type options struct {
	format    Format
	formatSet bool
	level     int
}

// WithFormat selects the stream framing. Compression defaults to gzip;
// decompression detects the framing from the source extension unless a
// format is forced here.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f; o.formatSet = true }
}

// WithLevel sets the compression level (gzip/flate levels; ignored by lz4).
func WithLevel(level int) Option {
	return func(o *options) { o.level = level }
}

func buildOptions(opts []Option) options {
	o := options{format: FormatGzip, level: -1} // -1 is the codec default
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// compressDriver is the shared engine behind the file and tree
// compression drivers: an ordered queue of source paths fed, one after
// another, through a single codec session into a single destination
// stream. Every continuation is scheduled from the previous completion,
// so within one driver chunk N's write always finishes before chunk N+1's
// read is issued and the chunk buffers are safe to reuse.
type compressDriver struct {
	rt    *reactor.Reactor
	codec *compressor
	queue []string
	src   *stream.Stream
	dst   *stream.Stream

	in     [ChunkSize]byte
	staged []byte

	started bool
	begun   time.Time
	bytesIn int64
	done    chan error
}

func newCompressDriver(rt *reactor.Reactor, queue []string, dstPath string, opts []Option) (*compressDriver, error) {
	o := buildOptions(opts)

	// The destination is opened eagerly: failure aborts construction.
	dst, err := stream.Create(rt, dstPath)
	if err != nil {
		return nil, err
	}

	codec, err := newCompressor(o.format, o.level)
	if err != nil {
		dst.Close()
		return nil, err
	}

	return &compressDriver{
		rt:    rt,
		codec: codec,
		queue: queue,
		dst:   dst,
		done:  make(chan error, 1),
	}, nil
}

// Start begins the read→compress→write cycle. It takes no arguments and
// returns nothing; the terminal status is delivered on Done. Calling
// Start twice does nothing.
func (d *compressDriver) Start() {
	if d.started {
		return
	}
	d.started = true
	d.begun = time.Now()
	d.rt.Schedule(d.openNext)
}

// Done delivers the driver's terminal status exactly once: nil on
// success, the failing error otherwise. The channel is buffered, so the
// driver never blocks on an absent receiver.
func (d *compressDriver) Done() <-chan error { return d.done }

// openNext pops the next source off the queue and begins reading it, or
// finishes the stream when the queue has drained.
func (d *compressDriver) openNext() {
	if len(d.queue) == 0 {
		d.finishCompression()
		return
	}
	path := d.queue[0]
	d.queue = d.queue[1:]

	src, err := stream.OpenRead(d.rt, path)
	if err != nil {
		d.fail(err)
		return
	}
	d.src = src
	d.doRead()
}

// doRead issues a non-blocking read of up to one chunk from the current
// source.
func (d *compressDriver) doRead() {
	d.src.Read(d.in[:], func(n int, err error) {
		if err != nil && err != io.EOF {
			d.fail(fmt.Errorf("read %s: %w", d.src.Path(), err))
			return
		}
		if n == 0 {
			// End of this source: close it and move to the next one.
			// Every source feeds the same codec session and the same
			// artifact, with no boundary between them.
			if cerr := d.src.Close(); cerr != nil {
				d.fail(cerr)
				return
			}
			d.src = nil
			d.openNext()
			return
		}
		d.bytesIn += int64(n)
		progress.AddBytes(uint64(n))
		d.doCompress(d.in[:n])
	})
}

// doCompress runs exactly one codec pass over chunk, then writes the
// compressed bytes it produced before requesting the next chunk.
func (d *compressDriver) doCompress(chunk []byte) {
	out, err := d.codec.pass(chunk)
	if err != nil {
		d.fail(err)
		return
	}
	d.staged = out
	d.writeStaged(d.doRead)
}

// writeStaged drains the staged compressed bytes in chunk-sized slices.
// Each write's completion either issues the next slice (more output
// pending) or invokes then, the hook that requests the next input chunk.
func (d *compressDriver) writeStaged(then func()) {
	if len(d.staged) == 0 {
		then()
		return
	}
	slice := d.staged
	if len(slice) > ChunkSize {
		slice = slice[:ChunkSize]
	}
	d.dst.Write(slice, func(err error) {
		if err != nil {
			d.fail(err)
			return
		}
		d.staged = d.staged[len(slice):]
		d.writeStaged(then)
	})
}

// finishCompression finalizes the codec state, writes the stream tail,
// and closes the artifact.
func (d *compressDriver) finishCompression() {
	tail, err := d.codec.finish()
	if err != nil {
		d.fail(err)
		return
	}
	d.staged = tail
	d.writeStaged(func() {
		if err := d.dst.Sync(); err != nil {
			d.fail(err)
			return
		}
		if err := d.dst.Close(); err != nil {
			d.fail(err)
			return
		}
		logger.Log.Info("compression finished",
			zap.String("output", d.dst.Path()),
			zap.Int64("bytes_in", d.bytesIn),
			zap.Duration("elapsed", time.Since(d.begun)),
		)
		d.done <- nil
	})
}

// fail closes whatever is still open, logs, and delivers the error.
func (d *compressDriver) fail(err error) {
	if d.src != nil {
		d.src.Close()
		d.src = nil
	}
	d.dst.Close()
	logger.Log.Error("compression failed",
		zap.String("output", d.dst.Path()),
		zap.Error(err),
	)
	d.done <- err
}

// FileCompressionDriver streams one file through a compression session
// into a gzip- or lz4-framed artifact.
type FileCompressionDriver struct {
	*compressDriver
}

// NewFileCompressionDriver opens dst eagerly and initializes the codec.
// The driver is single-use: construct, Start once, receive on Done.
func NewFileCompressionDriver(rt *reactor.Reactor, src, dst string, opts ...Option) (*FileCompressionDriver, error) {
	d, err := newCompressDriver(rt, []string{src}, dst, opts)
	if err != nil {
		return nil, err
	}
	return &FileCompressionDriver{d}, nil
}

// TreeCompressionDriver streams every regular file under a directory,
// one after another, through a single compression session into a single
// artifact. The artifact carries no file boundaries, names, or counts:
// decompressing it yields the concatenation of all member files in
// traversal order, indistinguishable from a single-file artifact. That
// shape is a compatibility contract, not an accident; see WalkOrder for
// pinning the traversal.
type TreeCompressionDriver struct {
	*compressDriver
}

// NewTreeCompressionDriver enumerates root up front (failure aborts
// construction) and opens dst eagerly.
func NewTreeCompressionDriver(rt *reactor.Reactor, root, dst string, opts ...Option) (*TreeCompressionDriver, error) {
	files, err := walkFiles(root)
	if err != nil {
		return nil, err
	}
	d, err := newCompressDriver(rt, files, dst, opts)
	if err != nil {
		return nil, err
	}
	logger.Log.Debug("tree enumerated",
		zap.String("root", root),
		zap.Int("files", len(files)),
	)
	return &TreeCompressionDriver{d}, nil
}
