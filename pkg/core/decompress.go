package core

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"gzpipe/pkg/logger"
	"gzpipe/pkg/progress"
	"gzpipe/pkg/reactor"
	"gzpipe/pkg/stream"
)

// decompressDriver is the shared engine behind the file and tree
// decompression drivers: an ordered queue of framed artifacts, each
// decoded into its own destination file. The decode side of the codec is
// a blocking "decompress one chunk" primitive, so it always runs on a
// worker goroutine; only completions execute on the reactor.
type decompressDriver struct {
	rt    *reactor.Reactor
	queue []string
	opts  options

	codec *decompressor
	src   *stream.Stream
	dst   *stream.Stream

	out [ChunkSize]byte

	started  bool
	begun    time.Time
	bytesOut int64
	done     chan error
}

func newDecompressDriver(rt *reactor.Reactor, queue []string, opts []Option) *decompressDriver {
	return &decompressDriver{
		rt:    rt,
		queue: queue,
		opts:  buildOptions(opts),
		done:  make(chan error, 1),
	}
}

// Start begins draining the archive queue. Single-use; a second call
// does nothing. The terminal status arrives on Done.
func (d *decompressDriver) Start() {
	if d.started {
		return
	}
	d.started = true
	d.begun = time.Now()
	d.rt.Schedule(d.openNext)
}

// Done delivers the driver's terminal status exactly once.
func (d *decompressDriver) Done() <-chan error { return d.done }

func (d *decompressDriver) formatFor(path string) Format {
	if d.opts.formatSet {
		return d.opts.format
	}
	if strings.HasSuffix(path, ".lz4") {
		return FormatLZ4
	}
	return FormatGzip
}

// openNext starts the decode cycle for the next archive: the preopened
// pair if the constructor already opened one, otherwise the head of the
// queue. With everything drained it delivers success.
func (d *decompressDriver) openNext() {
	if d.src != nil {
		d.doRead()
		return
	}
	if len(d.queue) == 0 {
		logger.Log.Info("decompression finished",
			zap.Int64("bytes_out", d.bytesOut),
			zap.Duration("elapsed", time.Since(d.begun)),
		)
		d.done <- nil
		return
	}
	path := d.queue[0]
	d.queue = d.queue[1:]
	dstPath := DerivedOutputName(path)

	src, err := stream.OpenRead(d.rt, path)
	if err != nil {
		d.fail(err)
		return
	}
	d.src = src

	dst, err := stream.Create(d.rt, dstPath)
	if err != nil {
		src.Close()
		d.src = nil
		d.fail(err)
		return
	}
	d.dst = dst
	d.doRead()
}

// doRead offloads one blocking decode pass to a worker. The codec
// session is created lazily on the worker as well, since reading the
// frame header already blocks on the source.
func (d *decompressDriver) doRead() {
	format := d.formatFor(d.src.Path())
	stream.Offload(d.rt, func() (int, error) {
		if d.codec == nil {
			codec, err := newDecompressor(format, d.src.File())
			if err != nil {
				return 0, err
			}
			d.codec = codec
		}
		return d.codec.readChunk(d.out[:])
	}, func(n int, err error) {
		if err == io.EOF || (n == 0 && err == nil) {
			d.finishArchive()
			return
		}
		if err != nil {
			d.fail(fmt.Errorf("decompress %s: %w", d.src.Path(), err))
			return
		}
		d.bytesOut += int64(n)
		progress.AddBytes(uint64(n))
		d.dst.Write(d.out[:n], func(err error) {
			if err != nil {
				d.fail(err)
				return
			}
			d.doRead()
		})
	})
}

// finishArchive closes out the current archive and advances the queue.
func (d *decompressDriver) finishArchive() {
	if err := d.codec.close(); err != nil {
		d.fail(err)
		return
	}
	d.codec = nil
	if err := d.src.Close(); err != nil {
		d.fail(err)
		return
	}
	d.src = nil
	if err := d.dst.Close(); err != nil {
		d.fail(err)
		return
	}
	logger.Log.Debug("archive decompressed", zap.String("output", d.dst.Path()))
	d.dst = nil
	d.openNext()
}

func (d *decompressDriver) fail(err error) {
	if d.src != nil {
		d.src.Close()
		d.src = nil
	}
	if d.dst != nil {
		d.dst.Close()
		d.dst = nil
	}
	d.codec = nil
	logger.Log.Error("decompression failed", zap.Error(err))
	d.done <- err
}

// FileDecompressionDriver decodes one gzip- or lz4-framed artifact into
// a destination file.
type FileDecompressionDriver struct {
	*decompressDriver
}

// NewFileDecompressionDriver opens src and dst eagerly; failure aborts
// construction. An empty dst derives the destination mechanically from
// the source name (strip a recognized compression extension, or append
// ".out").
func NewFileDecompressionDriver(rt *reactor.Reactor, src, dst string, opts ...Option) (*FileDecompressionDriver, error) {
	d := newDecompressDriver(rt, nil, opts)

	if dst == "" {
		dst = DerivedOutputName(src)
	}
	srcStream, err := stream.OpenRead(rt, src)
	if err != nil {
		return nil, err
	}
	dstStream, err := stream.Create(rt, dst)
	if err != nil {
		srcStream.Close()
		return nil, err
	}
	d.src = srcStream
	d.dst = dstStream
	return &FileDecompressionDriver{d}, nil
}

// TreeDecompressionDriver decodes every recognized artifact under a
// directory, one after another. Destination names are always derived;
// there is no collision handling beyond the derivation rule.
type TreeDecompressionDriver struct {
	*decompressDriver
}

// NewTreeDecompressionDriver enumerates artifacts under root (files with
// a ".gz" or ".lz4" extension, in traversal order). Enumeration failure
// aborts construction.
func NewTreeDecompressionDriver(rt *reactor.Reactor, root string, opts ...Option) (*TreeDecompressionDriver, error) {
	files, err := walkFiles(root)
	if err != nil {
		return nil, err
	}
	var archives []string
	for _, f := range files {
		if strings.HasSuffix(f, ".gz") || strings.HasSuffix(f, ".lz4") {
			archives = append(archives, f)
		}
	}
	logger.Log.Debug("archives enumerated",
		zap.String("root", root),
		zap.Int("archives", len(archives)),
	)
	return &TreeDecompressionDriver{newDecompressDriver(rt, archives, opts)}, nil
}
