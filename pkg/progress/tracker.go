// Package progress tracks bytes moved through the streaming drivers and
// reports throughput periodically. Reporting goes through the shared zap
// logger; in quiet mode (tests) the counter still runs but nothing is
// emitted.
package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gzpipe/pkg/logger"
)

var (
	bytesProcessed atomic.Uint64
	totalSize      uint64
	done           chan struct{}
	running        bool
	mu             sync.Mutex
	quiet          bool
)

// reportInterval is how often the tracker emits a throughput line.
const reportInterval = time.Second

// Init resets the counter and starts the periodic reporter. size may be
// zero when the total is unknown. A second Init while running is a no-op.
func Init(size uint64) {
	mu.Lock()
	defer mu.Unlock()

	if running {
		return
	}

	bytesProcessed.Store(0)
	totalSize = size

	done = make(chan struct{})
	running = true
	go report()
}

// SetQuiet suppresses periodic output. Tests enable this so the counter
// keeps working without cluttering logs.
func SetQuiet(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// Stop halts the periodic reporter.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if running {
		close(done)
		running = false
	}
}

// AddBytes adds processed bytes to the counter.
func AddBytes(n uint64) {
	if n > 0 {
		bytesProcessed.Add(n)
	}
}

// Processed returns the byte count accumulated since Init.
func Processed() uint64 {
	return bytesProcessed.Load()
}

// FormatSize returns a human-readable size string.
func FormatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// report emits a throughput line once per interval until Stop.
func report() {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	start := time.Now()
	var prev uint64

	for {
		select {
		case <-ticker.C:
			mu.Lock()
			q := quiet
			mu.Unlock()
			if q {
				continue
			}
			current := bytesProcessed.Load()
			rate := current - prev
			prev = current

			fields := []zap.Field{
				zap.String("processed", FormatSize(current)),
				zap.String("rate", FormatSize(rate)+"/s"),
			}
			if totalSize > 0 {
				pct := float64(current) / float64(totalSize) * 100
				fields = append(fields, zap.String("percent", fmt.Sprintf("%.1f%%", pct)))
			}
			logger.Log.Info("progress", fields...)

		case <-done:
			mu.Lock()
			q := quiet
			mu.Unlock()
			if !q {
				elapsed := time.Since(start)
				logger.Log.Info("processing complete",
					zap.String("total", FormatSize(bytesProcessed.Load())),
					zap.Duration("elapsed", elapsed),
				)
			}
			return
		}
	}
}

// Writer counts bytes as they pass through to the underlying writer.
type Writer struct {
	W io.Writer
}

// Write implements io.Writer, crediting successful writes to the counter.
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if err == nil && n > 0 {
		AddBytes(uint64(n))
	}
	return
}
