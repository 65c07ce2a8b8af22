// Package catalog implements whole-archive operations against ZIP
// containers: list, exists, remove, size. Each operation is constructed
// with a reactor and posts its body there on Start; the body runs
// synchronously on the loop (there is no parallelism, only ordering
// relative to other scheduled work), and the result accessors are
// well-defined once the done signal has been delivered.
package catalog

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"gzpipe/pkg/logger"
	"gzpipe/pkg/progress"
	"gzpipe/pkg/reactor"
)

// copyChunk is the buffer size used when re-streaming entry bytes.
const copyChunk = 16 * 1024

// op carries the scheduling plumbing shared by the four operations.
type op struct {
	rt      *reactor.Reactor
	started bool
	done    chan error
}

func newOp(rt *reactor.Reactor) op {
	return op{rt: rt, done: make(chan error, 1)}
}

// Done delivers the operation's terminal status exactly once.
func (o *op) Done() <-chan error { return o.done }

// start posts body to the reactor. Single-use.
func (o *op) start(body func() error) {
	if o.started {
		return
	}
	o.started = true
	o.rt.Schedule(func() {
		o.done <- body()
	})
}

// ListEntries collects the names of every entry in an archive, front to
// back. An archive that cannot be opened yields an empty list; the open
// error is still delivered on Done.
type ListEntries struct {
	op
	path    string
	entries []string
}

// NewListEntries prepares a listing of the archive at path.
func NewListEntries(rt *reactor.Reactor, path string) *ListEntries {
	return &ListEntries{op: newOp(rt), path: path}
}

// Start schedules the listing on the reactor.
func (l *ListEntries) Start() {
	l.start(func() error {
		zr, err := zip.OpenReader(l.path)
		if err != nil {
			logger.Log.Error("list entries: open failed",
				zap.String("archive", l.path), zap.Error(err))
			return fmt.Errorf("open archive %s: %w", l.path, err)
		}
		defer zr.Close()
		for _, f := range zr.File {
			l.entries = append(l.entries, f.Name)
		}
		return nil
	})
}

// Entries returns the collected entry names. Valid after Done.
func (l *ListEntries) Entries() []string { return l.entries }

// EntryExists reports whether an archive contains an entry whose name is
// an exact, case-sensitive match.
type EntryExists struct {
	op
	path  string
	name  string
	found bool
}

// NewEntryExists prepares an existence check for name in the archive at
// path.
func NewEntryExists(rt *reactor.Reactor, path, name string) *EntryExists {
	return &EntryExists{op: newOp(rt), path: path, name: name}
}

// Start schedules the lookup on the reactor.
func (e *EntryExists) Start() {
	e.start(func() error {
		zr, err := zip.OpenReader(e.path)
		if err != nil {
			return fmt.Errorf("open archive %s: %w", e.path, err)
		}
		defer zr.Close()
		for _, f := range zr.File {
			if f.Name == e.name {
				e.found = true
				break
			}
		}
		return nil
	})
}

// Found reports the lookup result. Valid after Done.
func (e *EntryExists) Found() bool { return e.found }

// RemoveEntry rewrites an archive without one entry. Every other entry's
// raw compressed bytes are re-streamed into a new archive written to a
// temporary file beside the original, which is then atomically renamed
// over it. The original is never deleted before the replacement is
// durable, and the temporary file is removed on every error path.
type RemoveEntry struct {
	op
	path      string
	name      string
	succeeded bool
}

// NewRemoveEntry prepares removal of name from the archive at path.
func NewRemoveEntry(rt *reactor.Reactor, path, name string) *RemoveEntry {
	return &RemoveEntry{op: newOp(rt), path: path, name: name}
}

// Start schedules the rewrite on the reactor.
func (r *RemoveEntry) Start() {
	r.start(func() error {
		err := r.rewrite()
		if err != nil {
			logger.Log.Error("remove entry failed",
				zap.String("archive", r.path),
				zap.String("entry", r.name),
				zap.Error(err))
			return err
		}
		r.succeeded = true
		logger.Log.Info("entry removed",
			zap.String("archive", r.path),
			zap.String("entry", r.name))
		return nil
	})
}

func (r *RemoveEntry) rewrite() error {
	zr, err := zip.OpenReader(r.path)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", r.path, err)
	}
	defer zr.Close()

	found := false
	for _, f := range zr.File {
		if f.Name == r.name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("entry %q not found in %s", r.name, r.path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".rewrite-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	zw := zip.NewWriter(tmp)
	buf := make([]byte, copyChunk)
	for _, f := range zr.File {
		if f.Name == r.name {
			continue
		}
		if err := copyRawEntry(zw, f, buf); err != nil {
			cleanup()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return fmt.Errorf("finalize temp archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp archive: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}

// copyRawEntry re-streams one entry's compressed bytes without
// recompressing them, so surviving entries stay byte-identical. The
// copied bytes are credited to the progress counter.
func copyRawEntry(zw *zip.Writer, f *zip.File, buf []byte) error {
	src, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	hdr := f.FileHeader
	dst, err := zw.CreateRaw(&hdr)
	if err != nil {
		return fmt.Errorf("create entry %q: %w", f.Name, err)
	}
	pw := &progress.Writer{W: dst}
	if _, err := io.CopyBuffer(pw, src, buf); err != nil {
		return fmt.Errorf("copy entry %q: %w", f.Name, err)
	}
	return nil
}

// Succeeded reports whether the rewrite completed. Valid after Done.
func (r *RemoveEntry) Succeeded() bool { return r.succeeded }

// ArchiveSize reports the container file's byte length, measured by
// seeking to its end. Despite the name, this is the on-disk size of the
// ZIP file itself, not the sum of its entries' sizes in any form.
type ArchiveSize struct {
	op
	path string
	size int64
}

// NewArchiveSize prepares a size query for the archive at path.
func NewArchiveSize(rt *reactor.Reactor, path string) *ArchiveSize {
	return &ArchiveSize{op: newOp(rt), path: path}
}

// Start schedules the query on the reactor.
func (a *ArchiveSize) Start() {
	a.start(func() error {
		f, err := os.Open(a.path)
		if err != nil {
			return fmt.Errorf("open archive %s: %w", a.path, err)
		}
		defer f.Close()
		size, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return fmt.Errorf("seek archive %s: %w", a.path, err)
		}
		a.size = size
		return nil
	})
}

// Size returns the measured byte length. Valid after Done.
func (a *ArchiveSize) Size() int64 { return a.size }
