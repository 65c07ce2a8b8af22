// Package stream provides reactor-integrated byte streams over files.
// Reads and writes are issued without blocking the reactor: the syscall
// runs on a worker goroutine and the completion callback is scheduled
// back onto the loop, so continuations always execute on the reactor
// goroutine in the order their operations finished.
package stream

import (
	"fmt"
	"io"
	"os"

	"gzpipe/pkg/reactor"
)

// Stream is an asynchronous byte stream over an open file. A stream
// supports at most one outstanding operation at a time; callers sequence
// the next read or write from the previous completion.
type Stream struct {
	rt   *reactor.Reactor
	f    *os.File
	path string
}

// OpenRead opens path for reading. Failure is fatal to the caller's
// construction: no stream is returned.
func OpenRead(rt *reactor.Reactor, path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Stream{rt: rt, f: f, path: path}, nil
}

// Create creates (or truncates) path for writing.
func Create(rt *reactor.Reactor, path string) (*Stream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Stream{rt: rt, f: f, path: path}, nil
}

// Path returns the file path the stream was opened with.
func (s *Stream) Path() string { return s.path }

// Read fills buf with up to len(buf) bytes and schedules fn on the
// reactor with the byte count. End of input is reported as (0, io.EOF).
func (s *Stream) Read(buf []byte, fn func(n int, err error)) {
	s.rt.BeginAsync()
	go func() {
		n, err := s.f.Read(buf)
		s.rt.Schedule(func() {
			defer s.rt.EndAsync()
			fn(n, err)
		})
	}()
}

// Write writes all of p and schedules fn on the reactor with the result.
// p must not be mutated until fn runs; the drivers reuse their chunk
// buffers only after the completion fires.
func (s *Stream) Write(p []byte, fn func(err error)) {
	s.rt.BeginAsync()
	go func() {
		_, err := s.f.Write(p)
		if err != nil {
			err = fmt.Errorf("write %s: %w", s.path, err)
		}
		s.rt.Schedule(func() {
			defer s.rt.EndAsync()
			fn(err)
		})
	}()
}

// Offload runs fn on a worker goroutine and schedules the completion on
// the reactor. It exists for blocking work that is not a plain read or
// write on the stream's own file, such as a decode pass that pulls from
// a compressed source.
func Offload(rt *reactor.Reactor, fn func() (int, error), done func(n int, err error)) {
	rt.BeginAsync()
	go func() {
		n, err := fn()
		rt.Schedule(func() {
			defer rt.EndAsync()
			done(n, err)
		})
	}()
}

// Close closes the underlying file. Closing twice is harmless.
func (s *Stream) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// Sync flushes the file's contents to stable storage.
func (s *Stream) Sync() error {
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}
	return nil
}

// File exposes the underlying handle for synchronous collaborators such
// as the decompression codec, which reads the framed source directly on
// a worker goroutine.
func (s *Stream) File() io.Reader { return s.f }
