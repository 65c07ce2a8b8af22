// Package lib is the synchronous facade over the streaming drivers and
// catalog operations. Each helper builds a reactor, starts the driver on
// it, runs the loop to idle, and returns the driver's terminal status —
// one call per job, for hosts that do not manage a reactor themselves.
package lib

import (
	"os"

	"gzpipe/pkg/catalog"
	"gzpipe/pkg/core"
	"gzpipe/pkg/reactor"
)

// Format re-exported from core.
type Format = core.Format

// Re-export stream framings.
const (
	FormatGzip = core.FormatGzip
	FormatLZ4  = core.FormatLZ4
)

// ParseFormat re-exported from core.
var ParseFormat = core.ParseFormat

// CompressFile compresses one file into a framed artifact at output.
func CompressFile(input, output string, opts ...core.Option) error {
	rt := reactor.New()
	d, err := core.NewFileCompressionDriver(rt, input, output, opts...)
	if err != nil {
		return err
	}
	d.Start()
	rt.Run()
	return <-d.Done()
}

// CompressTree compresses every regular file under root, concatenated in
// traversal order, into a single framed artifact at output.
func CompressTree(root, output string, opts ...core.Option) error {
	rt := reactor.New()
	d, err := core.NewTreeCompressionDriver(rt, root, output, opts...)
	if err != nil {
		return err
	}
	d.Start()
	rt.Run()
	return <-d.Done()
}

// Compress dispatches on the input: directories go through CompressTree,
// everything else through CompressFile.
func Compress(input, output string, opts ...core.Option) error {
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return CompressTree(input, output, opts...)
	}
	return CompressFile(input, output, opts...)
}

// DecompressFile decodes one framed artifact into output. An empty
// output derives the destination from the input name.
func DecompressFile(input, output string, opts ...core.Option) error {
	rt := reactor.New()
	d, err := core.NewFileDecompressionDriver(rt, input, output, opts...)
	if err != nil {
		return err
	}
	d.Start()
	rt.Run()
	return <-d.Done()
}

// DecompressTree decodes every recognized artifact under root.
func DecompressTree(root string, opts ...core.Option) error {
	rt := reactor.New()
	d, err := core.NewTreeDecompressionDriver(rt, root, opts...)
	if err != nil {
		return err
	}
	d.Start()
	rt.Run()
	return <-d.Done()
}

// ListEntries returns the entry names of the ZIP archive at path.
func ListEntries(path string) ([]string, error) {
	rt := reactor.New()
	op := catalog.NewListEntries(rt, path)
	op.Start()
	rt.Run()
	if err := <-op.Done(); err != nil {
		return nil, err
	}
	return op.Entries(), nil
}

// EntryExists reports whether the archive contains an exact-match entry.
func EntryExists(path, name string) (bool, error) {
	rt := reactor.New()
	op := catalog.NewEntryExists(rt, path, name)
	op.Start()
	rt.Run()
	if err := <-op.Done(); err != nil {
		return false, err
	}
	return op.Found(), nil
}

// RemoveEntry rewrites the archive without the named entry.
func RemoveEntry(path, name string) error {
	rt := reactor.New()
	op := catalog.NewRemoveEntry(rt, path, name)
	op.Start()
	rt.Run()
	return <-op.Done()
}

// ArchiveSize returns the archive container file's byte length.
func ArchiveSize(path string) (int64, error) {
	rt := reactor.New()
	op := catalog.NewArchiveSize(rt, path)
	op.Start()
	rt.Run()
	if err := <-op.Done(); err != nil {
		return 0, err
	}
	return op.Size(), nil
}
