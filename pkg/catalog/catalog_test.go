package catalog

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gzpipe/pkg/progress"
	"gzpipe/pkg/reactor"
)

// writeArchive builds a ZIP fixture with the given entries in order.
func writeArchive(t *testing.T, path string, entries map[string]string, order []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.Copy(w, strings.NewReader(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// readEntries returns every entry's decompressed contents.
func readEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(data)
	}
	return out
}

func listEntries(t *testing.T, path string) ([]string, error) {
	t.Helper()
	rt := reactor.New()
	op := NewListEntries(rt, path)
	op.Start()
	rt.Run()
	return op.Entries(), <-op.Done()
}

func entryExists(t *testing.T, path, name string) (bool, error) {
	t.Helper()
	rt := reactor.New()
	op := NewEntryExists(rt, path, name)
	op.Start()
	rt.Run()
	return op.Found(), <-op.Done()
}

func TestListEntriesFrontToBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeArchive(t, path,
		map[string]string{"z": "1", "a": "2", "m": "3"},
		[]string{"z", "a", "m"})

	entries, err := listEntries(t, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, entries, "names in archive order, not sorted")
}

func TestListEntriesIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeArchive(t, path,
		map[string]string{"a": "1", "b": "2"},
		[]string{"a", "b"})

	first, err := listEntries(t, path)
	require.NoError(t, err)
	second, err := listEntries(t, path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListEntriesOpenFailure(t *testing.T) {
	entries, err := listEntries(t, filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
	assert.Empty(t, entries, "open failure leaves the result empty")
}

func TestEntryExistsExactMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeArchive(t, path,
		map[string]string{"Readme.md": "hi"},
		[]string{"Readme.md"})

	found, err := entryExists(t, path, "Readme.md")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = entryExists(t, path, "readme.md")
	require.NoError(t, err)
	assert.False(t, found, "matching is case-sensitive")

	found, err = entryExists(t, path, "Readme")
	require.NoError(t, err)
	assert.False(t, found, "matching is exact, not prefix")
}

func TestEntryExistsEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.zip")
	writeArchive(t, path, nil, nil)

	for _, name := range []string{"", "anything", "a/b"} {
		found, err := entryExists(t, path, name)
		require.NoError(t, err)
		assert.False(t, found)
	}
}

func TestRemoveEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	contents := map[string]string{
		"a": "entry a body",
		"b": "entry b body",
		"c": "entry c body",
	}
	writeArchive(t, path, contents, []string{"a", "b", "c"})

	counted := progress.Processed()

	rt := reactor.New()
	op := NewRemoveEntry(rt, path, "b")
	op.Start()
	rt.Run()
	require.NoError(t, <-op.Done())
	assert.True(t, op.Succeeded())

	assert.Greater(t, progress.Processed(), counted,
		"re-streamed entry bytes are credited to the progress counter")

	entries, err := listEntries(t, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, entries)

	// Survivors are byte-identical.
	after := readEntries(t, path)
	assert.Equal(t, map[string]string{"a": "entry a body", "c": "entry c body"}, after)

	found, err := entryExists(t, path, "b")
	require.NoError(t, err)
	assert.False(t, found)

	// No temp files left beside the archive.
	matches, err := filepath.Glob(filepath.Join(dir, ".rewrite-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRemoveEntryMissingName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeArchive(t, path, map[string]string{"a": "1"}, []string{"a"})

	rt := reactor.New()
	op := NewRemoveEntry(rt, path, "nope")
	op.Start()
	rt.Run()
	require.Error(t, <-op.Done())
	assert.False(t, op.Succeeded())

	// Original untouched.
	entries, err := listEntries(t, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, entries)
	matches, err := filepath.Glob(filepath.Join(dir, ".rewrite-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestArchiveSizeIsContainerLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeArchive(t, path,
		map[string]string{"a": strings.Repeat("x", 10000)},
		[]string{"a"})

	info, err := os.Stat(path)
	require.NoError(t, err)

	rt := reactor.New()
	op := NewArchiveSize(rt, path)
	op.Start()
	rt.Run()
	require.NoError(t, <-op.Done())

	assert.Equal(t, info.Size(), op.Size(),
		"the on-disk container length, not the sum of entry sizes")
	assert.NotEqual(t, int64(10000), op.Size())
}

func TestOperationsOrderOnSharedReactor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeArchive(t, path,
		map[string]string{"a": "1", "b": "2"},
		[]string{"a", "b"})

	// Remove then exists, scheduled before Run: the reactor processes
	// them in posting order, so the lookup sees the rewritten archive.
	rt := reactor.New()
	remove := NewRemoveEntry(rt, path, "a")
	exists := NewEntryExists(rt, path, "a")
	remove.Start()
	exists.Start()
	rt.Run()

	require.NoError(t, <-remove.Done())
	require.NoError(t, <-exists.Done())
	assert.False(t, exists.Found())
}
