package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDispatchesOnInputKind(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "single.txt")
	require.NoError(t, os.WriteFile(file, []byte("single file body"), 0644))

	tree := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(tree, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "a"), []byte("A"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "b"), []byte("B"), 0644))

	fileArtifact := filepath.Join(dir, "single.txt.gz")
	require.NoError(t, Compress(file, fileArtifact))

	treeArtifact := filepath.Join(dir, "tree.gz")
	require.NoError(t, Compress(tree, treeArtifact))

	restored := filepath.Join(dir, "single.restored")
	require.NoError(t, DecompressFile(fileArtifact, restored))
	got, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, "single file body", string(got))

	concat := filepath.Join(dir, "tree.restored")
	require.NoError(t, DecompressFile(treeArtifact, concat))
	got, err = os.ReadFile(concat)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(got), "tree artifacts decode to one concatenated stream")
}

func TestCompressMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := Compress(filepath.Join(dir, "ghost"), filepath.Join(dir, "out.gz"))
	require.Error(t, err)
}
