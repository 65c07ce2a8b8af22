package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// walkFiles gathers every regular file under root in filepath.Walk order
// (lexical within each directory). The result is the file queue the tree
// drivers drain one entry at a time.
func walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", root, err)
	}
	return files, nil
}

// WalkOrder exposes the traversal order the tree drivers use, so callers
// that need to know how a concatenated artifact was assembled can pin it.
func WalkOrder(root string) ([]string, error) {
	return walkFiles(root)
}
