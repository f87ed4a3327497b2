package store

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Fingerprint computes a stable digest of a directory tree: the sha256 over
// every regular file's relative path and content hash, visited in walk
// order. Two scans of byte-identical trees share a fingerprint, which is
// what keys diffs and makes re-scans detectable.
func Fingerprint(root string) (string, error) {
	tree := sha256.New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// VCS bookkeeping churns on every commit without changing the
			// scanned content.
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		sum, err := hashFile(path)
		if err != nil {
			return err
		}
		tree.Write([]byte(filepath.ToSlash(rel)))
		tree.Write([]byte{0})
		tree.Write(sum)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(tree.Sum(nil)), nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
