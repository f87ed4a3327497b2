package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestFingerprintStable(t *testing.T) {
	files := map[string]string{
		"main.go":        "package main",
		"pkg/util.go":    "package pkg",
		"docs/readme.md": "# readme",
	}

	a := writeTree(t, files)
	b := writeTree(t, files)

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB, "identical trees must share a fingerprint")
	assert.Len(t, fpA, 64)
}

func TestFingerprintChangesOnContent(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": "package main"})
	before, err := Fingerprint(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main // changed"), 0o644))
	after, err := Fingerprint(root)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestFingerprintChangesOnRename(t *testing.T) {
	a := writeTree(t, map[string]string{"old.go": "package main"})
	b := writeTree(t, map[string]string{"new.go": "package main"})

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)

	assert.NotEqual(t, fpA, fpB, "paths are part of the identity, not just contents")
}

func TestFingerprintIgnoresGitDir(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": "package main"})
	before, err := Fingerprint(root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0o644))
	after, err := Fingerprint(root)
	require.NoError(t, err)

	assert.Equal(t, before, after, "VCS bookkeeping must not change the fingerprint")
}
