package codebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func relPaths(entries []FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestBuild_FiltersExtensionsAndMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "import os\n")
	writeFile(t, dir, "b.py", "import os\n")
	writeFile(t, dir, "c.txt", "notes")
	writeFile(t, dir, "src/App.TSX", "export {}")
	writeFile(t, dir, "src/._App.tsx", "junk")
	writeFile(t, dir, "__MACOSX/src/x.py", "junk")
	writeFile(t, dir, "bin/blob.go", "pkg\x00main")

	tree, err := NewStructurer(zap.NewNop()).Build(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py", "b.py", "src/App.TSX"}, relPaths(tree.List()))
	assert.Equal(t, 3, tree.Count())

	node, ok := tree.Lookup("a.py")
	require.True(t, ok)
	assert.Equal(t, "import os\n", node.Content)
	assert.EqualValues(t, len("import os\n"), node.Size)
	assert.True(t, filepath.IsAbs(node.Path))
}

func TestBuild_ThreeFileScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "import os\n\ndef total(xs):\n    return sum(xs)\n")
	writeFile(t, dir, "b.py", "import os\n\ndef total(xs):\n    return sum(xs)\n")
	writeFile(t, dir, "c.txt", "readme")

	tree, err := NewStructurer(nil).Build(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, relPaths(tree.List()))
	_, ok := tree.Lookup("c.txt")
	assert.False(t, ok)
}

func TestBuild_SizeCap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.go", "package a")
	writeFile(t, dir, "large.go", "package b // padding padding padding")

	tree, err := NewStructurer(nil, WithMaxFileBytes(16)).Build(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, relPaths(tree.List()))
}

func TestBuild_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.rs", "fn main() {}")
	writeFile(t, dir, "main.go", "package main")

	tree, err := NewStructurer(nil, WithExtensions("rs")).Build(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.rs"}, relPaths(tree.List()))
}

func TestBuild_EmptyAndMissingRoot(t *testing.T) {
	tree, err := NewStructurer(nil).Build(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, tree.Count())
	assert.Empty(t, tree.List())

	_, err = NewStructurer(nil).Build(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestTree_InsertNested(t *testing.T) {
	tree := NewTree()
	tree.Insert("pkg/sub/x.go", &FileNode{Content: "x"})
	tree.Insert("pkg/y.go", &FileNode{Content: "y"})
	require.Contains(t, tree.Dirs, "pkg")
	require.Contains(t, tree.Dirs["pkg"].Dirs, "sub")
	assert.Equal(t, []string{"pkg/sub/x.go", "pkg/y.go"}, relPaths(tree.List()))
	_, ok := tree.Lookup("pkg/missing/z.go")
	assert.False(t, ok)
}
