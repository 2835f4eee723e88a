package codebase

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shape map[string]int64

func shapeOf(t *Tree) shape {
	out := shape{}
	for _, e := range t.List() {
		out[e.RelPath+"|"+e.Node.Path] = e.Node.Size
	}
	return out
}

func TestSnapshot_RoundTripShape(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.py", "import os\n")
	writeFile(t, src, "pkg/b.go", "package pkg\n")
	tree, err := NewStructurer(nil).Build(src)
	require.NoError(t, err)

	out := t.TempDir()
	p, err := SaveSnapshot(tree, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, SnapshotFile), p)

	loaded, err := LoadSnapshot(out)
	require.NoError(t, err)
	assert.Equal(t, shapeOf(tree), shapeOf(loaded))
	for _, e := range loaded.List() {
		assert.Empty(t, e.Node.Content)
	}

	n, err := CountSnapshotFiles(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSnapshot_FileNodeFormat(t *testing.T) {
	tree := NewTree()
	tree.Insert("dir/x.go", &FileNode{Path: "/abs/dir/x.go", Content: "secret", Size: 6})
	out := t.TempDir()
	_, err := SaveSnapshot(tree, out)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(out, SnapshotFile))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.Contains(t, string(b), "\n  \"dir\"")

	var raw map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	node := raw["dir"]["x.go"]
	assert.Equal(t, "file", node["type"])
	assert.Equal(t, "/abs/dir/x.go", node["path"])
	assert.EqualValues(t, 6, node["size"])
}

func TestSummarizeSnapshot_Capped(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 200; i++ {
		tree.Insert("pkg/file_"+strings.Repeat("x", i%7)+string(rune('a'+i%26))+".go", &FileNode{Path: "/p", Size: int64(i)})
	}
	out := t.TempDir()
	_, err := SaveSnapshot(tree, out)
	require.NoError(t, err)

	s, err := SummarizeSnapshot(out, DefaultSummaryLimit)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(s)), DefaultSummaryLimit)
	assert.True(t, strings.HasPrefix(s, "{"))
}

func TestSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(t.TempDir())
	assert.Error(t, err)
	_, err = SummarizeSnapshot(t.TempDir(), 10)
	assert.Error(t, err)
}

func TestDecodeSnapshot(t *testing.T) {
	tree, err := DecodeSnapshot([]byte(`{"a.py":{"type":"file","path":"/src/a.py","size":3},"pkg":{"b.go":{"type":"file","path":"/src/pkg/b.go","size":5}}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Count())
	assert.Equal(t, shape{"a.py|/src/a.py": 3, "pkg/b.go|/src/pkg/b.go": 5}, shapeOf(tree))

	_, err = DecodeSnapshot([]byte("not json"))
	assert.Error(t, err)
}
