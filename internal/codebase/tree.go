// Package codebase builds the in-memory source tree for one analysis run and
// persists its content-free snapshot.
package codebase

import (
	"sort"
	"strings"
)

// FileNode is one source file. It is immutable once the tree is built.
type FileNode struct {
	Path    string // absolute path on disk
	Content string
	Size    int64 // content length in bytes
}

// Tree mirrors the directory hierarchy, one level per path segment.
type Tree struct {
	Dirs  map[string]*Tree
	Files map[string]*FileNode
}

// FileEntry pairs a slash-joined tree-relative path with its node.
type FileEntry struct {
	RelPath string
	Node    *FileNode
}

func NewTree() *Tree {
	return &Tree{Dirs: map[string]*Tree{}, Files: map[string]*FileNode{}}
}

// Insert places node at the slash-separated relative path, creating
// intermediate levels.
func (t *Tree) Insert(rel string, node *FileNode) {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	cur := t
	for _, seg := range parts[:len(parts)-1] {
		next, ok := cur.Dirs[seg]
		if !ok {
			next = NewTree()
			cur.Dirs[seg] = next
		}
		cur = next
	}
	cur.Files[parts[len(parts)-1]] = node
}

// List returns every file depth first, sorted by relative path.
func (t *Tree) List() []FileEntry {
	var out []FileEntry
	t.collect("", &out)
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}

func (t *Tree) collect(prefix string, out *[]FileEntry) {
	if t == nil {
		return
	}
	for name, n := range t.Files {
		*out = append(*out, FileEntry{RelPath: join(prefix, name), Node: n})
	}
	for name, d := range t.Dirs {
		d.collect(join(prefix, name), out)
	}
}

// Count returns the number of file nodes in the tree.
func (t *Tree) Count() int {
	if t == nil {
		return 0
	}
	n := len(t.Files)
	for _, d := range t.Dirs {
		n += d.Count()
	}
	return n
}

// Lookup finds a file by its slash-separated relative path.
func (t *Tree) Lookup(rel string) (*FileNode, bool) {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	cur := t
	for _, seg := range parts[:len(parts)-1] {
		if cur == nil {
			return nil, false
		}
		cur = cur.Dirs[seg]
	}
	if cur == nil {
		return nil, false
	}
	n, ok := cur.Files[parts[len(parts)-1]]
	return n, ok
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
