package codebase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"codesight/internal/normalize"
)

// SnapshotFile is the fixed name of the persisted structure snapshot.
const SnapshotFile = "codebase_structure.json"

// DefaultSummaryLimit caps the snapshot rendering handed to the question planner.
const DefaultSummaryLimit = 2000

type snapshotFile struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// snapshotValue renders the tree without content. Files are marked with
// "type":"file"; everything else is a directory level.
func snapshotValue(t *Tree) map[string]any {
	out := make(map[string]any, len(t.Dirs)+len(t.Files))
	for name, d := range t.Dirs {
		out[name] = snapshotValue(d)
	}
	for name, f := range t.Files {
		out[name] = snapshotFile{Type: "file", Path: f.Path, Size: f.Size}
	}
	return out
}

// SaveSnapshot writes the content-free tree to dir/SnapshotFile.
func SaveSnapshot(t *Tree, dir string) (string, error) {
	if t == nil {
		t = NewTree()
	}
	b, err := normalize.MarshalIndentNoEscape(snapshotValue(t), "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	p := filepath.Join(dir, SnapshotFile)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return p, nil
}

// LoadSnapshot reads dir/SnapshotFile back into a Tree whose nodes carry
// path and size but no content.
func LoadSnapshot(dir string) (*Tree, error) {
	raw, err := readSnapshot(dir)
	if err != nil {
		return nil, err
	}
	return fromSnapshot(raw)
}

// CountSnapshotFiles counts file nodes in dir/SnapshotFile.
func CountSnapshotFiles(dir string) (int, error) {
	t, err := LoadSnapshot(dir)
	if err != nil {
		return 0, err
	}
	return t.Count(), nil
}

// SummarizeSnapshot returns the snapshot as indented JSON cut to at most
// limit characters.
func SummarizeSnapshot(dir string, limit int) (string, error) {
	raw, err := readSnapshot(dir)
	if err != nil {
		return "", err
	}
	b, err := normalize.MarshalIndentNoEscape(raw, "  ")
	if err != nil {
		return "", err
	}
	s := []rune(string(b))
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return string(s), nil
}

// DecodeSnapshot parses snapshot bytes, e.g. a copy kept in a report store.
func DecodeSnapshot(b []byte) (*Tree, error) {
	raw, err := decodeSnapshot(b)
	if err != nil {
		return nil, err
	}
	return fromSnapshot(raw)
}

func readSnapshot(dir string) (map[string]any, error) {
	b, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeSnapshot(b)
}

func decodeSnapshot(b []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return raw, nil
}

func fromSnapshot(raw map[string]any) (*Tree, error) {
	t := NewTree()
	for name, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("snapshot entry %q: unexpected %T", name, v)
		}
		if typ, _ := m["type"].(string); typ == "file" {
			p, _ := m["path"].(string)
			size, _ := m["size"].(float64)
			t.Files[name] = &FileNode{Path: p, Size: int64(size)}
			continue
		}
		sub, err := fromSnapshot(m)
		if err != nil {
			return nil, err
		}
		t.Dirs[name] = sub
	}
	return t, nil
}
