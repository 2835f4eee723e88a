package codebase

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"

	"codesight/internal/safeio"
)

// DefaultExtensions is the recognized source-file set.
var DefaultExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx", ".java",
	".cpp", ".c", ".cs", ".go", ".rb", ".php",
}

// DefaultMaxFileBytes caps individual file size.
const DefaultMaxFileBytes int64 = 1 << 20

const (
	metadataDirMarker  = "__MACOSX"
	metadataFilePrefix = "._"
)

// Structurer walks a directory and builds a Tree of recognized source files.
type Structurer struct {
	exts     map[string]struct{}
	maxBytes int64
	log      *zap.Logger
}

// Option configures a Structurer.
type Option func(*Structurer)

// WithExtensions replaces the recognized extension set (case-insensitive,
// leading dot optional).
func WithExtensions(exts ...string) Option {
	return func(s *Structurer) {
		s.exts = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			s.exts[e] = struct{}{}
		}
	}
}

// WithMaxFileBytes sets the per-file size cap; n <= 0 disables it.
func WithMaxFileBytes(n int64) Option {
	return func(s *Structurer) { s.maxBytes = n }
}

func NewStructurer(log *zap.Logger, opts ...Option) *Structurer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Structurer{maxBytes: DefaultMaxFileBytes, log: log}
	WithExtensions(DefaultExtensions...)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Recognized reports whether name has a recognized source extension.
func (s *Structurer) Recognized(name string) bool {
	_, ok := s.exts[strings.ToLower(path.Ext(name))]
	return ok
}

// Build walks root and returns the tree of recognized, readable text files.
// Unreadable entries are skipped with a warning; only a root that cannot be
// walked is an error.
func (s *Structurer) Build(root string) (*Tree, error) {
	s.log.Info("creating codebase structure", zap.String("root", root))
	r, err := safeio.NewRoot(root)
	if err != nil {
		return nil, fmt.Errorf("open analysis root: %w", err)
	}

	tree := NewTree()
	err = r.WalkDir(func(rel string, d fs.DirEntry, werr error) error {
		if werr != nil {
			if rel == "." {
				return werr
			}
			s.log.Warn("skipping unreadable entry", zap.String("path", rel), zap.Error(werr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.Contains(rel, metadataDirMarker) {
				s.log.Debug("skipping metadata directory", zap.String("path", rel))
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, metadataFilePrefix) {
			s.log.Debug("skipping metadata file", zap.String("path", rel))
			return nil
		}
		if !d.Type().IsRegular() || !s.Recognized(name) {
			return nil
		}

		content, rerr := r.ReadText(rel, s.maxBytes)
		if rerr != nil {
			s.log.Warn("could not read file", zap.String("path", rel), zap.Error(rerr))
			return nil
		}
		tree.Insert(rel, &FileNode{
			Path:    r.Abs(rel),
			Content: content,
			Size:    int64(len(content)),
		})
		s.log.Debug("loaded file", zap.String("path", rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	s.log.Info("finished creating structure", zap.Int("files", tree.Count()))
	return tree, nil
}
