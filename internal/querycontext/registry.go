package querycontext

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"codesight/internal/codebase"
	"codesight/internal/fanout"
)

// CodebaseKey names the whole-codebase context in Registry.Failures.
const CodebaseKey = "<codebase>"

// DefaultWorkers bounds concurrent per-file construction.
const DefaultWorkers = 10

// Registry maps file paths to their contexts plus one whole-codebase context.
// It is read-only once built.
type Registry struct {
	Files    map[string]QueryContext
	Codebase QueryContext // nil when unavailable
	Failures map[string]error

	abs map[string]string // slash-form absolute path -> key
}

// Paths returns the registered file paths in sorted order.
func (r *Registry) Paths() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Files))
	for p := range r.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the context for path.
func (r *Registry) Lookup(path string) (QueryContext, bool) {
	if r == nil {
		return nil, false
	}
	qc, ok := r.Files[path]
	return qc, ok
}

// Resolve maps a path named by a caller to a registry key. It accepts the key
// itself, the file's absolute path on disk, or a slash-bounded suffix; a
// suffix matching more than one key resolves to nothing.
func (r *Registry) Resolve(target string) (string, bool) {
	if r == nil {
		return "", false
	}
	t := strings.TrimSpace(strings.ReplaceAll(target, `\`, "/"))
	if t == "" {
		return "", false
	}
	if _, ok := r.Files[t]; ok {
		return t, true
	}
	if key, ok := r.abs[path.Clean(t)]; ok {
		if _, ok := r.Files[key]; ok {
			return key, true
		}
	}
	t = strings.TrimPrefix(path.Clean("/"+t), "/")
	if _, ok := r.Files[t]; ok {
		return t, true
	}

	// Longest key that ends the target wins, e.g. a path under another root.
	longest := ""
	for key := range r.Files {
		if strings.HasSuffix("/"+t, "/"+key) && len(key) > len(longest) {
			longest = key
		}
	}
	if longest != "" {
		return longest, true
	}
	match := ""
	for key := range r.Files {
		if strings.HasSuffix(key, "/"+t) {
			if match != "" {
				return "", false
			}
			match = key
		}
	}
	return match, match != ""
}

// Builder constructs a Registry from a codebase tree.
type Builder struct {
	ctor    Constructor
	workers int
	log     *zap.Logger
}

func NewBuilder(ctor Constructor, workers int, log *zap.Logger) *Builder {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{ctor: ctor, workers: workers, log: log}
}

type built struct {
	qc  QueryContext
	err error
}

// Build constructs per-file contexts concurrently, then the whole-codebase
// context. Failures are logged and recorded, never returned.
func (b *Builder) Build(ctx context.Context, tree *codebase.Tree) *Registry {
	entries := tree.List()
	nodes := make(map[string]*codebase.FileNode, len(entries))
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		nodes[e.RelPath] = e.Node
		paths = append(paths, e.RelPath)
	}

	results := fanout.Map(ctx, b.workers, paths, func(ctx context.Context, p string) built {
		qc, err := b.ctor.Construct(ctx, nodes[p].Content)
		return built{qc: qc, err: err}
	})

	reg := &Registry{Files: map[string]QueryContext{}, Failures: map[string]error{}, abs: map[string]string{}}
	for _, e := range entries {
		if e.Node.Path != "" {
			reg.abs[filepath.ToSlash(filepath.Clean(e.Node.Path))] = e.RelPath
		}
	}
	for _, p := range paths {
		r := results[p]
		if r.err != nil || r.qc == nil {
			if r.err == nil {
				r.err = fmt.Errorf("no context constructed")
			}
			reg.Failures[p] = r.err
			b.log.Warn("failed to create query context", zap.String("path", p), zap.Error(r.err))
			continue
		}
		reg.Files[p] = r.qc
		b.log.Info("query context created", zap.String("path", p))
	}

	corpus := CodebaseCorpus(entries)
	if strings.TrimSpace(corpus) == "" {
		b.log.Warn("no code content found for codebase query context")
		return reg
	}
	qc, err := b.ctor.Construct(ctx, corpus)
	if err != nil || qc == nil {
		if err == nil {
			err = fmt.Errorf("no context constructed")
		}
		reg.Failures[CodebaseKey] = err
		b.log.Error("failed to create codebase-wide query context", zap.Error(err))
		return reg
	}
	reg.Codebase = qc
	b.log.Info("codebase-wide query context created", zap.Int("files", len(entries)))
	return reg
}

// CodebaseCorpus concatenates every file under a "=== FILE: <path> ===" header.
func CodebaseCorpus(entries []codebase.FileEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("\n\n=== FILE: ")
		b.WriteString(e.RelPath)
		b.WriteString(" ===\n")
		b.WriteString(e.Node.Content)
	}
	return b.String()
}
