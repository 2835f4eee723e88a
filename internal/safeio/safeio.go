// Package safeio confines file reads to one analysis root. Paths that escape
// the root, directly or through symlinks, are rejected.
package safeio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNotText is returned by ReadText for binary or non-UTF-8 content.
	ErrNotText = errors.New("safeio: content is not valid UTF-8 text")
	// ErrTooLarge is returned by ReadText when a file exceeds the size cap.
	ErrTooLarge = errors.New("safeio: file exceeds size limit")
)

// Root provides read-only helpers that resolve paths relative to a fixed directory.
type Root struct {
	absRoot string // absolute root with symlinks resolved
}

// NewRoot locks all future operations to the given directory.
// The path is resolved to an absolute, symlink-free directory.
func NewRoot(dir string) (*Root, error) {
	if dir == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("safeio: %s is not a directory", dir)
	}
	return &Root{absRoot: abs}, nil
}

// Path returns the absolute root directory.
func (r *Root) Path() string {
	if r == nil {
		return ""
	}
	return r.absRoot
}

// Abs resolves a root-relative path to an absolute one without touching disk.
func (r *Root) Abs(rel string) string {
	return filepath.Join(r.absRoot, filepath.FromSlash(rel))
}

// ReadText reads a root-relative file as text. Files larger than maxBytes
// (when > 0) fail with ErrTooLarge; content with NUL bytes or invalid UTF-8
// fails with ErrNotText.
func (r *Root) ReadText(rel string, maxBytes int64) (string, error) {
	p, err := r.resolve(rel)
	if err != nil {
		return "", err
	}
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("safeio: %s is a directory", rel)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, rel, info.Size())
	}

	var src io.Reader = f
	if maxBytes > 0 {
		src = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %s", ErrTooLarge, rel)
	}
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, rel)
	}
	return string(data), nil
}

// WalkDir walks the tree under the root, passing slash-separated
// root-relative paths to fn.
func (r *Root) WalkDir(fn fs.WalkDirFunc) error {
	if r == nil {
		return errors.New("safeio: root not configured")
	}
	return fs.WalkDir(os.DirFS(r.absRoot), ".", fn)
}

// Create opens a root-relative file for writing, creating parent
// directories. Absolute and escaping paths are rejected.
func (r *Root) Create(rel string) (*os.File, error) {
	if r == nil {
		return nil, errors.New("safeio: root not configured")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" ||
		clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("safeio: invalid path %q", rel)
	}
	dir, err := r.resolveDir(filepath.Dir(clean))
	if err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, filepath.Base(clean)), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// resolveDir creates a root-relative directory and checks that it still
// lands inside the root once symlinks are followed.
func (r *Root) resolveDir(rel string) (string, error) {
	if err := os.MkdirAll(filepath.Join(r.absRoot, rel), 0o755); err != nil {
		return "", err
	}
	return r.resolve(rel)
}

func (r *Root) resolve(userPath string) (string, error) {
	if r == nil {
		return "", errors.New("safeio: root not configured")
	}
	if userPath == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(filepath.FromSlash(userPath))
	if clean == "." {
		return r.absRoot, nil
	}

	isAbs := filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "")
	if !isAbs && (clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))) {
		return "", errors.New("safeio: path traversal not allowed")
	}

	joined := clean
	if !isAbs {
		joined = filepath.Join(r.absRoot, clean)
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !hasPathPrefix(resolved, r.absRoot) {
		return "", fmt.Errorf("safeio: %s resolves outside root", userPath)
	}
	return resolved, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path+sep, root)
}
