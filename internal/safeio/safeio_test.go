package safeio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/a.go", []byte("package pkg\n"))
	writeFile(t, dir, "bin.go", []byte{'a', 0, 'b'})
	writeFile(t, dir, "latin1.py", []byte{0xff, 0xfe, 'x'})
	writeFile(t, dir, "big.js", make([]byte, 64))

	root, err := NewRoot(dir)
	require.NoError(t, err)

	got, err := root.ReadText("pkg/a.go", 0)
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", got)

	_, err = root.ReadText("bin.go", 0)
	assert.ErrorIs(t, err, ErrNotText)

	_, err = root.ReadText("latin1.py", 0)
	assert.ErrorIs(t, err, ErrNotText)

	_, err = root.ReadText("big.js", 32)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestResolveRejectsTraversal(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)
	_, err = root.ReadText("../etc/passwd", 0)
	assert.Error(t, err)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := t.TempDir()
	writeFile(t, outside, "secret.go", []byte("package secret"))
	dir := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.go"), filepath.Join(dir, "link.go")))

	root, err := NewRoot(dir)
	require.NoError(t, err)
	_, err = root.ReadText("link.go", 0)
	assert.Error(t, err)
}

func TestWalkDirYieldsSlashPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/b/c.go", []byte("x"))
	root, err := NewRoot(dir)
	require.NoError(t, err)

	var files []string
	require.NoError(t, root.WalkDir(func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	}))
	assert.Equal(t, []string{"a/b/c.go"}, files)
}

func TestNewRootRejectsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.go", []byte("x"))
	_, err := NewRoot(filepath.Join(dir, "f.go"))
	assert.Error(t, err)

	_, err = NewRoot(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCreateWritesNestedFiles(t *testing.T) {
	dir := t.TempDir()
	root, err := NewRoot(dir)
	require.NoError(t, err)

	f, err := root.Create("pkg/sub/main.go")
	require.NoError(t, err)
	_, err = f.WriteString("package sub\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := root.ReadText("pkg/sub/main.go", 0)
	require.NoError(t, err)
	assert.Equal(t, "package sub\n", got)

	for _, bad := range []string{"", ".", "../x.go", "/etc/x.go"} {
		_, err := root.Create(bad)
		assert.Error(t, err, bad)
	}
}
