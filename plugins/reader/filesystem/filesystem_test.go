package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/pkg/contract"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func collect(t *testing.T, r *FileSystem, roots ...string) ([]string, error) {
	t.Helper()
	var ids []string
	err := r.Iterate(context.Background(), roots, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		_, _ = io.ReadAll(rc)
		ids = append(ids, string(id))
		return nil
	})
	return ids, err
}

// UT-RFS-01: 单文件 root 不受扩展名过滤
func TestIterateSingleFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "notes.txt")
	write(t, fp, "hello")
	r := New(&Options{Extensions: []string{".java"}})
	var got string
	err := r.Iterate(context.Background(), []string{fp}, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		got = string(b)
		assert.Equal(t, contract.NormalizeFileID(fp), id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

// UT-RFS-02: 目录递归按扩展名过滤，子目录优先、字典序稳定
func TestWalkOrderAndExtensions(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "B.java"), "b")
	write(t, filepath.Join(dir, "a.JAVA"), "a")
	write(t, filepath.Join(dir, "README.md"), "r")
	write(t, filepath.Join(dir, "pkg", "C.java"), "c")
	write(t, filepath.Join(dir, "node_modules", "D.java"), "d")

	r := New(&Options{Extensions: []string{".java"}, ExcludeDirNames: []string{"NODE_MODULES"}})
	ids, err := collect(t, r, dir)
	require.NoError(t, err)
	var base []string
	for _, id := range ids {
		base = append(base, filepath.Base(id))
	}
	assert.Equal(t, []string{"C.java", "B.java", "a.JAVA"}, base)
}

// UT-RFS-03: 符号链接：文件跟随，目录忽略，失效报错
func TestSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real", "T.java")
	write(t, target, "x")
	if err := os.Symlink(target, filepath.Join(root, "L.java")); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "dirlink")))

	ids, err := collect(t, New(nil), root)
	require.NoError(t, err)
	assert.Len(t, ids, 2, "real/T.java 与 L.java")
	assert.True(t, strings.HasSuffix(ids[1], "L.java"))

	ids, err = collect(t, New(nil), filepath.Join(root, "dirlink"))
	require.NoError(t, err)
	assert.Empty(t, ids)

	dangling := filepath.Join(root, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), dangling))
	_, err = collect(t, New(nil), dangling)
	assert.Error(t, err)
}

// UT-RFS-04: STDIN 与 '-' 混用
func TestStdin(t *testing.T) {
	old := os.Stdin
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	os.Stdin = pr
	defer func() { os.Stdin = old }()
	_, _ = pw.Write([]byte("DISPLAY 'HI'."))
	pw.Close()

	r := New(&Options{StdinName: "stdin.cbl"})
	var data []byte
	err = r.Iterate(context.Background(), []string{"-"}, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		assert.Equal(t, contract.FileID("stdin.cbl"), id)
		data, _ = io.ReadAll(rc)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "DISPLAY 'HI'.", string(data))

	_, err = collect(t, r, "-", "a")
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
}

// UT-RFS-05: 取消与 yield 错误传播
func TestCancelAndYieldError(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "A.java")
	write(t, fp, "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil).Iterate(ctx, []string{fp}, func(contract.FileID, io.ReadCloser) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	boom := errors.New("boom")
	err = New(nil).Iterate(context.Background(), []string{fp}, func(contract.FileID, io.ReadCloser) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = collect(t, New(nil), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
