package filesystem

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/pkg/contract"
)

func noTemp(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "残留临时文件 %s", e.Name())
	}
}

// UT-WFS-01: 默认保留目录层级并原子替换
func TestWriteKeepsTree(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, w.Write(ctx, "com/acme/Main.py", bytes.NewBufferString("v1")))
	require.NoError(t, w.Write(ctx, "com/acme/Main.py", bytes.NewBufferString("v2")))

	b, err := os.ReadFile(filepath.Join(dir, "com", "acme", "Main.py"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))
	noTemp(t, filepath.Join(dir, "com", "acme"))
	assert.Equal(t, dir, w.Root())
}

// UT-WFS-02: 去掉输入根前缀
func TestStripPrefix(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir, StripPrefix: "src/java/"})
	p, err := w.Path("src/java/com/Main.js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "com", "Main.js"), p)

	p, err = w.Path("other/Main.js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "other", "Main.js"), p)
}

// UT-WFS-03: 扁平与非原子
func TestFlatNonAtomic(t *testing.T) {
	dir := t.TempDir()
	flat, atomic := true, false
	w, _ := New(&Options{OutputDir: dir, Flat: &flat, Atomic: &atomic})
	require.NoError(t, w.Write(context.Background(), "a/b/Hello.cs", bytes.NewBufferString("x")))
	_, err := os.Stat(filepath.Join(dir, "Hello.cs"))
	assert.NoError(t, err)
}

// UT-WFS-04: 越界路径
func TestPathInvalid(t *testing.T) {
	w, _ := New(&Options{OutputDir: t.TempDir()})
	for _, id := range []string{"../bad", "..", ".", "/abs/x.cs"} {
		_, err := w.Path(contract.ArtifactID(id))
		assert.ErrorIs(t, err, contract.ErrPathInvalid, id)
	}
	err := w.Write(context.Background(), "../bad", bytes.NewBufferString("x"))
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

// UT-WFS-05: 拷贝失败与取消不残留
func TestWriteFailures(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	assert.Error(t, w.Write(context.Background(), "a.cs", errReader{}))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Write(ctx, "a.cs", strings.NewReader("data")), context.Canceled)

	r := readerWithCtx(ctx, strings.NewReader("data"))
	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewInvalid(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = New(&Options{OutputDir: " "})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
