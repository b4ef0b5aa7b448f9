package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"theory/internal/lang"
	"theory/internal/lvp"
	"theory/internal/theory"
	"theory/pkg/contract"
	fswriter "theory/plugins/writer/filesystem"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// 通用桩件 ----------------------------------------------------

// mapReader 按 FileID 字典序产出内存文件。
type mapReader map[contract.FileID]string

func (r mapReader) Iterate(ctx context.Context, _ []string, yield func(contract.FileID, io.ReadCloser) error) error {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(contract.FileID(id), io.NopCloser(strings.NewReader(r[contract.FileID(id)]))); err != nil {
			return err
		}
	}
	return nil
}

type memWriter struct {
	mu   sync.Mutex
	out  map[contract.ArtifactID]string
	fail error
}

func (w *memWriter) Write(_ context.Context, id contract.ArtifactID, r io.Reader) error {
	if w.fail != nil {
		return w.fail
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		w.out = map[contract.ArtifactID]string{}
	}
	w.out[id] = string(b)
	return nil
}

// blockingFallback 阻塞直到 ctx 结束。
type blockingFallback struct{}

func (blockingFallback) TranslateLine(ctx context.Context, _ contract.LineRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

const (
	helloJava = "class Hello {\n    public static void main(String[] args) {\n        System.out.println(\"hi\");\n    }\n}"
	calcJava  = "int a = 1;\na = add(a);"
)

// UT-PIPE-01: 多文件并发翻译，工件名由目标语言决定，汇总按 FileID 排序
func TestRun_MultiFile(t *testing.T) {
	w := &memWriter{}
	r := mapReader{"src/Hello.java": helloJava, "Main.java": helloJava}
	sum, err := Run(context.Background(), Components{Reader: r, Writer: w}, Settings{LVP: lvp.Java14ToNodeJS14, Concurrency: 2}, nil)
	require.NoError(t, err)

	require.Len(t, sum.Files, 2)
	assert.Equal(t, contract.FileID("Main.java"), sum.Files[0].FileID)
	assert.Equal(t, contract.ArtifactID("src/Hello.js"), sum.Files[1].Artifact)
	assert.Equal(t, 10, sum.Lines)
	assert.Zero(t, sum.Errors)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, 100.0, sum.Accuracy())

	want := "class Hello {\n    static main(args) {\n        console.log(\"hi\");\n    }\n}\n"
	assert.Equal(t, want, w.out["Main.js"])
	assert.Equal(t, want, w.out["src/Hello.js"])
}

// UT-PIPE-02: 行级失败不影响写出，只计入错误数
func TestRun_LineFailure(t *testing.T) {
	w := &memWriter{}
	sum, err := Run(context.Background(), Components{Reader: mapReader{"Calc.java": calcJava}, Writer: w}, Settings{LVP: lvp.Java14ToNodeJS14}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Lines)
	assert.Equal(t, 1, sum.Errors)
	assert.InDelta(t, 50.0, sum.Accuracy(), 1e-9)
	assert.Contains(t, w.out["Calc.js"], theory.ErrorMarker)
}

// UT-PIPE-03: 写出失败为首错，Run 返回该错误
func TestRun_WriterError(t *testing.T) {
	boom := errors.New("disk full")
	w := &memWriter{fail: boom}
	_, err := Run(context.Background(), Components{Reader: mapReader{"A.java": helloJava, "B.java": helloJava}, Writer: w}, Settings{LVP: lvp.Java14ToNodeJS14, Concurrency: 2}, nil)
	assert.ErrorIs(t, err, boom)
}

// UT-PIPE-04: 单文件超时只标记该文件失败，其他文件照常写出
func TestRun_FileTimeout(t *testing.T) {
	w := &memWriter{}
	r := mapReader{"Calc.java": calcJava, "Hello.java": helloJava}
	set := Settings{LVP: lvp.Java14ToNodeJS14, Concurrency: 2, FileTimeout: 50 * time.Millisecond}
	sum, err := Run(context.Background(), Components{Reader: r, Writer: w, Fallback: blockingFallback{}}, set, nil)
	require.NoError(t, err)

	require.Len(t, sum.Files, 2)
	assert.Equal(t, 1, sum.Failed)
	assert.ErrorIs(t, sum.Files[0].Err, context.DeadlineExceeded, "Calc.java 应超时")
	assert.NoError(t, sum.Files[1].Err)
	assert.NotContains(t, w.out, contract.ArtifactID("Calc.js"))
	assert.Contains(t, w.out, contract.ArtifactID("Hello.js"))
}

// UT-PIPE-05: 整体取消向上传播
func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Components{Reader: mapReader{"A.java": helloJava}, Writer: &memWriter{}}, Settings{LVP: lvp.Java14ToNodeJS14}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// UT-PIPE-06: 落盘 Writer + 工程文件生成
func TestRun_ProjectFiles(t *testing.T) {
	out := t.TempDir()
	w, err := fswriter.New(&fswriter.Options{OutputDir: out})
	require.NoError(t, err)
	set := Settings{LVP: lvp.Java14ToPython3, ProjectFiles: true, FormatOutput: true}
	sum, err := Run(context.Background(), Components{Reader: mapReader{"pkg/Hello.java": helloJava}, Writer: w}, set, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "requirements.txt"), sum.Project)
	b, err := os.ReadFile(filepath.Join(out, "pkg", "Hello.py"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "class Hello:"), "译文内容: %q", b)
}

// UT-PIPE-07: 非 Locator Writer 请求格式化/工程文件时仅告警
func TestRun_NoLocator(t *testing.T) {
	w := &memWriter{}
	set := Settings{LVP: lvp.Java14ToNodeJS14, ProjectFiles: true, FormatOutput: true}
	sum, err := Run(context.Background(), Components{Reader: mapReader{"Hello.java": helloJava}, Writer: w}, set, nil)
	require.NoError(t, err)
	assert.Empty(t, sum.Project)
	assert.Contains(t, w.out, contract.ArtifactID("Hello.js"))
}

// UT-PIPE-08: 装配校验
func TestRun_Sanity(t *testing.T) {
	_, err := Run(context.Background(), Components{Writer: &memWriter{}}, Settings{LVP: lvp.Java14ToNodeJS14}, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Run(context.Background(), Components{Reader: mapReader{}, Writer: &memWriter{}}, Settings{}, nil)
	assert.ErrorIs(t, err, contract.ErrUnknownLVP)
	_, err = Run(context.Background(), Components{Reader: mapReader{}, Writer: &memWriter{}}, Settings{LVP: lvp.CobolToCSharp9, Concurrency: -1}, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestArtifactID(t *testing.T) {
	cases := []struct {
		l    lvp.LVP
		in   contract.FileID
		want contract.ArtifactID
	}{
		{lvp.CobolToCSharp9, "src/HELLO-WORLD.cbl", "src/HelloWorld.cs"},
		{lvp.Cpp17ToNodeJS14, "main.cpp", "main.js"},
		{lvp.Java14ToPython3, "a/b/Main.java", "a/b/Main.py"},
	}
	for _, c := range cases {
		_, tar, err := lang.ForLVP(c.l)
		require.NoError(t, err)
		assert.Equal(t, c.want, artifactID(tar, c.in))
	}
}
