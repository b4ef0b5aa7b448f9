// Package filesystem 实现把译文写入输出目录的 Writer（默认保留源目录层级，原子替换）。
package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"theory/pkg/contract"
)

// Options: 输出配置。
type Options struct {
	// OutputDir: 输出根目录（必需）。
	OutputDir string `json:"output_dir"`
	// Atomic: 同目录临时文件 + rename；nil 时默认 true。
	Atomic *bool `json:"atomic,omitempty"`
	// Flat: 仅保留文件名；nil 时默认 false（保留包/目录结构）。
	Flat *bool `json:"flat,omitempty"`
	// StripPrefix: 非扁平模式下从 ArtifactID 去掉的前缀目录（通常为输入根）。
	StripPrefix string `json:"strip_prefix,omitempty"`
	// PermFile/PermDir: 为 0 时使用 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

type FS struct {
	root    string
	strip   string
	atomic  bool
	flat    bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("writer: output_dir required: %w", contract.ErrInvalidInput)
	}
	w := &FS{
		root:    opts.OutputDir,
		atomic:  true,
		permF:   opts.PermFile,
		permD:   opts.PermDir,
		bufSize: opts.BufSize,
	}
	if opts.StripPrefix != "" {
		w.strip = string(contract.NormalizeFileID(opts.StripPrefix))
	}
	if opts.Atomic != nil {
		w.atomic = *opts.Atomic
	}
	if opts.Flat != nil {
		w.flat = *opts.Flat
	}
	if w.permF == 0 {
		w.permF = 0o644
	}
	if w.permD == 0 {
		w.permD = 0o755
	}
	if w.bufSize <= 0 {
		w.bufSize = 64 * 1024
	}
	return w, nil
}

var _ contract.Writer = (*FS)(nil)

// Root 返回输出根目录（工程文件与外部格式化使用）。
func (w *FS) Root() string { return w.root }

// Path 返回 id 映射到的目标路径；越界返回 ErrPathInvalid。
func (w *FS) Path(id contract.ArtifactID) (string, error) { return w.mapPath(id) }

// Write 将 r 的全部字节写入 id 映射的目标路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeOverwrite(ctx, dest, r)
}

// mapPath: 去前缀 + Clean + Join + 越界校验。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	s := string(id)
	if w.strip != "" && strings.HasPrefix(s, w.strip+"/") {
		s = s[len(w.strip)+1:]
	}
	rel := filepath.Clean(filepath.FromSlash(s))
	if w.flat {
		rel = filepath.Base(rel)
	}
	switch {
	case rel == "." || rel == ".." || rel == "":
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	case filepath.IsAbs(rel) || filepath.VolumeName(rel) != "":
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	case strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	return bw.Flush()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	_ = os.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err = io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return commitRename(tmpPath, dest)
}

// readerWithCtx: 每次 Read 前检查 ctx。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
