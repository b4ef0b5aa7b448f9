// Package filesystem 实现基于本地文件系统与 STDIN 的源文件 Reader。
package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"theory/pkg/contract"
)

// Options 为 Reader 的可选配置。
type Options struct {
	// BufSize 读缓冲区大小（字节），默认 64KiB。
	BufSize int `json:"buf_size"`
	// ExcludeDirNames: 目录递归时跳过的目录基名（大小写不敏感），如 [".git","node_modules"]。
	ExcludeDirNames []string `json:"exclude_dir_names"`
	// Extensions: 目录递归时仅产出这些扩展名的文件（含点，大小写不敏感）；为空不过滤。
	// 显式列出的单文件 root 不受影响。
	Extensions []string `json:"extensions"`
	// StdinName: 从 STDIN 读取时使用的 FileID，默认 "stdin"。
	StdinName string `json:"stdin_name"`
}

// FileSystem 按稳定顺序遍历 roots：目录内先子目录、后文件，均为字典序。
type FileSystem struct {
	bufSize    int
	excludeDir map[string]struct{}
	exts       map[string]struct{}
	stdinName  string
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	r := &FileSystem{bufSize: o.BufSize, excludeDir: lowerSet(o.ExcludeDirNames), exts: lowerSet(o.Extensions), stdinName: o.StdinName}
	if r.bufSize <= 0 {
		r.bufSize = 64 * 1024
	}
	if r.stdinName == "" {
		r.stdinName = "stdin"
	}
	return r
}

func lowerSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		if x = strings.ToLower(strings.TrimSpace(x)); x != "" {
			m[x] = struct{}{}
		}
	}
	return m
}

// Iterate 对每个源文件调用 yield；roots 为空或仅为 "-" 时读取 STDIN。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(roots) == 0 || (len(roots) == 1 && roots[0] == "-") {
		return yield(contract.FileID(r.stdinName), newBufferedCloser(os.Stdin, r.bufSize))
	}
	for _, s := range roots {
		if s == "-" {
			return fmt.Errorf("stdin '-' cannot be mixed with other roots: %w", contract.ErrPathInvalid)
		}
	}
	for _, root := range roots {
		if err := r.iterateRoot(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) iterateRoot(ctx context.Context, root string, yield func(contract.FileID, io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		// 单个 root 的符号链接仅跟随到常规文件
		t, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !t.Mode().IsRegular() {
			return nil
		}
		return r.emit(root, yield)
	}
	if info.IsDir() {
		return r.walkDir(ctx, root, yield)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return r.emit(root, yield)
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(contract.FileID, io.ReadCloser) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), yield); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !r.wanted(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		// 目录内的符号链接仅跟随到常规文件；其他非常规文件（设备/FIFO）跳过
		mode := e.Type()
		if mode&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil {
				return err
			}
			mode = t.Mode()
		}
		if !mode.IsRegular() {
			continue
		}
		if err := r.emit(p, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) wanted(name string) bool {
	if len(r.exts) == 0 {
		return true
	}
	_, ok := r.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (r *FileSystem) emit(path string, yield func(contract.FileID, io.ReadCloser) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	brc := newBufferedCloser(f, r.bufSize)
	if err := yield(contract.NormalizeFileID(path), brc); err != nil {
		_ = brc.Close()
		return err
	}
	return nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }

var _ contract.Reader = (*FileSystem)(nil)
