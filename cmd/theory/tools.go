package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"theory/internal/lang"
	"theory/internal/lvp"
	"theory/internal/theory"
	"theory/pkg/contract"
)

// formattedPath: format 子命令的默认输出。
var formattedPath = filepath.Join("temp", "formatted.txt")

func newFormatCmd() *cobra.Command {
	var (
		lvpName  string
		file     string
		out      string
		isTarget bool
		copyDirs []string
		copyExt  string
	)
	cmd := &cobra.Command{
		Use:   "format -l lvp -f file",
		Short: "Run the source formatter (or the target pretty-printer with --target) on one file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := lvp.Parse(lvpName)
			if err != nil {
				return configErr(err)
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return configErr(err)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return runtimeErr(err)
			}
			if isTarget {
				// 目标格式化器原地改写副本
				if err := os.WriteFile(out, src, 0o644); err != nil {
					return runtimeErr(err)
				}
				_, tar, err := lang.ForLVP(l)
				if err != nil {
					return configErr(err)
				}
				if err := tar.FormatFile(cmd.Context(), out); err != nil {
					if errors.Is(err, lang.ErrFormatterMissing) {
						return runtimeErr(fmt.Errorf("目标格式化器不可用: %w", err))
					}
					return runtimeErr(err)
				}
			} else {
				th, err := theory.New(l, theory.Options{Format: lang.FormatOptions{
					CopybookDirs: append(copyDirs, filepath.Dir(file)),
					CopybookExt:  copyExt,
					Warn:         func(msg string) { fprintf(cmd.ErrOrStderr(), "警告: %s\n", msg) },
				}})
				if err != nil {
					return configErr(err)
				}
				lines, err := th.Format(string(src))
				if err != nil {
					return runtimeErr(err)
				}
				if err := os.WriteFile(out, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
					return runtimeErr(err)
				}
			}
			fprintf(cmd.OutOrStdout(), "已输出到 %q\n", out)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&lvpName, "lvp", "l", "", "语言版本对")
	fs.StringVarP(&file, "file", "f", "", "源文件路径")
	fs.StringVarP(&out, "out", "o", formattedPath, "输出文件")
	fs.BoolVarP(&isTarget, "target", "t", false, "按目标语言格式化（调用外部格式化器）")
	fs.StringSliceVar(&copyDirs, "copybook-dir", nil, "COBOL 副本目录（可重复）")
	fs.StringVar(&copyExt, "copybook-ext", "cpy", "COBOL 副本扩展名")
	_ = cmd.MarkFlagRequired("lvp")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMaskCmd() *cobra.Command {
	var lvpName, file string
	cmd := &cobra.Command{
		Use:   "mask -l lvp -f file",
		Short: "Mask one file and write MASKED_<file>.txt next to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := lvp.Parse(lvpName)
			if err != nil {
				return configErr(err)
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return configErr(err)
			}
			th, err := theory.New(l, theory.Options{})
			if err != nil {
				return configErr(err)
			}
			lines, err := th.Mask(contract.NormalizeFileID(file), string(src))
			if err != nil {
				return runtimeErr(err)
			}
			out := maskedPath(file)
			var b strings.Builder
			for _, line := range lines {
				b.WriteString(line)
				b.WriteByte('\n')
			}
			if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
				return runtimeErr(err)
			}
			fprintf(cmd.OutOrStdout(), "已输出到 %q\n", out)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&lvpName, "lvp", "l", "", "语言版本对")
	fs.StringVarP(&file, "file", "f", "", "源文件路径")
	_ = cmd.MarkFlagRequired("lvp")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func maskedPath(file string) string {
	return filepath.Join(filepath.Dir(file), "MASKED_"+filepath.Base(file)+".txt")
}
