// Package lang 定义源/目标语言：源文件格式化、注释语法、目标侧外部格式化与工程文件。
package lang

import (
	"context"
	"errors"
	"fmt"

	"theory/internal/lvp"
	"theory/pkg/contract"
)

// ErrFormatterMissing: 外部格式化工具不可用（调用方记录告警并跳过）。
var ErrFormatterMissing = errors.New("external formatter not found")

// FormatOptions: 源格式化参数。
type FormatOptions struct {
	// CopybookDirs: COBOL 副本查找目录（按顺序）。
	CopybookDirs []string
	// CopybookExt: 副本扩展名（不含点）；空表示无扩展名。
	CopybookExt string
	// Warn 接收可继续的告警（副本缺失等）；可为 nil。
	Warn func(msg string)
}

func (o FormatOptions) warn(msg string) {
	if o.Warn != nil {
		o.Warn(msg)
	}
}

// Source: 源语言定义。
type Source interface {
	// FormatFile 将源文本规整为逐行可翻译的形式。
	FormatFile(text string, opts FormatOptions) ([]string, error)
	SingleLineComment(text string) string
}

// Target: 目标语言定义。
type Target interface {
	SingleLineComment(text string) string
	MultiLineComment(text string) string
	// FormatFile 调用外部格式化工具原地格式化；工具缺失返回 ErrFormatterMissing。
	FormatFile(ctx context.Context, path string) error
	// CreateProjectFiles 在 dir 下生成工程文件，返回生成文件路径。
	CreateProjectFiles(dir string, files []string) (string, error)
	TranslatedFileName(name string) string
	Extension() string
}

// ForLVP 返回 LVP 的源与目标语言定义。
func ForLVP(l lvp.LVP) (Source, Target, error) {
	switch l {
	case lvp.CobolToCSharp9:
		return Cobol{}, NewCSharp(), nil
	case lvp.Cpp17ToNodeJS14, lvp.Java14ToNodeJS14:
		return Std{}, NewNodeJS(), nil
	case lvp.Java14ToPython3:
		return Std{}, NewPython(), nil
	}
	return nil, nil, fmt.Errorf("language definition for %q: %w", l.String(), contract.ErrUnknownLVP)
}
