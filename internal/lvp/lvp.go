// Package lvp 定义封闭的语言版本对（LVP）枚举。
package lvp

import (
	"fmt"
	"strings"

	"theory/pkg/contract"
)

// LVP: 源语言→目标语言的固定组合。零值非法。
type LVP int

const (
	CobolToCSharp9 LVP = iota + 1
	Cpp17ToNodeJS14
	Java14ToNodeJS14
	Java14ToPython3
)

// All 按声明顺序返回全部 LVP。
func All() []LVP {
	return []LVP{CobolToCSharp9, Cpp17ToNodeJS14, Java14ToNodeJS14, Java14ToPython3}
}

var names = map[LVP]string{
	CobolToCSharp9:   "cobol_to_csharp_9",
	Cpp17ToNodeJS14:  "cpp_17_to_nodejs_14",
	Java14ToNodeJS14: "java_14_to_nodejs_14",
	Java14ToPython3:  "java_14_to_python_3",
}

// String 返回配置名（小写下划线）。
func (l LVP) String() string {
	if s, ok := names[l]; ok {
		return s
	}
	return fmt.Sprintf("lvp(%d)", int(l))
}

// Valid 报告 l 是否为已知 LVP。
func (l LVP) Valid() bool {
	_, ok := names[l]
	return ok
}

// Source 返回源语言显示名。
func (l LVP) Source() string {
	switch l {
	case CobolToCSharp9:
		return "COBOL"
	case Cpp17ToNodeJS14:
		return "C++17"
	case Java14ToNodeJS14, Java14ToPython3:
		return "Java 14"
	}
	return ""
}

// Target 返回目标语言显示名。
func (l LVP) Target() string {
	switch l {
	case CobolToCSharp9:
		return "C# 9"
	case Cpp17ToNodeJS14, Java14ToNodeJS14:
		return "Node.js 14"
	case Java14ToPython3:
		return "Python 3"
	}
	return ""
}

// Parse 解析配置名；大小写不敏感，接受 '-' 与 '_'。
func Parse(s string) (LVP, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for l, n := range names {
		if n == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("lvp %q: %w", s, contract.ErrUnknownLVP)
}

// SourceExtensions 返回源文件的常见扩展名（小写，含点），用于目录扫描过滤。
func (l LVP) SourceExtensions() []string {
	switch l {
	case CobolToCSharp9:
		return []string{".cbl", ".cob", ".cobol"}
	case Cpp17ToNodeJS14:
		return []string{".cpp", ".cc", ".cxx", ".hpp", ".h"}
	case Java14ToNodeJS14, Java14ToPython3:
		return []string{".java"}
	}
	return nil
}
