// Package postprocess 修复逐行译文中的转义，并在模板拼装后做整文件修正。
package postprocess

import (
	"regexp"
	"strings"

	"theory/internal/lvp"
)

// Postprocessor: 逐行与整文件后处理。
type Postprocessor interface {
	Line(line string) string
	File(text string) string
}

// SectionCaller 提供当前节的段落调用语句。
type SectionCaller interface {
	BuildSectionCalls() string
}

// ForLVP 返回 LVP 的后处理器；COBOL→C# 需要 sc。
func ForLVP(l lvp.LVP, sc SectionCaller) Postprocessor {
	if l == lvp.CobolToCSharp9 && sc != nil {
		return Cobol{sc: sc}
	}
	return Std{}
}

// Std: 通用后处理。
type Std struct{}

var _ Postprocessor = Std{}

var lineReplacer = strings.NewReplacer(`\&undsc`, "_", `\n`, "\n")

// Line 还原下划线转义并展开字面 \n；字符/字符串字面量 '\n' 与 "\n" 保持转义。
func (Std) Line(line string) string {
	if !strings.Contains(line, `\`) {
		return line
	}
	res := lineReplacer.Replace(line)
	res = strings.ReplaceAll(res, "'\n'", `'\n'`)
	return strings.ReplaceAll(res, "\"\n\"", `"\n"`)
}

func (Std) File(text string) string { return text }

// SectionCallsTag 与 itl 中的占位符一致。
const SectionCallsTag = "%section_calls%"

var uselessMethodRe = regexp.MustCompile(`public void (?P<name>\w+)\(\)\n\{\n*\}\n*`)

// Cobol: COBOL→C# 9 后处理。
type Cobol struct {
	Std
	sc SectionCaller
}

var _ Postprocessor = Cobol{}

// File 填充最后一个节的段落调用，再删除空方法及其调用。
func (c Cobol) File(text string) string {
	text = strings.ReplaceAll(text, SectionCallsTag, c.sc.BuildSectionCalls())
	return rmUselessMethods(text)
}

func rmUselessMethods(text string) string {
	for {
		m := uselessMethodRe.FindStringSubmatch(text)
		if m == nil {
			return text
		}
		text = strings.Replace(text, m[0], "", 1)
		text = strings.ReplaceAll(text, m[1]+"();\n", "")
	}
}
