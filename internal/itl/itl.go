// Package itl 实现即时翻译层：按 LVP 的有序规则对单行（相对掩码空间）做确定性翻译，
// 未命中时再查数据映射表。
package itl

import (
	"context"
	"fmt"
	"regexp"

	"theory/internal/datamap"
	"theory/internal/lvp"
	"theory/internal/store"
	"theory/internal/template"
	"theory/internal/veil"
	"theory/pkg/contract"
)

// ITL: 即时翻译层。
type ITL interface {
	Reset()
	// Translate 翻译一行（已 strip，相对掩码空间）；ok=false 表示无规则命中。
	// 译文为空串表示该行被有意丢弃。
	Translate(ctx context.Context, line string, indent int) (out string, ok bool, err error)
	// Map 以空白不敏感方式查数据映射表。
	Map(line string) (string, bool)
}

// DirectFunc: 无状态递归翻译（ITL → Map → 回退），用于 UNTIL 条件等子句。
type DirectFunc func(ctx context.Context, line string, fromRelative, unmask bool) (string, error)

// Deps: ITL 依赖。COBOL→C# 需要全部字段；其余 LVP 只用 Veil 与 Table。
type Deps struct {
	Veil     *veil.Veil
	Table    *datamap.Table
	Store    *store.Cobol
	Template *template.Cobol
	Direct   DirectFunc
	// Warn 接收可继续的告警；可为 nil。
	Warn func(msg string)
}

func (d Deps) warn(msg string) {
	if d.Warn != nil {
		d.Warn(msg)
	}
}

// ForLVP 构造 LVP 对应的 ITL。
func ForLVP(l lvp.LVP, d Deps) (ITL, error) {
	if d.Veil == nil {
		return nil, fmt.Errorf("itl: veil required: %w", contract.ErrInvalidInput)
	}
	switch l {
	case lvp.CobolToCSharp9:
		return NewCobol(d)
	case lvp.Cpp17ToNodeJS14:
		return NewCppToNode(d), nil
	case lvp.Java14ToNodeJS14:
		return NewJavaToNode(d), nil
	case lvp.Java14ToPython3:
		return NewJavaToPython(d), nil
	}
	return nil, fmt.Errorf("itl for %q: %w", l.String(), contract.ErrUnknownLVP)
}

// Rule: 有序正则规则。Fn 非空时优先于 Out；Out 以 regexp.Expand 语法引用分组。
type Rule struct {
	Re  *regexp.Regexp
	Out string
	Fn  func(m []string) string
}

// R 以模板构造规则。
func R(expr, out string) Rule { return Rule{Re: regexp.MustCompile(expr), Out: out} }

// F 以处理函数构造规则。
func F(expr string, fn func(m []string) string) Rule {
	return Rule{Re: regexp.MustCompile(expr), Fn: fn}
}

func (r Rule) apply(line string) (string, bool) {
	if r.Fn != nil {
		m := r.Re.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return r.Fn(m), true
	}
	loc := r.Re.FindStringSubmatchIndex(line)
	if loc == nil {
		return "", false
	}
	return string(r.Re.ExpandString(nil, r.Out, line, loc)), true
}

// Rules: 规则引擎。顺序：精确忽略 → 正则忽略 → 精确映射 → 有序正则（首个命中生效）。
type Rules struct {
	Ignored    map[string]bool
	IgnoredRes []*regexp.Regexp
	Literal    map[string]string
	Regex      []Rule
}

// Apply 依序尝试全部规则。
func (r *Rules) Apply(line string) (string, bool) {
	if r.Ignored[line] {
		return "", true
	}
	for _, re := range r.IgnoredRes {
		if re.MatchString(line) {
			return "", true
		}
	}
	if out, ok := r.Literal[line]; ok {
		return out, true
	}
	for _, rule := range r.Regex {
		if out, ok := rule.apply(line); ok {
			return out, true
		}
	}
	return "", false
}

// base: 各 ITL 共享的映射表查找。
type base struct {
	table *datamap.Table
}

func (b base) Map(line string) (string, bool) { return b.table.Lookup(line) }

func (base) Reset() {}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

// rewriteSource 以 fn 改写相对令牌 rel 所指全局令牌的源文本。
func rewriteSource(v *veil.Veil, rel string, fn func(string) string) {
	g, err := v.FromRelative(rel)
	if err != nil {
		return
	}
	if src, ok := v.Source(g); ok {
		v.Save(g, fn(src), false)
	}
}
