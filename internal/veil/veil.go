// Package veil 实现作业级掩码令牌库：掩码/反掩码、全局令牌表以及行内相对寻址。
//
// 一个 Veil 只服务一个翻译作业；作业开始时必须 Reset。
package veil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"theory/pkg/contract"
)

// TokenPattern 为掩码令牌的正则片段（不含锚点）。
const TokenPattern = `%mask_\d+%`

var (
	tokenRe       = regexp.MustCompile(`%mask_(\d+)%`)
	tokenPrefixRe = regexp.MustCompile(`^%mask_\d+%`)
)

// ErrRelativeOverflow: 相对索引超出当前行窗口。
var ErrRelativeOverflow = fmt.Errorf("relative mask index out of window: %w", contract.ErrInvariantViolation)

// Token 生成索引 i 对应的掩码令牌。
func Token(i int) string { return "%mask_" + strconv.Itoa(i) + "%" }

// IsToken 报告 s 是否以掩码令牌开头。
func IsToken(s string) bool { return tokenPrefixRe.MatchString(s) }

// Preprocessor: 源语言相关的掩码能力集合。
type Preprocessor interface {
	// SplitRegex 返回行内切分单元的正则（匹配的是"单元"，而非分隔符）。
	SplitRegex() *regexp.Regexp
	// IsReserved 报告单元是否为保留字（列表或正则）。
	IsReserved(tok string) bool
	// IsTag 报告单元是否为预处理器声明的结构标签。
	IsTag(tok string) bool
	// Preprocess 在逐行掩码前运行；可通过 v 直接生成/保存令牌。
	Preprocess(text string, v *Veil) (string, error)
	ShouldMaskSeq(line string) bool
	ShouldMaskToken(tok string) bool
	// ProcessSrcToken 在保存源令牌前做规范化（如 COBOL 标识符转 TitleCase）。
	ProcessSrcToken(tok string) string
}

// Entry: 令牌表条目。
type Entry struct {
	Mask   string
	Source string
}

// Veil: 作业级令牌库。非并发安全。
type Veil struct {
	pre      Preprocessor
	order    []string
	table    map[string]string
	bySource map[string]string
	window   []string
}

// New 以源语言预处理器构造 Veil。
func New(p Preprocessor) *Veil {
	v := &Veil{pre: p}
	v.Reset()
	return v
}

// Reset 清空令牌表与相对窗口。
func (v *Veil) Reset() {
	v.order = v.order[:0]
	v.table = make(map[string]string)
	v.bySource = make(map[string]string)
	v.window = nil
}

// Preprocessor 返回绑定的预处理器。
func (v *Veil) Preprocessor() Preprocessor { return v.pre }

// Len 返回令牌数。
func (v *Veil) Len() int { return len(v.order) }

// Next 返回下一个未使用的令牌（索引 = 表大小）。
func (v *Veil) Next() string { return Token(len(v.order)) }

// Save 保存令牌→源文本。process 为 true 时先经 ProcessSrcToken 规范化，
// 并登记反向索引供同一源单元复用；预处理阶段的字面量/注释以 process=false 保存，不参与复用。
// 已存在的令牌保持原插入位置，仅替换源文本。
func (v *Veil) Save(token, src string, process bool) {
	saved := src
	if process && v.pre != nil {
		saved = v.pre.ProcessSrcToken(src)
	}
	if _, ok := v.table[token]; !ok {
		v.order = append(v.order, token)
	}
	v.table[token] = saved
	if !process {
		return
	}
	if _, ok := v.bySource[src]; !ok {
		v.bySource[src] = token
	}
}

// Source 返回令牌对应的源文本。
func (v *Veil) Source(token string) (string, bool) {
	s, ok := v.table[token]
	return s, ok
}

// Lookup 按原始源文本反查首个令牌。
func (v *Veil) Lookup(src string) (string, bool) {
	t, ok := v.bySource[src]
	return t, ok
}

// Entries 返回按插入顺序的令牌表快照。
func (v *Veil) Entries() []Entry {
	out := make([]Entry, 0, len(v.order))
	for _, k := range v.order {
		out = append(out, Entry{Mask: k, Source: v.table[k]})
	}
	return out
}

// Mask 预处理并逐行掩码，返回掩码后的行。
func (v *Veil) Mask(text string) ([]string, error) {
	pre, err := v.pre.Preprocess(text, v)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	split := v.pre.SplitRegex()
	lines := SplitLines(pre)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !v.pre.ShouldMaskSeq(trimmed) {
			out = append(out, line)
			continue
		}
		var b strings.Builder
		b.Grow(len(line) + 16)
		last := 0
		for _, loc := range split.FindAllStringIndex(line, -1) {
			unit := strings.TrimSpace(line[loc[0]:loc[1]])
			if !v.shouldMask(unit) {
				continue
			}
			tok, ok := v.bySource[unit]
			if !ok {
				tok = v.Next()
				v.Save(tok, unit, true)
			}
			b.WriteString(line[last:loc[0]])
			b.WriteString(tok)
			last = loc[1]
		}
		b.WriteString(line[last:])
		out = append(out, b.String())
	}
	return out, nil
}

func (v *Veil) shouldMask(unit string) bool {
	if unit == "" || v.pre.IsReserved(unit) || IsToken(unit) || v.pre.IsTag(unit) {
		return false
	}
	return v.pre.ShouldMaskToken(unit)
}

// Unmask 按插入逆序把令牌替换回源文本。
func (v *Veil) Unmask(text string) string {
	if !strings.Contains(text, "%mask_") {
		return text
	}
	for i := len(v.order) - 1; i >= 0; i-- {
		k := v.order[i]
		text = strings.ReplaceAll(text, k, v.table[k])
	}
	return text
}

// ToRelative 重建当前行窗口：第 i 个出现的全局令牌改写为 %mask_i%。
func (v *Veil) ToRelative(text string) string {
	v.window = v.window[:0]
	i := 0
	return tokenRe.ReplaceAllStringFunc(text, func(m string) string {
		v.window = append(v.window, m)
		r := Token(i)
		i++
		return r
	})
}

// Relativize 按出现顺序把令牌改写为相对编号，不改动当前窗口。
func Relativize(text string) string {
	i := 0
	return tokenRe.ReplaceAllStringFunc(text, func(string) string {
		r := Token(i)
		i++
		return r
	})
}

// FromRelative 以当前窗口把相对令牌还原为全局令牌（单遍替换，不会二次替换）。
// 窗口为空时原样返回。
func (v *Veil) FromRelative(text string) (string, error) {
	if len(v.window) == 0 {
		return text, nil
	}
	var err error
	out := tokenRe.ReplaceAllStringFunc(text, func(m string) string {
		idx, _ := strconv.Atoi(m[len("%mask_") : len(m)-1])
		if idx >= len(v.window) {
			if err == nil {
				err = fmt.Errorf("%s (window %d): %w", m, len(v.window), ErrRelativeOverflow)
			}
			return m
		}
		return v.window[idx]
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Window 返回当前相对窗口的副本。
func (v *Veil) Window() []string {
	return append([]string(nil), v.window...)
}

// Narrow 丢弃窗口前 k 个令牌，使子句内的 %mask_0% 指向其首个令牌；返回恢复函数。
func (v *Veil) Narrow(k int) (restore func()) {
	saved := v.window
	if k > len(saved) {
		k = len(saved)
	}
	v.window = append([]string(nil), saved[k:]...)
	return func() { v.window = saved }
}

// Resolve 将相对令牌转为全局后反掩码。
func (v *Veil) Resolve(text string) (string, error) {
	g, err := v.FromRelative(text)
	if err != nil {
		return "", err
	}
	return v.Unmask(g), nil
}

// Offset 将 text 中每个令牌的索引平移 delta。
func Offset(text string, delta int) string {
	if delta == 0 {
		return text
	}
	return tokenRe.ReplaceAllStringFunc(text, func(m string) string {
		idx, _ := strconv.Atoi(m[len("%mask_") : len(m)-1])
		return Token(idx + delta)
	})
}

// SplitLines 按行切分（兼容 CRLF/CR），末尾换行不产生空行。
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
