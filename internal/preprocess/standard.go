// Package preprocess 提供各源语言的掩码预处理器（实现 veil.Preprocessor）。
package preprocess

import (
	"regexp"
	"strings"

	"theory/internal/veil"
)

// MemberTag: 标记类/接口体第一层成员声明行的结构标签。
const MemberTag = "%member%"

var (
	stdSplitRe      = regexp.MustCompile(`[^\s|<>(){}\[\]+/*^;,?]+`)
	stdSingleCmtRe  = regexp.MustCompile(`//(.*)`)
	stdStrRe        = regexp.MustCompile(`["'` + "`" + `]([^"']*)["'` + "`" + `]`)
	stdMemberScope  = regexp.MustCompile(`(?:class|interface)\s+.*`)
	stdVarRe        = regexp.MustCompile(`^[^(){};]+\s+[^(){};]+;$`)
	stdFuncRe       = regexp.MustCompile(`^[^(){};]+\s+[^(){};]+\(.*\)\s+\{$`)
	stdModifierRe   = regexp.MustCompile(`\b(?:public|private|protected|final|abstract|static)\b`)
	stdCommentSplit = regexp.MustCompile(`^([ \t]*)(.+)((?://|/\*).*)$`)
	stdMaskedStrRe  = regexp.MustCompile(`^["'` + "`" + `]` + veil.TokenPattern + `["'` + "`" + `]`)
)

// Standard: C 系语言（C++/Java）共用的预处理器。
type Standard struct {
	reserved map[string]struct{}
	regexes  []*regexp.Regexp
}

var _ veil.Preprocessor = (*Standard)(nil)

func newStandard(words []string, regexes []*regexp.Regexp) *Standard {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return &Standard{reserved: m, regexes: regexes}
}

func (s *Standard) SplitRegex() *regexp.Regexp { return stdSplitRe }

func (s *Standard) IsReserved(tok string) bool {
	if _, ok := s.reserved[tok]; ok {
		return true
	}
	for _, re := range s.regexes {
		if re.MatchString(tok) {
			return true
		}
	}
	return false
}

func (s *Standard) IsTag(tok string) bool { return tok == MemberTag }

func (s *Standard) ShouldMaskSeq(line string) bool {
	return !strings.HasPrefix(line, "/*") && !strings.HasPrefix(line, "//")
}

func (s *Standard) ShouldMaskToken(string) bool { return true }

func (s *Standard) ProcessSrcToken(tok string) string { return tok }

// Preprocess: 块注释 → 行注释 → 字面量 → 成员标签 → 拆分行尾注释。
func (s *Standard) Preprocess(text string, v *veil.Veil) (string, error) {
	out := maskBlockComments(text, v)
	out = maskLineComments(out, v)
	out = maskStrings(out, v)
	out = tagScopes(out)
	return separateComments(out), nil
}

// maskBlockComments 掩码 /* … */ 的内容（保留定界符），并在注释后补换行以保持行数。
func maskBlockComments(text string, v *veil.Veil) string {
	pos := 0
	for {
		i := strings.Index(text[pos:], "/*")
		if i < 0 {
			return text
		}
		open := pos + i
		body := open + 2
		if veil.IsToken(text[body:]) {
			pos = body
			continue
		}
		j := strings.Index(text[body:], "*/")
		if j < 0 {
			return text
		}
		content := text[body : body+j]
		tok := v.Next()
		v.Save(tok, content, false)
		nl := strings.Repeat("\n", strings.Count(content, "\n"))
		tail := text[body+j+2:]
		text = text[:body] + tok + "*/" + nl + tail
		pos = body + len(tok) + 2 + len(nl)
	}
}

func maskLineComments(text string, v *veil.Veil) string {
	return stdSingleCmtRe.ReplaceAllStringFunc(text, func(m string) string {
		tok := v.Next()
		v.Save(tok, m[2:], false)
		return "//" + tok
	})
}

// maskStrings 掩码整个字面量（含引号）；跨行字面量之后补换行。
func maskStrings(text string, v *veil.Veil) string {
	pos := 0
	for pos < len(text) {
		loc := stdStrRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if veil.IsToken(text[pos+loc[2]:]) {
			pos = start + 1
			continue
		}
		lit := text[start:end]
		tok := v.Next()
		v.Save(tok, lit, false)
		nl := strings.Repeat("\n", strings.Count(lit, "\n"))
		text = text[:start] + tok + nl + text[end:]
		pos = start + len(tok) + len(nl)
	}
	return text
}

// FindScope 定位 input 中第一个 open 开启的作用域。include 为 true 时区间包含定界符。
// 需在注释掩码之后调用。
func FindScope(input, open, close string, include bool) (start, end int, ok bool) {
	first := strings.Index(input, open)
	if first < 0 {
		return 0, 0, false
	}
	start = first + len(open)
	if include {
		start = first
	}
	count := 1
	i := first + len(open)
	for i < len(input) {
		o := indexFrom(input, open, i)
		c := indexFrom(input, close, i)
		if c < 0 {
			return 0, 0, false
		}
		if o >= 0 && o < c {
			count++
			i = o + len(open)
			continue
		}
		count--
		if count <= 0 {
			end = c
			if include {
				end = c + len(close)
			}
			return start, end, end > 0
		}
		i = c + len(close)
	}
	return 0, 0, false
}

// FindScopeWithDepth 返回深度恰为 depth 的各文本段（含定界符）。
func FindScopeWithDepth(input, open, close string, depth int) [][2]int {
	var out [][2]int
	count, cur := 0, 0
	i := 0
	for i < len(input) {
		o := indexFrom(input, open, i)
		c := indexFrom(input, close, i)
		var at, size int
		switch {
		case o < 0 && c < 0:
			return out
		case c < 0 || (o >= 0 && o < c):
			at, size = o, len(open)
			count++
		default:
			at, size = c, len(close)
			count--
		}
		if count == depth {
			cur = at
		} else if cur != -1 {
			out = append(out, [2]int{cur, at + size})
			cur = -1
		}
		if count <= 0 {
			return out
		}
		i = at + size
	}
	return out
}

func indexFrom(s, sub string, from int) int {
	i := strings.Index(s[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}

// tagScopes 为每个 class/interface 体第一层的字段与方法声明行加 %member% 前缀。
func tagScopes(text string) string {
	total := len(stdMemberScope.FindAllStringIndex(text, -1))
	for n := 0; n < total; n++ {
		all := stdMemberScope.FindAllStringIndex(text, -1)
		if n >= len(all) {
			break
		}
		base := all[n][0]
		parent := text[base:]
		s, e, ok := FindScope(parent, "{", "}", true)
		if !ok {
			continue
		}
		scoped := parent[s:e]
		ranges := FindScopeWithDepth(scoped, "{", "}", 1)
		if len(ranges) == 0 {
			continue
		}
		var b strings.Builder
		last := 0
		for _, r := range ranges {
			b.WriteString(scoped[last:r[0]])
			lines := strings.Split(scoped[r[0]:r[1]], "\n")
			for i, l := range lines {
				lines[i] = tagMember(l)
			}
			b.WriteString(strings.Join(lines, "\n"))
			last = r[1]
		}
		b.WriteString(scoped[last:])
		text = text[:base+s] + b.String() + text[base+e:]
	}
	return text
}

func tagMember(l string) string {
	bare := strings.TrimSpace(stdModifierRe.ReplaceAllString(l, ""))
	if !stdFuncRe.MatchString(bare) && !stdVarRe.MatchString(bare) {
		return l
	}
	trimmed := strings.TrimSpace(l)
	indent := len(l) - len(strings.TrimLeft(l, " \t"))
	return strings.Repeat(" ", indent) + MemberTag + " " + trimmed
}

// separateComments 把代码行尾的注释移到其上一行（同缩进）。
func separateComments(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		m := stdCommentSplit.FindStringSubmatch(l)
		if m == nil || strings.TrimSpace(m[2]) == "" {
			out = append(out, l)
			continue
		}
		out = append(out, m[1]+m[3], m[1]+m[2])
	}
	return strings.Join(out, "\n")
}

// IsMaskedString 报告单元是否为被引号包裹的掩码令牌。
func IsMaskedString(tok string) bool { return stdMaskedStrRe.MatchString(tok) }
