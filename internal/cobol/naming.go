package cobol

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Caser 有状态，不可跨 goroutine 共享，按次创建。
func titleOf(s string) string { return cases.Title(language.Und).String(s) }
func lowerOf(s string) string { return cases.Lower(language.Und).String(s) }
func upperOf(s string) string { return cases.Upper(language.Und).String(s) }

var (
	letterRunRe = regexp.MustCompile(`\p{L}+`)
	upperSplit  = regexp.MustCompile(`[A-Z][^A-Z]*`)
)

// titleWord: 每段连续字母首字母大写、其余小写（数字打断字母段）。
func titleWord(w string) string {
	return letterRunRe.ReplaceAllStringFunc(w, titleOf)
}

// TitleCase 将 COBOL/IDMS 实体名转为 TitleCase。
// escapeNumeric 为 true 时，数字开头的结果加 "_" 前缀。
func TitleCase(name string, escapeNumeric bool) string {
	s := strings.TrimSpace(name)
	if s == "" || s == "-" {
		return s
	}
	var b strings.Builder
	for _, w := range nameSplitRe.Split(s, -1) {
		b.WriteString(titleWord(w))
	}
	res := b.String()
	if escapeNumeric && res != "" && unicode.IsDigit(rune(res[0])) {
		res = "_" + res
	}
	return res
}

// CamelCase 将实体名转为 camelCase。
func CamelCase(name string) string {
	if name == "" {
		return name
	}
	parts := strings.Split(lowerOf(name), "-")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		b.WriteString(capitalize(p))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return upperOf(string(r[0])) + lowerOf(string(r[1:]))
}

// SnakeCase 将实体名（COBOL 连字符形式或 camelCase）转为 snake_case。
func SnakeCase(name string) string {
	s := strings.TrimSpace(name)
	if strings.Contains(s, "-") || isUpper(s) {
		return strings.ReplaceAll(lowerOf(s), "-", "_")
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return lowerOf(b.String())
}

// isUpper: 至少含一个字母，且所有字母均为大写。
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// CamelToMySQL 将 camelCase 名转为 MySQL 名；"Ix" 前缀（索引）转为 "_view" 视图名。
func CamelToMySQL(name string) string {
	if rest, ok := strings.CutPrefix(name, "Ix"); ok {
		return SnakeCase(rest) + "_view"
	}
	return SnakeCase(name)
}

// SplitUpper 按大写字母切分，保留非大写前缀。
func SplitUpper(s string) []string {
	var out []string
	last := 0
	for _, loc := range upperSplit.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			out = append(out, s[last:loc[0]])
		}
		out = append(out, s[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		out = append(out, s[last:])
	}
	return out
}

// RReplace 从右侧开始替换至多 n 次（n<0 表示全部）。
func RReplace(s, old, repl string, n int) string {
	if old == "" {
		return s
	}
	var at []int
	end := len(s)
	for n < 0 || len(at) < n {
		i := strings.LastIndex(s[:end], old)
		if i < 0 {
			break
		}
		at = append(at, i)
		end = i
	}
	// 降序替换，前面的下标保持有效
	for _, i := range at {
		s = s[:i] + repl + s[i+len(old):]
	}
	return s
}
