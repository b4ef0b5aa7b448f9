package itl

import (
	"context"
	"regexp"
	"strings"
)

var (
	cppIgnoredPrefixes = []string{"#define", "#pragma", "delete"}
	cppIncludeRe       = regexp.MustCompile(`^#include\s+["<]?(?P<name>[^">]*)[">]?`)
	cppNamespaceRe     = regexp.MustCompile(`^(?:inline\s+)?namespace\b`)
	cppUsingNSRe       = regexp.MustCompile(`^using\s+namespace\b`)
	maskOnlyRe         = regexp.MustCompile(`^` + mask + `$`)
)

// CppToNode: C++17 → Node.js 14。
type CppToNode struct {
	base
	d Deps
}

var _ ITL = (*CppToNode)(nil)

// NewCppToNode 构造 C++→Node.js ITL。
func NewCppToNode(d Deps) *CppToNode { return &CppToNode{base: base{table: d.Table}, d: d} }

func (c *CppToNode) Translate(_ context.Context, line string, _ int) (string, bool, error) {
	if out, ok := translateStdToNode(line); ok {
		return out, true, nil
	}
	for _, p := range cppIgnoredPrefixes {
		if strings.HasPrefix(line, p) {
			return "", true, nil
		}
	}
	if m := cppIncludeRe.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		if maskOnlyRe.MatchString(name) {
			rewriteSource(c.d.Veil, name, func(s string) string { return strings.Trim(s, `"`) })
		}
		return `require("` + name + `");`, true, nil
	}
	if cppNamespaceRe.MatchString(line) || cppUsingNSRe.MatchString(line) {
		return "// " + line, true, nil
	}
	return "", false, nil
}
