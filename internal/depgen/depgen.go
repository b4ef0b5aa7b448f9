// Package depgen 按译文实际用到的符号在文件头部注入 using/require/import。
package depgen

import (
	"regexp"
	"strings"

	"theory/internal/lvp"
)

type rule struct {
	re   *regexp.Regexp
	line string
}

var (
	csharpRules = []rule{
		{regexp.MustCompile(`FileStream|StreamReader|StreamWriter|FileMode|FileAccess`), "using System.IO;"},
		{regexp.MustCompile(`List`), "using System.Collections.Generic;"},
		{regexp.MustCompile(`Enumerable`), "using System.Linq;"},
		{regexp.MustCompile(`COBOLFile|COBOLGroup|COBOLUtils|COBOLVar|DatabaseConnection|SQLQueryBuilder`), "using TheoryKitCOBOL;"},
	}
	nodeRules = []rule{
		{regexp.MustCompile(`nativeConsole`), "const nativeConsole = require('native-console');"},
	}
	pythonRules = []rule{
		{regexp.MustCompile(`\bsys\.`), "import sys"},
	}
)

// Generate 返回补齐依赖声明后的文本。
func Generate(l lvp.LVP, text string) string {
	var deps []string
	switch l {
	case lvp.CobolToCSharp9:
		deps = append([]string{"using System;"}, match(csharpRules, text)...)
	case lvp.Cpp17ToNodeJS14, lvp.Java14ToNodeJS14:
		deps = match(nodeRules, text)
	case lvp.Java14ToPython3:
		deps = match(pythonRules, text)
	}
	if len(deps) == 0 {
		return text
	}
	return strings.Join(deps, "\n") + "\n" + text
}

func match(rules []rule, text string) []string {
	var out []string
	for _, r := range rules {
		if r.re.MatchString(text) {
			out = append(out, r.line)
		}
	}
	return out
}
