package itl

import (
	"regexp"
	"strings"

	"theory/internal/veil"
)

const mask = veil.TokenPattern

// 花括号语系可原样复制的行。
var stdCopy = set(
	",", "?", "};", ");", "),", ";", "(", ")", "{", "}", "+", "-", "*", "/", "^", "=", "==", "!=",
	"<", "<=", ">", ">=", "default:", "else", "else {", "do", "do {", "try", "try {", "break;", "continue;",
)

var (
	nodeMaskedCopy = []*regexp.Regexp{
		regexp.MustCompile(`^` + mask + `$`),
		regexp.MustCompile(`^` + mask + `[,;]+$`),
		regexp.MustCompile(`^` + mask + `[)}]+$`),
		regexp.MustCompile(`^` + mask + `\+{2};?$`),
		regexp.MustCompile(`^` + mask + `-{2};?$`),
	}
	pyMaskedCopy = []*regexp.Regexp{
		regexp.MustCompile(`^` + mask + `$`),
		regexp.MustCompile(`^` + mask + `[,]+$`),
		regexp.MustCompile(`^` + mask + `[)}]+$`),
	}
	coutSplitRe = regexp.MustCompile(`\s*<<\s*`)
	typeWordRe  = `(?:int|long|short|byte|double|float|boolean|bool|char|String|var|auto|unsigned|` + mask + `)(?:\[\])*`
	paramsRe    = regexp.MustCompile(`<[^<>]*>`)
)

// 整行精确映射到 JS。
var stdToJS = map[string]string{
	"System.out.println();":   "console.log();",
	"cout << endl;":           "console.log();",
	"std::cout << std::endl;": "console.log();",
	"} else {":                "} else {",
}

// 花括号语系 → Node.js 的通用规则。
var stdToJSRules = []Rule{
	R(`^System\.out\.println\((?P<args>.*)\);$`, `console.log(${args});`),
	R(`^System\.err\.println\((?P<args>.*)\);$`, `console.error(${args});`),
	R(`^System\.out\.print\((?P<args>.*)\);$`, `process.stdout.write(String(${args}));`),
	F(`^(?:std::)?cout\s*<<\s*(?P<args>.+?)\s*<<\s*(?:std::)?endl\s*;$`, func(m []string) string {
		return "console.log(" + strings.Join(coutSplitRe.Split(m[1], -1), ", ") + ");"
	}),
	F(`^(?:std::)?cout\s*<<\s*(?P<args>.+?)\s*;$`, func(m []string) string {
		parts := coutSplitRe.Split(m[1], -1)
		for i, p := range parts {
			parts[i] = "String(" + p + ")"
		}
		return "process.stdout.write(" + strings.Join(parts, " + ") + ");"
	}),
	R(`^for\s*\(\s*`+typeWordRe+`\s+(?P<rest>.*)$`, `for (let ${rest}`),
	R(`^(?:final\s+|const\s+)?`+typeWordRe+`\s+(?P<rest>`+mask+`(?:\s*=\s*.+)?;)$`, `let ${rest}`),
}

// translateStdToNode: 花括号语系 → Node.js 的共享翻译。
func translateStdToNode(line string) (string, bool) {
	if stdCopy[line] || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
		return line, true
	}
	if out, ok := stdToJS[line]; ok {
		return out, true
	}
	for _, re := range nodeMaskedCopy {
		if re.MatchString(line) {
			return line, true
		}
	}
	for _, r := range stdToJSRules {
		if out, ok := r.apply(line); ok {
			return out, true
		}
	}
	return "", false
}

const pySwitchError = `# [theory] ERROR: "switch" structures are currently unsupported for Python targets.
# We recommend replacing the following source with an "if" statement chain instead.
#
# `

// 花括号语系 → Python 的通用规则。
var stdToPyRules = []Rule{
	R(`^System\.out\.println\((?P<args>.*)\);$`, `print(${args})`),
	R(`^System\.out\.print\((?P<args>.*)\);$`, `print(${args}, end="")`),
	R(`^System\.err\.println\((?P<args>.*)\);$`, `print(${args}, file=sys.stderr)`),
	F(`^\}?\s*else\s+if\s*\((?P<cond>.*)\)\s*\{$`, func(m []string) string { return "elif " + pyCond(m[1]) + ":" }),
	R(`^\}\s*else\s*\{$`, `else:`),
	F(`^if\s*\((?P<cond>.*)\)\s*\{$`, func(m []string) string { return "if " + pyCond(m[1]) + ":" }),
	F(`^while\s*\((?P<cond>.*)\)\s*\{$`, func(m []string) string { return "while " + pyCond(m[1]) + ":" }),
	F(`^for\s*\(\s*int\s+(?P<v>`+mask+`)\s*=\s*(?P<from>[^;]+);\s*(?P<v2>`+mask+`)\s*<\s*(?P<to>[^;]+);\s*(?P<v3>`+mask+`)\+\+\s*\)\s*\{$`, pyRangeFor),
	F(`^for\s*\(\s*`+typeWordRe+`\s+(?P<v>`+mask+`)\s*:\s*(?P<it>.+)\)\s*\{$`, func(m []string) string {
		return "for " + m[1] + " in " + strings.TrimSpace(m[2]) + ":"
	}),
	R(`^\}\s*catch\s*\(.*\)\s*\{$`, `except Exception:`),
	R(`^\}\s*finally\s*\{$`, `finally:`),
	R(`^return;$`, `return`),
	F(`^return\s+(?P<v>.+);$`, func(m []string) string { return "return " + pyCond(m[1]) }),
	R(`^(?:final\s+)?`+typeWordRe+`\s+(?P<v>`+mask+`);$`, `${v} = None`),
	F(`^(?:final\s+)?`+typeWordRe+`\s+(?P<v>`+mask+`)\s*=\s*(?P<val>.+);$`, func(m []string) string {
		return m[1] + " = " + pyCond(m[2])
	}),
}

// pyRangeFor 仅在三处循环变量一致时改写为 range。
func pyRangeFor(m []string) string {
	v, from, v2, to, v3 := m[1], strings.TrimSpace(m[2]), m[3], strings.TrimSpace(m[4]), m[5]
	if v != v2 || v != v3 {
		return "# " + m[0]
	}
	if from == "0" {
		return "for " + v + " in range(" + to + "):"
	}
	return "for " + v + " in range(" + from + ", " + to + "):"
}

var pyCondReplacer = strings.NewReplacer("&&", "and", "||", "or", "true", "True", "false", "False", "null", "None")

var pyNotRe = regexp.MustCompile(`!\s*([^=\s])`)

// pyCond 替换逻辑运算符与字面量；掩码令牌不受影响。
func pyCond(c string) string {
	c = pyCondReplacer.Replace(strings.TrimSpace(c))
	return pyNotRe.ReplaceAllString(c, "not $1")
}

// translateStdToPython: 花括号语系 → Python 3 的共享翻译。
func translateStdToPython(line string) (string, bool) {
	if line == "}" || line == "};" {
		return "", true
	}
	if stdCopy[line] || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
		if strings.HasPrefix(line, "//") {
			return "#" + strings.TrimPrefix(line, "//"), true
		}
		if strings.HasPrefix(line, "/*") {
			return pyBlockComment(line), true
		}
		return strings.ReplaceAll(strings.Trim(line, ";"), " {", ":"), true
	}
	for _, re := range pyMaskedCopy {
		if re.MatchString(line) {
			return line, true
		}
	}
	if strings.HasPrefix(line, "switch") {
		return pySwitchError + line, true
	}
	for _, r := range stdToPyRules {
		if out, ok := r.apply(line); ok {
			return out, true
		}
	}
	return "", false
}

// pyBlockComment 把单行 /* ... */ 注释改写为 # 注释。
func pyBlockComment(line string) string {
	body := strings.TrimLeft(strings.TrimPrefix(line, "/*"), "*")
	body = strings.TrimSpace(strings.TrimSuffix(body, "*/"))
	if body == "" {
		return "#"
	}
	return "# " + body
}
