package itl

import (
	"context"
	"regexp"
	"strings"

	"theory/internal/preprocess"
)

var (
	javaIgnoredRes = []*regexp.Regexp{regexp.MustCompile(`^@\w+.*$`)}
	javaImportRe   = regexp.MustCompile(`^import\s+(?:static\s+)?(?P<name>[^;\s]+);$`)
	javaPackageRe  = regexp.MustCompile(`^package\s+[^;]+;$`)
	javaClassRe    = regexp.MustCompile(`^(?:(?:public|protected|private|abstract|final|static)\s+)*class\s+(?P<name>` + mask +
		`)(?:\s+extends\s+(?P<base>` + mask + `))?(?:\s+implements\s+[^{]+)?\s*\{$`)
)

var (
	memberMethodRe = regexp.MustCompile(`^(?P<mods>(?:(?:public|protected|private|static|final|abstract|synchronized)\s+)*)(?:<[^>]*>\s*)?(?:void|` +
		typeWordRe + `)(?:<[^>]*>)?\s+(?P<name>` + mask + `)\s*\((?P<params>.*)\)\s*(?:throws\s+[^{]+)?\{$`)
	memberCtorRe = regexp.MustCompile(`^(?:(?:public|protected|private)\s+)?(?P<name>` + mask + `)\s*\((?P<params>.*)\)\s*(?:throws\s+[^{]+)?\{$`)
	memberFieldRe = regexp.MustCompile(`^(?P<mods>(?:(?:public|protected|private|static|final|transient|volatile)\s+)*)` +
		typeWordRe + `(?:<[^>]*>)?\s+(?P<name>` + mask + `)(?P<init>\s*=\s*.+)?;$`)
	paramNameRe = regexp.MustCompile(`(` + mask + `)\s*$`)
)

// paramNames 取出 Java 形参列表中的参数名（每个形参的最后一个令牌）。
func paramNames(params string) []string {
	params = paramsRe.ReplaceAllString(params, "")
	var out []string
	for _, p := range strings.Split(params, ",") {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "final "))
		if m := paramNameRe.FindStringSubmatch(p); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

func javaCommon(line string) (string, bool) {
	for _, re := range javaIgnoredRes {
		if re.MatchString(line) {
			return "", true
		}
	}
	return "", false
}

// JavaToNode: Java 14 → Node.js 14。
type JavaToNode struct {
	base
	d Deps
}

var _ ITL = (*JavaToNode)(nil)

// NewJavaToNode 构造 Java→Node.js ITL。
func NewJavaToNode(d Deps) *JavaToNode { return &JavaToNode{base: base{table: d.Table}, d: d} }

func (j *JavaToNode) Translate(_ context.Context, line string, _ int) (string, bool, error) {
	if strings.HasPrefix(line, preprocess.MemberTag) {
		return j.member(strings.TrimSpace(strings.TrimPrefix(line, preprocess.MemberTag)))
	}
	if out, ok := translateStdToNode(line); ok {
		return out, true, nil
	}
	if out, ok := javaCommon(line); ok {
		return out, true, nil
	}
	if m := javaClassRe.FindStringSubmatch(line); m != nil {
		if m[2] != "" {
			return "class " + m[1] + " extends " + m[2] + " {", true, nil
		}
		return "class " + m[1] + " {", true, nil
	}
	if m := javaImportRe.FindStringSubmatch(line); m != nil {
		name := m[1]
		if maskOnlyRe.MatchString(name) {
			rewriteSource(j.d.Veil, name, func(s string) string { return strings.ReplaceAll(s, ".", "/") })
		} else {
			name = strings.ReplaceAll(name, ".", "/")
		}
		return `// require("` + name + `");`, true, nil
	}
	if javaPackageRe.MatchString(line) {
		return "// " + line, true, nil
	}
	return "", false, nil
}

// member 把类成员声明改写为 JS 类字段或方法。
func (j *JavaToNode) member(line string) (string, bool, error) {
	if m := memberMethodRe.FindStringSubmatch(line); m != nil {
		prefix := ""
		if strings.Contains(m[1], "static") {
			prefix = "static "
		}
		return prefix + m[2] + "(" + strings.Join(paramNames(m[3]), ", ") + ") {", true, nil
	}
	if m := memberCtorRe.FindStringSubmatch(line); m != nil {
		return "constructor(" + strings.Join(paramNames(m[2]), ", ") + ") {", true, nil
	}
	if m := memberFieldRe.FindStringSubmatch(line); m != nil {
		prefix := ""
		if strings.Contains(m[1], "static") {
			prefix = "static "
		}
		return prefix + m[2] + m[3] + ";", true, nil
	}
	// 未识别的成员行交由后续层处理
	return j.Translate(context.Background(), line, 0)
}

// JavaToPython: Java 14 → Python 3。
type JavaToPython struct {
	base
	d Deps
}

var _ ITL = (*JavaToPython)(nil)

// NewJavaToPython 构造 Java→Python ITL。
func NewJavaToPython(d Deps) *JavaToPython { return &JavaToPython{base: base{table: d.Table}, d: d} }

func (j *JavaToPython) Translate(_ context.Context, line string, _ int) (string, bool, error) {
	if strings.HasPrefix(line, preprocess.MemberTag) {
		return j.member(strings.TrimSpace(strings.TrimPrefix(line, preprocess.MemberTag)))
	}
	if out, ok := translateStdToPython(line); ok {
		return out, true, nil
	}
	if out, ok := javaCommon(line); ok {
		return out, true, nil
	}
	if m := javaClassRe.FindStringSubmatch(line); m != nil {
		if m[2] != "" {
			return "class " + m[1] + "(" + m[2] + "):", true, nil
		}
		return "class " + m[1] + ":", true, nil
	}
	if m := javaImportRe.FindStringSubmatch(line); m != nil {
		return "# import " + m[1], true, nil
	}
	if javaPackageRe.MatchString(line) {
		return "# " + line, true, nil
	}
	return "", false, nil
}

func (j *JavaToPython) member(line string) (string, bool, error) {
	if m := memberMethodRe.FindStringSubmatch(line); m != nil {
		params := paramNames(m[3])
		if strings.Contains(m[1], "static") {
			return "@staticmethod\ndef " + m[2] + "(" + strings.Join(params, ", ") + "):", true, nil
		}
		return "def " + m[2] + "(" + strings.Join(append([]string{"self"}, params...), ", ") + "):", true, nil
	}
	if m := memberCtorRe.FindStringSubmatch(line); m != nil {
		return "def __init__(" + strings.Join(append([]string{"self"}, paramNames(m[2])...), ", ") + "):", true, nil
	}
	if m := memberFieldRe.FindStringSubmatch(line); m != nil {
		init := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(m[3]), "="))
		if init == "" {
			return m[2] + " = None", true, nil
		}
		return m[2] + " = " + pyCond(strings.TrimSuffix(init, ";")), true, nil
	}
	return j.Translate(context.Background(), line, 0)
}
