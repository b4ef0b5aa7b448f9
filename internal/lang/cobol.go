package lang

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"theory/internal/cobol"
	"theory/internal/veil"
)

// 副本缺失等情况仅经 opts.Warn 告警，不写入输出。
// 副本递归内联的最大深度（防止互相 COPY 形成环）。
const maxCopyDepth = 16

var (
	positiveSignRe   = regexp.MustCompile(`(VALUE|MOVE|THRU|ADD|SUBTRACT|MULTIPLY|DIVIDE|BY|INTO|FROM)\s+\+`)
	pointerRe        = regexp.MustCompile(`(?:^|\s+)POINTER(?:\s+|$)`)
	compRe           = regexp.MustCompile(`\s+COMP(?:-\d+)?\s+`)
	uponConsoleRe    = regexp.MustCompile(`\s+UPON\s+CONSOLE[ \t]*`)
	comparisonRe     = regexp.MustCompile(`(?:IS\s+)?EQUALS?(?:\s+TO)?`)
	multilineStrRe   = regexp.MustCompile(`^(?:DISPLAY\s+)?'[^']+$`)
	statementStartRe = regexp.MustCompile(`^(?:IF|ELSE|END-[0-9A-Z-]+|MOVE|PERFORM|DISPLAY|GO|CALL|ADD|SUBTRACT|MULTIPLY|DIVIDE|COMPUTE|NEXT|STOP|EXIT|WRITE|READ|OPEN|CLOSE|EVALUATE|WHEN|SET|INITIALIZE|ACCEPT|OBTAIN|GOBACK)(?:[.\s]|$)`)
	fillerRe         = regexp.MustCompile(`\s+FILLER\s+`)
	cobolWordRe      = regexp.MustCompile(`[0-9A-Za-z\-]+`)
	nextSentenceRe   = regexp.MustCompile(`NEXT\s+SENTENCE`)
	elseAheadRe      = regexp.MustCompile(`^\s+ELSE`)
	fileAttributeRes = []*regexp.Regexp{
		cobol.RmRecordingModeRe,
		cobol.RmBlockContainsRe,
		cobol.RmRecordContainsRe,
		cobol.RmLabelRe,
	}
)

// Cobol: COBOL 源语言定义。
type Cobol struct{}

var _ Source = Cobol{}

func (Cobol) SingleLineComment(text string) string { return "* " + text }

// FormatFile 去列号、内联副本、清理无关语法并把多行语句折叠为单行。
// 输出中每个未以 END-IF 闭合的 IF 句之后追加独立成行的 %scope_close% 标记。
func (Cobol) FormatFile(text string, opts FormatOptions) ([]string, error) {
	out, err := formatLoop(text, opts, 0)
	if err != nil {
		return nil, err
	}

	out = rmAll(out, cobol.RmProtocolRe)
	out = rmComments(out)
	out = positiveSignRe.ReplaceAllString(out, "$1 ")
	out = mapLines(out, func(l string) string { return pointerRe.ReplaceAllString(l, " ") })
	out = mapLines(out, func(l string) string { return compRe.ReplaceAllString(l, " ") })
	out = uponConsoleRe.ReplaceAllString(out, " ")
	for _, re := range fileAttributeRes {
		out = re.ReplaceAllString(out, " ")
	}
	out = comparisonRe.ReplaceAllString(out, "=")

	out = closeMultilineStrings(out)
	out = mergeColumnDashes(out)
	out = collapseMultilines(out)
	out = flattenIf(out)
	out = collapseDisplay(out)
	out = CloseIfScopes(out)
	out = indexFillers(out)

	out = rmPicCommas(out)
	out = mapLines(out, rmDots)
	out = mapLines(out, rmThen)
	return veil.SplitLines(out), nil
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\f' || r == '\v' }

func formatLoop(text string, opts FormatOptions, depth int) (string, error) {
	return injectCopybooks(stripColumns(text), opts, depth)
}

// stripColumns 丢弃第 1-6 列（序号区）与第 72 列之后的内容。
func stripColumns(text string) string {
	var b strings.Builder
	for _, l := range veil.SplitLines(text) {
		seg := ""
		if len(l) > 6 {
			seg = l[6:min(len(l), 72)]
		}
		b.WriteString("      ")
		b.WriteString(strings.TrimRightFunc(seg, isSpace))
		b.WriteByte('\n')
	}
	return b.String()
}

func injectCopybooks(text string, opts FormatOptions, depth int) (string, error) {
	var b strings.Builder
	for _, src := range veil.SplitLines(text) {
		line := strings.TrimSpace(src)
		m := cobol.CopyRe.FindStringSubmatch(line)
		if m == nil {
			b.WriteString(src)
			b.WriteByte('\n')
			continue
		}
		name, _ := cobol.Group(cobol.CopyRe, m, "name")
		if cobol.IgnoredCopybooks[name] {
			continue
		}
		if len(opts.CopybookDirs) == 0 {
			opts.warn("no copybook directory configured for " + name)
			continue
		}
		if depth >= maxCopyDepth {
			opts.warn("copybook nesting too deep at " + name)
			continue
		}
		raw, path, err := readCopybook(name, opts)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("copybook %s: %w", name, err)
			}
			opts.warn("copybook not found: " + name)
			continue
		}
		book, err := formatLoop(raw, opts, depth+1)
		if err != nil {
			return "", fmt.Errorf("copybook %s: %w", path, err)
		}
		oldV, hasOld := cobol.Group(cobol.CopyRe, m, "old")
		newV, hasNew := cobol.Group(cobol.CopyRe, m, "new")
		if hasOld && hasNew {
			book = strings.ReplaceAll(book, oldV, newV)
		}
		b.WriteString(book)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func readCopybook(name string, opts FormatOptions) (string, string, error) {
	file := name
	if opts.CopybookExt != "" {
		file += "." + strings.TrimPrefix(opts.CopybookExt, ".")
	}
	for _, dir := range opts.CopybookDirs {
		p := filepath.Join(dir, file)
		data, err := os.ReadFile(p)
		if err == nil {
			return string(data), p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", p, err
		}
	}
	return "", "", fs.ErrNotExist
}

func mapLines(text string, f func(string) string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = f(l)
	}
	return strings.Join(lines, "\n")
}

func rmAll(text string, re *regexp.Regexp) string {
	for _, m := range re.FindAllString(text, -1) {
		text = strings.ReplaceAll(text, m, "")
	}
	return text
}

func rmComments(text string) string {
	lines := veil.SplitLines(text)
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "*") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// closeMultilineStrings 为跨行未闭合的单引号字符串补上结束引号。
func closeMultilineStrings(text string) string {
	return mapLines(text, func(l string) string {
		if multilineStrRe.MatchString(strings.TrimSpace(l)) {
			return l + "'"
		}
		return l
	})
}

// mergeColumnDashes 把第 7 列为 '-' 的续行并入上一行。
func mergeColumnDashes(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.HasPrefix(l, "      -") && len(out) > 0 {
			out[len(out)-1] += " " + l[7:]
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func joinLines(s string) string { return strings.ReplaceAll(s, "\n", " ") }

func collapseMultilines(text string) string {
	for _, re := range cobol.FormatMultilineRes {
		for _, m := range re.FindAllString(text, -1) {
			if strings.Contains(m, "\n") {
				text = strings.ReplaceAll(text, m, joinLines(m))
			}
		}
	}
	for _, mm := range cobol.FormatMoveRes {
		var found []string
		pos := 0
		for pos < len(text) {
			rest := text[pos:]
			loc := mm.Re.FindStringSubmatchIndex(rest)
			if loc == nil {
				break
			}
			if !mm.AcceptMove(rest, loc) {
				pos += loc[0] + 1
				continue
			}
			found = append(found, rest[loc[0]:loc[1]])
			pos += max(loc[1], loc[0]+1)
		}
		for _, m := range found {
			if strings.Contains(m, "\n") {
				text = strings.ReplaceAll(text, m, joinLines(m))
			}
		}
	}
	return text
}

// flattenIf 去掉 IF 条件最外层括号并折叠为单行。
func flattenIf(text string) string {
	for _, m := range cobol.FormatIfRe.FindAllString(text, -1) {
		n := strings.Replace(m, "(", "", 1)
		n = cobol.RReplace(n, ")", "", 1)
		text = strings.ReplaceAll(text, m, joinLines(n))
	}
	return text
}

// collapseDisplay 折叠跨行 DISPLAY；续行若以语句关键字开头则视为下一条语句，不折叠。
func collapseDisplay(text string) string {
	for _, m := range cobol.FormatDisplayRe.FindAllString(text, -1) {
		if !strings.Contains(m, "\n") || startsStatement(m) {
			continue
		}
		text = strings.ReplaceAll(text, m, joinLines(m))
	}
	return text
}

func startsStatement(m string) bool {
	for _, l := range strings.Split(m, "\n")[1:] {
		if statementStartRe.MatchString(strings.TrimSpace(l)) {
			return true
		}
	}
	return false
}

func rmDots(l string) string {
	return strings.TrimRightFunc(strings.TrimRight(strings.TrimRightFunc(l, isSpace), "."), isSpace)
}

// CloseIfScopes 在每个以句点结束且尚未闭合的 IF 句后插入 %scope_close% 行：
// 数量 = IF 数 - END-IF 数 - 非句末且不接 ELSE 的 NEXT SENTENCE 数（下限 0）。
func CloseIfScopes(text string) string {
	pos := 0
	for pos < len(text) {
		loc := cobol.FormatIfEndRe.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if !cobol.IfEndsAt(text, end) || (start > 0 && isWordByte(text[start-1])) {
			pos = start + 1
			continue
		}
		n := scopeCloseCount(text[start:end])
		tokens := strings.Repeat("\n"+cobol.ScopeClose, n) + "\n"
		text = text[:end] + tokens + text[end:]
		pos = end + len(tokens)
	}
	return text
}

func isWordByte(c byte) bool {
	return c == '-' || c == '_' || ('0' <= c && c <= '9') || ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

func scopeCloseCount(sentence string) int {
	ifs, ends := 0, 0
	for _, w := range cobolWordRe.FindAllString(sentence, -1) {
		switch w {
		case "IF":
			ifs++
		case "END-IF":
			ends++
		}
	}
	exits := 0
	for _, loc := range nextSentenceRe.FindAllStringIndex(sentence, -1) {
		rest := sentence[loc[1]:]
		if strings.HasPrefix(rest, ".") || elseAheadRe.MatchString(rest) {
			continue
		}
		exits++
	}
	return max(ifs-ends-exits, 0)
}

// indexFillers 为每个 FILLER 生成唯一名 FILLER-n。
func indexFillers(text string) string {
	idx := 0
	return mapLines(text, func(l string) string {
		n := fillerRe.ReplaceAllString(l, " FILLER-"+strconv.Itoa(idx)+" ")
		if n != l {
			idx++
		}
		return n
	})
}

func rmPicCommas(text string) string {
	for _, m := range cobol.FormatPicCommaRe.FindAllString(text, -1) {
		if strings.Contains(m, ",") {
			text = strings.ReplaceAll(text, m, strings.ReplaceAll(m, ",", ""))
		}
	}
	return text
}

func rmThen(l string) string {
	loc := cobol.ThenRemovalRe.FindStringSubmatchIndex(l)
	if loc == nil {
		return l
	}
	s, _ := cobol.GroupIndex(cobol.ThenRemovalRe, loc, "then")
	return l[:s]
}
