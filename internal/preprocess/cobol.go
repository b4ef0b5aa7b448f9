package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"theory/internal/cobol"
	"theory/internal/veil"
)

var (
	cobolSplitRe = regexp.MustCompile(`[^\s|<>(){}\[\]+/*^;,?.]+`)
	cobolStrRe   = regexp.MustCompile(`["']+([^"']*)["']+`)
)

// Cobol: COBOL 预处理器。
type Cobol struct{}

var _ veil.Preprocessor = Cobol{}

// NewCobol 返回 COBOL 预处理器。
func NewCobol() Cobol { return Cobol{} }

func (Cobol) SplitRegex() *regexp.Regexp     { return cobolSplitRe }
func (Cobol) IsReserved(tok string) bool     { return cobol.IsReserved(tok) }
func (Cobol) IsTag(string) bool              { return false }

func (Cobol) ShouldMaskSeq(line string) bool {
	return !strings.HasPrefix(line, "*") &&
		!cobol.ProgramIDRe.MatchString(line) &&
		!cobol.AuthorRe.MatchString(line) &&
		!cobol.DateWrittenRe.MatchString(line)
}

func (Cobol) ShouldMaskToken(tok string) bool {
	return !cobol.IsMaskedString(tok) && tok != cobol.ScopeClose
}

// ProcessSrcToken: 数字原样保留，标识符转 TitleCase。
func (Cobol) ProcessSrcToken(tok string) string {
	if isNumeric(tok) {
		return tok
	}
	return cobol.TitleCase(tok, true)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Preprocess: 先掩码字符串内容，再掩码保留数值形状中的全 9 数值。
func (Cobol) Preprocess(text string, v *veil.Veil) (string, error) {
	out := maskCobolStrings(text, v)
	return maskNumerics(out, v), nil
}

// maskCobolStrings 只掩码引号内的内容（引号保留），源文本不做规范化。
func maskCobolStrings(text string, v *veil.Veil) string {
	pos := 0
	for pos < len(text) {
		loc := cobolStrRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		cs, ce := pos+loc[2], pos+loc[3]
		content := text[cs:ce]
		if veil.IsToken(content) {
			pos = pos + loc[1]
			continue
		}
		tok := v.Next()
		v.Save(tok, content, false)
		text = text[:cs] + tok + text[ce:]
		pos = cs + len(tok) + (pos + loc[1] - ce)
	}
	return text
}

func maskNumerics(text string, v *veil.Veil) string {
	lines := strings.Split(text, "\n")
	for _, re := range cobol.ReservedNumericRes {
		names := re.SubexpNames()
		for i, line := range lines {
			stripped := strings.TrimSpace(line)
			loc := re.FindStringSubmatchIndex(stripped)
			if loc == nil {
				continue
			}
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			nl := line
			diff := indent
			for g := 1; g < len(names); g++ {
				if names[g] == "" || loc[2*g] < 0 {
					continue
				}
				val := stripped[loc[2*g]:loc[2*g+1]]
				if !cobol.NumericRe.MatchString(val) {
					continue
				}
				tok := v.Next()
				s, e := loc[2*g]+diff, loc[2*g+1]+diff
				nl = nl[:s] + tok + nl[e:]
				v.Save(tok, val, false)
				diff = indent + len(nl) - len(line)
			}
			lines[i] = nl
		}
	}
	return strings.Join(lines, "\n")
}
