package cobol

import (
	"regexp"
	"strings"
)

// 格式化阶段（整段文本扫描，不锚定）
var (
	FormatCallRe     = regexp.MustCompile(`CALL\s+[^.]*\s*\.`)
	FormatSelectRe   = regexp.MustCompile(`SELECT\s+[^.]*\s*\.`)
	FormatPerformRe  = regexp.MustCompile(`PERFORM\s+` + ident + `(?:\s+(?:UNTIL|VARYING)\s+[^.]+)?(?:\s+THRU\s+` + ident + `(?:\s+UNTIL\s+` + ident + `)?)?\s*\.`)
	FormatSortRe     = regexp.MustCompile(`(?s)SORT\s+` + ident + `\s+ON\s+(?:ASCENDING|DESCENDING)\s+KEY\s+.*(?:\s+INPUT\s+PROCEDURE\s+IS\s+` + ident + `)(?:\s+OUTPUT\s+PROCEDURE\s+IS\s+` + ident + `)\.`)
	FormatWriteRe    = regexp.MustCompile(`WRITE\s+` + ident + `\s+FROM\s+` + ident + `(?:\s+AFTER\s+ADVANCING\s+(?:\d+\s+(?:LINES?|PAGES?))?(?:` + ident + `)?)?\.`)
	FormatReturnRe   = regexp.MustCompile(`RETURN\s+` + ident + `(?:\s+AT\s+END\s+[^.]+)?\s*\.`)
	FormatDisplayRe  = regexp.MustCompile(`DISPLAY\s+[^.]+\.`)
	FormatRedefineRe = regexp.MustCompile(`\d{2}\s+` + ident + `\s+REDEFINES\s+` + ident + `\s+PIC\s+[^.]*\.`)
	FormatPicRe      = regexp.MustCompile(`\d{2}\s+(?P<name>` + ident + `)(?:\s+PIC\s+[^.]+)?(?:\s+VALUE['"]?(?P<val>[^.]*)?['"]?)?\s*\.`)
	FormatPicCommaRe = regexp.MustCompile(`\d{2}\s+(?P<name>` + ident + `)(?:\s+PIC\s+[^.\s]+)?`)
	FormatFileDataRe = regexp.MustCompile(`(?:FD|SD)\s+[^.]*\s*\.?`)
	FormatEntryRe    = regexp.MustCompile(`ENTRY\s+[^.]*\.`)
	FormatIfRe       = regexp.MustCompile(`IF\s+\([^\)]+\)`)
	FormatIfEndRe    = regexp.MustCompile(`IF\s+[^.]+\.`)

	RmProtocolRe       = regexp.MustCompile(`PROTOCOL\.\s+[\w\s-]+\.`)
	RmRecordingModeRe  = regexp.MustCompile(`RECORDING\s+MODE\s+IS\s+` + ident)
	RmBlockContainsRe  = regexp.MustCompile(`BLOCK\s+CONTAINS\s+\d+\s+RECORDS`)
	RmRecordContainsRe = regexp.MustCompile(`RECORD\s+CONTAINS\s+\d+\s+CHARACTERS`)
	RmLabelRe          = regexp.MustCompile(`LABEL\s+RECORDS\s+ARE\s+STANDARD`)

	scopeCloseAheadRe = regexp.MustCompile(`^\s*` + ScopeClose)
)

// FormatMultilineRes: 需要折叠为单行的多行语句（按顺序依次应用）。
var FormatMultilineRes = []*regexp.Regexp{
	FormatPicRe,
	FormatRedefineRe,
	FormatSelectRe,
	FormatFileDataRe,
	FormatCallRe,
	FormatEntryRe,
	FormatPerformRe,
	FormatSortRe,
	FormatWriteRe,
	FormatReturnRe,
}

// moveForbidden: 多目标 MOVE 的目标不得以这些词开头（否则是下一条语句）。
var moveForbidden = []string{"PERFORM", "MOVE", "NEXT", "ELSE", "ELIF", "OBTAIN", "IF", "DISPLAY", "GO", "CALL", "ADD", "COMPUTE", "END-"}

// MoveMultiline 描述一个 count 目标的多行 MOVE 折叠正则。
type MoveMultiline struct {
	Re    *regexp.Regexp
	Count int
}

// FormatMoveRes: 目标数 2..5 的多行 MOVE 正则。
var FormatMoveRes = buildMoveRes()

func buildMoveRes() []MoveMultiline {
	out := make([]MoveMultiline, 0, 4)
	for count := 2; count <= 5; count++ {
		dests := make([]string, count)
		for i := range dests {
			dests[i] = `(` + ident + `)`
		}
		re := regexp.MustCompile(`MOVE\s+(?:CORRESPONDING\s+)?['"]?` + ident + `['"]?\s+TO\s+` + strings.Join(dests, `\s+`) + `\.?`)
		out = append(out, MoveMultiline{Re: re, Count: count})
	}
	return out
}

// AcceptMove 报告多行 MOVE 匹配的各目标是否都不是下一条语句的起始词。
func (m MoveMultiline) AcceptMove(text string, loc []int) bool {
	// loc[0:2] 是整段，目标分组从 1 开始
	for g := 1; g <= m.Count; g++ {
		s, e := loc[2*g], loc[2*g+1]
		if s < 0 {
			return false
		}
		dest := text[s:e]
		for _, w := range moveForbidden {
			if strings.HasPrefix(dest, w) {
				return false
			}
		}
	}
	return true
}

// IfEndsAt 报告 text[end:] 是否未紧跟作用域闭合标记（即该 IF 句尚未闭合）。
func IfEndsAt(text string, end int) bool {
	return !scopeCloseAheadRe.MatchString(text[end:])
}

// MTL（整段文本扫描）
var (
	IsolatedKeywordRes = []*regexp.Regexp{
		regexp.MustCompile(`\s(?:COMP(?:-\d+)?|BINARY|PACKED-DECIMAL)\n`),
		regexp.MustCompile(`\s(?:COMP(?:-\d+)?|BINARY|PACKED-DECIMAL)\s`),
		regexp.MustCompile(`\s(?:COMP(?:-\d+)?|BINARY|PACKED-DECIMAL)\.`),
	}
	ReturnAtEndRe     = regexp.MustCompile(`RETURN\s+` + masks + `\s+AT\s+END\s+(?P<at_end>.+)`)
	GlobalFileDataRe  = regexp.MustCompile(`(?:FD|SD)\s+(?P<file_name>` + masks + `)(?:\s+DATA\s+RECORD\s+IS\s+(?P<data_name>` + masks + `))?`)
	ReplFileDataRefRe = regexp.MustCompile(`WRITE\s+(?P<write_to>` + masks + `)\s+FROM\s+` + masks + `(?:\s+(?:AFTER|BEFORE)\s+ADVANCING\s+(?:` + masks + `\s+)?(?:LINES?|PAGES?)?)?`)
)
