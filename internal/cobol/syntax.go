// Package cobol 汇集 COBOL 源语言的语法表：保留字、结构正则与命名转换。
//
// 正则分两类：带 ^ 锚点的用于单行（已去首尾空白）匹配；不带锚点的用于整段文本扫描。
// 含 %mask_N% 的正则匹配相对掩码空间中的行。
package cobol

import (
	"regexp"
	"strconv"
	"strings"
)

// ScopeClose: 格式化阶段为 IF 句末尾生成的作用域闭合标记。
const ScopeClose = "%scope_close%"

const (
	ident = `[0-9a-zA-Z\-:]+`
	masks = `%mask_\d+%`
	m0    = `%mask_0%`
	m1    = `%mask_1%`
	m2    = `%mask_2%`
)

var (
	nameSplitRe = regexp.MustCompile(`-|:`)
	maskPrefix  = regexp.MustCompile(`^` + masks)
)

// 通用结构
var (
	SourceRe           = regexp.MustCompile(`^>>SOURCE\s+.+$`)
	DivisionRe         = regexp.MustCompile(`^.*DIVISION\s*$`)
	CustomSectionRe    = regexp.MustCompile(`^` + m0 + `\s+SECTION$`)
	sectionRe          = regexp.MustCompile(`^.+\s+SECTION$`)
	DateCompiledRe     = regexp.MustCompile(`^DATE-COMPILED\s*.*$`)
	ProgramIDRe        = regexp.MustCompile(`^PROGRAM-ID\.\s+(?P<name>[^.]*)$`)
	AuthorRe           = regexp.MustCompile(`^AUTHOR\.\s+(?P<name>[^.]*)$`)
	DateWrittenRe      = regexp.MustCompile(`^DATE-WRITTEN\.\s+(?P<date>[^.]*)$`)
	ComputerRe         = regexp.MustCompile(`^.+-COMPUTER\s*\..*$`)
	SpecialNamesRe     = regexp.MustCompile(`^SPECIAL-NAMES\..*$`)
	ParagraphRe        = regexp.MustCompile(`^(?P<mask>` + m0 + `)(?P<section>\s+SECTION)?(?P<exit>\.\s+EXIT)?$`)
	ParagraphSrcRe     = regexp.MustCompile(`^(?P<name>` + ident + `)(?P<section>\s+SECTION)?$`)
	EntryRe            = regexp.MustCompile(`^ENTRY\s+.*$`)
	CallRe             = regexp.MustCompile(`^CALL\s+['"]?(?P<name>` + m0 + `)['"]?(?P<using>\s+USING\s+)?(?P<args>.+)?$`)
	PerformCallRe      = regexp.MustCompile(`^PERFORM\s+(?P<name>` + m0 + `)(?:\s+THRU\s+(?P<thru>` + m1 + `))?(?:\s+UNTIL\s+(?P<until>.+))?$`)
	ThenRemovalRe      = regexp.MustCompile(`^\s*(?:ELSE-)?IF.*(?P<then>\sTHEN)$`)
	StopRunRe          = regexp.MustCompile(`^STOP RUN\s*$`)
	GobackRe           = regexp.MustCompile(`^GOBACK\s*$`)
	SkipRe             = regexp.MustCompile(`^SKIP\d+$`)
	CopyRe             = regexp.MustCompile(`^COPY(\s+IDMS)?\s+(?P<name>` + ident + `)(\s+REPLACING\s+['"](?P<old>` + ident + `)['"]\s+BY\s+['"](?P<new>` + ident + `)['"])?\s*\.?$`)
	ExecBlockRe        = regexp.MustCompile(`(?s)EXEC.*?END-EXEC`)
	LengthOfRe         = regexp.MustCompile(`LENGTH\s+OF\s+(?P<var_name>` + masks + `)`)
	DBSchemaRe         = regexp.MustCompile(`^DB\s+.+$`)
	SubvalueRe         = regexp.MustCompile(`^(?P<name>` + masks + `)\s*\(\s*(?P<start>` + masks + `)(?:\s*:\s*)?(?P<length>` + masks + `)?\s*\)$`)
	NumericRe          = regexp.MustCompile(`^9+$`)
	MaskedStringRe     = regexp.MustCompile(`^["'` + "`" + `]` + masks + `["'` + "`" + `]`)
	DisplayNullRe      = regexp.MustCompile(`^DISPLAY\s+NULL$`)
	NextSentenceLineRe = regexp.MustCompile(`^NEXT\s+SENTENCE$`)
)

// 数据项
var (
	GroupItemRe       = regexp.MustCompile(`^(?P<lvl>\d{2})\s+(?P<name>` + ident + `)(?P<redefines>\s+REDEFINES\s+` + ident + `)?$`)
	ElemItemRe        = regexp.MustCompile(`^(?P<lvl>\d{2})\s+(?P<name>` + ident + `)\s+(?:PIC|VALUES?)\s+[^.]+$`)
	GroupItemMaskedRe = regexp.MustCompile(`^` + m0 + `\s+` + m1 + `(?P<redefines>\s+REDEFINES\s+` + masks + `)?(?:\s+VALUE\s+.*)?$`)
	BoolItemValRe     = regexp.MustCompile(`^88\s+` + m0 + `\s+VALUE\s+(?P<quote>['"])?` + m1 + `(?:['"])?$`)
	BoolItemThruRe    = regexp.MustCompile(`^88\s+` + m0 + `\s+VALUES?\s+(?P<thru_start>[^\s]+)\s+THRU\s+(?P<thru_end>[^\s]+)$`)
	BoolItemValsRe    = regexp.MustCompile(`^88\s+` + m0 + `\s+VALUES?\s+(?P<vals>[^.]+)$`)
)

// ReservedNumericRes: 需要额外掩码数值的“保留数值形状”（PIC 大小/值、88 级值、MOVE 字面量）。
// 仅当命名分组捕获值全部由 9 组成时才掩码（其余数值已在逐行切分时掩码）。
var ReservedNumericRes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{2}\s+` + ident + `\s+PIC\s+[XASV9]+\s*\(?(?P<size>\d+)?\)?(?:V9+(?:\((?P<size_2>\d)\))?)?(?:\s+VALUE\s+)?(?P<val>\d+|ZEROE?S?|SPACES?)?$`),
	regexp.MustCompile(`^\d{2}\s+` + ident + `\s+VALUE\s+(?P<val_1>9+)(\s+THRU\s+(?P<val_2>9+))?$`),
	regexp.MustCompile(`^MOVE\s+(?P<val>[9]+)\s+TO\s+` + ident + `$`),
	regexp.MustCompile(`^MOVE\s+[0-9a-zA-Z\-:%]+\s*\(\s*(?P<val>[9]+)\s*\)\s+TO\s+` + ident + `$`),
	regexp.MustCompile(`^MOVE\s+['"]?[0-9a-zA-Z\-:%]+['"]?\s+TO\s+` + ident + `\s*\(\s*(?P<val>[9]+)\s*\)$`),
}

// MOVE / EVALUATE
var (
	MoveRe            = regexp.MustCompile(`^MOVE\s+(?P<corresponding>CORRESPONDING\s+)?(?P<val_quote>['"])?` + m0 + `['"]?\s+TO\s+(?P<destinations>[%mask_\d\s,]+)$`)
	WhenRe            = regexp.MustCompile(`^WHEN\s+['"]?` + m0 + `['"]?$`)
	WhenPerformRe     = regexp.MustCompile(`^WHEN\s+['"]?` + m0 + `['"]?\s+PERFORM\s+` + m1 + `$`)
	WhenMoveRe        = regexp.MustCompile(`^WHEN\s+['"]?` + m0 + `['"]?\s+MOVE\s+` + m1 + `\s+TO\s+` + m2 + `$`)
	WhenOtherRe       = regexp.MustCompile(`^WHEN\s+OTHER$`)
	WhenOtherPerformRe = regexp.MustCompile(`^WHEN\s+OTHER\s+PERFORM\s+` + m0 + `$`)
	WhenOtherMoveRe   = regexp.MustCompile(`^WHEN\s+OTHER\s+MOVE\s+` + m0 + `\s+TO\s+` + m1 + `$`)
	EndEvaluateRe     = regexp.MustCompile(`^END-EVALUATE$`)
)

// 文件 IO
var (
	FileSelectRe      = regexp.MustCompile(`^SELECT\s+` + m0 + `\s+ASSIGN(?:\s+TO)?\s+['"]?` + m1 + `['"]?[^.]*$`)
	SrcFileDataRe     = regexp.MustCompile(`^(?:FD|SD)\s+(?P<file_name>` + ident + `)(?:\s+DATA\s+RECORD\s+IS\s+(?P<data_name>` + ident + `))?$`)
	FileDataRe        = regexp.MustCompile(`^(?P<type>FD|SD)\s+` + m0 + `(?:\s+DATA\s+RECORD\s+IS\s+` + m1 + `)?$`)
	OpenInputRe       = regexp.MustCompile(`^OPEN\s+INPUT\s+` + m0 + `\s*?$`)
	OpenExtendRe      = regexp.MustCompile(`^OPEN\s+EXTEND\s+` + m0 + `\s*?$`)
	OpenOutputRe      = regexp.MustCompile(`^OPEN\s+OUTPUT\s+` + m0 + `\s*?$`)
	EndReadRe         = regexp.MustCompile(`^END-READ\s*$`)
	EndWriteRe        = regexp.MustCompile(`^END-WRITE\s*$`)
	CloseFileRe       = regexp.MustCompile(`^CLOSE\s+(?P<files>[^.]*)$`)
	WriteRe           = regexp.MustCompile(`^WRITE\s+` + m0 + `\s+FROM\s+` + m1 + `$`)
	WriteAfterRe      = regexp.MustCompile(`^WRITE\s+` + m0 + `\s+FROM\s+` + m1 + `\s+AFTER\s+ADVANCING(?:\s+(?:PAGE|LINE))?$`)
	WriteAfterNRe     = regexp.MustCompile(`^WRITE\s+` + m0 + `\s+FROM\s+` + m1 + `\s+AFTER\s+ADVANCING\s+` + m2 + `(?:\s+LINES?|PAGE)?$`)
	WriteAfterTopRe   = regexp.MustCompile(`^WRITE\s+` + m0 + `\s+FROM\s+` + m1 + `\s+AFTER\s+ADVANCING\s+TOP-OF-PAGE$`)
	WriteBeforeRe     = regexp.MustCompile(`^WRITE\s+` + m0 + `\s+FROM\s+` + m1 + `\s+BEFORE\s+ADVANCING(?:\s+(?:PAGE|LINE))?$`)
	WriteBeforeNRe    = regexp.MustCompile(`^WRITE\s+` + m0 + `\s+FROM\s+` + m1 + `\s+BEFORE\s+ADVANCING\s+` + m2 + `(?:\s+LINES?|PAGE)?$`)
	ReadRe            = regexp.MustCompile(`^READ\s+` + m0 + `$`)
	ReadAtEndRe       = regexp.MustCompile(`^READ\s+` + m0 + `\s+AT\s+END\s+(?P<at_end>.+)$`)
	ReadIntoRe        = regexp.MustCompile(`^READ\s+` + m0 + `\s+INTO\s+` + m1 + `$`)
	ReadIntoAtEndRe   = regexp.MustCompile(`^READ\s+` + m0 + `\s+INTO\s+` + m1 + `\s+AT\s+END\s+(?P<at_end>.+)$`)
	ReleaseRe         = regexp.MustCompile(`^RELEASE\s+` + m0 + `$`)
)

// IDMS
var (
	IDMSBindRe             = regexp.MustCompile(`^BIND\s+.+$`)
	IDMSReadyRe            = regexp.MustCompile(`^READY\s+.+\s+USAGE-MODE\s+.+$`)
	IDMSObtainFirstRe      = regexp.MustCompile(`^OBTAIN\s+FIRST\s+` + m0 + `\s+WITHIN\s+` + m1 + `$`)
	IDMSObtainNextRe       = regexp.MustCompile(`^OBTAIN\s+NEXT\s+` + m0 + `\s+WITHIN\s+` + m1 + `$`)
	IDMSObtainOwnerRe      = regexp.MustCompile(`^OBTAIN\s+OWNER\s+WITHIN\s+` + m0 + `$`)
	IDMSObtainUsingRe      = regexp.MustCompile(`^OBTAIN\s+` + m0 + `\s+WITHIN\s+` + m1 + `\s+USING\s+` + m2 + `$`)
	IDMSObtainCalcRe       = regexp.MustCompile(`^OBTAIN\s+CALC\s+` + m0 + `$`)
	PerformIDMSStatusRe    = regexp.MustCompile(`^PERFORM\s+IDMS-STATUS$`)
	IDMSEndOfSetRe         = regexp.MustCompile(`^(?P<not>NOT\s+)?DB-END-OF-SET$`)
	IDMSIfEndOfSetRe       = regexp.MustCompile(`^IF\s+(?P<not>NOT\s+)?DB-END-OF-SET(?:\s+THEN)?$`)
	IDMSNotAnyErrorRe      = regexp.MustCompile(`^NOT\s+ANY-ERROR-STATUS$`)
	IDMSIfAnyErrorRe       = regexp.MustCompile(`^IF\s+ANY-ERROR-STATUS(?:\s+THEN)?$`)
	IDMSIfNotAnyErrorRe    = regexp.MustCompile(`^IF\s+NOT\s+ANY-ERROR-STATUS(?:\s+THEN)?$`)
)

// IgnoredCopybooks: 内联时直接跳过的 IDMS 副本。
var IgnoredCopybooks = map[string]bool{
	"SUBSCHEMA-CONTROL": true,
	"IDMS-STATUS":       true,
}

// IsIgnoredSection 报告 line 是否为非自定义（未掩码名称）的 SECTION 头。
func IsIgnoredSection(line string) bool {
	return sectionRe.MatchString(line) && !maskPrefix.MatchString(line)
}

// IsMaskedString 报告单元是否为被引号包裹的掩码令牌（字符串字面量）。
func IsMaskedString(tok string) bool { return MaskedStringRe.MatchString(tok) }

// Group 返回命名分组的捕获值；未参与匹配时 ok 为 false。
func Group(re *regexp.Regexp, m []string, group string) (string, bool) {
	i := re.SubexpIndex(group)
	if i < 0 || i >= len(m) {
		return "", false
	}
	return m[i], m[i] != ""
}

// GroupIndex 返回命名分组在 FindStringSubmatchIndex 结果中的区间；未参与匹配时返回 -1,-1。
func GroupIndex(re *regexp.Regexp, loc []int, group string) (int, int) {
	i := re.SubexpIndex(group)
	if i < 0 || 2*i+1 >= len(loc) {
		return -1, -1
	}
	return loc[2*i], loc[2*i+1]
}

// Level 解析两位层级号；失败返回 0。
func Level(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
