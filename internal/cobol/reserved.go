package cobol

import "strings"

// 运算符与标点（切分后仍可能作为独立单元出现）。
var operators = []string{
	".", ",", `"`, "'", "+", "-", "*", "/", "**", ">", "<", "=", "==", ">=", "<=", "<>", "*>", ">>",
}

// 关键字（含 IDMS 扩展）。
var keywords = []string{
	"88", "ACCEPT", "ACCESS", "ACTIVE-CLASS", "ADD", "ADDRESS", "ADVANCING", "AFTER", "ALIGNED",
	"ALL", "ALLOCATE", "ALPHABET", "ALPHABETIC", "ALPHABETIC-LOWER", "ALPHABETIC-UPPER",
	"ALPHANUMERIC", "ALPHANUMERIC-EDITED", "ALSO", "ALTER", "ALTERNATE", "AND", "ANY",
	"ANY-ERROR-STATUS", "ANYCASE", "APPLY", "ARE", "AREA", "AREAS", "ASCENDING", "ASSIGN", "AT",
	"AUTHOR", "B-AND", "B-NOT", "B-OR", "B-XOR", "BASED", "BASIS", "BEFORE", "BEGINNING", "BINARY",
	"BINARY-CHAR", "BINARY-DOUBLE", "BINARY-LONG", "BINARY-SHORT", "BIND", "BIT", "BLANK", "BLOCK",
	"BOOLEAN", "BOTTOM", "BY", "CALC", "CALL", "CANCEL", "CBL", "CD", "CF", "CH", "CHARACTER",
	"CHARACTERS", "CLASS", "CLASS-ID", "CLOCK-UNITS", "CLOSE", "COBOL", "CODE", "CODE-SET", "COL",
	"COLLATING", "COLS", "COLUMN", "COLUMNS", "COM-REG", "COMMA", "COMMON", "COMMUNICATION", "COMP",
	"COMP-1", "COMP-2", "COMP-3", "COMP-4", "COMP-5", "COMPUTATIONAL", "COMPUTATIONAL-1",
	"COMPUTATIONAL-2", "COMPUTATIONAL-3", "COMPUTATIONAL-4", "COMPUTATIONAL-5", "COMPUTE",
	"CONDITION", "CONFIGURATION", "CONSTANT", "CONTAINS", "CONTENT", "CONTINUE", "CONTROL",
	"CONTROLS", "CONVERTING", "COPY", "CORR", "CORRESPONDING", "COUNT", "CRT", "CURRENCY", "CURSOR",
	"DATA", "DATA-POINTER", "DATE", "DATE-COMPILED", "DATE-WRITTEN", "DAY", "DAY-OF-WEEK", "DB",
	"DB-END-OF-SET", "DBCS", "DE", "DEBUG-CONTENTS", "DEBUG-ITEM", "DEBUG-LINE", "DEBUG-NAME",
	"DEBUG-SUB-1", "DEBUG-SUB-2", "DEBUG-SUB-3", "DEBUGGING", "DECIMAL-POINT", "DECLARATIVES",
	"DEFAULT", "DELETE", "DELIMITED", "DELIMITER", "DEPENDING", "DESCENDING", "DESTINATION", "DETAIL",
	"DISABLE", "DISPLAY", "DISPLAY-1", "DIVIDE", "DIVISION", "DOWN", "DUPLICATES", "DYNAMIC", "EC",
	"EGCS", "EGI", "EJECT", "ELSE", "EMI", "ENABLE", "END", "END-ACCEPT", "END-ADD", "END-CALL",
	"END-COMPUTE", "END-DELETE", "END-DISPLAY", "END-DIVIDE", "END-EVALUATE", "END-EXEC", "END-IF",
	"END-INVOKE", "END-MULTIPLY", "END-OF-PAGE", "END-PERFORM", "END-READ", "END-RECEIVE",
	"END-RETURN", "END-REWRITE", "END-SEARCH", "END-START", "END-STRING", "END-SUBTRACT",
	"END-UNSTRING", "END-WRITE", "END-XML", "ENDING", "ENTER", "ENTRY", "ENVIRONMENT", "EO", "EOP",
	"EQUAL", "ERROR", "ESI", "EVALUATE", "EVERY", "EXCEPTION", "EXCEPTION-OBJECT", "EXEC", "EXECUTE",
	"EXIT", "EXTEND", "EXTERNAL", "FACTORY", "FALSE", "FD", "FILE", "FILE-CONTROL", "FILLER", "FINAL",
	"FINISH", "FIRST", "FLOAT-EXTENDED", "FLOAT-LONG", "FLOAT-SHORT", "FOOTING", "FOR", "FORMAT",
	"FREE", "FROM", "FUNCTION", "FUNCTION-ID", "FUNCTION-POINTER", "GENERATE", "GET", "GIVING",
	"GLOBAL", "GO", "GOBACK", "GREATER", "GROUP", "GROUP-USAGE", "HEADING", "HIGH-VALUE",
	"HIGH-VALUES", "I-O", "I-O-CONTROL", "ID", "IDENTIFICATION", "IDMS-CONTROL", "IDMS-STATUS", "IF",
	"IN", "INDEX", "INDEXED", "INDICATE", "INHERITS", "INITIAL", "INITIALIZE", "INITIATE", "INPUT",
	"INPUT-OUTPUT", "INSERT", "INSPECT", "INSTALLATION", "INTERFACE", "INTERFACE-ID", "INTO",
	"INVALID", "INVOKE", "IS", "JNIENVPTR", "JSON", "JSON-CODE", "JUST", "JUSTIFIED", "KANJI", "KEY",
	"LABEL", "LAST", "LEADING", "LEFT", "LENGTH", "LESS", "LIMIT", "LIMITS", "LINAGE",
	"LINAGE-COUNTER", "LINE", "LINE-COUNTER", "LINES", "LINKAGE", "LOCAL-STORAGE", "LOCALE", "LOCK",
	"LOW-VALUE", "LOW-VALUES", "MEMORY", "MERGE", "MESSAGE", "METHOD", "METHOD-ID", "MINUS", "MODE",
	"MODULES", "MORE-LABELS", "MOVE", "MULTIPLE", "MULTIPLY", "NATIONAL", "NATIONAL-EDITED", "NATIVE",
	"NEGATIVE", "NESTED", "NEXT", "NO", "NOT", "NULL", "NULLS", "NUMBER", "NUMERIC", "NUMERIC-EDITED",
	"OBJECT", "OBJECT-COMPUTER", "OBJECT-REFERENCE", "OBTAIN", "OCCURS", "OF", "OFF", "OMITTED", "ON",
	"OPEN", "OPTIONAL", "OPTIONS", "OR", "ORDER", "ORGANIZATION", "OTHER", "OUTPUT", "OVERFLOW",
	"OVERRIDE", "OWNER", "PACKED-DECIMAL", "PADDING", "PAGE", "PAGE-COUNTER", "PASSWORD", "PERFORM",
	"PF", "PH", "PIC", "PICTURE", "PLUS", "POINTER", "POSITION", "POSITIVE", "PRESENT", "PRINTING",
	"PROCEDURE", "PROCEDURE-POINTER", "PROCEDURES", "PROCEED", "PROCESSING", "PROGRAM", "PROGRAM-ID",
	"PROGRAM-POINTER", "PROPERTY", "PROTOCOL", "PROTOTYPE", "PURGE", "QUEUE", "QUOTE", "QUOTES",
	"RAISE", "RAISING", "RANDOM", "RD", "READ", "READY", "RECEIVE", "RECORD", "RECORDING", "RECORDS",
	"RECURSIVE", "REDEFINES", "REEL", "REFERENCE", "REFERENCES", "RELATIVE", "RELEASE", "RELOAD",
	"REMAINDER", "REMOVAL", "RENAMES", "REPLACE", "REPLACING", "REPORT", "REPORTING", "REPORTS",
	"REPOSITORY", "RERUN", "RESERVE", "RESET", "RESUME", "RETRY", "RETURN", "RETURNING", "REVERSED",
	"REWIND", "REWRITE", "RF", "RH", "RIGHT", "ROUNDED", "RUN", "SAME", "SCHEMA", "SCREEN", "SD",
	"SEARCH", "SECTION", "SECURITY", "SEGMENT", "SEGMENT-LIMIT", "SELECT", "SELF", "SEND", "SENTENCE",
	"SEPARATE", "SEQUENCE", "SEQUENTIAL", "SERVICE", "SET", "SHARING", "SHIFT-IN", "SHIFT-OUT",
	"SIGN", "SIZE", "SKIP1", "SKIP2", "SKIP3", "SORT", "SORT-CONTROL", "SORT-CORE-SIZE",
	"SORT-FILE-SIZE", "SORT-MERGE", "SORT-MESSAGE", "SORT-MODE-SIZE", "SORT-RETURN", "SOURCE",
	"SOURCE-COMPUTER", "SOURCES", "SPACE", "SPACES", "SPECIAL-NAMES", "SQL", "SQLIMS", "STANDARD",
	"STANDARD-1", "STANDARD-2", "START", "STATUS", "STOP", "STRING", "SUB-QUEUE-1", "SUB-QUEUE-2",
	"SUB-QUEUE-3", "SUBTRACT", "SUM", "SUPER", "SUPPRESS", "SYMBOLIC", "SYNC", "SYNCHRONIZED",
	"SYSTEM-DEFAULT", "TABLE", "TALLY", "TALLYING", "TAPE", "TERMINAL", "TERMINATE", "TEST", "TEXT",
	"THAN", "THEN", "THROUGH", "THRU", "TIME", "TIMES", "TITLE", "TO", "TOP", "TOP-OF-PAGE", "TRACE",
	"TRAILING", "TRUE", "TYPE", "TYPEDEF", "UNIT", "UNIVERSAL", "UNLOCK", "UNSTRING", "UNTIL", "UP",
	"UPON", "USAGE", "USAGE-MODE", "USE", "USER-DEFAULT", "USING", "VAL-STATUS", "VALID", "VALIDATE",
	"VALIDATE-STATUS", "VALUE", "VALUES", "VARYING", "VOLATILE", "WHEN", "WHEN-COMPILED", "WITH",
	"WITHIN", "WORDS", "WORKING-STORAGE", "WRITE", "WRITE-ONLY", "XML", "XML-CODE", "XML-EVENT",
	"XML-INFORMATION", "XML-NAMESPACE", "XML-NAMESPACE-PREFIX", "XML-NNAMESPACE",
	"XML-NNAMESPACE-PREFIX", "XML-NTEXT", "XML-SCHEMA", "XML-TEXT", "ZERO", "ZEROES", "ZEROS",
	"XXBXXBX", "XXBXXXBX", "END-JSON",
}

var reserved = buildReserved()

// buildReserved 合并运算符、关键字与生成的 PIC 形状（X…、A…、9…、-…9、S9…、V9…、Z…）。
func buildReserved() map[string]struct{} {
	m := make(map[string]struct{}, 1500)
	add := func(s string) { m[s] = struct{}{} }
	for _, s := range operators {
		add(s)
	}
	for _, s := range keywords {
		add(s)
	}
	for i := 1; i < 100; i++ {
		add(strings.Repeat("X", i))
		add(strings.Repeat("A", i))
		nines := strings.Repeat("9", i)
		add(nines)
		add(strings.Repeat("-", i) + "9")
		add("S" + nines)
		add("V" + nines)
		z := strings.Repeat("Z", i)
		for _, suf := range []string{"X", "A", "9", "S9", "V9"} {
			add(z + suf)
		}
	}
	return m
}

// IsReserved 报告 tok 是否为 COBOL 保留单元。
func IsReserved(tok string) bool {
	_, ok := reserved[tok]
	return ok
}
