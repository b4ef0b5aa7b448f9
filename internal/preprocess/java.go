package preprocess

import "regexp"

var javaReserved = []string{
	"abstract", "assert", "boolean", "break", "byte", "case", "catch", "char", "class", "const",
	"continue", "default", "do", "double", "else", "enum", "extends", "final", "finally", "float",
	"for", "goto", "if", "implements", "import", "instanceof", "int", "interface", "long",
	"native", "new", "package", "private", "protected", "public", "return", "short", "static",
	"strictfp", "super", "switch", "synchronized", "this", "throw", "throws", "transient", "try",
	"void", "volatile", "while", "var", "record", "yield", "true", "false", "null",
	";", "(", ")", "{", "}", "[", "]", "+", "-", "*", "/", "%", "^", "=", "==", "!=", "<", "<=",
	">", ">=", "--", "++", "?", ",", "!", "&&", "||", "->", "::",
	"String", "Object", "Integer", "Long", "Double", "Float", "Boolean", "Character", "Math",
	"System", "System.out.println", "System.out.print", "System.err.println",
}

// 注解与 java.lang 常用异常类型不掩码。
var javaReservedRes = []*regexp.Regexp{
	regexp.MustCompile(`^@\w+$`),
	regexp.MustCompile(`^(?:Runtime|IllegalArgument|IllegalState|NullPointer|IndexOutOfBounds|Arithmetic|Unsupported)?Exception$`),
}

// NewJava 返回 Java 预处理器。
func NewJava() *Standard { return newStandard(javaReserved, javaReservedRes) }
