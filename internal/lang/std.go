package lang

import "theory/internal/veil"

// Std: C 系源语言，格式化为逐行透传。
type Std struct{}

var _ Source = Std{}

func (Std) FormatFile(text string, _ FormatOptions) ([]string, error) {
	return veil.SplitLines(text), nil
}

func (Std) SingleLineComment(text string) string { return "// " + text }
