package preprocess

import (
	"fmt"

	"theory/internal/lvp"
	"theory/internal/veil"
	"theory/pkg/contract"
)

// ForLVP 返回 LVP 源语言对应的预处理器。
func ForLVP(l lvp.LVP) (veil.Preprocessor, error) {
	switch l {
	case lvp.CobolToCSharp9:
		return NewCobol(), nil
	case lvp.Cpp17ToNodeJS14:
		return NewCpp(), nil
	case lvp.Java14ToNodeJS14, lvp.Java14ToPython3:
		return NewJava(), nil
	}
	return nil, fmt.Errorf("preprocessor for %q: %w", l.String(), contract.ErrUnknownLVP)
}
