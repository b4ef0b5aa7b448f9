package diag

import (
	"context"
	"errors"
	"net"
	"os"
	"os/exec"

	"theory/pkg/contract"
)

// Code: 日志与指标使用的错误分类，与 CLI 退出码无关。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNetwork   Code = "network"
	CodeProtocol  Code = "protocol"
	CodeInvariant Code = "invariant"
	CodeInput     Code = "input"
	CodeBudget    Code = "budget"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// sentinelCodes 按顺序匹配，先命中者生效。
var sentinelCodes = []struct {
	err  error
	code Code
}{
	{context.Canceled, CodeCancel},
	{context.DeadlineExceeded, CodeCancel},
	{contract.ErrBudgetExceeded, CodeBudget},
	{contract.ErrRateLimited, CodeBudget},
	{contract.ErrResponseInvalid, CodeProtocol},
	{contract.ErrInvariantViolation, CodeInvariant},
	{contract.ErrNoTranslation, CodeInvariant},
	{contract.ErrInvalidInput, CodeInput},
	{contract.ErrPathInvalid, CodeInput},
	{contract.ErrUnknownLVP, CodeInput},
	{exec.ErrNotFound, CodeIO},
}

// Classify 只看哨兵错误与标准库错误类型，不匹配错误文本。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	return CodeUnknown
}
