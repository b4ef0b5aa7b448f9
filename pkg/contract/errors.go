package contract

import "errors"

// 哨兵错误，经 %w 包装后由 diag.Classify 归类。
var (
	// ErrInvalidInput: 调用参数或配置不合法，重试无意义。
	ErrInvalidInput = errors.New("invalid input")
	// ErrPathInvalid: 工件路径为绝对路径或经 '..' 逃出输出目录。
	ErrPathInvalid = errors.New("path invalid")
	// ErrUnknownLVP: 不在支持列表中的语言版本对。
	ErrUnknownLVP = errors.New("unknown lvp")
	// ErrInvariantViolation: 结构约束被破坏，如相对掩码越界、88 级条目缺少父项。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrNoTranslation: 规则与映射未命中且没有回退翻译器。
	ErrNoTranslation = errors.New("no translation")
	// ErrBudgetExceeded: 单次请求超出 token 预算。
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrRateLimited: 上游限流（HTTP 429 等），可退避重试。
	ErrRateLimited = errors.New("rate limited")
	// ErrResponseInvalid: 模型响应不符合约定格式，可重试。
	ErrResponseInvalid = errors.New("response invalid")
)
