package contract

import "context"

// LineTranslator 在规则层与数据映射均未命中时给出一行译文。
// 请求与返回都处于相对掩码空间；与全局令牌之间的换算由调用方完成。
type LineTranslator interface {
	TranslateLine(ctx context.Context, req LineRequest) (string, error)
}

// 回退翻译的三段：PromptBuilder 构造提示，LLMClient 调用模型，Decoder 解析响应。

// Prompt 的具体形状由成对的 PromptBuilder 与 LLMClient 约定。
type Prompt any

// TextPrompt: 单段文本提示。
type TextPrompt string

// Message: 会话消息。
type Message struct {
	Role    string
	Content string
}

// ChatPrompt: 按序的会话消息。
type ChatPrompt []Message

// TokenEstimator 粗略估算文本的 token 数。
type TokenEstimator func(s string) int

// PromptBuilder 只做纯计算：不读写外部资源，不改动掩码令牌。
type PromptBuilder interface {
	Build(ctx context.Context, req LineRequest) (Prompt, error)
	// EstimateOverheadTokens 返回与行内容无关的固定开销（system、规则、输出格式说明）。
	EstimateOverheadTokens(estimate TokenEstimator) int
}

// Raw: 模型响应原文，客户端不做任何清洗。
type Raw struct {
	Text string
}

// LLMClient 每次调用处理一行；须响应 ctx 取消。
type LLMClient interface {
	Invoke(ctx context.Context, req LineRequest, p Prompt) (Raw, error)
}

// Decoder 把 Raw 解析为相对掩码空间的目标代码；格式不符或令牌越界返回 ErrResponseInvalid。
type Decoder interface {
	Decode(ctx context.Context, req LineRequest, raw Raw) (string, error)
}
