// Package prompt 提供回退翻译的 token 预算估算。
package prompt

import "theory/pkg/contract"

// DefaultBytesPerToken: 未配置时的字节/token 比例。
const DefaultBytesPerToken = 4

// MakeEstimator 返回近似估算器：tokens ≈ ceil(len(utf8_bytes)/bytesPerToken)。
func MakeEstimator(bytesPerToken int) contract.TokenEstimator {
	bpt := bytesPerToken
	if bpt <= 0 {
		bpt = DefaultBytesPerToken
	}
	return func(s string) int {
		return (len(s) + bpt - 1) / bpt
	}
}

// EffectiveMaxTokens 计算预扣固定提示开销后的单行预算，返回 (effectiveMax, overhead)。
// maxTokens<=0 表示不限制，返回 (0,0)。
func EffectiveMaxTokens(pb contract.PromptBuilder, bytesPerToken, maxTokens int) (int, int) {
	if maxTokens <= 0 {
		return 0, 0
	}
	overhead := pb.EstimateOverheadTokens(MakeEstimator(bytesPerToken))
	return maxTokens - overhead, overhead
}

// PromptTokens 按 Prompt 实际文本估算请求规模；未知载荷返回 0。
func PromptTokens(p contract.Prompt, bytesPerToken int) int {
	est := MakeEstimator(bytesPerToken)
	switch v := p.(type) {
	case contract.TextPrompt:
		return est(string(v))
	case contract.ChatPrompt:
		n := 0
		for _, m := range v {
			n += est(m.Content)
		}
		return n
	}
	return 0
}
