package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"theory/pkg/contract"
)

type stubBuilder struct{ overhead int }

func (s *stubBuilder) Build(context.Context, contract.LineRequest) (contract.Prompt, error) {
	return nil, nil
}

func (s *stubBuilder) EstimateOverheadTokens(contract.TokenEstimator) int { return s.overhead }

// UT-PRM-01: 默认估算器
func TestMakeEstimatorDefault(t *testing.T) {
	est := MakeEstimator(0)
	assert.Equal(t, 2, est("abcdef"))
	assert.Equal(t, 0, est(""))
	assert.Equal(t, 3, MakeEstimator(2)("abcde"))
}

// UT-PRM-02: 预算预扣
func TestEffectiveMaxTokens(t *testing.T) {
	eff, over := EffectiveMaxTokens(&stubBuilder{overhead: 5}, 0, 0)
	assert.Zero(t, eff)
	assert.Zero(t, over)

	eff, over = EffectiveMaxTokens(&stubBuilder{overhead: 5}, 4, 10)
	assert.Equal(t, 5, eff)
	assert.Equal(t, 5, over)
}

// UT-PRM-03: 按 Prompt 估算
func TestPromptTokens(t *testing.T) {
	assert.Equal(t, 2, PromptTokens(contract.TextPrompt("abcdefgh"), 4))
	chat := contract.ChatPrompt{{Role: "system", Content: "abcd"}, {Role: "user", Content: "abcde"}}
	assert.Equal(t, 3, PromptTokens(chat, 4))
	assert.Zero(t, PromptTokens(42, 4))
}
