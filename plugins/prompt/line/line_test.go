package line

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/pkg/contract"
)

func sampleReq() contract.LineRequest {
	return contract.LineRequest{
		FileID:  "Main.java",
		Line:    7,
		LVP:     "java_14_to_python_3",
		Source:  "Java 14",
		Target:  "Python 3",
		Text:    "%mask_0% = %mask_1%(%mask_2%);",
		Context: []string{"int %mask_0% = %mask_1%;"},
	}
}

// UT-PRMLINE-01: 默认模板含源/目标语言、上下文与行
func TestBuildDefault(t *testing.T) {
	b, err := New(nil)
	require.NoError(t, err)
	p, err := b.Build(context.Background(), sampleReq())
	require.NoError(t, err)
	cp, ok := p.(contract.ChatPrompt)
	require.True(t, ok)
	require.Len(t, cp, 3)

	assert.Equal(t, "system", cp[0].Role)
	assert.Contains(t, cp[0].Content, "translating Java 14 code into idiomatic Python 3")
	assert.Contains(t, cp[1].Content, "<context>\nint %mask_0% = %mask_1%;\n</context>")
	assert.Contains(t, cp[1].Content, "<line>\n%mask_0% = %mask_1%(%mask_2%);\n</line>")
	assert.Contains(t, cp[1].Content, "<context> is for reference")
	assert.Equal(t, "json_schema", cp[2].Role)
	assert.Equal(t, JSONSchema, cp[2].Content)
}

// UT-PRMLINE-02: 无上下文时不输出 context 块
func TestBuildNoContext(t *testing.T) {
	b, _ := New(nil)
	req := sampleReq()
	req.Context = nil
	p, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	user := p.(contract.ChatPrompt)[1].Content
	assert.NotContains(t, user, "<context>")
	assert.Contains(t, user, "1) Translate ONLY the code inside <line>.\n")
}

// UT-PRMLINE-03: 空行与取消
func TestBuildErrors(t *testing.T) {
	b, _ := New(nil)
	req := sampleReq()
	req.Text = "  "
	_, err := b.Build(context.Background(), req)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx, sampleReq())
	assert.ErrorIs(t, err, context.Canceled)
}

// UT-PRMLINE-04: 自定义模板与附加规则文件
func TestTemplateAndRulesFromFile(t *testing.T) {
	dir := t.TempDir()
	tp := filepath.Join(dir, "sys.tmpl")
	rp := filepath.Join(dir, "rules.txt")
	require.NoError(t, os.WriteFile(tp, []byte("LVP={{.LVP}}"), 0o644))
	require.NoError(t, os.WriteFile(rp, []byte("System.out.println -> print"), 0o644))

	b, err := New(&Options{SystemTemplatePath: tp, RulesPath: rp})
	require.NoError(t, err)
	p, err := b.Build(context.Background(), sampleReq())
	require.NoError(t, err)
	assert.Equal(t, "LVP=java_14_to_python_3\n\n<rules>\nSystem.out.println -> print\n</rules>", p.(contract.ChatPrompt)[0].Content)

	_, err = New(&Options{SystemTemplatePath: filepath.Join(dir, "missing")})
	assert.Error(t, err)
	_, err = New(&Options{InlineSystemTemplate: "{{.Broken"})
	assert.Error(t, err)
}

// UT-PRMLINE-05: 固定开销估算随规则增长
func TestEstimateOverhead(t *testing.T) {
	byLen := func(s string) int { return len(s) }
	plain, _ := New(nil)
	withRules, _ := New(&Options{InlineRules: "a -> b"})
	assert.Positive(t, plain.EstimateOverheadTokens(byLen))
	assert.Greater(t, withRules.EstimateOverheadTokens(byLen), plain.EstimateOverheadTokens(byLen))
	assert.Zero(t, plain.EstimateOverheadTokens(nil))
}
