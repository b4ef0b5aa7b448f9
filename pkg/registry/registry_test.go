package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStrictUnmarshal 严格解码
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	require.NoError(t, strictUnmarshal(nil, &o))
	assert.Zero(t, o.A)
	require.NoError(t, strictUnmarshal(json.RawMessage(`{"a":1}`), &o))
	assert.Equal(t, 1, o.A)
	assert.Error(t, strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o), "未知字段应报错")
}

// TestFactories 遍历注册表入口
func TestFactories(t *testing.T) {
	_, err := Reader["fs"](json.RawMessage(`{"extensions":[".java"]}`))
	assert.NoError(t, err)
	_, err = Reader["fs"](json.RawMessage(`{"x":1}`))
	assert.Error(t, err)

	_, err = PromptBuilder["line"](json.RawMessage(`{"inline_rules":"a -> b"}`))
	assert.NoError(t, err)
	_, err = PromptBuilder["line"](json.RawMessage(`{"x":1}`))
	assert.Error(t, err)

	_, err = LLMClient["mock"](nil)
	assert.NoError(t, err)
	_, err = LLMClient["flaky"](nil)
	assert.NoError(t, err)
	_, err = LLMClient["openai"](json.RawMessage(`{"api_key":"k"}`))
	assert.NoError(t, err)

	_, err = Decoder["linejson"](json.RawMessage(`{"lenient":true}`))
	assert.NoError(t, err)

	_, err = Writer["fs"](json.RawMessage(`{"output_dir":"out"}`))
	assert.NoError(t, err)
	_, err = Writer["fs"](json.RawMessage(`{}`))
	assert.Error(t, err, "缺少 output_dir")
	_, err = Writer["fs"](json.RawMessage(`{"output_dir":"out","x":1}`))
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"flaky", "gemini", "mock", "openai"}, Names(LLMClient))
	assert.Equal(t, []string{"fs"}, Names(Writer))
}
