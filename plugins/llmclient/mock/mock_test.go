package mock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/pkg/contract"
)

var req = contract.LineRequest{FileID: "f", Line: 1, Text: "%mask_0%.%mask_1%();"}

// TestEchoJSONDefault 默认模式回显 {"code": 行}
func TestEchoJSONDefault(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	raw, err := c.Invoke(context.Background(), req, contract.TextPrompt("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"%mask_0%.%mask_1%();"}`, raw.Text)
}

// TestTableJSON 查表模式
func TestTableJSON(t *testing.T) {
	c, err := New(json.RawMessage(`{"response_mode":"table_json","table":{"%mask_0%.%mask_1%();":"await %mask_0%.%mask_1%();"}}`))
	require.NoError(t, err)
	raw, err := c.Invoke(context.Background(), req, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"await %mask_0%.%mask_1%();"}`, raw.Text)

	_, err = c.Invoke(context.Background(), contract.LineRequest{Text: "x"}, nil)
	assert.ErrorIs(t, err, contract.ErrResponseInvalid)
}

// TestRawText 原样返回
func TestRawText(t *testing.T) {
	c, _ := New(json.RawMessage(`{"response_mode":"raw_text"}`))
	raw, err := c.Invoke(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, req.Text, raw.Text)
}

// TestPromptEcho 未知模式回显 Prompt 摘要
func TestPromptEcho(t *testing.T) {
	c, _ := New(json.RawMessage(`{"response_mode":"prompt"}`))
	raw, err := c.Invoke(context.Background(), req, contract.ChatPrompt{{Role: "system", Content: "S"}})
	require.NoError(t, err)
	assert.Equal(t, "MOCK(chat:system): S", raw.Text)
	raw, _ = c.Invoke(context.Background(), req, contract.TextPrompt("T"))
	assert.Equal(t, "MOCK(text): T", raw.Text)
}

// TestCanceled 取消上下文
func TestCanceled(t *testing.T) {
	c, _ := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Invoke(ctx, req, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
