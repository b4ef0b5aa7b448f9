// Package mock 提供无网络的调试 LLM 客户端，用于联调与集成测试。
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"theory/pkg/contract"
)

// Options: 调试配置。
type Options struct {
	// APIKey 仅用于限流分组，不参与任何网络请求。
	APIKey string `json:"api_key"`
	// ResponseMode:
	//   - "" / "echo_json": 返回 {"code": 原行}，与 linejson 解码器即插即用；
	//   - "table_json": 按 Table 查表（键为相对掩码行），未命中返回 ErrResponseInvalid；
	//   - "raw_text": 原样返回行文本（需宽松解码）；
	//   - 其他值：回显 Prompt 摘要。
	ResponseMode string            `json:"response_mode,omitempty"`
	Table        map[string]string `json:"table,omitempty"`
}

type Client struct {
	mode  string
	table map[string]string
}

func New(raw json.RawMessage) (contract.LLMClient, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("mock options: %w", err)
		}
	}
	mode := strings.TrimSpace(o.ResponseMode)
	if mode == "" {
		mode = "echo_json"
	}
	return &Client{mode: mode, table: o.Table}, nil
}

func (c *Client) Invoke(ctx context.Context, req contract.LineRequest, p contract.Prompt) (contract.Raw, error) {
	if err := ctx.Err(); err != nil {
		return contract.Raw{}, err
	}
	switch c.mode {
	case "echo_json":
		return codeJSON(req.Text), nil
	case "table_json":
		code, ok := c.table[strings.TrimSpace(req.Text)]
		if !ok {
			return contract.Raw{}, fmt.Errorf("mock: no entry for %q: %w", req.Text, contract.ErrResponseInvalid)
		}
		return codeJSON(code), nil
	case "raw_text":
		return contract.Raw{Text: req.Text}, nil
	}

	switch v := p.(type) {
	case contract.TextPrompt:
		return contract.Raw{Text: "MOCK(text): " + string(v)}, nil
	case contract.ChatPrompt:
		if len(v) == 0 {
			return contract.Raw{Text: "MOCK(chat): <empty>"}, nil
		}
		return contract.Raw{Text: fmt.Sprintf("MOCK(chat:%s): %s", v[0].Role, v[0].Content)}, nil
	default:
		return contract.Raw{Text: "MOCK(unknown prompt type)"}, nil
	}
}

func codeJSON(code string) contract.Raw {
	b, _ := json.Marshal(struct {
		Code string `json:"code"`
	}{code})
	return contract.Raw{Text: string(b)}
}

var _ contract.LLMClient = (*Client)(nil)
