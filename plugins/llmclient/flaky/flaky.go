// Package flaky 提供按调用次序注入故障的调试客户端，用于验证回退翻译的重试路径。
package flaky

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"theory/pkg/contract"
)

// 故障步骤名，亦即日志中的记录。
const (
	StepRateLimited = "rate_limited"
	StepInvalidJSON = "invalid_json"
	StepUpstream    = "upstream_error"
)

// DefaultScript: 先限流，再返回非 JSON，之后成功。
var DefaultScript = []string{StepRateLimited, StepInvalidJSON}

type Options struct {
	// LogPath: 逐次追加调用结果（可选）。
	LogPath string `json:"log_path,omitempty"`
	// Script: 前若干次调用依次注入的故障；为空使用 DefaultScript。
	Script []string `json:"script,omitempty"`
}

// Client 按 Script 逐次失败，脚本耗尽后回显 {"code": 行}。
type Client struct {
	logPath string
	script  []string

	mu    sync.Mutex
	calls int
}

func New(raw json.RawMessage) (contract.LLMClient, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("flaky options: %w", err)
		}
	}
	script := o.Script
	if len(script) == 0 {
		script = DefaultScript
	}
	for _, s := range script {
		switch s {
		case StepRateLimited, StepInvalidJSON, StepUpstream:
		default:
			return nil, fmt.Errorf("flaky: unknown step %q: %w", s, contract.ErrInvalidInput)
		}
	}
	return &Client{logPath: o.LogPath, script: script}, nil
}

// Calls 返回已发生的调用次数。
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// next 推进计数并返回本次步骤；"ok" 表示脚本已耗尽。
func (c *Client) next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	step := "ok"
	if c.calls <= len(c.script) {
		step = c.script[c.calls-1]
	}
	if c.logPath != "" {
		if f, err := os.OpenFile(c.logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			_, _ = f.WriteString(step + "\n")
			_ = f.Close()
		}
	}
	return step
}

func (c *Client) Invoke(ctx context.Context, req contract.LineRequest, _ contract.Prompt) (contract.Raw, error) {
	if err := ctx.Err(); err != nil {
		return contract.Raw{}, err
	}
	switch c.next() {
	case StepRateLimited:
		return contract.Raw{}, contract.ErrRateLimited
	case StepInvalidJSON:
		return contract.Raw{Text: "invalid"}, nil
	case StepUpstream:
		return contract.Raw{}, &upstreamError{status: 500}
	}
	b, _ := json.Marshal(map[string]string{"code": req.Text})
	return contract.Raw{Text: string(b)}, nil
}

type upstreamError struct{ status int }

func (e *upstreamError) Error() string           { return fmt.Sprintf("flaky: upstream status %d", e.status) }
func (e *upstreamError) UpstreamStatus() int     { return e.status }
func (e *upstreamError) UpstreamMessage() string { return "injected" }

var (
	_ contract.LLMClient     = (*Client)(nil)
	_ contract.UpstreamError = (*upstreamError)(nil)
)
