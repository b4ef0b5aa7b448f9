// Package gemini 基于 google.golang.org/genai 实现 Gemini 回退翻译客户端。
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"theory/pkg/contract"
)

// Options: Gemini API 最小必需配置。
type Options struct {
	BaseURL        string            `json:"base_url"`    // 为空使用 SDK 默认端点
	APIVersion     string            `json:"api_version"` // 为空使用 SDK 默认（v1beta）
	Model          string            `json:"model"`       // 默认 gemini-2.5-flash
	APIKeyEnv      string            `json:"api_key_env"` // 默认 GOOGLE_API_KEY
	APIKey         string            `json:"api_key"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	ExtraHeaders   map[string]string `json:"extra_headers"`
	// ResponseMIMEType 仅在 Prompt 携带 schema 时生效，默认 application/json。
	ResponseMIMEType string `json:"response_mime_type,omitempty"`
}

func (o *Options) defaults() {
	if o.Model == "" {
		o.Model = "gemini-2.5-flash"
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 60
	}
	if o.ResponseMIMEType == "" {
		o.ResponseMIMEType = "application/json"
	}
}

type Client struct {
	models   *genai.Models
	model    string
	temp     *float32
	respMIME string
}

// New 从原样 JSON 选项构造客户端（构造期不发起网络请求）。
func New(raw json.RawMessage) (contract.LLMClient, error) {
	var opts Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("gemini options: %w", err)
		}
	}
	opts.defaults()
	key := opts.APIKey
	if key == "" {
		key = os.Getenv(opts.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: %w: missing api key", contract.ErrInvalidInput)
	}
	hdr := http.Header{}
	for k, v := range opts.ExtraHeaders {
		if k != "" {
			hdr.Set(k, v)
		}
	}
	cli, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: time.Duration(opts.TimeoutSeconds) * time.Second},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    opts.BaseURL,
			APIVersion: opts.APIVersion,
			Headers:    hdr,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %v: %w", err, contract.ErrInvalidInput)
	}
	c := &Client{models: cli.Models, model: opts.Model, respMIME: opts.ResponseMIMEType}
	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		c.temp = &t
	}
	return c, nil
}

// upstreamError 实现 net.Error 与 contract.UpstreamError：5xx/408 归类为网络错误。
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string           { return fmt.Sprintf("gemini upstream %d: %s", e.status, e.msg) }
func (e upstreamError) Timeout() bool           { return e.status == http.StatusRequestTimeout }
func (e upstreamError) Temporary() bool         { return e.status/100 == 5 }
func (e upstreamError) UpstreamStatus() int     { return e.status }
func (e upstreamError) UpstreamMessage() string { return e.msg }

// encode 将 Prompt 映射为 genai 内容：system 进入 SystemInstruction，json_schema 启用 JSON 输出。
func (c *Client) encode(p contract.Prompt) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{Temperature: c.temp}
	switch v := p.(type) {
	case contract.TextPrompt:
		return []*genai.Content{genai.NewContentFromText(string(v), genai.RoleUser)}, cfg, nil
	case contract.ChatPrompt:
		var contents []*genai.Content
		var sys []string
		for _, m := range v {
			switch strings.ToLower(strings.TrimSpace(m.Role)) {
			case "json_schema":
				var schema json.RawMessage
				if json.Unmarshal([]byte(m.Content), &schema) == nil && len(schema) > 0 {
					cfg.ResponseMIMEType = c.respMIME
					cfg.ResponseJsonSchema = schema
				}
			case "system":
				sys = append(sys, m.Content)
			case "assistant", "model":
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
			default:
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
			}
		}
		if len(sys) > 0 {
			cfg.SystemInstruction = genai.NewContentFromText(strings.Join(sys, "\n\n"), genai.RoleUser)
		}
		if len(contents) == 0 {
			return nil, nil, fmt.Errorf("gemini: %w: empty chat prompt", contract.ErrInvalidInput)
		}
		return contents, cfg, nil
	}
	return nil, nil, fmt.Errorf("gemini: prompt %T: %w", p, contract.ErrInvalidInput)
}

func (c *Client) Invoke(ctx context.Context, _ contract.LineRequest, p contract.Prompt) (contract.Raw, error) {
	contents, cfg, err := c.encode(p)
	if err != nil {
		return contract.Raw{}, err
	}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return contract.Raw{}, ctx.Err()
		}
		return contract.Raw{}, classify(err)
	}
	text := resp.Text()
	if text == "" {
		return contract.Raw{}, contract.ErrResponseInvalid
	}
	return contract.Raw{Text: text}, nil
}

// classify 将 SDK 错误映射到 contract 错误分类。
func classify(err error) error {
	code, msg := 0, ""
	var ae genai.APIError
	var pae *genai.APIError
	switch {
	case errors.As(err, &ae):
		code, msg = ae.Code, ae.Message
	case errors.As(err, &pae):
		code, msg = pae.Code, pae.Message
	default:
		return err
	}
	switch {
	case code == http.StatusTooManyRequests:
		return contract.ErrRateLimited
	case code == http.StatusRequestTimeout || code/100 == 5:
		return upstreamError{status: code, msg: msg}
	}
	return fmt.Errorf("gemini upstream %d: %s: %w", code, msg, contract.ErrInvalidInput)
}

var _ contract.LLMClient = (*Client)(nil)
