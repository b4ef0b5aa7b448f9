package config

import (
	"encoding/json"

	"theory/internal/datamap"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// LVP: 语言版本对名称，如 cobol_to_csharp_9、java_14_to_python_3。
	LVP         string   `json:"lvp"`
	Inputs      []string `json:"inputs"`
	Concurrency int      `json:"concurrency"`
	// FileTimeoutSeconds: 单文件作业超时（秒）；0 表示不限。
	FileTimeoutSeconds int `json:"file_timeout_seconds"`
	// MaxRetries: 回退阶段最大重试次数（>=0）。0 表示不重试；-1 仅用于覆盖层表示“未设置”。
	MaxRetries int `json:"max_retries"`
	// ContextLines: 回退请求附带的前文行数；0 使用默认，负数关闭。
	ContextLines int     `json:"context_lines,omitempty"`
	Logging      Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// Fallback: 回退使用的 provider 名；空表示不启用回退。
	Fallback string              `json:"fallback"`
	Provider map[string]Provider `json:"provider"`

	DataMap datamap.Options `json:"data_map"`
	Cobol   Cobol           `json:"cobol"`

	// FormatOutput/ProjectFiles: 指针以区分“未设置”与显式 false。
	FormatOutput *bool `json:"format_output,omitempty"`
	ProjectFiles *bool `json:"project_files,omitempty"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader        string `json:"reader"`
	Writer        string `json:"writer"`
	PromptBuilder string `json:"prompt_builder"`
	Decoder       string `json:"decoder"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader        json.RawMessage `json:"reader,omitempty"`
	Writer        json.RawMessage `json:"writer,omitempty"`
	PromptBuilder json.RawMessage `json:"prompt_builder,omitempty"`
	Decoder       json.RawMessage `json:"decoder,omitempty"`
}

// Cobol: COBOL 源格式化参数。
type Cobol struct {
	CopybookDirs []string `json:"copybook_dirs"`
	CopybookExt  string   `json:"copybook_ext"`
}

// Provider: 命名 provider 定义（client 实现 + options + 限额）。
type Provider struct {
	Client  string          `json:"client"`
	Options json.RawMessage `json:"options"`
	Limits  Limits          `json:"limits"`
}

// Limits: 限流配置（仅承载；执行位于 rate.Gate）。
type Limits struct {
	RPM             int `json:"rpm"`
	TPM             int `json:"tpm"`
	MaxTokensPerReq int `json:"max_tokens_per_req"`
}

func boolPtr(b bool) *bool { return &b }

func deref(b *bool) bool { return b != nil && *b }
