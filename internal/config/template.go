package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 默认 LVP 为 java_14_to_nodejs_14，输入为 ./src，输出到 ./out（保留包目录）；
// - 回退默认关闭；provider 段给出 mock/openai/gemini 三种定义，改写 fallback 即可启用；
// - 选项给出安全中性默认值，确保所有键存在。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		LVP:                "java_14_to_nodejs_14",
		Inputs:             []string{"src"},
		Concurrency:        d.Concurrency,
		FileTimeoutSeconds: 0,
		MaxRetries:         d.MaxRetries,
		ContextLines:       3,
		Logging:            d.Logging,
		Components:         d.Components,
		Fallback:           "",
		Provider: map[string]Provider{
			"mock": {
				Client:  "mock",
				Options: json.RawMessage(`{"api_key":"","response_mode":"echo_json","table":{}}`),
				Limits:  Limits{RPM: 600, TPM: 100000, MaxTokensPerReq: 4096},
			},
			"openai": {
				Client: "openai",
				Options: json.RawMessage(`{
  "base_url": "",
  "model": "",
  "api_key_env": "OPENAI_API_KEY",
  "api_key": "",
  "timeout_seconds": 60,
  "temperature": 0,
  "endpoint_path": "",
  "disable_default_auth": false,
  "extra_headers": {}
}`),
				Limits: Limits{RPM: 60, TPM: 60000, MaxTokensPerReq: 4096},
			},
			"gemini": {
				Client: "gemini",
				Options: json.RawMessage(`{
  "base_url": "",
  "api_version": "",
  "model": "gemini-2.5-flash",
  "api_key_env": "GOOGLE_API_KEY",
  "api_key": "",
  "timeout_seconds": 60,
  "temperature": 0,
  "extra_headers": {},
  "response_mime_type": "application/json"
}`),
				Limits: Limits{RPM: 15, TPM: 250000, MaxTokensPerReq: 8192},
			},
		},
		DataMap:      d.DataMap,
		Cobol:        Cobol{CopybookDirs: []string{"copybooks"}, CopybookExt: d.Cobol.CopybookExt},
		FormatOutput: boolPtr(false),
		ProjectFiles: boolPtr(true),
	}
	cfg.DataMap.Kind = "csv"
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "target", "bin", "obj"],
  "stdin_name": "stdin"
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "out",
  "atomic": true,
  "flat": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	cfg.Options.PromptBuilder = json.RawMessage(`{
  "inline_system_template": "",
  "system_template_path": "",
  "inline_rules": "",
  "rules_path": ""
}`)
	cfg.Options.Decoder = json.RawMessage(`{"lenient": true}`)
	return cfg
}
