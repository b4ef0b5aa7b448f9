package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix: 环境变量覆盖前缀。
const EnvPrefix = "THEORY_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：LVP 与输入不设默认（必须由文件/ENV/CLI 提供）；回退默认关闭。
func Defaults() Config {
	return Config{
		Concurrency: 1,
		MaxRetries:  2,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader:        "fs",
			Writer:        "fs",
			PromptBuilder: "line",
			Decoder:       "linejson",
		},
		Cobol: Cobol{CopybookExt: "cpy"},
	}
}

// LoadFile 按扩展名解析配置文件：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(raw)
	}
	return LoadJSON("", raw)
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
// 缺省的 max_retries 解析为 -1，Merge 时不覆盖默认值。
func LoadJSON(path string, raw []byte) (Config, error) {
	if len(raw) == 0 {
		if path == "" {
			return Config{}, errors.New("no config source provided")
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		raw = b
	}
	cfg := Config{MaxRetries: -1}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadYAML 将 YAML 转为 JSON 后按同一严格规则解析，保证两种格式的字段集一致。
func LoadYAML(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("config: yaml: %w", err)
	}
	if doc == nil {
		return Config{}, errors.New("config: yaml document empty")
	}
	norm, err := jsonCompatible(doc)
	if err != nil {
		return Config{}, err
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return Config{}, fmt.Errorf("config: yaml to json: %w", err)
	}
	return LoadJSON("", b)
}

// jsonCompatible 把 yaml.v3 解出的 map[any]any 统一为 map[string]any。
func jsonCompatible(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			n, err := jsonCompatible(e)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("config: yaml key %v is not a string", k)
			}
			n, err := jsonCompatible(e)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		for i, e := range t {
			n, err := jsonCompatible(e)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	}
	return v, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.LVP); s != "" {
		out.LVP = s
	}
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if over.FileTimeoutSeconds != 0 {
		out.FileTimeoutSeconds = over.FileTimeoutSeconds
	}
	// MaxRetries 的 0 具有语义（禁用重试），-1 视为未覆盖。
	if over.MaxRetries >= 0 {
		out.MaxRetries = over.MaxRetries
	}
	if over.ContextLines != 0 {
		out.ContextLines = over.ContextLines
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}
	if over.Components.PromptBuilder != "" {
		out.Components.PromptBuilder = over.Components.PromptBuilder
	}
	if over.Components.Decoder != "" {
		out.Components.Decoder = over.Components.Decoder
	}

	if s := strings.TrimSpace(over.Fallback); s != "" {
		out.Fallback = s
	}
	// Provider（完整替换对应键）
	if len(over.Provider) > 0 {
		merged := make(map[string]Provider, len(out.Provider)+len(over.Provider))
		for k, v := range out.Provider {
			merged[k] = v
		}
		for k, v := range over.Provider {
			merged[k] = v
		}
		out.Provider = merged
	}

	if over.DataMap.Kind != "" {
		out.DataMap.Kind = over.DataMap.Kind
	}
	if over.DataMap.Path != "" {
		out.DataMap.Path = over.DataMap.Path
	}
	if over.DataMap.Table != "" {
		out.DataMap.Table = over.DataMap.Table
	}
	if len(over.Cobol.CopybookDirs) > 0 {
		out.Cobol.CopybookDirs = cloneStrings(over.Cobol.CopybookDirs)
	}
	if over.Cobol.CopybookExt != "" {
		out.Cobol.CopybookExt = over.Cobol.CopybookExt
	}
	if over.FormatOutput != nil {
		out.FormatOutput = boolPtr(*over.FormatOutput)
	}
	if over.ProjectFiles != nil {
		out.ProjectFiles = boolPtr(*over.ProjectFiles)
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.PromptBuilder) > 0 {
		out.Options.PromptBuilder = cloneRaw(over.Options.PromptBuilder)
	}
	if len(over.Options.Decoder) > 0 {
		out.Options.Decoder = cloneRaw(over.Options.Decoder)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合，其余忽略）。
// 前缀 THEORY_；支持：LVP, INPUTS, CONCURRENCY, FILE_TIMEOUT_SECONDS, MAX_RETRIES,
// CONTEXT_LINES, LOG_LEVEL, FALLBACK, FORMAT_OUTPUT, PROJECT_FILES, DATA_MAP_{KIND,PATH,TABLE},
// COBOL_COPYBOOK_{DIRS,EXT}, COMPONENTS_*, OPTIONS_*_JSON
// 以及 PROVIDER__<name>__CLIENT / PROVIDER__<name>__LIMITS_{RPM,TPM,MAX_TOKENS_PER_REQ} / PROVIDER__<name>__OPTIONS_JSON。
// 数值或布尔值非法时返回错误。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	// -1 表示未设置，以便 Merge 能区分“未覆盖”和“显式设置为 0”。
	over.MaxRetries = -1
	prov := map[string]Provider{}
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		nk := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		var err error
		switch nk {
		case "LVP":
			over.LVP = val
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY":
			over.Concurrency, err = atoi(val)
		case "FILE_TIMEOUT_SECONDS":
			over.FileTimeoutSeconds, err = atoi(val)
		case "MAX_RETRIES":
			over.MaxRetries, err = atoi(val)
		case "CONTEXT_LINES":
			over.ContextLines, err = atoi(val)
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "FALLBACK":
			over.Fallback = val
		case "FORMAT_OUTPUT":
			over.FormatOutput, err = parseBool(val)
		case "PROJECT_FILES":
			over.ProjectFiles, err = parseBool(val)
		case "DATA_MAP_KIND":
			over.DataMap.Kind = val
		case "DATA_MAP_PATH":
			over.DataMap.Path = val
		case "DATA_MAP_TABLE":
			over.DataMap.Table = val
		case "COBOL_COPYBOOK_DIRS":
			over.Cobol.CopybookDirs = splitComma(val)
		case "COBOL_COPYBOOK_EXT":
			over.Cobol.CopybookExt = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "COMPONENTS_PROMPT_BUILDER":
			over.Components.PromptBuilder = val
		case "COMPONENTS_DECODER":
			over.Components.Decoder = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		case "OPTIONS_PROMPT_BUILDER_JSON":
			over.Options.PromptBuilder = json.RawMessage(val)
		case "OPTIONS_DECODER_JSON":
			over.Options.Decoder = json.RawMessage(val)
		default:
			if strings.HasPrefix(nk, "PROVIDER__") {
				err = providerEnv(prov, nk, val)
			}
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: env %s%s: %w", EnvPrefix, nk, err)
		}
	}
	if len(prov) > 0 {
		over.Provider = prov
	}
	return over, nil
}

// providerEnv 解析 PROVIDER__name__FIELD。
func providerEnv(prov map[string]Provider, nk, val string) error {
	parts := strings.SplitN(nk, "__", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[1]) == "" {
		return nil
	}
	name := strings.TrimSpace(parts[1])
	p := prov[name]
	var err error
	switch parts[2] {
	case "CLIENT":
		p.Client = val
	case "LIMITS_RPM":
		p.Limits.RPM, err = atoi(val)
	case "LIMITS_TPM":
		p.Limits.TPM, err = atoi(val)
	case "LIMITS_MAX_TOKENS_PER_REQ":
		p.Limits.MaxTokensPerReq, err = atoi(val)
	case "OPTIONS_JSON":
		if !json.Valid([]byte(val)) {
			return errors.New("invalid json")
		}
		p.Options = json.RawMessage(val)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	prov[name] = p
	return nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func parseBool(s string) (*bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &b, nil
}
