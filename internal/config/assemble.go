package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"theory/internal/datamap"
	"theory/internal/diag"
	"theory/internal/fallback"
	"theory/internal/lang"
	"theory/internal/lvp"
	"theory/internal/pipeline"
	"theory/internal/rate"
	"theory/pkg/contract"
	"theory/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.LVP) == "" {
		return fmt.Errorf("config: lvp not set (one of %s)", strings.Join(lvpNames(), ", "))
	}
	if _, err := lvp.Parse(cfg.LVP); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if cfg.Concurrency < 1 {
		return errors.New("config: concurrency must be >= 1")
	}
	if cfg.FileTimeoutSeconds < 0 {
		return errors.New("config: file_timeout_seconds must be >= 0")
	}
	if cfg.MaxRetries < 0 {
		return errors.New("config: max_retries must be >= 0")
	}
	switch strings.ToLower(cfg.DataMap.Kind) {
	case "", datamap.KindCSV, datamap.KindSQLite:
	default:
		return fmt.Errorf("config: data_map.kind %q not supported", cfg.DataMap.Kind)
	}
	if strings.EqualFold(cfg.DataMap.Kind, datamap.KindSQLite) && cfg.DataMap.Path != "" && cfg.DataMap.Table == "" {
		return errors.New("config: data_map.table required for sqlite")
	}

	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults().Components
	if name := effName(cfg.Components.Reader, d.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}

	if cfg.Fallback == "" {
		return nil
	}
	prov, ok := cfg.Provider[cfg.Fallback]
	if !ok {
		return fmt.Errorf("config: provider %q not found", cfg.Fallback)
	}
	if prov.Client == "" {
		return fmt.Errorf("config: provider %q missing client", cfg.Fallback)
	}
	if registry.LLMClient[prov.Client] == nil {
		return fmt.Errorf("config: llm client %q not registered (one of %s)", prov.Client, strings.Join(registry.Names(registry.LLMClient), ", "))
	}
	if prov.Limits.RPM < 0 || prov.Limits.TPM < 0 || prov.Limits.MaxTokensPerReq < 0 {
		return fmt.Errorf("config: provider %q limits must be >= 0", cfg.Fallback)
	}
	if name := effName(cfg.Components.PromptBuilder, d.PromptBuilder); registry.PromptBuilder[name] == nil {
		return fmt.Errorf("config: prompt_builder %q not registered", name)
	}
	if name := effName(cfg.Components.Decoder, d.Decoder); registry.Decoder[name] == nil {
		return fmt.Errorf("config: decoder %q not registered", name)
	}
	return nil
}

// Assemble 构造 pipeline.Components 与 Settings：Reader/Writer、可选的回退翻译器（含限流闸门）与数据映射表。
// 严格 Options 解析在 registry（工厂）层进行；此处只补齐与 LVP/输入相关的默认键。
func Assemble(ctx context.Context, cfg Config, logger *diag.Logger) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	l, _ := lvp.Parse(cfg.LVP)
	d := Defaults().Components

	// Reader：目录遍历默认只取该 LVP 的源文件扩展名
	ropts, err := withDefault(cfg.Options.Reader, "extensions", l.SourceExtensions())
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: options.reader: %w", err)
	}
	r, err := registry.Reader[effName(cfg.Components.Reader, d.Reader)](ropts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: reader: %w", err)
	}

	// Writer：默认输出到 ./out，并去掉单一输入根的目录前缀
	wopts, err := withDefault(cfg.Options.Writer, "output_dir", "out")
	if err == nil {
		wopts, err = withDefault(wopts, "strip_prefix", stripPrefix(cfg.Inputs))
	}
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: options.writer: %w", err)
	}
	w, err := registry.Writer[effName(cfg.Components.Writer, d.Writer)](wopts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: writer: %w", err)
	}

	comp := pipeline.Components{Reader: r, Writer: w}
	if cfg.Fallback != "" {
		fb, err := assembleFallback(cfg, logger)
		if err != nil {
			return pipeline.Components{}, pipeline.Settings{}, err
		}
		comp.Fallback = fb
	}

	table, err := datamap.Load(ctx, cfg.DataMap)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: data_map: %w", err)
	}

	set := pipeline.Settings{
		LVP:          l,
		Inputs:       cloneStrings(cfg.Inputs),
		Concurrency:  cfg.Concurrency,
		FileTimeout:  time.Duration(cfg.FileTimeoutSeconds) * time.Second,
		Table:        table,
		Format:       lang.FormatOptions{CopybookDirs: cloneStrings(cfg.Cobol.CopybookDirs), CopybookExt: cfg.Cobol.CopybookExt},
		ContextLines: cfg.ContextLines,
		FormatOutput: deref(cfg.FormatOutput),
		ProjectFiles: deref(cfg.ProjectFiles),
	}
	return comp, set, nil
}

// assembleFallback 构造回退翻译器：PromptBuilder + LLMClient + Decoder + 限流 Gate。
func assembleFallback(cfg Config, logger *diag.Logger) (*fallback.Translator, error) {
	d := Defaults().Components
	prov := cfg.Provider[cfg.Fallback]

	pb, err := registry.PromptBuilder[effName(cfg.Components.PromptBuilder, d.PromptBuilder)](cfg.Options.PromptBuilder)
	if err != nil {
		return nil, fmt.Errorf("config: prompt_builder: %w", err)
	}
	dec, err := registry.Decoder[effName(cfg.Components.Decoder, d.Decoder)](cfg.Options.Decoder)
	if err != nil {
		return nil, fmt.Errorf("config: decoder: %w", err)
	}
	llm, err := registry.LLMClient[prov.Client](prov.Options)
	if err != nil {
		return nil, fmt.Errorf("config: provider %s: %w", cfg.Fallback, err)
	}

	// 默认使用 API Key 派生分组键（更稳定）；若失败则退化为 provider 名称。
	key, derr := rate.DeriveKeyFromProviderOptions(prov.Client, prov.Options)
	if derr != nil {
		key = rate.LimitKey(cfg.Fallback)
	}
	gate := rate.NewGate(map[rate.LimitKey]rate.Limits{
		key: {RPM: prov.Limits.RPM, TPM: prov.Limits.TPM, MaxTokensPerReq: prov.Limits.MaxTokensPerReq},
	}, nil)

	return fallback.New(fallback.Options{
		Prompt:     pb,
		Client:     llm,
		Decoder:    dec,
		Gate:       gate,
		GateKey:    key,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
}

// withDefault 在 JSON 对象缺少 key 时写入 v；raw 为空视为空对象。
func withDefault(raw json.RawMessage, key string, v any) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		if obj == nil {
			obj = map[string]json.RawMessage{}
		}
	}
	if _, ok := obj[key]; ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	obj[key] = b
	return json.Marshal(obj)
}

// stripPrefix: 单一目录根去掉自身，单一文件根去掉所在目录；多根或 STDIN 不去前缀。
func stripPrefix(inputs []string) string {
	if len(inputs) != 1 || inputs[0] == "-" {
		return ""
	}
	root := inputs[0]
	if st, err := os.Stat(root); err == nil && !st.IsDir() {
		root = filepath.Dir(root)
	}
	id := string(contract.NormalizeFileID(root))
	if id == "." {
		return ""
	}
	return id
}

func lvpNames() []string {
	var out []string
	for _, l := range lvp.All() {
		out = append(out, l.String())
	}
	return out
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
