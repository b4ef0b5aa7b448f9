package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "theory/internal/config"
	"theory/internal/diag"
	"theory/internal/pipeline"
)

// translateFlags: translate 的覆盖旗标；未显式设置的旗标不参与合并。
type translateFlags struct {
	lvp          string
	out          string
	fallback     string
	dataMap      string
	copybookDirs []string
	concurrency  int
	maxRetries   int
	fileTimeout  int
	formatOutput bool
	projectFiles bool
}

func newTranslateCmd(g *globalFlags) *cobra.Command {
	tf := &translateFlags{}
	cmd := &cobra.Command{
		Use:   "translate [roots...]",
		Short: "Translate source files into the target language",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, g, tf)
		},
	}
	bindTranslateFlags(cmd, tf)
	return cmd
}

func bindTranslateFlags(cmd *cobra.Command, tf *translateFlags) {
	fs := cmd.Flags()
	fs.StringVarP(&tf.lvp, "lvp", "l", "", "语言版本对，如 cobol_to_csharp_9（覆盖配置）")
	fs.StringVarP(&tf.out, "out", "o", "", "输出目录（覆盖 options.writer.output_dir）")
	fs.StringVar(&tf.fallback, "fallback", "", "回退使用的 provider 名（覆盖配置）")
	fs.StringVar(&tf.dataMap, "data-map", "", "数据映射表路径（.csv 或 .db/.sqlite）")
	fs.StringSliceVar(&tf.copybookDirs, "copybook-dir", nil, "COBOL 副本目录（可重复）")
	fs.IntVarP(&tf.concurrency, "concurrency", "c", 0, "并行文件作业数（覆盖配置）")
	// max-retries 允许显式设置为 0；默认 -1 表示“未覆盖”。
	fs.IntVar(&tf.maxRetries, "max-retries", -1, "回退最大重试次数（覆盖配置；0 表示不重试）")
	fs.IntVar(&tf.fileTimeout, "file-timeout", 0, "单文件超时秒数（覆盖配置）")
	fs.BoolVar(&tf.formatOutput, "format-output", false, "写出后调用目标语言格式化器")
	fs.BoolVar(&tf.projectFiles, "project-files", false, "生成目标工程文件")
}

// overlay 把显式设置的旗标转为 Config 覆盖层。
func (tf *translateFlags) overlay(cmd *cobra.Command, roots []string) (cfgpkg.Config, error) {
	over := cfgpkg.Config{MaxRetries: -1}
	over.LVP = tf.lvp
	over.Fallback = tf.fallback
	over.Concurrency = tf.concurrency
	over.FileTimeoutSeconds = tf.fileTimeout
	if tf.maxRetries >= 0 {
		over.MaxRetries = tf.maxRetries
	}
	if len(roots) > 0 {
		over.Inputs = roots
	}
	over.Cobol.CopybookDirs = tf.copybookDirs
	if tf.dataMap != "" {
		over.DataMap.Path = tf.dataMap
		over.DataMap.Kind = "csv"
		switch strings.ToLower(filepath.Ext(tf.dataMap)) {
		case ".db", ".sqlite", ".sqlite3":
			over.DataMap.Kind = "sqlite"
		}
	}
	fs := cmd.Flags()
	if fs.Changed("format-output") {
		v := tf.formatOutput
		over.FormatOutput = &v
	}
	if fs.Changed("project-files") {
		v := tf.projectFiles
		over.ProjectFiles = &v
	}
	return over, nil
}

// loadConfig: 默认值 ← 配置文件/THEORY_CONFIG_JSON ← ENV ← CLI。
func loadConfig(cmd *cobra.Command, roots []string, g *globalFlags, tf *translateFlags) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := g.config
	if path == "" {
		path = os.Getenv("THEORY_CONFIG_FILE")
	}
	if path == "" {
		for _, p := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	switch {
	case os.Getenv("THEORY_CONFIG_JSON") != "":
		base, err := cfgpkg.LoadJSON("", []byte(os.Getenv("THEORY_CONFIG_JSON")))
		if err != nil {
			return cfg, fmt.Errorf("配置解析失败: %w", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	case path != "":
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("配置解析失败: %w", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, fmt.Errorf("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	overCLI, err := tf.overlay(cmd, roots)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		overCLI.Logging.Level = g.logLevel
	}
	cfg = cfgpkg.Merge(cfg, overCLI)
	if tf.out != "" {
		raw, err := setOption(cfg.Options.Writer, "output_dir", tf.out)
		if err != nil {
			return cfg, fmt.Errorf("options.writer: %w", err)
		}
		cfg.Options.Writer = raw
	}
	return cfg, nil
}

func runTranslate(cmd *cobra.Command, roots []string, g *globalFlags, tf *translateFlags) error {
	stderr := cmd.ErrOrStderr()
	corrID := uuid.NewString()

	cfg, err := loadConfig(cmd, roots, g, tf)
	if err != nil {
		return configErr(err)
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		// 提示打印有效配置，便于诊断
		dumpConfig(stderr, cfg)
		return configErr(err)
	}

	logger := diag.NewLogger(corrID, cfg.Logging.Level)
	defer func() { _ = logger.Close() }()
	start := logger.Start("cli", "translate").Since()

	if err := preflightCheckOutputDir(cfg); err != nil {
		logger.Error("cli", string(diag.Classify(err)), "output dir not writable", &start)
		return configErr(fmt.Errorf("输出目录不可写或无法创建: %w", err))
	}
	comp, set, err := cfgpkg.Assemble(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("cli", string(diag.Classify(err)), "assemble failed", &start)
		return configErr(fmt.Errorf("装配失败: %w", err))
	}
	logger.DebugStart("config", "effective", "", effectiveKV(cfg))

	term := diag.NewTerminal(stderr, g.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	sum, err := pipelineRun(ctx, comp, set, logger)
	if err != nil {
		code := string(diag.Classify(err))
		logger.Error("cli", code, "first error", &start)
		diag.IncOp("cli", "error", "error")
		diag.IncError("cli", code)
		return runtimeErr(err)
	}
	printSummary(cmd.OutOrStdout(), sum)
	logger.InfoFinish("cli", "translate", start, int64(len(sum.Files)))
	if sum.Failed > 0 {
		return runtimeErr(fmt.Errorf("%d file(s) failed", sum.Failed))
	}
	return nil
}

func printSummary(w io.Writer, sum pipeline.Summary) {
	for _, f := range sum.Files {
		if f.Err != nil {
			fprintf(w, "FAIL  %s: %v\n", f.FileID, f.Err)
			continue
		}
		fprintf(w, "OK    %s -> %s (%d lines, %d errors, accuracy %.4f%%)\n", f.FileID, f.Artifact, f.Lines, f.Errors, f.Accuracy)
	}
	fprintf(w, "files=%d failed=%d lines=%d errors=%d accuracy=%.4f%%\n", len(sum.Files), sum.Failed, sum.Lines, sum.Errors, sum.Accuracy())
	if sum.Project != "" {
		fprintf(w, "project: %s\n", sum.Project)
	}
}

// effectiveKV 输出运行时配置信息（不含密钥）。
func effectiveKV(cfg cfgpkg.Config) map[string]string {
	kv := map[string]string{
		"lvp":          cfg.LVP,
		"inputs_count": strconv.Itoa(len(cfg.Inputs)),
		"concurrency":  strconv.Itoa(cfg.Concurrency),
		"max_retries":  strconv.Itoa(cfg.MaxRetries),
		"fallback":     cfg.Fallback,
		"reader":       cfg.Components.Reader,
		"writer":       cfg.Components.Writer,
		"data_map":     cfg.DataMap.Path,
	}
	if p, ok := cfg.Provider[cfg.Fallback]; ok {
		kv["provider_client"] = p.Client
		var s struct {
			BaseURL string `json:"base_url"`
			Model   string `json:"model"`
		}
		_ = json.Unmarshal(p.Options, &s)
		if s.BaseURL != "" {
			kv["base_url"] = s.BaseURL
		}
		if s.Model != "" {
			kv["model"] = s.Model
		}
	}
	return kv
}

func dumpConfig(w io.Writer, c cfgpkg.Config) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return
	}
	fprintf(w, "有效配置:\n%s\n", b)
}

// setOption 覆盖 JSON 对象中的单个键。
func setOption(raw json.RawMessage, key string, v any) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		if obj == nil {
			obj = map[string]json.RawMessage{}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	obj[key] = b
	return json.Marshal(obj)
}

// preflightCheckOutputDir: fs writer 启动前检查输出目录可写性。
// 目录存在时尝试创建并删除临时文件；不存在时检查父目录可写。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	name := cfg.Components.Writer
	if name == "" {
		name = cfgpkg.Defaults().Components.Writer
	}
	if name != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		dir = "out"
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	// 目录不存在：逐级向上找到已存在的祖先并检查可写
	parent := filepath.Dir(filepath.Clean(dir))
	for {
		pst, err := os.Stat(parent)
		if err == nil {
			if !pst.IsDir() {
				return fmt.Errorf("父路径不是目录: %s", parent)
			}
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		next := filepath.Dir(parent)
		if next == parent {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		parent = next
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	return os.RemoveAll(tmpd)
}
