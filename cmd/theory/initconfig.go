package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "theory/internal/config"
)

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "Write a default config.json and .env template (existing files are kept)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return configErr(err)
			}
			cfgPath := filepath.Join(dir, "config.json")
			if err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig()); err != nil {
				return configErr(err)
			}
			if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
				fprintf(cmd.ErrOrStderr(), "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			fprintf(cmd.OutOrStdout(), "已生成 %s\n", cfgPath)
			return nil
		},
	}
}

// writeConfig 写出配置；path 为 "-" 时写 STDOUT；已存在的文件不覆盖（返回错误）。
func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// dotEnvTemplate: 支持的覆盖项与常见 Provider 密钥；空值表示未设置。
const dotEnvTemplate = `# theory .env 模板（由 init-config 生成）
# 优先级：CLI > ENV(.env) > 配置文件

# 配置来源（可二选一）
THEORY_CONFIG_FILE=
THEORY_CONFIG_JSON=

# 运行参数覆盖
THEORY_LVP=
THEORY_INPUTS=
THEORY_CONCURRENCY=
THEORY_FILE_TIMEOUT_SECONDS=
THEORY_MAX_RETRIES=
THEORY_CONTEXT_LINES=
THEORY_LOG_LEVEL=
THEORY_FALLBACK=
THEORY_FORMAT_OUTPUT=
THEORY_PROJECT_FILES=

# 数据映射表与 COBOL 副本
THEORY_DATA_MAP_KIND=
THEORY_DATA_MAP_PATH=
THEORY_DATA_MAP_TABLE=
THEORY_COBOL_COPYBOOK_DIRS=
THEORY_COBOL_COPYBOOK_EXT=

# 组件选择
THEORY_COMPONENTS_READER=
THEORY_COMPONENTS_WRITER=
THEORY_COMPONENTS_PROMPT_BUILDER=
THEORY_COMPONENTS_DECODER=

# Provider 覆盖（openai）
THEORY_PROVIDER__openai__CLIENT=
THEORY_PROVIDER__openai__LIMITS_RPM=
THEORY_PROVIDER__openai__LIMITS_TPM=
THEORY_PROVIDER__openai__LIMITS_MAX_TOKENS_PER_REQ=
THEORY_PROVIDER__openai__OPTIONS_JSON=

# Provider 覆盖（gemini）
THEORY_PROVIDER__gemini__CLIENT=
THEORY_PROVIDER__gemini__LIMITS_RPM=
THEORY_PROVIDER__gemini__LIMITS_TPM=
THEORY_PROVIDER__gemini__LIMITS_MAX_TOKENS_PER_REQ=
THEORY_PROVIDER__gemini__OPTIONS_JSON=

# 常见供应商 API Key（由 Provider 客户端读取，不经 THEORY_ 前缀）
OPENAI_API_KEY=
GOOGLE_API_KEY=
`

// writeDotEnv 生成 .env 模板；文件已存在时跳过。
func writeDotEnv(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return err
	}
	if _, err := f.WriteString(dotEnvTemplate); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// loadDotEnv 读取简单的 .env 文件并注入进程环境。
// 规则：
// - 忽略不存在的文件；跳过空行、# 注释与空值；支持可选前缀 "export "；
// - 仅按首个 '=' 分割；成对的单/双引号去除，双引号内处理 \n \t \" \\；
// - 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		val = unquote(val)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	q := val[0]
	if (q != '\'' && q != '"') || val[len(val)-1] != q {
		return val
	}
	val = val[1 : len(val)-1]
	if q == '"' {
		val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
	}
	return val
}
