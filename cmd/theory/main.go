package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"theory/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 退出码：0 成功；1 运行期失败（含存在失败文件）；3 配置/装配失败。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// exitError 携带退出码；未包装的错误（如 cobra 旗标解析）按配置错误处理。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(err error) error  { return &exitError{code: exitConfig, err: err} }
func runtimeErr(err error) error { return &exitError{code: exitRuntime, err: err} }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}
	code := exitConfig
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	if !errors.Is(err, context.Canceled) {
		fprintf(stderr, "错误: %v\n", err)
	}
	return code
}

// globalFlags: 所有子命令共享的旗标。
type globalFlags struct {
	config   string
	logLevel string
	status   bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	tf := &translateFlags{}
	root := &cobra.Command{
		Use:   "theory [roots...]",
		Short: "Line-oriented source-to-source translator",
		Long: `theory translates COBOL, C++ and Java sources line by line into C#, Node.js or Python.

Roots are files or directories ("-" reads STDIN and cannot be mixed with other roots).
Without a subcommand, theory runs translate.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, g, tf)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "配置文件路径（JSON/YAML）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	pf.StringVar(&g.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&g.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	bindTranslateFlags(root, tf)

	root.AddCommand(
		newTranslateCmd(g),
		newFormatCmd(),
		newMaskCmd(),
		newInitConfigCmd(),
	)
	return root
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }
