package lang

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// Python: Python 3 目标语言定义。
type Python struct {
	Formatter []string
}

var _ Target = (*Python)(nil)

func NewPython() *Python { return &Python{Formatter: []string{"black", "-q"}} }

func (*Python) SingleLineComment(text string) string { return "# " + text }
func (*Python) MultiLineComment(text string) string  { return "\"\"\"\n" + text + "\n\"\"\"" }
func (*Python) Extension() string                    { return "py" }

func (*Python) TranslatedFileName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + ".py"
}

func (p *Python) FormatFile(ctx context.Context, path string) error {
	return runFormatter(ctx, p.Formatter, path)
}

// CreateProjectFiles 生成空依赖的 requirements.txt。
func (*Python) CreateProjectFiles(dir string, _ []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, "requirements.txt")
	return out, os.WriteFile(out, []byte("# generated by theory\n"), 0o644)
}
