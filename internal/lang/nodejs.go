package lang

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// NodeJS: Node.js 14 目标语言定义。
type NodeJS struct {
	Formatter []string
}

var _ Target = (*NodeJS)(nil)

func NewNodeJS() *NodeJS { return &NodeJS{Formatter: []string{"npx", "prettier", "--write"}} }

func (*NodeJS) SingleLineComment(text string) string { return "// " + text }
func (*NodeJS) MultiLineComment(text string) string  { return "/*\n" + text + "\n*/" }
func (*NodeJS) Extension() string                    { return "js" }

func (*NodeJS) TranslatedFileName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + ".js"
}

func (n *NodeJS) FormatFile(ctx context.Context, path string) error {
	return runFormatter(ctx, n.Formatter, path)
}

type packageJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Private      bool              `json:"private"`
	Main         string            `json:"main,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

// CreateProjectFiles 生成 package.json；首个译文作为入口。
func (*NodeJS) CreateProjectFiles(dir string, files []string) (string, error) {
	pkg := packageJSON{
		Name:         strings.ToLower(filepath.Base(dir)),
		Version:      "1.0.0",
		Private:      true,
		Dependencies: map[string]string{"native-console": "^1.0.0"},
	}
	if len(files) > 0 {
		if rel, err := filepath.Rel(dir, files[0]); err == nil {
			pkg.Main = filepath.ToSlash(rel)
		}
	}
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, "package.json")
	return out, os.WriteFile(out, append(data, '\n'), 0o644)
}
