package lang

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"theory/internal/cobol"
)

var (
	csIdentRe    = regexp.MustCompile(`^!?[A-Za-z_][\w.]*(?:\(\))?$`)
	csCompareRe  = regexp.MustCompile(`^(?P<lhs>[^\s=!<>]+)\s+(?P<op>==|!=)\s+(?P<rhs>[^\s=!<>]+)$`)
	csProjectXML = "Project.csproj"
)

// CSharp: C# 9 目标语言定义。
type CSharp struct {
	// Formatter: 外部格式化命令（文件路径追加在末尾）。
	Formatter []string
}

var _ Target = (*CSharp)(nil)

func NewCSharp() *CSharp { return &CSharp{Formatter: []string{"dotnet", "csharpier"}} }

func (*CSharp) SingleLineComment(text string) string { return "// " + text }
func (*CSharp) MultiLineComment(text string) string  { return "/*\n" + text + "\n*/" }
func (*CSharp) Extension() string                    { return "cs" }

// TranslatedFileName 将 COBOL 程序文件名转为 C# 类文件名（TitleCase）。
func (*CSharp) TranslatedFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return cobol.TitleCase(base, true) + ".cs"
}

func (c *CSharp) FormatFile(ctx context.Context, path string) error {
	return runFormatter(ctx, c.Formatter, path)
}

type csproj struct {
	XMLName  xml.Name `xml:"Project"`
	Sdk      string   `xml:"Sdk,attr"`
	Props    csProps  `xml:"PropertyGroup"`
	Includes []csItem `xml:"ItemGroup>Compile"`
}

type csProps struct {
	OutputType      string `xml:"OutputType"`
	TargetFramework string `xml:"TargetFramework"`
	LangVersion     string `xml:"LangVersion"`
}

type csItem struct {
	Include string `xml:"Include,attr"`
}

// CreateProjectFiles 生成引用各译文的 .csproj。
func (*CSharp) CreateProjectFiles(dir string, files []string) (string, error) {
	p := csproj{
		Sdk:   "Microsoft.NET.Sdk",
		Props: csProps{OutputType: "Exe", TargetFramework: "net5.0", LangVersion: "9.0"},
	}
	for _, f := range files {
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			rel = f
		}
		p.Includes = append(p.Includes, csItem{Include: filepath.ToSlash(rel)})
	}
	data, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, csProjectXML)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return out, os.WriteFile(out, append(data, '\n'), 0o644)
}

// InvertCondition 对简单条件（单个标识符或单个 ==/!= 比较）求反；
// 复杂条件返回 false，由调用方包裹 !( ... )。
func InvertCondition(cond string) (string, bool) {
	cond = strings.TrimSpace(cond)
	if csIdentRe.MatchString(cond) {
		if strings.HasPrefix(cond, "!") {
			return cond[1:], true
		}
		return "!" + cond, true
	}
	m := csCompareRe.FindStringSubmatch(cond)
	if m == nil {
		return "", false
	}
	lhs, rhs := m[csCompareRe.SubexpIndex("lhs")], m[csCompareRe.SubexpIndex("rhs")]
	op := "!="
	if m[csCompareRe.SubexpIndex("op")] == "!=" {
		op = "=="
	}
	return lhs + " " + op + " " + rhs, true
}
