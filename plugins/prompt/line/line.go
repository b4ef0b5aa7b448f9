// Package line 构造单行回退翻译的 ChatPrompt（system + user + json_schema）。
package line

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"

	"theory/pkg/contract"
)

// Options: 行级 PromptBuilder 配置。
// InlineSystemTemplate / SystemTemplatePath 二选一，均为空时使用内置模板；
// InlineRules / RulesPath 为附加转换规则，拼接在 system 尾部。
type Options struct {
	InlineSystemTemplate string `json:"inline_system_template"`
	SystemTemplatePath   string `json:"system_template_path"`
	InlineRules          string `json:"inline_rules"`
	RulesPath            string `json:"rules_path"`
}

// Builder 的模板在构造期解析，Build 不做 I/O。
type Builder struct {
	sysT  *template.Template
	rules string
}

// sysData: system 模板可见字段。
type sysData struct {
	Source string
	Target string
	LVP    string
}

// New 创建行级 PromptBuilder。
func New(opts *Options) (*Builder, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	src := defaultSystemTemplate
	switch {
	case o.InlineSystemTemplate != "":
		src = o.InlineSystemTemplate
	case o.SystemTemplatePath != "":
		b, err := os.ReadFile(o.SystemTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("system template read: %w", err)
		}
		src = string(b)
	}
	tpl, err := template.New("system").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("system template parse: %w", err)
	}
	rules := o.InlineRules
	if rules == "" && o.RulesPath != "" {
		b, err := os.ReadFile(o.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("rules read: %w", err)
		}
		rules = string(b)
	}
	return &Builder{sysT: tpl, rules: rules}, nil
}

// Build 基于 LineRequest 构造 ChatPrompt。
func (b *Builder) Build(ctx context.Context, req contract.LineRequest) (contract.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("prompt: %w: empty line", contract.ErrInvalidInput)
	}
	sys, err := b.system(sysData{Source: req.Source, Target: req.Target, LVP: req.LVP})
	if err != nil {
		return nil, err
	}

	var uw bytes.Buffer
	uw.Grow(256 + len(req.Text))
	if len(req.Context) > 0 {
		uw.WriteString("### Context\n\n<context>\n")
		for _, c := range req.Context {
			uw.WriteString(c)
			uw.WriteByte('\n')
		}
		uw.WriteString("</context>\n\n")
	}
	uw.WriteString("### Line\n\n<line>\n")
	uw.WriteString(req.Text)
	uw.WriteString("\n</line>\n")
	uw.WriteString(outputRules(len(req.Context) > 0))

	return contract.ChatPrompt{
		{Role: "system", Content: sys},
		{Role: "user", Content: uw.String()},
		{Role: "json_schema", Content: JSONSchema},
	}, nil
}

// EstimateOverheadTokens 估算与行无关的固定开销（system + 规则 + schema）。
func (b *Builder) EstimateOverheadTokens(estimate contract.TokenEstimator) int {
	if estimate == nil {
		return 0
	}
	sys, _ := b.system(sysData{})
	fixed := "### Line\n\n<line>\n\n</line>\n" + outputRules(true)
	return estimate(sys) + estimate(fixed) + estimate(JSONSchema)
}

func (b *Builder) system(d sysData) (string, error) {
	var buf bytes.Buffer
	if err := b.sysT.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("system render: %v: %w", err, contract.ErrInvalidInput)
	}
	if b.rules == "" {
		return buf.String(), nil
	}
	buf.WriteString("\n\n<rules>\n")
	buf.WriteString(b.rules)
	if !strings.HasSuffix(b.rules, "\n") {
		buf.WriteByte('\n')
	}
	buf.WriteString("</rules>")
	return buf.String(), nil
}

var _ contract.PromptBuilder = (*Builder)(nil)

const outputRulesTail = `2) Keep every %mask_N% placeholder verbatim; do not invent new indexes.
3) Return ONLY strict JSON {"code": string}; use "\n" to separate multiple output lines.
`

// outputRules: 仅在附带上下文时提及 <context>。
func outputRules(withContext bool) string {
	first := "1) Translate ONLY the code inside <line>.\n"
	if withContext {
		first = "1) Translate ONLY the code inside <line>; <context> is for reference.\n"
	}
	return "\nIMPORTANT OUTPUT RULES:\n" + first + outputRulesTail
}

// JSONSchema: 单行译文的最小输出协议。
const JSONSchema = `{"type":"object","additionalProperties":false,"properties":{"code":{"type":"string"}},"required":["code"]}`

const defaultSystemTemplate = `
## Role Definition
You are a source-to-source compiler translating {{.Source}} code into idiomatic {{.Target}}, one line at a time.

## I/O Protocol (Very Important)
- Identifiers and literals are replaced by placeholders like %mask_0%, %mask_1%; they stand for opaque names or values.
- A placeholder in the output refers to the same entity as in the input line.
- Lines in <context> were translated before; use them to infer types and scope.
- Output a statement fragment that fits where the input line was; do not open or close scopes the input does not.

<example>
user: <line>
%mask_0%.%mask_1%(%mask_2%);
</line>

assistant: {"code": "%mask_0%.%mask_1%(%mask_2%);"}
</example>
`
