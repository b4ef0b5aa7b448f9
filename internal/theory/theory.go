// Package theory 是单文件翻译作业的编排器：格式化 → 掩码 → 宏翻译 → 逐行翻译 → 模板回填 → 后处理 → 依赖注入。
//
// 一个 Theory 绑定一个 LVP，非并发安全；并发翻译需为每个 worker 构造独立实例。
package theory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"theory/internal/datamap"
	"theory/internal/depgen"
	"theory/internal/diag"
	"theory/internal/itl"
	"theory/internal/lang"
	"theory/internal/lvp"
	"theory/internal/mtl"
	"theory/internal/postprocess"
	"theory/internal/preprocess"
	"theory/internal/store"
	"theory/internal/template"
	"theory/internal/veil"
	"theory/pkg/contract"
)

const comp = "theory"

// ErrorMarker: 翻译失败行附带的注释内容。
const ErrorMarker = "[theory] ERROR: Failed to translate."

// maxDiffBytes: 行数告警中附带的 diff 上限。
const maxDiffBytes = 4096

// Options: 作业协作者。
type Options struct {
	// Table: 数据映射表；nil 视为空表。
	Table *datamap.Table
	// Fallback: 规则与映射均未命中时的行级回退；nil 时该行记为失败。
	Fallback contract.LineTranslator
	Logger   *diag.Logger
	Format   lang.FormatOptions
	// ContextLines: 随回退请求附带的前文行数（默认 3，负数关闭）。
	ContextLines int
}

// Result: 单文件翻译结果。
type Result struct {
	Output string
	// Lines: 参与翻译的非空行数。
	Lines int
	// Errors: 翻译失败（已替换为错误注释）的行数。
	Errors int
	// Accuracy: (Lines-Errors)/Lines*100；无非空行时为 100。
	Accuracy       float64
	FormattedLines []string
	MaskedLines    []string
}

// Theory: 绑定单个 LVP 的翻译器。
type Theory struct {
	lvp lvp.LVP
	src lang.Source
	tar lang.Target

	veil     *veil.Veil
	tmpl     template.Template
	store    store.Store
	itl      itl.ITL
	mtl      mtl.MTL
	post     postprocess.Postprocessor
	fallback contract.LineTranslator

	log      *diag.Logger
	format   lang.FormatOptions
	ctxLines int

	fileID  contract.FileID
	lineNo  contract.LineNo
	history []string
}

// New 按 LVP 装配全部协作者。
func New(l lvp.LVP, o Options) (*Theory, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("theory: lvp %d: %w", int(l), contract.ErrUnknownLVP)
	}
	pre, err := preprocess.ForLVP(l)
	if err != nil {
		return nil, err
	}
	src, tar, err := lang.ForLVP(l)
	if err != nil {
		return nil, err
	}
	t := &Theory{
		lvp:      l,
		src:      src,
		tar:      tar,
		veil:     veil.New(pre),
		fallback: o.Fallback,
		log:      o.Logger,
		format:   o.Format,
		ctxLines: o.ContextLines,
	}
	if t.log == nil {
		t.log = diag.Nop()
	}
	if t.ctxLines == 0 {
		t.ctxLines = 3
	}
	if t.format.Warn == nil {
		t.format.Warn = t.warn
	}

	d := itl.Deps{Veil: t.veil, Table: o.Table, Direct: t.TranslateDirect, Warn: t.warn}
	if l == lvp.CobolToCSharp9 {
		tc, err := template.NewCobol()
		if err != nil {
			return nil, err
		}
		sc := store.NewCobol(tc)
		t.tmpl, t.store = tc, sc
		d.Template, d.Store = tc, sc
	}
	if t.itl, err = itl.ForLVP(l, d); err != nil {
		return nil, err
	}
	t.mtl = mtl.ForLVP(l, t.veil)
	var sc postprocess.SectionCaller
	if c, ok := t.itl.(postprocess.SectionCaller); ok {
		sc = c
	}
	t.post = postprocess.ForLVP(l, sc)
	return t, nil
}

// LVP 返回绑定的语言版本对。
func (t *Theory) LVP() lvp.LVP { return t.lvp }

// Target 返回目标语言定义（文件名、外部格式化、工程文件）。
func (t *Theory) Target() lang.Target { return t.tar }

// Veil 返回作业令牌库（仅在当前作业内有效）。
func (t *Theory) Veil() *veil.Veil { return t.veil }

func (t *Theory) warn(msg string) { t.log.Warn(comp, msg, string(t.fileID), nil) }

func (t *Theory) reset(fileID contract.FileID) {
	t.fileID = fileID
	t.lineNo = 0
	t.history = t.history[:0]
	t.veil.Reset()
	if t.tmpl != nil {
		t.tmpl.Reset()
	}
	if t.store != nil {
		t.store.Reset()
	}
	t.itl.Reset()
}

// Format 只做源格式化。
func (t *Theory) Format(src string) ([]string, error) {
	return t.src.FormatFile(src, t.format)
}

// Mask 重置作业后格式化并掩码，返回掩码行；令牌表可经 Veil().Entries() 读取。
func (t *Theory) Mask(fileID contract.FileID, src string) ([]string, error) {
	t.reset(fileID)
	formatted, err := t.Format(src)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", fileID, err)
	}
	return t.veil.Mask(strings.Join(formatted, "\n"))
}

// Translate 翻译一个文件。单行失败不会中断作业；ctx 取消与装配类错误直接返回。
func (t *Theory) Translate(ctx context.Context, fileID contract.FileID, src string) (*Result, error) {
	t.reset(fileID)
	timer := t.log.StartWith(comp, "translate file", string(fileID))
	start := timer.Since()

	if t.store != nil {
		t.store.Scan(src)
	}
	formatted, err := t.Format(src)
	if err != nil {
		t.log.ErrorWith(comp, string(diag.Classify(err)), "format failed", &start, string(fileID), 0)
		return nil, fmt.Errorf("format %s: %w", fileID, err)
	}
	masked, err := t.veil.Mask(strings.Join(formatted, "\n"))
	if err != nil {
		t.log.ErrorWith(comp, string(diag.Classify(err)), "mask failed", &start, string(fileID), 0)
		return nil, fmt.Errorf("mask %s: %w", fileID, err)
	}
	t.checkLines("mask", formatted, t.unmaskAll(masked))

	lines := masked
	if t.mtl != nil {
		if lines, err = t.mtl.TranslateAll(masked); err != nil {
			return nil, fmt.Errorf("mtl %s: %w", fileID, err)
		}
		t.checkLines("mtl", masked, lines)
	}

	res := &Result{FormattedLines: formatted, MaskedLines: masked}
	term := diag.GetTerminal()
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if t.tmpl == nil {
				out = append(out, "")
			}
			continue
		}
		res.Lines++
		t.lineNo = contract.LineNo(i + 1)
		srcLine := ""
		if i < len(formatted) {
			srcLine = formatted[i]
		}

		translated, via, err := t.translateLine(ctx, trimmed, indentOf(line), srcLine)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			code := string(diag.Classify(err))
			t.log.ErrorWithKV(comp, code, "line failed", nil, string(fileID),
				map[string]string{"line": strconv.Itoa(i + 1), "masked": trimmed, "err": err.Error()})
			diag.IncError(comp, code)
			translated = t.errorLine(srcLine)
			res.Errors++
			via = "error"
		}
		diag.IncOp(comp, "line", via)
		t.log.DebugLine(comp, string(fileID), i+1, map[string]string{"via": via, "masked": trimmed, "out": translated})
		t.remember(trimmed)

		if t.tmpl != nil {
			t.tmpl.Update(translated)
		} else {
			out = append(out, indentLines(line[:indentOf(line)], translated))
		}
		term.FileProgress(i+1, len(lines), res.Errors)
	}

	var text string
	if t.tmpl != nil {
		if text, err = t.tmpl.Build(); err != nil {
			return nil, fmt.Errorf("build %s: %w", fileID, err)
		}
	} else {
		text = strings.Join(out, "\n") + "\n"
	}
	text = t.post.File(text)
	res.Output = depgen.Generate(t.lvp, text)

	res.Accuracy = 100
	if res.Lines > 0 {
		res.Accuracy = float64(res.Lines-res.Errors) / float64(res.Lines) * 100
	}
	diag.ObserveDuration(comp, "file", time.Since(start).Milliseconds())
	timer.Finish(fmt.Sprintf("translated, accuracy %.4f%%", res.Accuracy), int64(res.Lines))
	return res, nil
}

// translateLine 处理一行（已 strip 的全局掩码文本）。顺序：相对化 → 模板分隔 → Store → 解析 → 后处理 → 还原。
// 规则或插件 panic 视为本行失败；失败行不进入 Store 布局。
func (t *Theory) translateLine(ctx context.Context, masked string, indent int, srcLine string) (out, via string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("line panic: %v: %w", r, contract.ErrInvariantViolation)
		}
		if err != nil && t.store != nil {
			t.store.Discard()
		}
	}()
	rel := t.veil.ToRelative(masked)
	srcTrim := strings.TrimSpace(srcLine)
	if t.tmpl != nil {
		t.tmpl.UpdateDelineator(srcTrim, indentOf(srcLine))
	}
	if t.store != nil {
		t.store.Update(srcTrim)
	}
	out, via, err = t.resolve(ctx, rel, indent)
	if err != nil {
		return "", via, err
	}
	if out != "" {
		out = t.post.Line(out)
		if out, err = t.veil.Resolve(out); err != nil {
			return "", via, err
		}
	}
	if t.store != nil {
		t.store.PostTranslationHook(out)
	}
	return out, via, nil
}

// resolve: ITL 规则 → 数据映射 → 回退。返回命中来源（rule|map|fallback）。
func (t *Theory) resolve(ctx context.Context, rel string, indent int) (string, string, error) {
	out, ok, err := t.itl.Translate(ctx, rel, indent)
	if err != nil {
		return "", "rule", err
	}
	if ok {
		return out, "rule", nil
	}
	if out, ok := t.itl.Map(rel); ok {
		return out, "map", nil
	}
	if t.fallback == nil {
		return "", "fallback", fmt.Errorf("%q: %w", rel, contract.ErrNoTranslation)
	}
	out, err = t.fallback.TranslateLine(ctx, t.request(rel))
	if err != nil {
		return "", "fallback", fmt.Errorf("fallback: %w", err)
	}
	return out, "fallback", nil
}

// TranslateDirect 无状态翻译一行相对掩码文本（供 UNTIL 等子句递归使用）。
// fromRelative 为 true 时还原为全局令牌，unmask 为 true 时再反掩码。
func (t *Theory) TranslateDirect(ctx context.Context, line string, fromRelative, unmask bool) (string, error) {
	out, _, err := t.resolve(ctx, line, 0)
	if err != nil {
		return "", err
	}
	out = t.post.Line(out)
	if fromRelative {
		if out, err = t.veil.FromRelative(out); err != nil {
			return "", err
		}
	}
	if unmask {
		out = t.veil.Unmask(out)
	}
	return out, nil
}

func (t *Theory) request(rel string) contract.LineRequest {
	return contract.LineRequest{
		FileID:  t.fileID,
		Line:    t.lineNo,
		LVP:     t.lvp.String(),
		Source:  t.lvp.Source(),
		Target:  t.lvp.Target(),
		Text:    rel,
		Context: append([]string(nil), t.history...),
	}
}

func (t *Theory) remember(masked string) {
	if t.ctxLines <= 0 {
		return
	}
	t.history = append(t.history, veil.Relativize(masked))
	if n := len(t.history) - t.ctxLines; n > 0 {
		t.history = t.history[n:]
	}
}

func (t *Theory) errorLine(src string) string {
	return t.tar.SingleLineComment(strings.TrimSpace(src)) + "\t" + t.tar.SingleLineComment(ErrorMarker)
}

func (t *Theory) unmaskAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = t.veil.Unmask(l)
	}
	return out
}

// checkLines 在行数不一致时记录告警与 unified diff；从不失败。
func (t *Theory) checkLines(stage string, want, got []string) {
	if len(want) == len(got) {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(want, "\n")),
		B:        difflib.SplitLines(strings.Join(got, "\n")),
		FromFile: "input",
		ToFile:   stage,
		Context:  1,
	})
	if len(diff) > maxDiffBytes {
		diff = diff[:maxDiffBytes]
	}
	t.log.Warn(comp, stage+" line count mismatch", string(t.fileID), map[string]string{
		"input": strconv.Itoa(len(want)),
		stage:   strconv.Itoa(len(got)),
		"diff":  diff,
	})
}

func indentOf(s string) int { return len(s) - len(strings.TrimLeft(s, " \t")) }

// indentLines 为多行译文的每一行加上源缩进；空译文保持空行。
func indentLines(indent, text string) string {
	if text == "" || indent == "" {
		return text
	}
	parts := strings.Split(text, "\n")
	for i, p := range parts {
		if p != "" {
			parts[i] = indent + p
		}
	}
	return strings.Join(parts, "\n")
}
