package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"theory/internal/datamap"
	"theory/internal/diag"
	"theory/internal/lang"
	"theory/internal/lvp"
	"theory/internal/theory"
	"theory/pkg/contract"
)

// - 单点并发：仅此层管理并发；Theory 作业与原子组件均为同步实现。
// - 文件级作业：每个文件构造独立的 Theory（全新的 Veil/Store/Template 状态），行序保持。
// - 首错取消：读写与装配类错误 cancel 整体；单文件超时或取消只记失败，不影响其他文件。
// - 收尾：全部写出成功后按需调用目标格式化器与工程文件生成。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader contract.Reader
	Writer contract.Writer
	// Fallback: 行级回退翻译（可选）；nil 时规则未命中的行记为失败。
	Fallback contract.LineTranslator
}

// Settings 运行期配置。
type Settings struct {
	LVP    lvp.LVP
	Inputs []string
	// Concurrency: 并行文件作业数（<=0 视为 1）。
	Concurrency int
	// FileTimeout: 单文件超时；0 表示不限。
	FileTimeout time.Duration
	Table       *datamap.Table
	Format      lang.FormatOptions
	// ContextLines: 回退请求附带的前文行数。
	ContextLines int
	// FormatOutput: 写出后调用目标语言的外部格式化器（需 Writer 能解析落盘路径）。
	FormatOutput bool
	// ProjectFiles: 在输出根生成目标工程文件（.csproj / package.json / requirements.txt）。
	ProjectFiles bool
}

// FileReport: 单文件结果摘要。
type FileReport struct {
	FileID   contract.FileID
	Artifact contract.ArtifactID
	Lines    int
	Errors   int
	Accuracy float64
	// Err: 作业级失败（超时/取消/装配）；行级失败只计入 Errors。
	Err error
}

// Summary: 一次运行的汇总；Files 按 FileID 排序。
type Summary struct {
	Files   []FileReport
	Lines   int
	Errors  int
	Failed  int
	Project string
}

// Accuracy 返回全体非空行的成功率（无行时为 100）。
func (s Summary) Accuracy() float64 {
	if s.Lines == 0 {
		return 100
	}
	return float64(s.Lines-s.Errors) / float64(s.Lines) * 100
}

// Locator: 可选接口；能将工件 ID 解析为落盘路径的 Writer（格式化器与工程文件需要）。
type Locator interface {
	Root() string
	Path(id contract.ArtifactID) (string, error)
}

// Run 执行：Reader → 每文件 Theory 作业 → Writer → (格式化器) → (工程文件)。
// 约束：
// - Reader 顺序产出文件，读完即交给作业池；
// - 作业间互不共享可变状态，Fallback 需自身并发安全；
// - 返回的 Summary 在出错时也包含已完成文件。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	if logger == nil {
		logger = diag.Nop()
	}
	if err := sanity(comp, set); err != nil {
		return Summary{}, fmt.Errorf("sanity: %w", err)
	}
	_, tar, err := lang.ForLVP(set.LVP)
	if err != nil {
		return Summary{}, err
	}
	n := set.Concurrency
	if n <= 0 {
		n = 1
	}

	term := diag.GetTerminal()
	term.RunStart(n, set.LVP.String())
	runTimer := logger.StartWithKV("pipeline", "run", "", map[string]string{"lvp": set.LVP.String()})
	runStart := runTimer.Since()

	var (
		mu      sync.Mutex
		reports []FileReport
	)
	record := func(r FileReport) {
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	rerr := comp.Reader.Iterate(gctx, set.Inputs, func(fileID contract.FileID, rc io.ReadCloser) error {
		src, err := readAll(rc)
		if err != nil {
			code := diag.Classify(err)
			logger.ErrorWith("reader", string(code), "read failed", nil, string(fileID), 0)
			diag.IncOp("reader", "error", "error")
			diag.IncError("reader", string(code))
			return fmt.Errorf("read %s: %w", fileID, err)
		}
		diag.IncOp("reader", "finish", "success")
		// Go 阻塞直至有空闲槽位；首错后 gctx 取消，后续作业立即返回
		g.Go(func() error {
			rep, err := translateFile(gctx, comp, set, tar, logger, fileID, src)
			record(rep)
			return err
		})
		return gctx.Err()
	})
	werr := g.Wait()

	sum := summarize(reports)
	if err := firstErr(werr, rerr); err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "run failed", &runStart)
		term.RunFinish(false, time.Since(runStart))
		return sum, err
	}

	if set.ProjectFiles {
		if p, err := createProject(comp.Writer, tar, sum); err != nil {
			logger.Warn("pipeline", "project files failed", "", map[string]string{"err": err.Error()})
		} else {
			sum.Project = p
		}
	}
	runTimer.Finish(fmt.Sprintf("files=%d failed=%d accuracy=%.4f%%", len(sum.Files), sum.Failed, sum.Accuracy()), int64(sum.Lines))
	diag.ObserveDuration("pipeline", "run", time.Since(runStart).Milliseconds())
	term.RunFinish(sum.Failed == 0, time.Since(runStart))
	return sum, nil
}

// translateFile 处理单个文件：Theory.Translate → Writer.Write → (FormatFile)。
// 作业级失败（超时/取消/装配）只写入 FileReport；写出失败作为首错返回。
func translateFile(ctx context.Context, comp Components, set Settings, tar lang.Target, logger *diag.Logger, fileID contract.FileID, src string) (FileReport, error) {
	rep := FileReport{FileID: fileID, Artifact: artifactID(tar, fileID)}
	term := diag.GetTerminal()
	term.FileStart(string(fileID), strings.Count(src, "\n")+1)
	fileStart := time.Now()
	ok := false
	defer func() { term.FileFinish(ok, rep.Errors, time.Since(fileStart)) }()

	fctx := ctx
	if set.FileTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, set.FileTimeout)
		defer cancel()
	}

	format := set.Format
	// 副本库默认同时在源文件所在目录查找
	format.CopybookDirs = append(append([]string(nil), format.CopybookDirs...), path.Dir(string(fileID)))
	th, err := theory.New(set.LVP, theory.Options{
		Table:        set.Table,
		Fallback:     comp.Fallback,
		Logger:       logger,
		Format:       format,
		ContextLines: set.ContextLines,
	})
	if err != nil {
		rep.Err = err
		return rep, fmt.Errorf("theory %s: %w", fileID, err)
	}
	res, err := th.Translate(fctx, fileID, src)
	if err != nil {
		rep.Err = err
		code := diag.Classify(err)
		logger.ErrorWith("pipeline", string(code), "file aborted", &fileStart, string(fileID), 0)
		diag.IncOp("pipeline", "file", "error")
		diag.IncError("pipeline", string(code))
		if ctx.Err() != nil {
			// 整体取消：向上传播
			return rep, ctx.Err()
		}
		return rep, nil
	}
	rep.Lines, rep.Errors, rep.Accuracy = res.Lines, res.Errors, res.Accuracy

	wtimer := logger.StartWith("writer", "write", string(rep.Artifact))
	if err := comp.Writer.Write(ctx, rep.Artifact, strings.NewReader(res.Output)); err != nil {
		rep.Err = err
		code := diag.Classify(err)
		logger.ErrorWith("writer", string(code), "write failed", nil, string(rep.Artifact), 0)
		diag.IncOp("writer", "error", "error")
		diag.IncError("writer", string(code))
		return rep, fmt.Errorf("writer write: %w", err)
	}
	wtimer.Finish("write", int64(len(res.Output)))
	diag.IncOp("writer", "finish", "success")

	if set.FormatOutput {
		formatOutput(ctx, comp.Writer, tar, logger, rep.Artifact)
	}
	diag.IncOp("pipeline", "file", "success")
	ok = true
	return rep, nil
}

// formatOutput 调用外部格式化器；工具缺失或失败仅告警。
func formatOutput(ctx context.Context, w contract.Writer, tar lang.Target, logger *diag.Logger, id contract.ArtifactID) {
	loc, ok := w.(Locator)
	if !ok {
		logger.Warn("pipeline", "writer cannot locate artifacts; formatter skipped", string(id), nil)
		return
	}
	p, err := loc.Path(id)
	if err != nil {
		logger.Warn("pipeline", "formatter skipped", string(id), map[string]string{"err": err.Error()})
		return
	}
	if err := tar.FormatFile(ctx, p); err != nil {
		msg := "formatter failed"
		if errors.Is(err, lang.ErrFormatterMissing) {
			msg = "formatter missing"
		}
		logger.Warn("pipeline", msg, string(id), map[string]string{"err": err.Error()})
	}
}

// createProject 在输出根生成工程文件，引用全部成功写出的译文。
func createProject(w contract.Writer, tar lang.Target, sum Summary) (string, error) {
	loc, ok := w.(Locator)
	if !ok {
		return "", fmt.Errorf("writer cannot locate artifacts: %w", contract.ErrInvalidInput)
	}
	var files []string
	for _, f := range sum.Files {
		if f.Err != nil {
			continue
		}
		p, err := loc.Path(f.Artifact)
		if err != nil {
			return "", err
		}
		files = append(files, p)
	}
	return tar.CreateProjectFiles(loc.Root(), files)
}

// artifactID: 源文件目录 + 目标文件名（C# 为 TitleCase 类名）。
func artifactID(tar lang.Target, fileID contract.FileID) contract.ArtifactID {
	name := tar.TranslatedFileName(path.Base(string(fileID)))
	dir := path.Dir(string(fileID))
	if dir == "." || dir == "" {
		return contract.ArtifactID(name)
	}
	return contract.ArtifactID(path.Join(dir, name))
}

func readAll(rc io.ReadCloser) (string, error) {
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func summarize(reports []FileReport) Summary {
	sort.Slice(reports, func(i, j int) bool { return reports[i].FileID < reports[j].FileID })
	s := Summary{Files: reports}
	for _, r := range reports {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Lines += r.Lines
		s.Errors += r.Errors
	}
	return s
}

// firstErr: 作业错误优先于 Reader 因取消返回的错误。
func firstErr(work, read error) error {
	if work != nil {
		return work
	}
	return read
}

func sanity(comp Components, set Settings) error {
	if comp.Reader == nil || comp.Writer == nil {
		return fmt.Errorf("reader and writer required: %w", contract.ErrInvalidInput)
	}
	if !set.LVP.Valid() {
		return fmt.Errorf("lvp %d: %w", int(set.LVP), contract.ErrUnknownLVP)
	}
	if set.Concurrency < 0 || set.FileTimeout < 0 {
		return fmt.Errorf("concurrency/file timeout must be >= 0: %w", contract.ErrInvalidInput)
	}
	return nil
}
