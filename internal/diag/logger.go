package diag

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger: 结构化事件日志。后端为 zap JSON core；事件字段固定为
// corr_id/comp/stage/code/dur_ms/count/file_id/line/msg/kv。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 按 level 初始化，写入 logs/theory-current.txt，10 MiB 轮转。
func NewLogger(corrID, level string) *Logger {
	sink := NewRotatingFile("logs", 10*1024*1024)
	l := NewLoggerTo(corrID, level, zapcore.AddSync(sink))
	l.sink = sink
	return l
}

// NewLoggerTo 把事件写入任意 WriteSyncer。
func NewLoggerTo(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcRFC3339,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, parseLevel(level))
	return &Logger{z: zap.New(core).With(zap.String("corr_id", corrID))}
}

// Nop 返回丢弃全部事件的日志器。
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func utcRFC3339(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Event 为一条事件的可选字段。
type Event struct {
	Comp   string
	Stage  string // start|finish|error|warn|line
	Code   string
	DurMS  int64
	Count  int64
	FileID string
	Line   int
	KV     map[string]string
}

func (ev Event) fields() []zap.Field {
	fs := make([]zap.Field, 0, 8)
	fs = append(fs, zap.String("comp", ev.Comp), zap.String("stage", ev.Stage))
	if ev.Code != "" {
		fs = append(fs, zap.String("code", ev.Code))
	}
	if ev.DurMS != 0 {
		fs = append(fs, zap.Int64("dur_ms", ev.DurMS))
	}
	if ev.Count != 0 {
		fs = append(fs, zap.Int64("count", ev.Count))
	}
	if ev.FileID != "" {
		fs = append(fs, zap.String("file_id", ev.FileID))
	}
	if ev.Line != 0 {
		fs = append(fs, zap.Int("line", ev.Line))
	}
	if len(ev.KV) > 0 {
		fs = append(fs, zap.Any("kv", ev.KV))
	}
	return fs
}

func (l *Logger) log(lv zapcore.Level, msg string, ev Event) {
	if l == nil || l.z == nil {
		return
	}
	if ce := l.z.Check(lv, msg); ce != nil {
		ce.Write(ev.fields()...)
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(zapcore.InfoLevel, msg, Event{Comp: comp, Stage: "start"})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID string) *Timer {
	return l.StartWithKV(comp, msg, fileID, nil)
}

// StartWithKV 记录带 file_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID string, kv map[string]string) *Timer {
	l.log(zapcore.InfoLevel, msg, Event{Comp: comp, Stage: "start", FileID: fileID, KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

func since(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return time.Since(*t).Milliseconds()
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.log(zapcore.ErrorLevel, msg, Event{Comp: comp, Stage: "error", Code: code, DurMS: since(durSince)})
}

// ErrorWith 附带 file_id 与行号。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string, line int) {
	l.log(zapcore.ErrorLevel, msg, Event{Comp: comp, Stage: "error", Code: code, DurMS: since(durSince), FileID: fileID, Line: line})
}

// ErrorWithKV 附带键值对（例如 HTTP 状态码、上游错误片段）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID string, kv map[string]string) {
	l.log(zapcore.ErrorLevel, msg, Event{Comp: comp, Stage: "error", Code: code, DurMS: since(durSince), FileID: fileID, KV: kv})
}

// Warn 记录可继续的告警（副本缺失、行数不一致、格式化器缺失等）。
func (l *Logger) Warn(comp, msg, fileID string, kv map[string]string) {
	l.log(zapcore.WarnLevel, msg, Event{Comp: comp, Stage: "warn", FileID: fileID, KV: kv})
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(zapcore.InfoLevel, msg, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count})
}

// DebugStart 输出调试级别的 start 事件。
func (l *Logger) DebugStart(comp, msg, fileID string, kv map[string]string) {
	l.log(zapcore.DebugLevel, msg, Event{Comp: comp, Stage: "start", FileID: fileID, KV: kv})
}

// DebugLine 记录单行的翻译来源与结果。
func (l *Logger) DebugLine(comp, fileID string, line int, kv map[string]string) {
	l.log(zapcore.DebugLevel, "line", Event{Comp: comp, Stage: "line", FileID: fileID, Line: line, KV: kv})
}

// Close 刷新缓冲并关闭文件 sink。
func (l *Logger) Close() error {
	if l == nil || l.z == nil {
		return nil
	}
	_ = l.z.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(zapcore.InfoLevel, msg, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID})
}

// Since 返回计时起点。
func (t *Timer) Since() time.Time {
	if t == nil {
		return time.Now()
	}
	return t.t0
}
