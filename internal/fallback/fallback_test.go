package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"theory/internal/diag"
	"theory/internal/rate"
	"theory/pkg/contract"
	"theory/plugins/decoder/linejson"
	"theory/plugins/llmclient/flaky"
	"theory/plugins/llmclient/mock"
	"theory/plugins/prompt/line"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var req = contract.LineRequest{
	FileID: "Main.java",
	Line:   3,
	LVP:    "java_14_to_node_14",
	Source: "Java 14",
	Target: "Node 14",
	Text:   "%mask_0%.%mask_1%(%mask_2%);",
}

// scripted 按顺序返回预设结果，并统计调用次数。
type scripted struct {
	calls atomic.Int32
	steps []func() (contract.Raw, error)
}

func (s *scripted) Invoke(context.Context, contract.LineRequest, contract.Prompt) (contract.Raw, error) {
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i]()
}

type upstream struct{}

func (upstream) Error() string           { return "upstream 503" }
func (upstream) Timeout() bool           { return false }
func (upstream) Temporary() bool         { return true }
func (upstream) UpstreamStatus() int     { return 503 }
func (upstream) UpstreamMessage() string { return strings.Repeat("x", 300) }

func newTranslator(t *testing.T, c contract.LLMClient, mutate func(*Options)) *Translator {
	t.Helper()
	pb, err := line.New(nil)
	require.NoError(t, err)
	dec, err := linejson.New(nil)
	require.NoError(t, err)
	o := Options{Prompt: pb, Client: c, Decoder: dec, MaxRetries: 2, Backoff: time.Millisecond}
	if mutate != nil {
		mutate(&o)
	}
	tr, err := New(o)
	require.NoError(t, err)
	return tr
}

// UT-FB-01: 成功路径
func TestTranslateLineOK(t *testing.T) {
	c, _ := mock.New(nil)
	got, err := newTranslator(t, c, nil).TranslateLine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.Text, got)
}

// UT-FB-02: 限流与协议错误重试后成功
func TestTranslateLineRetry(t *testing.T) {
	c, _ := flaky.New(nil)
	got, err := newTranslator(t, c, nil).TranslateLine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.Text, got)
	assert.Equal(t, 3, c.(*flaky.Client).Calls())
}

// UT-FB-03: 重试次数用尽返回最后一次错误
func TestTranslateLineRetriesExhausted(t *testing.T) {
	c, _ := flaky.New(nil)
	_, err := newTranslator(t, c, func(o *Options) { o.MaxRetries = 0 }).TranslateLine(context.Background(), req)
	assert.ErrorIs(t, err, contract.ErrRateLimited)

	c2, _ := flaky.New(nil)
	_, err = newTranslator(t, c2, func(o *Options) { o.MaxRetries = 1 }).TranslateLine(context.Background(), req)
	assert.ErrorIs(t, err, contract.ErrResponseInvalid)
	assert.Equal(t, 2, c2.(*flaky.Client).Calls())
}

// UT-FB-04: 输入非法不重试；掩码越界按协议错误重试
func TestTranslateLineNoRetryOnInvalidInput(t *testing.T) {
	s := &scripted{steps: []func() (contract.Raw, error){
		func() (contract.Raw, error) { return contract.Raw{}, contract.ErrInvalidInput },
	}}
	_, err := newTranslator(t, s, nil).TranslateLine(context.Background(), req)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	assert.EqualValues(t, 1, s.calls.Load())

	s2 := &scripted{steps: []func() (contract.Raw, error){
		func() (contract.Raw, error) { return contract.Raw{Text: `{"code":"%mask_9%"}`}, nil },
		func() (contract.Raw, error) { return contract.Raw{Text: `{"code":"%mask_0%.%mask_1%(%mask_2%)"}`}, nil },
	}}
	got, err := newTranslator(t, s2, nil).TranslateLine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "%mask_0%.%mask_1%(%mask_2%)", got)
	assert.EqualValues(t, 2, s2.calls.Load())
}

// UT-FB-05: 闸门超预算快速失败，不调用客户端
func TestTranslateLineGateBudget(t *testing.T) {
	s := &scripted{steps: []func() (contract.Raw, error){
		func() (contract.Raw, error) { return contract.Raw{Text: `{"code":"x"}`}, nil },
	}}
	g := rate.NewGate(map[rate.LimitKey]rate.Limits{"k": {MaxTokensPerReq: 1}}, nil)
	_, err := newTranslator(t, s, func(o *Options) { o.Gate = g; o.GateKey = "k" }).TranslateLine(context.Background(), req)
	assert.ErrorIs(t, err, contract.ErrBudgetExceeded)
	assert.Zero(t, s.calls.Load())
}

// UT-FB-06: 上游错误记录 http_status 与截断消息
func TestTranslateLineUpstreamLog(t *testing.T) {
	var buf bytes.Buffer
	log := diag.NewLoggerTo("corr", "info", zapcore.AddSync(&buf))
	s := &scripted{steps: []func() (contract.Raw, error){
		func() (contract.Raw, error) { return contract.Raw{}, upstream{} },
	}}
	_, err := newTranslator(t, s, func(o *Options) { o.MaxRetries = 1; o.Logger = log }).TranslateLine(context.Background(), req)
	require.Error(t, err)
	var ue contract.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.EqualValues(t, 2, s.calls.Load(), "网络类错误应重试")
	require.NoError(t, log.Close())

	var found bool
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(ln), &ev))
		if ev["level"] != "error" {
			continue
		}
		found = true
		assert.Equal(t, "network", ev["code"])
		assert.Equal(t, "Main.java", ev["file_id"])
		kv := ev["kv"].(map[string]any)
		assert.Equal(t, "503", kv["http_status"])
		assert.Len(t, kv["upstream_msg"], 200)
		assert.Equal(t, "invoke", kv["stage"])
		assert.NotEmpty(t, kv["req_id"])
	}
	assert.True(t, found)
}

// UT-FB-07: 取消上下文
func TestTranslateLineCanceled(t *testing.T) {
	c, _ := mock.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTranslator(t, c, nil).TranslateLine(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	c, _ := mock.New(nil)
	pb, _ := line.New(nil)
	dec, _ := linejson.New(nil)
	_, err = New(Options{Prompt: pb, Client: c, Decoder: dec, MaxRetries: -1})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
