// Package fallback 把 PromptBuilder、限流闸门、LLM 客户端与解码器组合为行级回退翻译器。
//
// 每次 TranslateLine 同步完成：构造 Prompt → 闸门放行 → Invoke → Decode，
// 按错误分类有限次重试。翻译器本身无状态，可被多个文件作业并发共享。
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"theory/internal/diag"
	"theory/internal/prompt"
	"theory/internal/rate"
	"theory/pkg/contract"
)

const comp = "fallback"

// DefaultBackoff: 两次尝试之间的等待。
const DefaultBackoff = 200 * time.Millisecond

// Options: 回退翻译器的组件与参数。Gate 为空表示不限流。
type Options struct {
	Prompt        contract.PromptBuilder
	Client        contract.LLMClient
	Decoder       contract.Decoder
	Gate          rate.Gate
	GateKey       rate.LimitKey
	MaxRetries    int
	BytesPerToken int
	Backoff       time.Duration
	Logger        *diag.Logger
}

// Translator 实现 contract.LineTranslator。
type Translator struct {
	pb      contract.PromptBuilder
	llm     contract.LLMClient
	dec     contract.Decoder
	gate    rate.Gate
	key     rate.LimitKey
	retries int
	bpt     int
	backoff time.Duration
	log     *diag.Logger
}

var _ contract.LineTranslator = (*Translator)(nil)

// New 校验组件并构造翻译器。
func New(o Options) (*Translator, error) {
	if o.Prompt == nil || o.Client == nil || o.Decoder == nil {
		return nil, fmt.Errorf("fallback: prompt/client/decoder required: %w", contract.ErrInvalidInput)
	}
	if o.MaxRetries < 0 {
		return nil, fmt.Errorf("fallback: max_retries %d: %w", o.MaxRetries, contract.ErrInvalidInput)
	}
	t := &Translator{
		pb:      o.Prompt,
		llm:     o.Client,
		dec:     o.Decoder,
		gate:    o.Gate,
		key:     o.GateKey,
		retries: o.MaxRetries,
		bpt:     o.BytesPerToken,
		backoff: o.Backoff,
		log:     o.Logger,
	}
	if t.bpt <= 0 {
		t.bpt = prompt.DefaultBytesPerToken
	}
	if t.backoff <= 0 {
		t.backoff = DefaultBackoff
	}
	if t.log == nil {
		t.log = diag.Nop()
	}
	return t, nil
}

// TranslateLine 翻译一行相对掩码空间的代码，返回同一空间的译文。
func (t *Translator) TranslateLine(ctx context.Context, req contract.LineRequest) (string, error) {
	fileID := string(req.FileID)
	reqID := uuid.NewString()
	p, err := t.pb.Build(ctx, req)
	if err != nil {
		t.fail("prompt", err, fileID, map[string]string{"req_id": reqID})
		return "", fmt.Errorf("fallback prompt: %w", err)
	}
	tokens := prompt.PromptTokens(p, t.bpt)

	attempts := t.retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		kv := map[string]string{
			"req_id":  reqID,
			"line":    strconv.Itoa(int(req.Line)),
			"tokens":  strconv.Itoa(tokens),
			"attempt": strconv.Itoa(attempt),
		}
		if t.gate != nil {
			t.log.DebugStart("gate", "ask", fileID, kv)
			if err := t.gate.Wait(ctx, rate.Ask{Key: t.key, Requests: 1, Tokens: tokens}); err != nil {
				// 闸门错误不重试（取消或超出单请求预算）
				t.fail("gate", err, fileID, kv)
				return "", fmt.Errorf("fallback gate: %w", err)
			}
		}

		timer := t.log.StartWithKV(comp, "invoke", fileID, kv)
		raw, err := t.llm.Invoke(ctx, req, p)
		if err != nil {
			t.fail("invoke", err, fileID, kv, upstreamKV(err))
			lastErr = err
			if attempt < attempts && shouldRetryInvoke(err) && sleepCtx(ctx, t.backoff) == nil {
				continue
			}
			break
		}
		code, err := t.dec.Decode(ctx, req, raw)
		if err != nil {
			t.fail("decode", err, fileID, kv)
			lastErr = err
			if attempt < attempts && shouldRetryDecode(err) && sleepCtx(ctx, t.backoff) == nil {
				continue
			}
			break
		}
		timer.Finish("translated", int64(tokens))
		diag.IncOp(comp, "translate", "success")
		diag.ObserveDuration(comp, "translate", time.Since(timer.Since()).Milliseconds())
		return code, nil
	}
	diag.IncOp(comp, "translate", "error")
	return "", fmt.Errorf("fallback line %d after %d attempt(s): %w", req.Line, attempts, lastErr)
}

// fail 记录阶段错误并计数。
func (t *Translator) fail(stage string, err error, fileID string, kvs ...map[string]string) {
	code := diag.Classify(err)
	kv := map[string]string{"stage": stage}
	for _, m := range kvs {
		for k, v := range m {
			kv[k] = v
		}
	}
	t.log.ErrorWithKV(comp, string(code), stage+" failed: "+err.Error(), nil, fileID, kv)
	diag.IncOp(comp, stage, "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

// upstreamKV 提取上游 HTTP 诊断字段（消息截断至 200 字节）。
func upstreamKV(err error) map[string]string {
	var ue contract.UpstreamError
	if !errors.As(err, &ue) {
		return nil
	}
	kv := map[string]string{"http_status": strconv.Itoa(ue.UpstreamStatus())}
	if m := strings.TrimSpace(ue.UpstreamMessage()); m != "" {
		if len(m) > 200 {
			m = m[:200]
		}
		kv["upstream_msg"] = m
	}
	return kv
}

// shouldRetryInvoke: 限流与网络类错误重试；取消与输入非法不重试。
func shouldRetryInvoke(err error) bool {
	switch diag.Classify(err) {
	case diag.CodeBudget, diag.CodeNetwork:
		return true
	}
	return false
}

// shouldRetryDecode: 仅对响应无效（模型输出不合协议）重试。
func shouldRetryDecode(err error) bool {
	return diag.Classify(err) == diag.CodeProtocol
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
