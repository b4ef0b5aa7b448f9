package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"theory/pkg/contract"
)

// LimitKey: 限流分组键（client + api key 摘要）。
type LimitKey string

// Limits: 每分组的限额配置。0 表示该维度不启用。
type Limits struct {
	RPM             int `json:"rpm"`
	TPM             int `json:"tpm"`
	MaxTokensPerReq int `json:"max_tokens_per_req"`
}

// Ask: 一次回退翻译请求的放行申请。
type Ask struct {
	Key      LimitKey
	Requests int
	Tokens   int
}

// Gate: 限流闸门（并发安全，多个文件作业共享）。
type Gate interface {
	// Wait 阻塞直到额度可用或 ctx 取消；超出单请求上限时快速失败（ErrBudgetExceeded）。
	Wait(ctx context.Context, a Ask) error
	// Try 非阻塞尝试。
	Try(a Ask) bool
}

// Snapshoter: 可选诊断接口。
type Snapshoter interface {
	Snapshot(key LimitKey) (rpmAvail, tpmAvail int)
}

// NewGate 从静态配置构造闸门；clk 为空使用 time.Now。
func NewGate(m map[LimitKey]Limits, clk func() time.Time) Gate {
	if clk == nil {
		clk = time.Now
	}
	g := &gate{clk: clk, m: make(map[LimitKey]*entry, len(m))}
	now := clk()
	for k, lim := range m {
		g.m[k] = newEntry(lim, now)
	}
	return g
}

type gate struct {
	clk func() time.Time
	mu  sync.Mutex
	m   map[LimitKey]*entry
}

type entry struct {
	mu  sync.Mutex
	lim Limits
	req bucket
	tok bucket
}

// bucket: 每分钟容量的令牌桶，按秒连续补充。
type bucket struct {
	cap   int
	level float64
	rate  float64
	last  time.Time
}

func newEntry(lim Limits, now time.Time) *entry {
	return &entry{lim: lim, req: newBucket(lim.RPM, now), tok: newBucket(lim.TPM, now)}
}

func newBucket(perMinute int, now time.Time) bucket {
	if perMinute <= 0 {
		return bucket{}
	}
	return bucket{cap: perMinute, level: float64(perMinute), rate: float64(perMinute) / 60.0, last: now}
}

func (b *bucket) enabled() bool { return b.cap > 0 }

func (b *bucket) refill(now time.Time) {
	if !b.enabled() || !now.After(b.last) {
		return
	}
	b.level += now.Sub(b.last).Seconds() * b.rate
	if b.level > float64(b.cap) {
		b.level = float64(b.cap)
	}
	b.last = now
}

func (b *bucket) canTake(n int) bool {
	return !b.enabled() || n <= 0 || b.level >= float64(n)
}

func (b *bucket) take(n int) {
	if !b.enabled() || n <= 0 {
		return
	}
	b.level -= float64(n)
	if b.level < 0 {
		b.level = 0
	}
}

// wait 返回可消费 n 还需等待的时长。
func (b *bucket) wait(n int) time.Duration {
	if !b.enabled() || n <= 0 {
		return 0
	}
	deficit := float64(n) - b.level
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / b.rate * float64(time.Second))
}

func (b *bucket) avail() int {
	if !b.enabled() {
		return 0
	}
	switch {
	case b.level < 0:
		return 0
	case b.level > float64(b.cap):
		return b.cap
	}
	return int(b.level)
}

func (g *gate) get(key LimitKey) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.m[key]
	if e == nil {
		// 未配置的分组不限额
		e = newEntry(Limits{}, g.clk())
		g.m[key] = e
	}
	return e
}

func (g *gate) check(a Ask) (*entry, error) {
	if a.Requests <= 0 || a.Tokens < 0 {
		return nil, fmt.Errorf("rate: ask %+v: %w", a, contract.ErrInvalidInput)
	}
	e := g.get(a.Key)
	if e.lim.MaxTokensPerReq > 0 && a.Tokens > e.lim.MaxTokensPerReq {
		return nil, fmt.Errorf("rate: %d tokens > %d per request: %w", a.Tokens, e.lim.MaxTokensPerReq, contract.ErrBudgetExceeded)
	}
	return e, nil
}

// takeLocked 尝试扣减；失败时返回需要等待的时长。
func (e *entry) takeLocked(now time.Time, a Ask) (bool, time.Duration) {
	e.req.refill(now)
	e.tok.refill(now)
	if e.req.canTake(a.Requests) && e.tok.canTake(a.Tokens) {
		e.req.take(a.Requests)
		e.tok.take(a.Tokens)
		return true, 0
	}
	return false, max(e.req.wait(a.Requests), e.tok.wait(a.Tokens))
}

func (g *gate) Try(a Ask) bool {
	e, err := g.check(a)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ok, _ := e.takeLocked(g.clk(), a)
	return ok
}

func (g *gate) Wait(ctx context.Context, a Ask) error {
	e, err := g.check(a)
	if err != nil {
		return err
	}
	const minSleep = 10 * time.Millisecond
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.mu.Lock()
		ok, d := e.takeLocked(g.clk(), a)
		e.mu.Unlock()
		if ok {
			return nil
		}
		if err := sleepCtx(ctx, d+minSleep); err != nil {
			return err
		}
	}
}

// sleepCtx 以最多 200ms 的步长睡眠，及时响应取消。
func sleepCtx(ctx context.Context, d time.Duration) error {
	const step = 200 * time.Millisecond
	for d > 0 {
		s := min(d, step)
		t := time.NewTimer(s)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		d -= s
	}
	return nil
}

// Snapshot 返回当前可用请求/令牌的向下取整估值（仅诊断）。
func (g *gate) Snapshot(key LimitKey) (rpmAvail, tpmAvail int) {
	e := g.get(key)
	now := g.clk()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.req.refill(now)
	e.tok.refill(now)
	return e.req.avail(), e.tok.avail()
}

var (
	_ Gate       = (*gate)(nil)
	_ Snapshoter = (*gate)(nil)
)
