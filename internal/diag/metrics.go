package diag

import (
	"sort"
	"sync"
)

// 进程内指标计数（供 CLI 汇总与测试断言）。
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计）

var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

func add(key string, v int64) {
	metricsMu.Lock()
	counters[key] += v
	metricsMu.Unlock()
}

// IncOp 累加操作计数（result=success|error|rule|map|fallback）。
func IncOp(comp, stage, result string) {
	add("op_total{"+comp+","+stage+","+result+"}", 1)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	add("error_total{"+comp+","+code+"}", 1)
}

// ObserveDuration 累计阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	add("op_duration_ms{"+comp+","+stage+"}", durMS)
}

// Metric 为一个计数器的快照。
type Metric struct {
	Key   string
	Value int64
}

// Snapshot 返回按键排序的计数器快照。
func Snapshot() []Metric {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make([]Metric, 0, len(counters))
	for k, v := range counters {
		out = append(out, Metric{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ResetMetrics 清空全部计数器。
func ResetMetrics() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}
