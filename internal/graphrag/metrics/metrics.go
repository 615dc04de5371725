// Package metrics 提供 GraphRAG 服务的业务指标收集。
package metrics

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Action 标签取值，与校验结论一致。
var verdictActions = []string{"pass", "retry_retrieval", "retry_generation", "unknown"}

// LLM 调用模式标签。
var llmModes = []string{"fast", "smart", "strict"}

// 同步结果标签。
var syncStatuses = []string{"success", "skipped", "failed"}

// GraphRAGMetrics GraphRAG 服务业务指标。
type GraphRAGMetrics struct {
	// 编排指标
	runsTotal         atomic.Uint64
	runErrors         atomic.Uint64
	forcedTermination atomic.Uint64
	verdicts          map[string]*atomic.Uint64
	validatorFailOpen atomic.Uint64

	// 检索指标
	retrievalTotal     atomic.Uint64
	retrievalFallbacks atomic.Uint64
	retrievalNanos     atomic.Int64
	lookupFailures     atomic.Uint64
	extractionFailures atomic.Uint64

	// LLM 调用指标
	llmCalls  map[string]*atomic.Uint64
	llmErrors map[string]*atomic.Uint64
	llmNanos  atomic.Int64

	syncRuns map[string]*atomic.Uint64

	startTime time.Time
}

var (
	global     *GraphRAGMetrics
	globalOnce sync.Once
)

// Default 返回进程级指标实例。
func Default() *GraphRAGMetrics {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}

// New 创建独立的指标实例，测试中使用以避免共享状态。
func New() *GraphRAGMetrics {
	return &GraphRAGMetrics{
		verdicts:  newCounters(verdictActions),
		llmCalls:  newCounters(llmModes),
		llmErrors: newCounters(llmModes),
		syncRuns:  newCounters(syncStatuses),
		startTime: time.Now(),
	}
}

func newCounters(labels []string) map[string]*atomic.Uint64 {
	m := make(map[string]*atomic.Uint64, len(labels))
	for _, l := range labels {
		m[l] = new(atomic.Uint64)
	}
	return m
}

func inc(m map[string]*atomic.Uint64, label, fallback string) {
	c, ok := m[label]
	if !ok {
		c = m[fallback]
	}
	if c != nil {
		c.Add(1)
	}
}

// RecordRun 记录一次编排运行，err 非 nil 表示被取消或异常结束。
func (m *GraphRAGMetrics) RecordRun(err error) {
	m.runsTotal.Add(1)
	if err != nil {
		m.runErrors.Add(1)
	}
}

// RecordForcedTermination 记录因重试预算耗尽或未知动作而结束的运行。
func (m *GraphRAGMetrics) RecordForcedTermination() {
	m.forcedTermination.Add(1)
}

// RecordVerdict 按动作记录校验结论。
func (m *GraphRAGMetrics) RecordVerdict(action string) {
	inc(m.verdicts, action, "unknown")
}

// RecordValidatorFailOpen 记录校验器放行降级。
func (m *GraphRAGMetrics) RecordValidatorFailOpen() {
	m.validatorFailOpen.Add(1)
}

// RecordRetrieval 记录一次检索，fallback 表示返回了兜底上下文。
func (m *GraphRAGMetrics) RecordRetrieval(d time.Duration, fallback bool) {
	m.retrievalTotal.Add(1)
	m.retrievalNanos.Add(int64(d))
	if fallback {
		m.retrievalFallbacks.Add(1)
	}
}

// RecordLookupFailure 记录单个实体相似度查询失败。
func (m *GraphRAGMetrics) RecordLookupFailure() {
	m.lookupFailures.Add(1)
}

// RecordExtractionFailure 记录实体抽取失败。
func (m *GraphRAGMetrics) RecordExtractionFailure() {
	m.extractionFailures.Add(1)
}

// RecordLLMCall 记录 LLM 调用。
func (m *GraphRAGMetrics) RecordLLMCall(mode string, d time.Duration, err error) {
	inc(m.llmCalls, mode, "")
	m.llmNanos.Add(int64(d))
	if err != nil {
		inc(m.llmErrors, mode, "")
	}
}

// RecordSync 记录同步结果。
func (m *GraphRAGMetrics) RecordSync(status string) {
	inc(m.syncRuns, status, "failed")
}

// Reset 清零所有计数器。
func (m *GraphRAGMetrics) Reset() {
	for _, c := range []*atomic.Uint64{
		&m.runsTotal, &m.runErrors, &m.forcedTermination, &m.validatorFailOpen,
		&m.retrievalTotal, &m.retrievalFallbacks, &m.lookupFailures, &m.extractionFailures,
	} {
		c.Store(0)
	}
	for _, group := range []map[string]*atomic.Uint64{m.verdicts, m.llmCalls, m.llmErrors, m.syncRuns} {
		for _, c := range group {
			c.Store(0)
		}
	}
	m.retrievalNanos.Store(0)
	m.llmNanos.Store(0)
}

type sample struct {
	name, help, kind string
	labels           string
	value            string
}

func counter(name, help string, v uint64) sample {
	return sample{name: name, help: help, kind: "counter", value: fmt.Sprintf("%d", v)}
}

func labelled(name, help, label string, m map[string]*atomic.Uint64, order []string) []sample {
	out := make([]sample, 0, len(order))
	for _, l := range order {
		out = append(out, sample{
			name:   name,
			help:   help,
			kind:   "counter",
			labels: fmt.Sprintf(`{%s=%q}`, label, l),
			value:  fmt.Sprintf("%d", m[l].Load()),
		})
	}
	return out
}

// Export 导出 Prometheus 文本格式指标。
func (m *GraphRAGMetrics) Export(namespace, subsystem string) string {
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	samples := []sample{
		counter("runs_total", "Total number of orchestration runs.", m.runsTotal.Load()),
		counter("run_errors_total", "Runs ended by cancellation or error.", m.runErrors.Load()),
		counter("forced_terminations_total", "Runs ended without a pass verdict.", m.forcedTermination.Load()),
	}
	samples = append(samples, labelled("verdicts_total", "Validator verdicts by action.", "action", m.verdicts, verdictActions)...)
	samples = append(samples,
		counter("validator_fail_open_total", "Validator calls that failed open.", m.validatorFailOpen.Load()),
		counter("retrieval_total", "Total number of retrievals.", m.retrievalTotal.Load()),
		counter("retrieval_fallbacks_total", "Retrievals that returned the fallback context.", m.retrievalFallbacks.Load()),
		sample{
			name: "retrieval_duration_seconds_total", help: "Total retrieval duration.", kind: "counter",
			value: fmt.Sprintf("%.6f", time.Duration(m.retrievalNanos.Load()).Seconds()),
		},
		counter("lookup_failures_total", "Failed per-entity similarity lookups.", m.lookupFailures.Load()),
		counter("extraction_failures_total", "Failed entity extractions.", m.extractionFailures.Load()),
	)
	samples = append(samples, labelled("llm_calls_total", "LLM calls by mode.", "mode", m.llmCalls, llmModes)...)
	samples = append(samples, labelled("llm_call_errors_total", "LLM call errors by mode.", "mode", m.llmErrors, llmModes)...)
	samples = append(samples,
		sample{
			name: "llm_call_duration_seconds_total", help: "Total LLM call duration.", kind: "counter",
			value: fmt.Sprintf("%.6f", time.Duration(m.llmNanos.Load()).Seconds()),
		},
	)
	samples = append(samples, labelled("sync_runs_total", "Knowledge base sync runs by status.", "status", m.syncRuns, syncStatuses)...)
	samples = append(samples, sample{
		name: "uptime_seconds", help: "Service uptime in seconds.", kind: "gauge",
		value: fmt.Sprintf("%.2f", math.Max(0, time.Since(m.startTime).Seconds())),
	})

	var sb strings.Builder
	last := ""
	for _, s := range samples {
		full := prefix + "_" + s.name
		if full != last {
			if last != "" {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "# HELP %s %s\n", full, s.help)
			fmt.Fprintf(&sb, "# TYPE %s %s\n", full, s.kind)
			last = full
		}
		fmt.Fprintf(&sb, "%s%s %s\n", full, s.labels, s.value)
	}
	return sb.String()
}

// Stats 返回当前统计信息。
func (m *GraphRAGMetrics) Stats() map[string]any {
	snapshot := func(c map[string]*atomic.Uint64) map[string]uint64 {
		out := make(map[string]uint64, len(c))
		for k, v := range c {
			out[k] = v.Load()
		}
		return out
	}

	return map[string]any{
		"runs": map[string]any{
			"total":              m.runsTotal.Load(),
			"errors":             m.runErrors.Load(),
			"forced_termination": m.forcedTermination.Load(),
			"verdicts":           snapshot(m.verdicts),
			"validator_failopen": m.validatorFailOpen.Load(),
		},
		"retrieval": map[string]any{
			"total":               m.retrievalTotal.Load(),
			"fallbacks":           m.retrievalFallbacks.Load(),
			"lookup_failures":     m.lookupFailures.Load(),
			"extraction_failures": m.extractionFailures.Load(),
		},
		"llm": map[string]any{
			"calls":  snapshot(m.llmCalls),
			"errors": snapshot(m.llmErrors),
		},
		"sync":           snapshot(m.syncRuns),
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}
