package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
)

// RetrievalResult 一次混合检索的结果。
type RetrievalResult struct {
	Entities     []string
	Matched      []MatchedEntity
	GraphContext string
	RagContext   string
}

// Retriever 将问题转换为检索上下文。
type Retriever interface {
	Retrieve(ctx context.Context, query string) RetrievalResult
}

// HybridRetriever 抽取 → 向量匹配 → 关系查询。
type HybridRetriever struct {
	extractor EntityExtractor
	matcher   EntityMatcher
	fetcher   RelationFetcher
	topK      int
	metrics   *metrics.GraphRAGMetrics
}

var _ Retriever = (*HybridRetriever)(nil)

// NewHybridRetriever 创建混合检索引擎。
func NewHybridRetriever(extractor EntityExtractor, matcher EntityMatcher, fetcher RelationFetcher, topK int, m *metrics.GraphRAGMetrics) *HybridRetriever {
	return &HybridRetriever{
		extractor: extractor,
		matcher:   matcher,
		fetcher:   fetcher,
		topK:      topK,
		metrics:   orDefault(m),
	}
}

func fallbackResult() RetrievalResult {
	return RetrievalResult{RagContext: FallbackContext}
}

// Retrieve 不返回错误，异常时降级为兜底上下文。
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) (res RetrievalResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			logger.Errorw("retrieval panicked", "query", query, "panic", fmt.Sprint(p))
			res = fallbackResult()
		}
		r.metrics.RecordRetrieval(time.Since(start), res.RagContext == FallbackContext)
	}()

	entities := r.extractor.Extract(ctx, query)
	if len(entities) == 0 {
		logger.Infow("no entities extracted, using fallback context", "query", query)
		return fallbackResult()
	}

	matched := r.matcher.Match(ctx, entities, r.topK)
	graph := r.fetcher.Fetch(ctx, matched)

	logger.Infow("retrieval finished", "entities", entities, "matched", len(matched), "relations", lineCount(graph))

	return RetrievalResult{
		Entities:     entities,
		Matched:      matched,
		GraphContext: graph,
		RagContext:   fuseContext(matched, graph),
	}
}

func fuseContext(matched []MatchedEntity, graph string) string {
	var parts []string
	if len(matched) > 0 {
		n := min(len(matched), maxQueryEntities)
		names := make([]string, n)
		for i := range n {
			names[i] = matched[i].Name
		}
		parts = append(parts, "涉及实体："+strings.Join(names, ", "))
	}
	if graph != "" {
		parts = append(parts, "知识图谱关系：\n"+graph)
	}
	return strings.Join(parts, "\n")
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
