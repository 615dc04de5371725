package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/store"
)

const (
	relationLimit       = 15
	defaultGraphTimeout = 10 * time.Second
)

// RelationFetcher 查询匹配实体的直接关系文本。
type RelationFetcher interface {
	Fetch(ctx context.Context, matched []MatchedEntity) string
}

// Fetcher 基于图库的关系查询。
type Fetcher struct {
	graph   store.GraphStore
	timeout time.Duration
}

var _ RelationFetcher = (*Fetcher)(nil)

// NewFetcher 创建关系查询器。
func NewFetcher(graph store.GraphStore, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultGraphTimeout
	}
	return &Fetcher{graph: graph, timeout: timeout}
}

// Fetch 返回 "source -[rel]-> target" 行，无匹配、无关系或查询失败时返回空串。
func (f *Fetcher) Fetch(ctx context.Context, matched []MatchedEntity) string {
	if len(matched) == 0 {
		return ""
	}
	if len(matched) > maxQueryEntities {
		matched = matched[:maxQueryEntities]
	}
	names := make([]string, len(matched))
	for i, e := range matched {
		names[i] = e.Name
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rels, err := f.graph.Relations(ctx, names, relationLimit)
	if err != nil {
		logger.Warnw("relation query failed", "names", names, "error", err.Error())
		return ""
	}
	return renderRelations(rels)
}

func renderRelations(rels []store.Relation) string {
	lines := make([]string, len(rels))
	for i, r := range rels {
		lines[i] = r.Source + " -[" + r.Rel + "]-> " + r.Target
	}
	return strings.Join(lines, "\n")
}
