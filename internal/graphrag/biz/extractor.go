package biz

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/pkg/llm"
	llmopts "github.com/kart-io/graphrag/pkg/options/llm"
	"github.com/kart-io/graphrag/pkg/utils/json"
)

// EntityExtractor 从问题中抽取实体名称。
type EntityExtractor interface {
	Extract(ctx context.Context, query string) []string
}

// Extractor 基于 fast 模型的实体抽取器。
type Extractor struct {
	chat    llm.ChatProvider
	timeout time.Duration
	metrics *metrics.GraphRAGMetrics
}

var _ EntityExtractor = (*Extractor)(nil)

// NewExtractor 创建实体抽取器。
func NewExtractor(chat llm.ChatProvider, timeout time.Duration, m *metrics.GraphRAGMetrics) *Extractor {
	return &Extractor{chat: chat, timeout: timeout, metrics: orDefault(m)}
}

// Extract 返回去重后的实体，任何失败都得到空结果。
func (e *Extractor) Extract(ctx context.Context, query string) []string {
	reply, err := chat(ctx, e.metrics, llmopts.ModeFast, e.chat, e.timeout, []llm.Message{
		{Role: llm.RoleSystem, Content: extractionSystemPrompt},
		{Role: llm.RoleUser, Content: query},
	})
	if err != nil {
		e.metrics.RecordExtractionFailure()
		logger.Warnw("entity extraction failed", "error", err.Error())
		return nil
	}

	entities, err := ParseEntities(reply)
	if err != nil {
		e.metrics.RecordExtractionFailure()
		logger.Warnw("entity extraction reply is not valid JSON", "error", err.Error(), "reply", truncate(reply, 200))
		return nil
	}

	logger.Debugw("entities extracted", "query", query, "entities", entities)
	return entities
}

type extractionReply struct {
	Entities entityList `json:"entities"`
}

// ParseEntities 从模型回复中解析实体列表。
func ParseEntities(reply string) ([]string, error) {
	obj, ok := firstJSONObject(reply)
	if !ok {
		return nil, errNoJSONObject
	}
	var out extractionReply
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// entityList 是 entities 字段的标签联合：字符串列表、记录列表或分类映射，
// 解码时统一为有序去重的名称列表。
type entityList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *entityList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = normalizeEntities(raw)
	return nil
}

func normalizeEntities(raw any) []string {
	var names []string
	switch v := raw.(type) {
	case []any:
		names = appendItems(names, v)
	case map[string]any:
		categories := make([]string, 0, len(v))
		for k := range v {
			categories = append(categories, k)
		}
		sort.Strings(categories)
		for _, k := range categories {
			switch items := v[k].(type) {
			case []any:
				names = appendItems(names, items)
			default:
				names = appendItems(names, []any{items})
			}
		}
	}
	return dedupe(names)
}

func appendItems(names []string, items []any) []string {
	for _, item := range items {
		switch it := item.(type) {
		case string:
			names = append(names, it)
		case map[string]any:
			names = append(names, recordName(it))
		}
	}
	return names
}

// recordName 取 name，缺失或为空时取 entity。
func recordName(rec map[string]any) string {
	if s, ok := rec["name"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	if s, ok := rec["entity"].(string); ok {
		return s
	}
	return ""
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
