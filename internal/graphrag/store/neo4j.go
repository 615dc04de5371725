package store

import (
	"context"
	"fmt"
)

const entitiesCypher = "MATCH (n:Entity) RETURN n.name as name, n.description as desc, labels(n) as labels"

func relationsCypher(limit int) string {
	return fmt.Sprintf("MATCH (s:Entity)-[r]-(t:Entity) WHERE s.name IN $names "+
		"RETURN s.name as source, type(r) as rel, t.name as target LIMIT %d", limit)
}

// CypherRunner 执行只读 Cypher 查询，由 pkg/component/neo4j.Client 实现。
type CypherRunner interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Ping(ctx context.Context) error
}

// Neo4jStore 基于 Neo4j 的知识图谱存储。
type Neo4jStore struct {
	runner CypherRunner
}

var _ GraphStore = (*Neo4jStore)(nil)

// NewNeo4jStore 创建 Neo4j 图存储。
func NewNeo4jStore(runner CypherRunner) *Neo4jStore {
	return &Neo4jStore{runner: runner}
}

// Name returns "neo4j".
func (s *Neo4jStore) Name() string {
	return "neo4j"
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.runner.Ping(ctx)
}

// Relations 查询与 names 直接相连的关系，保持库返回顺序。
func (s *Neo4jStore) Relations(ctx context.Context, names []string, limit int) ([]Relation, error) {
	if len(names) == 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := s.runner.Query(ctx, relationsCypher(limit), map[string]any{"names": names})
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}

	rels := make([]Relation, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, Relation{
			Source: str(row["source"]),
			Rel:    str(row["rel"]),
			Target: str(row["target"]),
		})
	}
	return rels, nil
}

// Entities 返回全部 Entity 节点。
func (s *Neo4jStore) Entities(ctx context.Context) ([]EntityRecord, error) {
	rows, err := s.runner.Query(ctx, entitiesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}

	out := make([]EntityRecord, 0, len(rows))
	for _, row := range rows {
		rec := EntityRecord{
			Name:        str(row["name"]),
			Description: str(row["desc"]),
		}
		switch labels := row["labels"].(type) {
		case []string:
			rec.Labels = labels
		case []any:
			for _, l := range labels {
				rec.Labels = append(rec.Labels, str(l))
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
