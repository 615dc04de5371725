package store

import (
	"context"
	"errors"
)

// ErrUnavailable 后端不可用时由 Unavailable 存储返回。
var ErrUnavailable = errors.New("store unavailable")

// EntityDocument 表示写入向量库的实体。
type EntityDocument struct {
	// Name 实体名称，同时决定点 ID。
	Name string
	// Description 实体描述。
	Description string
	// Type 实体类型。
	Type string
	// Text 参与向量化的文本。
	Text string
}

// ScoredEntity 表示一次相似度命中。
type ScoredEntity struct {
	Name  string
	Type  string
	Score float64
}

// Relation 表示图中的一条直接关系。
type Relation struct {
	Source string
	Rel    string
	Target string
}

// EntityRecord 表示图库中的实体节点。
type EntityRecord struct {
	Name        string
	Description string
	Labels      []string
}

// VectorStore 定义实体向量存储接口，集合名由实现持有。
type VectorStore interface {
	// EnsureCollection 集合不存在时按维度创建。
	EnsureCollection(ctx context.Context, dim int) error

	// Recreate 删除并重建集合。
	Recreate(ctx context.Context, dim int) error

	// Upsert 写入实体及其向量，docs 与 vectors 一一对应。
	Upsert(ctx context.Context, docs []EntityDocument, vectors [][]float32) error

	// Search 返回最相近的 k 个实体。
	Search(ctx context.Context, vector []float32, k int) ([]ScoredEntity, error)

	// Count 返回集合中的点数量。
	Count(ctx context.Context) (int64, error)

	// Exists 报告集合是否存在。
	Exists(ctx context.Context) (bool, error)

	Ping(ctx context.Context) error
	Name() string
}

// GraphStore 定义知识图谱存储接口。
type GraphStore interface {
	// Relations 返回以 names 中任一实体为端点的直接关系，至多 limit 条。
	Relations(ctx context.Context, names []string, limit int) ([]Relation, error)

	// Entities 返回全部实体节点。
	Entities(ctx context.Context) ([]EntityRecord, error)

	Ping(ctx context.Context) error
	Name() string
}

func checkUpsert(docs []EntityDocument, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return errors.New("documents and vectors length mismatch")
	}
	return nil
}
