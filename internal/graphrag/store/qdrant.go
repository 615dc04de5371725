package store

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	qdrantcomp "github.com/kart-io/graphrag/pkg/component/qdrant"
	"github.com/kart-io/graphrag/pkg/utils/id"
)

// payload 字段名。
const (
	payloadName        = "name"
	payloadDescription = "description"
	payloadType        = "type"
)

// QdrantStore 基于 Qdrant 的实体向量存储，余弦距离，点 ID 为名称的 UUIDv5。
type QdrantStore struct {
	client     *qdrantcomp.Client
	collection string
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrantStore 创建 Qdrant 向量存储。
func NewQdrantStore(client *qdrantcomp.Client, collection string) *QdrantStore {
	return &QdrantStore{client: client, collection: collection}
}

// Name returns "qdrant".
func (s *QdrantStore) Name() string {
	return "qdrant"
}

// Ping 探测 Qdrant 健康状态。
func (s *QdrantStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Exists 报告集合是否存在。
func (s *QdrantStore) Exists(ctx context.Context) (bool, error) {
	ok, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return ok, nil
}

// EnsureCollection 集合不存在时创建。
func (s *QdrantStore) EnsureCollection(ctx context.Context, dim int) error {
	ok, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.create(ctx, dim)
}

// Recreate 删除已有集合后重建。
func (s *QdrantStore) Recreate(ctx context.Context, dim int) error {
	ok, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}
	return s.create(ctx, dim)
}

func (s *QdrantStore) create(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dim)
	}
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert 写入实体点。
func (s *QdrantStore) Upsert(ctx context.Context, docs []EntityDocument, vectors [][]float32) error {
	if err := checkUpsert(docs, vectors); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(id.NameUUID(doc.Name)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				payloadName:        qdrant.NewValueString(doc.Name),
				payloadDescription: qdrant.NewValueString(doc.Description),
				payloadType:        qdrant.NewValueString(doc.Type),
			},
		}
	}

	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search 返回最相近的 k 个实体及其 payload。
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]ScoredEntity, error) {
	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	return scoredEntities(points), nil
}

// scoredEntities 读取 payload 中的名称与类型，缺失字段保持空串，由调用方兜底。
func scoredEntities(points []*qdrant.ScoredPoint) []ScoredEntity {
	hits := make([]ScoredEntity, 0, len(points))
	for _, p := range points {
		hit := ScoredEntity{Score: float64(p.GetScore())}
		if v, ok := p.GetPayload()[payloadName]; ok {
			hit.Name = v.GetStringValue()
		}
		if v, ok := p.GetPayload()[payloadType]; ok {
			hit.Type = v.GetStringValue()
		}
		hits = append(hits, hit)
	}
	return hits
}

// Count 精确统计点数量。
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int64(n), nil
}
