package store

import (
	"context"

	milvuscomp "github.com/kart-io/graphrag/pkg/component/milvus"
	"github.com/kart-io/graphrag/pkg/utils/id"
)

// MilvusStore 基于 Milvus 的实体向量存储。
type MilvusStore struct {
	client     *milvuscomp.Client
	collection string
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore 创建 Milvus 向量存储。
func NewMilvusStore(client *milvuscomp.Client, collection string) *MilvusStore {
	return &MilvusStore{client: client, collection: collection}
}

// Name returns "milvus".
func (s *MilvusStore) Name() string {
	return "milvus"
}

func (s *MilvusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *MilvusStore) Exists(ctx context.Context) (bool, error) {
	return s.client.HasCollection(ctx, s.collection)
}

func (s *MilvusStore) EnsureCollection(ctx context.Context, dim int) error {
	ok, err := s.Exists(ctx)
	if err != nil || ok {
		return err
	}
	return s.client.CreateEntityCollection(ctx, s.collection, dim)
}

func (s *MilvusStore) Recreate(ctx context.Context, dim int) error {
	ok, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err := s.client.DropCollection(ctx, s.collection); err != nil {
			return err
		}
	}
	return s.client.CreateEntityCollection(ctx, s.collection, dim)
}

func (s *MilvusStore) Upsert(ctx context.Context, docs []EntityDocument, vectors [][]float32) error {
	if err := checkUpsert(docs, vectors); err != nil {
		return err
	}
	rows := make([]milvuscomp.EntityRow, len(docs))
	for i, doc := range docs {
		rows[i] = milvuscomp.EntityRow{
			ID:          id.NameUUID(doc.Name),
			Name:        doc.Name,
			Description: doc.Description,
			Type:        doc.Type,
			Vector:      vectors[i],
		}
	}
	return s.client.Upsert(ctx, s.collection, rows)
}

func (s *MilvusStore) Search(ctx context.Context, vector []float32, k int) ([]ScoredEntity, error) {
	hits, err := s.client.Search(ctx, s.collection, vector, k)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredEntity, len(hits))
	for i, h := range hits {
		out[i] = ScoredEntity{Name: h.Name, Type: h.Type, Score: float64(h.Score)}
	}
	return out, nil
}

func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	return s.client.RowCount(ctx, s.collection)
}
