package biz

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/pkg/infra/pool"
	"github.com/kart-io/graphrag/pkg/llm"
)

// 同步结果状态。
const (
	SyncSuccess = "success"
	SyncSkipped = "skipped"
	SyncFailed  = "failed"

	reasonGraphEmpty   = "neo4j_empty"
	defaultEntityType  = "Unknown"
	entityLabel        = "Entity"
	defaultSyncBatches = 100
)

// SyncResult 一次全量同步的结果。
type SyncResult struct {
	Status      string `json:"status"`
	Count       int    `json:"count"`
	ActualCount *int64 `json:"actual_count,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SyncService 把图库实体全量重建到向量库。
type SyncService struct {
	graph     store.GraphStore
	vectors   store.VectorStore
	embedder  llm.EmbeddingProvider
	batchSize int
	metrics   *metrics.GraphRAGMetrics

	running   sync.Mutex
	dimension atomic.Int64
}

// NewSyncService 创建同步服务。
func NewSyncService(graph store.GraphStore, vectors store.VectorStore, embedder llm.EmbeddingProvider, batchSize int, m *metrics.GraphRAGMetrics) *SyncService {
	if batchSize <= 0 {
		batchSize = defaultSyncBatches
	}
	return &SyncService{
		graph:     graph,
		vectors:   vectors,
		embedder:  embedder,
		batchSize: batchSize,
		metrics:   orDefault(m),
	}
}

// Dimension 返回最近一次探测到的向量维度，未探测时为 0。
func (s *SyncService) Dimension() int {
	return int(s.dimension.Load())
}

// TrySync 同步执行，已有任务在跑时返回 ErrSyncRunning。
func (s *SyncService) TrySync(ctx context.Context) (SyncResult, error) {
	if !s.running.TryLock() {
		return SyncResult{}, ErrSyncRunning
	}
	defer s.running.Unlock()

	res := s.sync(ctx)
	s.metrics.RecordSync(res.Status)
	return res, nil
}

// NeedsSync 集合缺失或为空时返回 true。
func (s *SyncService) NeedsSync(ctx context.Context) (bool, error) {
	ok, err := s.vectors.Exists(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	n, err := s.vectors.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// StartupSync 在后台池中检查并按需同步，失败只记录日志。
func (s *SyncService) StartupSync(ctx context.Context, p *pool.Pool) {
	p.Go(func() {
		need, err := s.NeedsSync(ctx)
		if err != nil {
			logger.Warnw("startup sync check failed", "error", err.Error())
			return
		}
		if !need {
			logger.Infow("vector collection already populated, skipping startup sync")
			return
		}
		res, err := s.TrySync(ctx)
		if err != nil {
			logger.Warnw("startup sync not started", "error", err.Error())
			return
		}
		logger.Infow("startup sync finished", "status", res.Status, "count", res.Count, "reason", res.Reason, "error", res.Error)
	})
}

func failed(err error) SyncResult {
	logger.Errorw("knowledge base sync failed", "error", err.Error())
	return SyncResult{Status: SyncFailed, Error: err.Error()}
}

func (s *SyncService) sync(ctx context.Context) SyncResult {
	logger.Infow("knowledge base sync started", "graph", s.graph.Name(), "vector", s.vectors.Name())

	records, err := s.graph.Entities(ctx)
	if err != nil {
		return failed(err)
	}
	docs := BuildEntityDocuments(records)
	if len(docs) == 0 {
		logger.Warnw("graph has no entities, skipping sync")
		return SyncResult{Status: SyncSkipped, Reason: reasonGraphEmpty}
	}

	probe, err := s.embedder.EmbedSingle(ctx, docs[0].Name)
	if err != nil {
		return failed(err)
	}
	dim := len(probe)
	s.dimension.Store(int64(dim))

	if err := s.prepareCollection(ctx, dim); err != nil {
		return failed(err)
	}

	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return failed(err)
		}
		if err := s.vectors.Upsert(ctx, batch, vectors); err != nil {
			return failed(err)
		}
		logger.Debugw("sync batch written", "from", start, "to", end)
	}

	actual, err := s.vectors.Count(ctx)
	if err != nil {
		return failed(err)
	}
	logger.Infow("knowledge base sync finished", "count", len(docs), "actual_count", actual, "dimension", dim)
	return SyncResult{Status: SyncSuccess, Count: len(docs), ActualCount: &actual}
}

// prepareCollection 集合不存在则创建，存在且非空则重建。
func (s *SyncService) prepareCollection(ctx context.Context, dim int) error {
	exists, err := s.vectors.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return s.vectors.EnsureCollection(ctx, dim)
	}
	n, err := s.vectors.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Infow("clearing existing vector collection", "points", n)
		return s.vectors.Recreate(ctx, dim)
	}
	return nil
}

// BuildEntityDocuments 把图库实体转为向量文档，跳过无名实体。
func BuildEntityDocuments(records []store.EntityRecord) []store.EntityDocument {
	docs := make([]store.EntityDocument, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		docs = append(docs, store.EntityDocument{
			Name:        r.Name,
			Description: r.Description,
			Type:        entityType(r.Labels),
			Text:        strings.TrimSpace(r.Name + " " + r.Description),
		})
	}
	return docs
}

func entityType(labels []string) string {
	for _, l := range labels {
		if l != entityLabel {
			return l
		}
	}
	return defaultEntityType
}
