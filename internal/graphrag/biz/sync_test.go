package biz

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/pkg/infra/pool"
)

func graphWith(n int) *memGraph {
	g := &memGraph{}
	for i := 0; i < n; i++ {
		g.entities = append(g.entities, store.EntityRecord{
			Name:        fmt.Sprintf("E%03d", i),
			Description: "desc",
			Labels:      []string{"Entity", "Company"},
		})
	}
	return g
}

func TestBuildEntityDocuments(t *testing.T) {
	docs := BuildEntityDocuments([]store.EntityRecord{
		{Name: "马斯克", Description: "企业家", Labels: []string{"Entity", "Person"}},
		{Name: "星舰", Labels: []string{"Entity"}},
		{Name: "  ", Labels: []string{"Entity"}},
		{Name: "X", Labels: []string{"Product", "Entity"}},
	})
	assert.Equal(t, []store.EntityDocument{
		{Name: "马斯克", Description: "企业家", Type: "Person", Text: "马斯克 企业家"},
		{Name: "星舰", Type: "Unknown", Text: "星舰"},
		{Name: "X", Type: "Product", Text: "X"},
	}, docs)
}

func TestSyncSkipsEmptyGraph(t *testing.T) {
	m := metrics.New()
	s := NewSyncService(&memGraph{}, newMemVectors(), &hashEmbedder{}, 100, m)

	res, err := s.TrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Status: SyncSkipped, Reason: "neo4j_empty"}, res)
	assert.EqualValues(t, 1, m.Stats()["sync"].(map[string]uint64)["skipped"])
}

func TestSyncWritesInBatchesAndIsIdempotent(t *testing.T) {
	vs := newMemVectors()
	emb := &hashEmbedder{dim: 8}
	s := NewSyncService(graphWith(250), vs, emb, 100, metrics.New())

	first, err := s.TrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncSuccess, first.Status)
	assert.Equal(t, 250, first.Count)
	require.NotNil(t, first.ActualCount)
	assert.EqualValues(t, 250, *first.ActualCount)
	assert.Equal(t, 8, vs.dim)
	assert.Equal(t, 8, s.Dimension())

	second, err := s.TrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, *first.ActualCount, *second.ActualCount)
	assert.Equal(t, "E000", sortedKeys(vs.points)[0])
}

func TestSyncFailureIsReported(t *testing.T) {
	vs := newMemVectors()
	vs.failErr = errors.New("qdrant unreachable")
	m := metrics.New()

	res, err := NewSyncService(graphWith(3), vs, &hashEmbedder{}, 100, m).TrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncFailed, res.Status)
	assert.Contains(t, res.Error, "qdrant unreachable")
	assert.EqualValues(t, 1, m.Stats()["sync"].(map[string]uint64)["failed"])

	res, err = NewSyncService(&memGraph{err: errors.New("neo4j down")}, newMemVectors(), &hashEmbedder{}, 100, m).TrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncFailed, res.Status)
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	s := NewSyncService(graphWith(1), newMemVectors(), &hashEmbedder{}, 100, metrics.New())
	s.running.Lock()
	_, err := s.TrySync(context.Background())
	assert.ErrorIs(t, err, ErrSyncRunning)
	s.running.Unlock()
}

func TestNeedsSync(t *testing.T) {
	ctx := context.Background()
	vs := newMemVectors()
	s := NewSyncService(graphWith(2), vs, &hashEmbedder{}, 100, metrics.New())

	need, err := s.NeedsSync(ctx)
	require.NoError(t, err)
	assert.True(t, need)

	_, err = s.TrySync(ctx)
	require.NoError(t, err)
	need, err = s.NeedsSync(ctx)
	require.NoError(t, err)
	assert.False(t, need)
}

func TestStartupSyncRunsInPool(t *testing.T) {
	p, err := pool.NewPool("bg", pool.BackgroundPool, pool.BackgroundPoolConfig())
	require.NoError(t, err)

	vs := newMemVectors()
	s := NewSyncService(graphWith(5), vs, &hashEmbedder{}, 2, metrics.New())
	s.StartupSync(context.Background(), p)
	require.NoError(t, p.ReleaseTimeout(3*time.Second))

	n, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
