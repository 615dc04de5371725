package llm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	seen []string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.seen = append(c.seen, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := c.Embed(ctx, []string{text})
	return v[0], err
}

func (c *countingEmbedder) Name() string { return "counting" }

func newCache(t *testing.T) (*CachedEmbeddingProvider, *countingEmbedder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := &countingEmbedder{}
	return NewCachedEmbeddingProvider(inner, rdb, DefaultEmbeddingCacheConfig("bge")), inner, mr
}

func TestCachedEmbeddingOnlyFetchesMisses(t *testing.T) {
	c, inner, mr := newCache(t)
	ctx := context.Background()

	v, err := c.EmbedSingle(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)

	out, err := c.Embed(ctx, []string{"abc", "de"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}, {2}}, out)
	assert.Equal(t, []string{"abc", "de"}, inner.seen)

	key := c.key("abc")
	assert.Contains(t, key, "emb:bge:")
	assert.True(t, mr.Exists(key))
	mr.FastForward(25 * time.Hour)
	assert.False(t, mr.Exists(key))
}

func TestCachedEmbeddingSurvivesRedisOutage(t *testing.T) {
	c, inner, mr := newCache(t)
	mr.Close()

	out, err := c.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}}, out)
	assert.Equal(t, []string{"x"}, inner.seen)
}

func TestCachedEmbeddingClear(t *testing.T) {
	c, _, _ := newCache(t)
	ctx := context.Background()
	_, err := c.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)

	n, err := c.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "counting-cached", c.Name())
}

func TestCachedEmbeddingWithoutRedis(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, nil, nil)
	_, err := c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, inner.seen, 2)
}
