package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/graphrag/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	TTL time.Duration
	// KeyPrefix 应包含模型名，不同模型的向量不可混用。
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig(model string) *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:" + model + ":",
	}
}

// CachedEmbeddingProvider 以 Redis 缓存向量结果。
// Redis 故障只降级为直连底层供应商，不会让调用失败。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	rdb      goredis.Cmdable
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider，rdb 为 nil 时不缓存。
func NewCachedEmbeddingProvider(provider EmbeddingProvider, rdb goredis.Cmdable, config *EmbeddingCacheConfig) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig(provider.Name())
	}
	return &CachedEmbeddingProvider{provider: provider, rdb: rdb, config: config}
}

func (c *CachedEmbeddingProvider) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// EmbedSingle 生成单个文本的 Embedding（带缓存）。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Embed 批量生成 Embedding，仅对未命中的文本调用底层供应商。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.rdb == nil || len(texts) == 0 {
		return c.provider.Embed(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		logger.Warnw("embedding cache read failed, falling back to provider", "error", err.Error())
		values = nil
	}
	for i := range texts {
		if i < len(values) {
			if s, ok := values[i].(string); ok {
				var vec []float32
				if err := json.Unmarshal([]byte(s), &vec); err == nil && len(vec) > 0 {
					embeddings[i] = vec
					continue
				}
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}

	if len(missTexts) == 0 {
		logger.Debugw("embedding cache hit", "total", len(texts))
		return embeddings, nil
	}

	fresh, err := c.provider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for j, idx := range missIdx {
		embeddings[idx] = fresh[j]
		data, err := json.Marshal(fresh[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[idx], data, c.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnw("embedding cache write failed", "error", err.Error())
	}

	logger.Debugw("embedding cache miss", "total", len(texts), "miss", len(missTexts))
	return embeddings, nil
}

// Name 返回供应商名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// Ping 转发给底层供应商。
func (c *CachedEmbeddingProvider) Ping(ctx context.Context) error {
	if p, ok := c.provider.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// ClearCache 删除当前前缀下的所有缓存键，同步前调用以避免模型切换后读到旧向量。
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) (int, error) {
	if c.rdb == nil {
		return 0, nil
	}
	deleted := 0
	iter := c.rdb.Scan(ctx, 0, c.config.KeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err == nil {
			deleted++
		}
	}
	return deleted, iter.Err()
}
