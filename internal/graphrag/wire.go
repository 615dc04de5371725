package graphragsvc

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/internal/graphrag/store"
	gormcomp "github.com/kart-io/graphrag/pkg/component/gormdb"
	milvuscomp "github.com/kart-io/graphrag/pkg/component/milvus"
	neo4jcomp "github.com/kart-io/graphrag/pkg/component/neo4j"
	qdrantcomp "github.com/kart-io/graphrag/pkg/component/qdrant"
	rediscomp "github.com/kart-io/graphrag/pkg/component/redis"
	"github.com/kart-io/graphrag/pkg/component/storage"
	"github.com/kart-io/graphrag/pkg/llm"
	// 注册 LLM 供应商
	_ "github.com/kart-io/graphrag/pkg/llm/ollama"
	_ "github.com/kart-io/graphrag/pkg/llm/openai"
	"github.com/kart-io/graphrag/pkg/llm/resilience"
	graphragopts "github.com/kart-io/graphrag/pkg/options/graphrag"
	llmopts "github.com/kart-io/graphrag/pkg/options/llm"
)

// 健康报告中的组件名。
const (
	componentNeo4j  = "Neo4j Graph DB"
	componentSQL    = "SQL Graph DB"
	componentQdrant = "Qdrant Vector DB"
	componentMilvus = "Milvus Vector DB"
	componentRedis  = "Redis"
	componentLLM    = "LLM"
)

type healthProbe struct {
	name string
	ping func(ctx context.Context) error
}

// deps 已连接的外部依赖。
type deps struct {
	vectors     store.VectorStore
	graph       store.GraphStore
	embedder    llm.EmbeddingProvider
	fast        llm.ChatProvider
	smart       llm.ChatProvider
	strict      llm.ChatProvider
	checkpoints biz.CheckpointStore
	probes      []healthProbe
}

// connect opens every configured backend. Store connection failures are
// soft: the store is replaced by store.Unavailable and reported down.
// Provider construction errors are configuration errors and abort startup.
func (cfg *Config) connect(ctx context.Context, stores *storage.Manager) (*deps, error) {
	o := cfg.GraphRAGOptions
	d := &deps{}

	d.graph = cfg.openGraphStore(ctx, stores)
	d.probes = append(d.probes, healthProbe{name: graphComponent(o), ping: d.graph.Ping})

	d.vectors = cfg.openVectorStore(ctx, stores)
	d.probes = append(d.probes, healthProbe{name: vectorComponent(o), ping: d.vectors.Ping})

	var rdb goredis.Cmdable
	if o.NeedsRedis() {
		client, err := rediscomp.New(ctx, cfg.RedisOptions)
		if err != nil {
			logger.Warnw("redis unavailable, falling back to in-memory checkpoints without embedding cache", "error", err.Error())
			d.probes = append(d.probes, healthProbe{name: componentRedis, ping: func(context.Context) error { return err }})
		} else {
			_ = stores.Register(componentRedis, client)
			rdb = client.Client()
			d.probes = append(d.probes, healthProbe{name: componentRedis, ping: client.Ping})
			logger.Infow("Redis client initialized", "addr", cfg.RedisOptions.Addr())
		}
	}

	if o.CheckpointBackend == graphragopts.CheckpointRedis && rdb != nil {
		d.checkpoints = biz.NewRedisCheckpointStore(rdb, o.CheckpointTTL)
	} else {
		d.checkpoints = biz.NewMemoryCheckpointStore()
	}

	embedder, err := cfg.newEmbedder(rdb)
	if err != nil {
		return nil, err
	}
	d.embedder = embedder

	chats := make(map[string]llm.ChatProvider, 3)
	for _, mode := range []string{llmopts.ModeFast, llmopts.ModeSmart, llmopts.ModeStrict} {
		p, err := cfg.newChat(mode)
		if err != nil {
			return nil, err
		}
		chats[mode] = p
	}
	d.fast, d.smart, d.strict = chats[llmopts.ModeFast], chats[llmopts.ModeSmart], chats[llmopts.ModeStrict]
	d.probes = append(d.probes, healthProbe{name: componentLLM, ping: pingChat(d.smart)})

	return d, nil
}

func graphComponent(o *graphragopts.Options) string {
	if o.GraphBackend == graphragopts.GraphBackendSQL {
		return componentSQL
	}
	return componentNeo4j
}

func vectorComponent(o *graphragopts.Options) string {
	if o.VectorBackend == graphragopts.VectorBackendMilvus {
		return componentMilvus
	}
	return componentQdrant
}

func (cfg *Config) openGraphStore(ctx context.Context, stores *storage.Manager) store.GraphStore {
	o := cfg.GraphRAGOptions
	name := graphComponent(o)

	switch o.GraphBackend {
	case graphragopts.GraphBackendSQL:
		client, err := gormcomp.New(ctx, cfg.GraphDBOptions)
		if err != nil {
			logger.Errorw("graph store unavailable", "backend", o.GraphBackend, "error", err.Error())
			return store.NewUnavailable(cfg.GraphDBOptions.Driver, err)
		}
		_ = stores.Register(name, client)
		s := store.NewSQLGraphStore(client.DB(), client.Name())
		if err := s.Migrate(ctx); err != nil {
			logger.Warnw("graph schema migration failed", "driver", client.Name(), "error", err.Error())
		}
		logger.Infow("SQL graph store initialized", "driver", client.Name())
		return s
	default:
		client, err := neo4jcomp.New(ctx, cfg.Neo4jOptions)
		if err != nil {
			logger.Errorw("graph store unavailable", "backend", o.GraphBackend, "error", err.Error())
			return store.NewUnavailable("neo4j", err)
		}
		_ = stores.Register(name, client)
		logger.Infow("Neo4j graph store initialized", "uri", cfg.Neo4jOptions.URI)
		return store.NewNeo4jStore(client)
	}
}

func (cfg *Config) openVectorStore(ctx context.Context, stores *storage.Manager) store.VectorStore {
	o := cfg.GraphRAGOptions
	name := vectorComponent(o)

	switch o.VectorBackend {
	case graphragopts.VectorBackendMilvus:
		client, err := milvuscomp.New(ctx, cfg.MilvusOptions)
		if err != nil {
			logger.Errorw("vector store unavailable", "backend", o.VectorBackend, "error", err.Error())
			return store.NewUnavailable("milvus", err)
		}
		_ = stores.Register(name, client)
		logger.Infow("Milvus vector store initialized", "address", cfg.MilvusOptions.Address, "collection", o.Collection)
		return store.NewMilvusStore(client, o.Collection)
	default:
		client, err := qdrantcomp.New(cfg.QdrantOptions)
		if err != nil {
			logger.Errorw("vector store unavailable", "backend", o.VectorBackend, "error", err.Error())
			return store.NewUnavailable("qdrant", err)
		}
		_ = stores.Register(name, client)
		// gRPC 连接是惰性的，探测失败只告警，后续调用自行软失败
		if err := client.Ping(ctx); err != nil {
			logger.Warnw("qdrant not reachable yet", "host", cfg.QdrantOptions.Host, "error", err.Error())
		}
		logger.Infow("Qdrant vector store initialized", "host", cfg.QdrantOptions.Host, "collection", o.Collection)
		return store.NewQdrantStore(client, o.Collection)
	}
}

func (cfg *Config) newEmbedder(rdb goredis.Cmdable) (llm.EmbeddingProvider, error) {
	e := cfg.EmbeddingOptions
	p, err := llm.NewEmbeddingProvider(e.Provider, e.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if cfg.GraphRAGOptions.Resilient {
		p = resilience.WrapEmbedding(p, retryConfig(e.MaxRetries), resilience.DefaultBreakerConfig())
	}
	if cfg.GraphRAGOptions.EmbeddingCache && rdb != nil {
		cacheCfg := llm.DefaultEmbeddingCacheConfig(e.Model)
		if cfg.GraphRAGOptions.EmbeddingCacheTTL > 0 {
			cacheCfg.TTL = cfg.GraphRAGOptions.EmbeddingCacheTTL
		}
		p = llm.NewCachedEmbeddingProvider(p, rdb, cacheCfg)
	}
	logger.Infow("Embedding provider initialized",
		"provider", e.Provider,
		"model", e.Model,
		"cached", cfg.GraphRAGOptions.EmbeddingCache && rdb != nil,
	)
	return p, nil
}

func (cfg *Config) newChat(mode string) (llm.ChatProvider, error) {
	c := cfg.ChatOptions
	conf := c.ToModeConfigMap(mode)
	// 抽取与校验都要求 JSON 输出
	conf["json_format"] = mode != llmopts.ModeSmart

	p, err := llm.NewChatProvider(c.Provider, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s chat provider: %w", mode, err)
	}
	if cfg.GraphRAGOptions.Resilient {
		p = resilience.WrapChat(p, mode, retryConfig(c.MaxRetries), resilience.DefaultBreakerConfig())
	}
	logger.Infow("Chat provider initialized", "mode", mode, "provider", c.Provider, "model", c.ModelFor(mode))
	return p, nil
}

func retryConfig(maxRetries int) *resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if maxRetries > 0 {
		rc.MaxAttempts = maxRetries + 1
	}
	return rc
}

// pingChat 供应商不支持探活时视为健康。
func pingChat(p llm.ChatProvider) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if pinger, ok := p.(llm.Pinger); ok {
			return pinger.Ping(ctx)
		}
		return nil
	}
}
