// Package graphrag provides options for the hybrid retrieval and
// orchestration core.
package graphrag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Backend names.
const (
	VectorBackendQdrant = "qdrant"
	VectorBackendMilvus = "milvus"

	GraphBackendNeo4j = "neo4j"
	GraphBackendSQL   = "sql"

	CheckpointMemory = "memory"
	CheckpointRedis  = "redis"
)

// Options contains GraphRAG-specific configuration.
type Options struct {
	// Collection 实体向量集合名。
	Collection string `json:"collection" mapstructure:"collection"`

	// TopK 实体匹配保留条数。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// VectorBackend qdrant 或 milvus。
	VectorBackend string `json:"vector-backend" mapstructure:"vector-backend"`

	// GraphBackend neo4j 或 sql。
	GraphBackend string `json:"graph-backend" mapstructure:"graph-backend"`

	// CheckpointBackend memory 或 redis。
	CheckpointBackend string        `json:"checkpoint-backend" mapstructure:"checkpoint-backend"`
	CheckpointTTL     time.Duration `json:"checkpoint-ttl" mapstructure:"checkpoint-ttl"`

	// 各外部调用的超时。
	ExtractTimeout  time.Duration `json:"extract-timeout" mapstructure:"extract-timeout"`
	LookupTimeout   time.Duration `json:"lookup-timeout" mapstructure:"lookup-timeout"`
	GraphTimeout    time.Duration `json:"graph-timeout" mapstructure:"graph-timeout"`
	GenerateTimeout time.Duration `json:"generate-timeout" mapstructure:"generate-timeout"`
	ValidateTimeout time.Duration `json:"validate-timeout" mapstructure:"validate-timeout"`
	HealthTimeout   time.Duration `json:"health-timeout" mapstructure:"health-timeout"`

	// StartupSync 启动时集合缺失或为空则后台全量同步。
	StartupSync bool `json:"startup-sync" mapstructure:"startup-sync"`
	// SyncBatchSize 写入向量库的批大小。
	SyncBatchSize int `json:"sync-batch-size" mapstructure:"sync-batch-size"`

	// EmbeddingCache 是否用 Redis 缓存查询向量。
	EmbeddingCache    bool          `json:"embedding-cache" mapstructure:"embedding-cache"`
	EmbeddingCacheTTL time.Duration `json:"embedding-cache-ttl" mapstructure:"embedding-cache-ttl"`

	// Resilient 为对话与向量化调用加上重试和熔断。
	Resilient bool `json:"resilient" mapstructure:"resilient"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Collection:        "graph_entities",
		TopK:              5,
		VectorBackend:     VectorBackendQdrant,
		GraphBackend:      GraphBackendNeo4j,
		CheckpointBackend: CheckpointMemory,
		CheckpointTTL:     24 * time.Hour,
		ExtractTimeout:    30 * time.Second,
		LookupTimeout:     10 * time.Second,
		GraphTimeout:      10 * time.Second,
		GenerateTimeout:   120 * time.Second,
		ValidateTimeout:   60 * time.Second,
		HealthTimeout:     5 * time.Second,
		StartupSync:       true,
		SyncBatchSize:     100,
		EmbeddingCacheTTL: 24 * time.Hour,
		Resilient:         true,
	}
}

// AddFlags adds flags for GraphRAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "graphrag."
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Vector collection holding entity embeddings.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of matched entities kept after fusion.")
	fs.StringVar(&o.VectorBackend, p+"vector-backend", o.VectorBackend, "Vector store backend: qdrant or milvus.")
	fs.StringVar(&o.GraphBackend, p+"graph-backend", o.GraphBackend, "Graph store backend: neo4j or sql.")
	fs.StringVar(&o.CheckpointBackend, p+"checkpoint-backend", o.CheckpointBackend, "Conversation checkpoint backend: memory or redis.")
	fs.DurationVar(&o.CheckpointTTL, p+"checkpoint-ttl", o.CheckpointTTL, "Conversation checkpoint TTL (redis backend).")
	fs.DurationVar(&o.ExtractTimeout, p+"extract-timeout", o.ExtractTimeout, "Entity extraction model call timeout.")
	fs.DurationVar(&o.LookupTimeout, p+"lookup-timeout", o.LookupTimeout, "Per-entity similarity lookup timeout.")
	fs.DurationVar(&o.GraphTimeout, p+"graph-timeout", o.GraphTimeout, "Graph relation query timeout.")
	fs.DurationVar(&o.GenerateTimeout, p+"generate-timeout", o.GenerateTimeout, "Answer generation model call timeout.")
	fs.DurationVar(&o.ValidateTimeout, p+"validate-timeout", o.ValidateTimeout, "Answer validation model call timeout.")
	fs.DurationVar(&o.HealthTimeout, p+"health-timeout", o.HealthTimeout, "Per-component health probe timeout.")
	fs.BoolVar(&o.StartupSync, p+"startup-sync", o.StartupSync, "Sync graph into the vector store at startup when the collection is missing or empty.")
	fs.IntVar(&o.SyncBatchSize, p+"sync-batch-size", o.SyncBatchSize, "Upsert batch size used by sync.")
	fs.BoolVar(&o.EmbeddingCache, p+"embedding-cache", o.EmbeddingCache, "Cache embeddings in redis.")
	fs.DurationVar(&o.EmbeddingCacheTTL, p+"embedding-cache-ttl", o.EmbeddingCacheTTL, "Embedding cache TTL.")
	fs.BoolVar(&o.Resilient, p+"resilient", o.Resilient, "Wrap model calls with retry and circuit breaker.")
}

// Validate validates the GraphRAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("graphrag.collection is required"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("graphrag.top-k must be positive"))
	}
	switch o.VectorBackend {
	case VectorBackendQdrant, VectorBackendMilvus:
	default:
		errs = append(errs, fmt.Errorf("graphrag.vector-backend %q is not supported", o.VectorBackend))
	}
	switch o.GraphBackend {
	case GraphBackendNeo4j, GraphBackendSQL:
	default:
		errs = append(errs, fmt.Errorf("graphrag.graph-backend %q is not supported", o.GraphBackend))
	}
	switch o.CheckpointBackend {
	case CheckpointMemory, CheckpointRedis:
	default:
		errs = append(errs, fmt.Errorf("graphrag.checkpoint-backend %q is not supported", o.CheckpointBackend))
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"extract-timeout", o.ExtractTimeout},
		{"lookup-timeout", o.LookupTimeout},
		{"graph-timeout", o.GraphTimeout},
		{"generate-timeout", o.GenerateTimeout},
		{"validate-timeout", o.ValidateTimeout},
		{"health-timeout", o.HealthTimeout},
	} {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("graphrag.%s must be positive", t.name))
		}
	}
	if o.SyncBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("graphrag.sync-batch-size must be positive"))
	}
	return errs
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.SyncBatchSize <= 0 {
		o.SyncBatchSize = 100
	}
	return nil
}

// NeedsRedis reports whether any component is configured to use redis.
func (o *Options) NeedsRedis() bool {
	return o.CheckpointBackend == CheckpointRedis || o.EmbeddingCache
}
