// Package options contains flags and options for initializing the GraphRAG server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	graphragsvc "github.com/kart-io/graphrag/internal/graphrag"
	graphdbopts "github.com/kart-io/graphrag/pkg/options/graphdb"
	graphragopts "github.com/kart-io/graphrag/pkg/options/graphrag"
	llmopts "github.com/kart-io/graphrag/pkg/options/llm"
	logopts "github.com/kart-io/graphrag/pkg/options/logger"
	milvusopts "github.com/kart-io/graphrag/pkg/options/milvus"
	neo4jopts "github.com/kart-io/graphrag/pkg/options/neo4j"
	qdrantopts "github.com/kart-io/graphrag/pkg/options/qdrant"
	redisopts "github.com/kart-io/graphrag/pkg/options/redis"
	httpopts "github.com/kart-io/graphrag/pkg/options/server/http"
	tracingopts "github.com/kart-io/graphrag/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// 向量库，graphrag.vector-backend 决定使用哪一个。
	QdrantOptions *qdrantopts.Options `json:"qdrant" mapstructure:"qdrant"`
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// 图库，graphrag.graph-backend 决定使用哪一个。
	Neo4jOptions   *neo4jopts.Options   `json:"neo4j" mapstructure:"neo4j"`
	GraphDBOptions *graphdbopts.Options `json:"graphdb" mapstructure:"graphdb"`

	// RedisOptions is used by redis checkpoints and the embedding cache.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains the chat provider and its fast/smart/strict modes.
	ChatOptions *llmopts.ChatOptions `json:"chat" mapstructure:"chat"`

	// GraphRAGOptions contains retrieval and orchestration configuration.
	GraphRAGOptions *graphragopts.Options `json:"graphrag" mapstructure:"graphrag"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		QdrantOptions:    qdrantopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		Neo4jOptions:     neo4jopts.NewOptions(),
		GraphDBOptions:   graphdbopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		GraphRAGOptions:  graphragopts.NewOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.Neo4jOptions.AddFlags(fss.FlagSet("neo4j"))
	o.GraphDBOptions.AddFlags(fss.FlagSet("graphdb"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.GraphRAGOptions.AddFlags(fss.FlagSet("graphrag"), "graphrag")

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	completers := []struct {
		name string
		c    interface{ Complete() error }
	}{
		{"http", o.HTTPOptions},
		{"log", o.LogOptions},
		{"tracing", o.TracingOptions},
		{"neo4j", o.Neo4jOptions},
		{"graphdb", o.GraphDBOptions},
		{"redis", o.RedisOptions},
		{"embedding", o.EmbeddingOptions},
		{"chat", o.ChatOptions},
		{"graphrag", o.GraphRAGOptions},
	}
	for _, c := range completers {
		if err := c.c.Complete(); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 30 * time.Second
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid. Backend
// options are only validated when the backend is selected.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.GraphRAGOptions.Validate()...)

	switch o.GraphRAGOptions.VectorBackend {
	case graphragopts.VectorBackendMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	case graphragopts.VectorBackendQdrant:
		errs = append(errs, o.QdrantOptions.Validate()...)
	}
	switch o.GraphRAGOptions.GraphBackend {
	case graphragopts.GraphBackendSQL:
		errs = append(errs, o.GraphDBOptions.Validate()...)
	case graphragopts.GraphBackendNeo4j:
		errs = append(errs, o.Neo4jOptions.Validate()...)
	}
	if o.GraphRAGOptions.NeedsRedis() {
		errs = append(errs, o.RedisOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a graphragsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*graphragsvc.Config, error) {
	return &graphragsvc.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		TracingOptions:   o.TracingOptions,
		QdrantOptions:    o.QdrantOptions,
		MilvusOptions:    o.MilvusOptions,
		Neo4jOptions:     o.Neo4jOptions,
		GraphDBOptions:   o.GraphDBOptions,
		RedisOptions:     o.RedisOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		GraphRAGOptions:  o.GraphRAGOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
