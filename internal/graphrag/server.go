// Package graphragsvc assembles and runs the GraphRAG service.
package graphragsvc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/internal/graphrag/handler"
	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/graphrag/router"
	"github.com/kart-io/graphrag/pkg/component/storage"
	"github.com/kart-io/graphrag/pkg/infra/app"
	"github.com/kart-io/graphrag/pkg/infra/pool"
	"github.com/kart-io/graphrag/pkg/infra/tracing"
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

// Name is the name of the application.
const Name = "graphrag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	TracingOptions   *tracingopts.Options
	QdrantOptions    *qdrantopts.Options
	MilvusOptions    *milvusopts.Options
	Neo4jOptions     *neo4jopts.Options
	GraphDBOptions   *graphdbopts.Options
	RedisOptions     *redisopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ChatOptions
	GraphRAGOptions  *graphragopts.Options
	ShutdownTimeout  time.Duration
}

// Server represents the GraphRAG server.
type Server struct {
	cfg     *Config
	engine  *gin.Engine
	syncer  *biz.SyncService
	pools   *pool.Manager
	stores  *storage.Manager
	tracer  *tracing.Provider
	metrics *metrics.GraphRAGMetrics
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting GraphRAG service...")

	// 2. 链路追踪
	if cfg.TracingOptions.ServiceName == "" {
		cfg.TracingOptions.ServiceName = Name
	}
	tracer, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// 3. 协程池
	pools, err := pool.NewDefaultManager()
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize pools: %w", err)
	}

	// 4. 存储与模型
	stores := storage.NewManager()
	d, err := cfg.connect(ctx, stores)
	if err != nil {
		_ = stores.CloseAll()
		pools.ReleaseAll()
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	s, err := cfg.assemble(d, pools, metrics.Default())
	if err != nil {
		_ = stores.CloseAll()
		pools.ReleaseAll()
		_ = tracer.Shutdown(ctx)
		return nil, err
	}
	s.stores = stores
	s.tracer = tracer

	logger.Info("GraphRAG service is ready")
	return s, nil
}

// assemble builds the biz layer, handlers and router from connected dependencies.
func (cfg *Config) assemble(d *deps, pools *pool.Manager, m *metrics.GraphRAGMetrics) (*Server, error) {
	o := cfg.GraphRAGOptions

	extractor := biz.NewExtractor(d.fast, o.ExtractTimeout, m)
	matcher := biz.NewMatcher(d.vectors, d.embedder, o.LookupTimeout, m)
	fetcher := biz.NewFetcher(d.graph, o.GraphTimeout)
	retriever := biz.NewHybridRetriever(extractor, matcher, fetcher, o.TopK, m)
	generator := biz.NewGenerator(d.smart, o.GenerateTimeout, m)
	validator := biz.NewValidator(d.strict, o.ValidateTimeout, m)
	orchestrator := biz.NewOrchestrator(retriever, generator, validator, d.checkpoints, m)
	syncer := biz.NewSyncService(d.graph, d.vectors, d.embedder, o.SyncBatchSize, m)
	catalog := biz.NewModelCatalog(cfg.ChatOptions, cfg.EmbeddingOptions, syncer.Dimension)

	healthPool, err := pools.Get(pool.HealthCheckPool)
	if err != nil {
		return nil, fmt.Errorf("failed to get health-check pool: %w", err)
	}
	health := biz.NewHealthService(healthPool, o.HealthTimeout)
	var errs []error
	for _, p := range d.probes {
		errs = append(errs, health.AddProbe(p.name, p.ping))
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		return nil, fmt.Errorf("failed to register health probes: %w", err)
	}
	logger.Infow("Biz layer initialized",
		"vector_store", d.vectors.Name(),
		"graph_store", d.graph.Name(),
		"checkpoint_backend", o.CheckpointBackend,
		"top_k", o.TopK,
	)

	h := handler.NewGraphRAGHandler(orchestrator, syncer, health, catalog, m)

	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := router.NewEngine(h, router.Options{
		AllowOrigins:  cfg.HTTPOptions.AllowOrigins,
		EnableSwagger: cfg.HTTPOptions.EnableSwagger,
	})

	return &Server{
		cfg:     cfg,
		engine:  engine,
		syncer:  syncer,
		pools:   pools,
		metrics: m,
	}, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server, kicks off the startup sync and blocks until
// ctx is cancelled or the listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTPOptions.Addr)
	if err != nil {
		s.close()
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.HTTPOptions.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	defer s.close()

	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.HTTPOptions.ReadTimeout,
		ReadHeaderTimeout: s.cfg.HTTPOptions.ReadTimeout,
		WriteTimeout:      s.cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:       s.cfg.HTTPOptions.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.cfg.GraphRAGOptions.StartupSync {
		bg, err := s.pools.Get(pool.BackgroundPool)
		if err != nil {
			logger.Warnw("background pool unavailable, startup sync runs on a plain goroutine", "error", err.Error())
		}
		s.syncer.StartupSync(ctx, bg)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down GraphRAG service...")
	case serveErr = <-errCh:
		logger.Errorw("HTTP server stopped unexpectedly", "error", serveErr.Error())
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("HTTP server shutdown incomplete", "error", err.Error())
		return errors.Join(serveErr, err)
	}
	logger.Info("GraphRAG service stopped")
	return serveErr
}

// close 逆序释放存储、协程池与追踪。
func (s *Server) close() {
	if s.stores != nil {
		if err := s.stores.CloseAll(); err != nil {
			logger.Warnw("failed to close stores", "error", err.Error())
		}
	}
	if s.pools != nil {
		if err := s.pools.ReleaseAllTimeout(5 * time.Second); err != nil {
			logger.Warnw("failed to release pools", "error", err.Error())
		}
	}
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tracer.Shutdown(ctx); err != nil {
			logger.Warnw("failed to shutdown tracer", "error", err.Error())
		}
	}
	_ = logger.Flush()
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (fast=%s smart=%s strict=%s)\n", cfg.ChatOptions.Provider,
		cfg.ChatOptions.ModelFor(llmopts.ModeFast),
		cfg.ChatOptions.ModelFor(llmopts.ModeSmart),
		cfg.ChatOptions.ModelFor(llmopts.ModeStrict))
	fmt.Printf("  Stores: vector=%s graph=%s checkpoint=%s\n",
		cfg.GraphRAGOptions.VectorBackend, cfg.GraphRAGOptions.GraphBackend, cfg.GraphRAGOptions.CheckpointBackend)
}
