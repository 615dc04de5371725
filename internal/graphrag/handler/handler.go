// Package handler provides the HTTP handlers of the GraphRAG service.
package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/graphrag/middleware"
	"github.com/kart-io/graphrag/pkg/utils/errors"
	"github.com/kart-io/graphrag/pkg/utils/response"
	"github.com/kart-io/graphrag/pkg/utils/validator"
)

// HeaderThreadID 回显实际使用的会话 ID。
const HeaderThreadID = "X-Thread-ID"

// ChatRunner runs one conversation turn.
type ChatRunner interface {
	Run(ctx context.Context, threadID, query string, observe biz.Observer) (*biz.ConversationState, error)
}

// Syncer rebuilds the vector index from the graph.
type Syncer interface {
	TrySync(ctx context.Context) (biz.SyncResult, error)
}

// HealthChecker probes every dependency.
type HealthChecker interface {
	Check(ctx context.Context) biz.HealthReport
}

// ModelLister describes the configured models.
type ModelLister interface {
	List() []biz.ModelInfo
}

// GraphRAGHandler handles GraphRAG HTTP requests.
type GraphRAGHandler struct {
	chat      ChatRunner
	syncer    Syncer
	health    HealthChecker
	models    ModelLister
	metrics   *metrics.GraphRAGMetrics
	validator *validator.Validator
}

// NewGraphRAGHandler creates a new GraphRAGHandler.
func NewGraphRAGHandler(chat ChatRunner, syncer Syncer, health HealthChecker, models ModelLister, m *metrics.GraphRAGMetrics) *GraphRAGHandler {
	if m == nil {
		m = metrics.Default()
	}
	return &GraphRAGHandler{
		chat:      chat,
		syncer:    syncer,
		health:    health,
		models:    models,
		metrics:   m,
		validator: validator.Global(),
	}
}

// ErrorResponse is a standard error response.
type ErrorResponse = response.Response

func lang(c *gin.Context) string {
	return validator.LangFromAcceptLanguage(c.GetHeader("Accept-Language"))
}

// fail writes an Errno as JSON with its HTTP status and aborts the chain.
func fail(c *gin.Context, e *errors.Errno) {
	if e.HTTPStatus() >= 500 {
		logger.Errorw("request failed",
			"path", c.Request.URL.Path,
			"code", e.Code,
			"error", e.Error(),
			"request_id", middleware.RequestIDFrom(c),
		)
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), response.Err(e, lang(c)).WithRequestID(middleware.RequestIDFrom(c)))
}
