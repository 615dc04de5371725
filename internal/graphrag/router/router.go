// Package router registers the GraphRAG HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kart-io/graphrag/internal/graphrag/docs"
	"github.com/kart-io/graphrag/internal/graphrag/handler"
	"github.com/kart-io/graphrag/internal/graphrag/middleware"
	"github.com/kart-io/graphrag/pkg/utils/errors"
	"github.com/kart-io/graphrag/pkg/utils/response"
	"github.com/kart-io/graphrag/pkg/utils/validator"
)

// Options controls optional routes and the middleware chain.
type Options struct {
	AllowOrigins  []string
	EnableSwagger bool
}

// NewEngine builds a gin engine with the middleware chain and all routes.
func NewEngine(h *handler.GraphRAGHandler, opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.AccessLog("/metrics"),
		middleware.Tracing("/metrics"),
		middleware.CORS(opts.AllowOrigins),
	)
	engine.NoRoute(func(c *gin.Context) {
		lang := validator.LangFromAcceptLanguage(c.GetHeader("Accept-Language"))
		c.JSON(errors.ErrRouteNotFound.HTTPStatus(),
			response.Err(errors.ErrRouteNotFound, lang).WithRequestID(middleware.RequestIDFrom(c)))
	})

	Register(engine, h, opts.EnableSwagger)
	return engine
}

// Register registers the GraphRAG routes on engine.
func Register(engine *gin.Engine, h *handler.GraphRAGHandler, enableSwagger bool) {
	logger.Info("Registering GraphRAG routes...")

	v1 := engine.Group(docs.SwaggerInfo.BasePath)
	{
		v1.POST("/chat", h.Chat)
		v1.POST("/chat/stream", h.ChatStream)
		v1.POST("/sync", h.Sync)

		monitor := v1.Group("/monitor")
		{
			monitor.GET("/health", h.Health)
			monitor.GET("/models", h.Models)
		}
	}

	engine.GET("/metrics", h.Metrics)

	if enableSwagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	logger.Info("HTTP routes registered")
}
