package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
)

// ModelsResponse lists the configured models.
type ModelsResponse struct {
	Models []biz.ModelInfo `json:"models"`
}

// Health reports dependency status.
//
//	@Summary		System health
//	@Tags			monitor
//	@Produce		json
//	@Success		200	{object}	biz.HealthReport
//	@Failure		503	{object}	biz.HealthReport
//	@Router			/monitor/health [get]
func (h *GraphRAGHandler) Health(c *gin.Context) {
	report := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// Models lists model configuration without secrets.
//
//	@Summary		Model configuration
//	@Tags			monitor
//	@Produce		json
//	@Success		200	{object}	ModelsResponse
//	@Router			/monitor/models [get]
func (h *GraphRAGHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsResponse{Models: h.models.List()})
}

// Metrics exposes the service counters in Prometheus text format. It is
// mounted at the root, outside the API base path.
func (h *GraphRAGHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(h.metrics.Export("graphrag", "")))
}
