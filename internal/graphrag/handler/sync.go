package handler

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/pkg/utils/errors"
)

// Sync rebuilds the vector collection from the graph store.
//
//	@Summary		Sync knowledge base
//	@Description	Drops and rebuilds the entity vector collection from the graph. Returns 409 while another sync runs.
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	biz.SyncResult
//	@Failure		409	{object}	ErrorResponse
//	@Router			/sync [post]
func (h *GraphRAGHandler) Sync(c *gin.Context) {
	// 客户端断开不应中断一次已开始的重建
	ctx := context.WithoutCancel(c.Request.Context())

	result, err := h.syncer.TrySync(ctx)
	switch {
	case stderrors.Is(err, biz.ErrSyncRunning):
		fail(c, errors.ErrGraphRAGSyncRunning)
		return
	case err != nil:
		fail(c, errors.ErrGraphRAGSyncFailed.WithCause(err))
		return
	}

	logger.Infow("sync request finished", "status", result.Status, "count", result.Count)
	c.JSON(http.StatusOK, result)
}
