package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/pkg/utils/errors"
	"github.com/kart-io/graphrag/pkg/utils/id"
	"github.com/kart-io/graphrag/pkg/utils/json"
)

// ChatRequest represents a chat request.
type ChatRequest struct {
	// 用户的问题
	Query string `json:"query" validate:"required,notblank,max=4000" example:"马斯克的太空公司是什么"`
	// 会话 ID，为空时由服务端生成
	ThreadID string `json:"thread_id" validate:"omitempty,threadid" example:"user_123"`
	Stream   bool   `json:"stream"`
}

// ChatResponse is the body of a non-streaming chat turn.
type ChatResponse struct {
	Answer           string   `json:"answer"`
	Sources          []string `json:"sources"`
	GraphData        string   `json:"graph_data"`
	ValidationStatus string   `json:"validation_status"`
}

func newChatResponse(state *biz.ConversationState) ChatResponse {
	status := string(state.ValidationStatus)
	if status == "" {
		status = "unknown"
	}
	sources := state.Entities
	if sources == nil {
		sources = []string{}
	}
	return ChatResponse{
		Answer:           state.Answer,
		Sources:          sources,
		GraphData:        state.GraphContext,
		ValidationStatus: status,
	}
}

// bindChat decodes and validates the body, fills in a thread id and echoes
// it in X-Thread-ID. It writes the 400 response itself on failure.
func (h *GraphRAGHandler) bindChat(c *gin.Context) (ChatRequest, bool) {
	var req ChatRequest
	body, err := c.GetRawData()
	if err != nil {
		fail(c, errors.ErrBadRequest.WithCause(err))
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, errors.ErrGraphRAGInvalidRequest.WithCause(err))
		return req, false
	}
	if err := h.validator.Validate(&req, lang(c)); err != nil {
		e := errors.ErrGraphRAGInvalidRequest.WithMessage(err.Error())
		if strings.TrimSpace(req.Query) == "" {
			e = errors.ErrGraphRAGEmptyQuery.WithCause(err)
		}
		fail(c, e)
		return req, false
	}

	if req.ThreadID == "" {
		req.ThreadID = id.NewULID()
	}
	c.Header(HeaderThreadID, req.ThreadID)
	return req, true
}

// Chat runs a conversation turn to completion.
//
//	@Summary		Chat
//	@Description	Runs retrieve, generate and validate until the answer passes or retries run out. stream=true switches to SSE.
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ChatRequest	true	"chat request"
//	@Success		200		{object}	ChatResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/chat [post]
func (h *GraphRAGHandler) Chat(c *gin.Context) {
	req, ok := h.bindChat(c)
	if !ok {
		return
	}
	if req.Stream {
		h.stream(c, req)
		return
	}

	logger.Infow("chat request", "thread_id", req.ThreadID, "query", req.Query)
	state, err := h.chat.Run(c.Request.Context(), req.ThreadID, req.Query, nil)
	if err != nil {
		fail(c, errors.ErrGraphRAGRunFailed.WithCause(err))
		return
	}
	c.JSON(http.StatusOK, newChatResponse(state))
}

// ChatStream streams one frame per completed step.
//
//	@Summary		Chat (SSE)
//	@Description	Server-Sent Events. Each frame is "data: <json>"; the stream ends with "data: [DONE]".
//	@Tags			chat
//	@Accept			json
//	@Produce		text/event-stream
//	@Param			request	body		ChatRequest	true	"chat request"
//	@Success		200		{string}	string		"event stream"
//	@Failure		400		{object}	ErrorResponse
//	@Router			/chat/stream [post]
func (h *GraphRAGHandler) ChatStream(c *gin.Context) {
	req, ok := h.bindChat(c)
	if !ok {
		return
	}
	h.stream(c, req)
}

func (h *GraphRAGHandler) stream(c *gin.Context, req ChatRequest) {
	logger.Infow("chat stream request", "thread_id", req.ThreadID, "query", req.Query)

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	w := newSSEWriter(c.Writer)

	_, err := h.chat.Run(c.Request.Context(), req.ThreadID, req.Query, func(ev biz.StepEvent) {
		if err := w.writeJSON(updateFrame(ev)); err != nil {
			logger.Warnw("failed to write sse frame", "thread_id", req.ThreadID, "error", err.Error())
		}
	})
	if err != nil {
		logger.Errorw("chat stream failed", "thread_id", req.ThreadID, "error", err.Error())
		_ = w.writeJSON(gin.H{"type": "error", "message": fmt.Sprintf("%s: %v", errors.ErrGraphRAGRunFailed.Message(lang(c)), err)})
		return
	}
	_ = w.done()
}

func updateFrame(ev biz.StepEvent) gin.H {
	frame := gin.H{"type": "update", "node": string(ev.Step)}
	switch ev.Step {
	case biz.StepRetrieve:
		entities := ev.State.Entities
		if entities == nil {
			entities = []string{}
		}
		frame["status"] = "retrieval_done"
		frame["entities"] = entities
	case biz.StepGenerate:
		frame["status"] = "generation_done"
	case biz.StepValidate:
		frame["status"] = "validation_done"
		frame["validation_status"] = string(ev.State.ValidationStatus)
		frame["reason"] = ev.State.ValidationReason
		frame["final_answer"] = ev.State.Answer
	}
	return frame
}

