// Package handler 提供 HTTP 请求处理器
package handler

import (
	"memora-api/internal/application/ask"
	"memora-api/internal/infrastructure/persistence/postgres"
	"memora-api/internal/interfaces/http/dto"
	"memora-api/internal/interfaces/http/middleware"
	"memora-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AskHandler 问答处理器
type AskHandler struct {
	pipeline *ask.Pipeline
	askLogs  *postgres.AskLogRepository
}

// NewAskHandler 创建问答处理器
func NewAskHandler(pipeline *ask.Pipeline, askLogs *postgres.AskLogRepository) *AskHandler {
	return &AskHandler{
		pipeline: pipeline,
		askLogs:  askLogs,
	}
}

// Ask 自然语言问答
// @Summary 自然语言问答
// @Description 基于个人记忆库回答自然语言问题
// @Tags Ask
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "问答请求"
// @Success 200 {object} dto.Response[dto.AskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/ask [post]
func (h *AskHandler) Ask(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	if userID == "" {
		dto.Unauthorized(c, "user not authenticated")
		return
	}

	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.pipeline.Ask(ctx, userID, req.Question)
	if err != nil {
		logger.Error(ctx, "ask pipeline failed", err, "user_id", userID)
		dto.AppError(c, err)
		return
	}

	dto.Success(c, dto.ToAskResponse(result))
}

// History 问答历史
// @Summary 问答历史
// @Description 返回当前用户最近的问答流水
// @Tags Ask
// @Produce json
// @Param limit query int false "条数" default(20)
// @Success 200 {object} dto.Response[[]dto.AskLogResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/ask/history [get]
func (h *AskHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	if userID == "" {
		dto.Unauthorized(c, "user not authenticated")
		return
	}

	if h.askLogs == nil {
		dto.ServiceUnavailable(c, "ask history is not available")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := parseLimit(raw); err == nil {
			limit = n
		}
	}

	records, err := h.askLogs.RecentByUser(ctx, userID, limit)
	if err != nil {
		logger.Error(ctx, "failed to load ask history", err, "user_id", userID)
		dto.InternalError(c, "failed to load ask history")
		return
	}

	dto.Success(c, dto.ToAskLogResponses(records))
}
