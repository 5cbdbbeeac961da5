// Package handler 提供 HTTP 请求处理器
package handler

import (
	"memora-api/internal/application/ingest"
	"memora-api/internal/interfaces/http/dto"
	"memora-api/internal/interfaces/http/middleware"
	"memora-api/pkg/errors"
	"memora-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MomentHandler 时刻建档处理器
type MomentHandler struct {
	ingestor *ingest.Ingestor
}

// NewMomentHandler 创建时刻建档处理器
func NewMomentHandler(ingestor *ingest.Ingestor) *MomentHandler {
	return &MomentHandler{
		ingestor: ingestor,
	}
}

// CreateMoment 创建时刻档案
// @Summary 创建时刻档案
// @Description 写入一条生活记忆并建立可检索索引
// @Tags Moments
// @Accept json
// @Produce json
// @Param body body dto.CreateMomentRequest true "时刻内容"
// @Success 201 {object} dto.Response[dto.MomentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/moments [post]
func (h *MomentHandler) CreateMoment(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	if userID == "" {
		dto.Unauthorized(c, "user not authenticated")
		return
	}

	var req dto.CreateMomentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	moment, err := h.ingestor.CreateMoment(ctx, userID, req.ToMomentInput())
	if err != nil {
		if errors.IsAppError(err) {
			dto.AppError(c, err)
			return
		}
		logger.Error(ctx, "failed to create moment", err, "user_id", userID)
		dto.InternalError(c, "failed to create moment")
		return
	}

	dto.Created(c, dto.ToMomentResponse(moment))
}

// AttachFiles 附加文件
// @Summary 附加文件
// @Description 为已有时刻附加文件并提取可检索内容
// @Tags Moments
// @Accept json
// @Produce json
// @Param mid path string true "时刻 ID"
// @Param body body dto.AttachFilesRequest true "文件列表"
// @Success 200 {object} dto.Response[dto.AttachFilesResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/moments/{mid}/files [post]
func (h *MomentHandler) AttachFiles(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	if userID == "" {
		dto.Unauthorized(c, "user not authenticated")
		return
	}

	momentID := c.Param("mid")
	if momentID == "" {
		dto.BadRequest(c, "moment id is required")
		return
	}

	var req dto.AttachFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	docs, err := h.ingestor.AttachFiles(ctx, userID, momentID, req.ToFileInputs())
	if err != nil {
		if errors.IsAppError(err) {
			dto.AppError(c, err)
			return
		}
		logger.Error(ctx, "failed to attach files", err,
			"user_id", userID,
			"moment_id", momentID,
		)
		dto.InternalError(c, "failed to attach files")
		return
	}

	resp := dto.AttachFilesResponse{
		MomentID: momentID,
		Attached: len(docs),
		Files:    make([]dto.FileContentResponse, 0, len(docs)),
	}
	for _, doc := range docs {
		resp.Files = append(resp.Files, dto.ToFileContentResponse(doc))
	}
	dto.Success(c, resp)
}
