// Package handler 提供 HTTP 请求处理器
package handler

import (
	"memora-api/internal/infrastructure/persistence/elastic"
	"memora-api/internal/interfaces/http/dto"
	"memora-api/internal/interfaces/http/middleware"
	"memora-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// FileHandler 文件检索处理器
type FileHandler struct {
	files *elastic.FileContentRepository
}

// NewFileHandler 创建文件检索处理器
func NewFileHandler(files *elastic.FileContentRepository) *FileHandler {
	return &FileHandler{
		files: files,
	}
}

// Search 文件内容检索
// @Summary 文件内容检索
// @Description 按关键词检索当前用户的文件内容
// @Tags Files
// @Produce json
// @Param q query string true "检索词"
// @Param categories query string false "文件大类，逗号分隔"
// @Param moment_ids query string false "限定时刻 ID，逗号分隔"
// @Param limit query int false "条数" default(20)
// @Success 200 {object} dto.Response[[]dto.FileContentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/files/search [get]
func (h *FileHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	if userID == "" {
		dto.Unauthorized(c, "user not authenticated")
		return
	}

	req := dto.BindFileSearch(c)
	if req.Query == "" {
		dto.BadRequest(c, "query parameter q is required")
		return
	}

	hits, err := h.files.SearchByText(ctx, userID, req.Query, req.Categories, req.MomentIDs, req.Limit)
	if err != nil {
		logger.Error(ctx, "file search failed", err, "user_id", userID)
		dto.InternalError(c, "file search failed")
		return
	}

	dto.Success(c, dto.ToFileSearchResponses(hits))
}

// Stats 用户存储统计
// @Summary 用户存储统计
// @Description 返回当前用户的文件数量与体积分布
// @Tags Files
// @Produce json
// @Success 200 {object} dto.Response[dto.StorageStatsResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/files/stats [get]
func (h *FileHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	if userID == "" {
		dto.Unauthorized(c, "user not authenticated")
		return
	}

	stats, err := h.files.UserStorageStats(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to load storage stats", err, "user_id", userID)
		dto.InternalError(c, "failed to load storage stats")
		return
	}

	dto.Success(c, toStorageStatsResponse(stats))
}

func toStorageStatsResponse(stats *elastic.StorageStats) dto.StorageStatsResponse {
	resp := dto.StorageStatsResponse{
		TotalFiles:       stats.TotalFiles,
		TotalSize:        stats.TotalSize,
		ByCategory:       make([]dto.StorageBucketResponse, 0, len(stats.ByCategory)),
		ExtractionStatus: make([]dto.StorageBucketResponse, 0, len(stats.ExtractionStatus)),
	}
	for _, b := range stats.ByCategory {
		resp.ByCategory = append(resp.ByCategory, dto.StorageBucketResponse{
			Key:       b.Key,
			Count:     b.Count,
			TotalSize: b.TotalSize,
		})
	}
	for _, b := range stats.ExtractionStatus {
		resp.ExtractionStatus = append(resp.ExtractionStatus, dto.StorageBucketResponse{
			Key:   b.Key,
			Count: b.Count,
		})
	}
	return resp
}
