// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"memora-api/internal/application/ask"
	"memora-api/internal/domain/entity"
)

// FileSearchRequest 文件检索入参（query string）
type FileSearchRequest struct {
	Query      string
	Categories []string
	MomentIDs  []string
	Limit      int
}

// BindFileSearch 解析文件检索参数
func BindFileSearch(c *gin.Context) *FileSearchRequest {
	req := &FileSearchRequest{
		Query: strings.TrimSpace(c.Query("q")),
		Limit: 20,
	}
	if raw := strings.TrimSpace(c.Query("categories")); raw != "" {
		req.Categories = splitNonEmpty(raw)
	}
	if raw := strings.TrimSpace(c.Query("moment_ids")); raw != "" {
		req.MomentIDs = splitNonEmpty(raw)
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			req.Limit = n
		}
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	return req
}

// FileContentResponse 文件内容命中响应
type FileContentResponse struct {
	ContentID        string     `json:"content_id"`
	ArtifactID       string     `json:"artifact_id"`
	MomentID         string     `json:"moment_id"`
	FileName         string     `json:"file_name"`
	Description      string     `json:"description,omitempty"`
	FileCategory     string     `json:"file_category,omitempty"`
	MimeType         string     `json:"mime_type,omitempty"`
	FileSize         int64      `json:"file_size,omitempty"`
	ExtractionStatus string     `json:"extraction_status"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	Score            float64    `json:"score,omitempty"`
	Highlights       []string   `json:"highlights,omitempty"`
}

// ToFileContentResponse 转换文件内容文档
func ToFileContentResponse(doc *entity.FileContentDocument) FileContentResponse {
	resp := FileContentResponse{
		ContentID:        doc.ContentID,
		ArtifactID:       doc.ArtifactID,
		MomentID:         doc.MomentID,
		FileName:         doc.FileName,
		Description:      doc.Description,
		FileCategory:     string(doc.FileCategory),
		MimeType:         doc.MimeType,
		FileSize:         doc.FileSize,
		ExtractionStatus: string(doc.ExtractionStatus),
	}
	if !doc.CreatedAt.IsZero() {
		created := doc.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

// ToFileSearchResponses 转换文件检索命中列表
func ToFileSearchResponses(hits []*ask.FileHit) []FileContentResponse {
	out := make([]FileContentResponse, 0, len(hits))
	for _, hit := range hits {
		resp := ToFileContentResponse(hit.Doc)
		resp.Score = hit.Score
		resp.Highlights = hit.Highlights
		out = append(out, resp)
	}
	return out
}

// StorageBucketResponse 统计分桶
type StorageBucketResponse struct {
	Key       string `json:"key"`
	Count     int64  `json:"count"`
	TotalSize int64  `json:"total_size,omitempty"`
}

// StorageStatsResponse 存储统计响应
type StorageStatsResponse struct {
	TotalFiles       int64                   `json:"total_files"`
	TotalSize        int64                   `json:"total_size"`
	ByCategory       []StorageBucketResponse `json:"by_category"`
	ExtractionStatus []StorageBucketResponse `json:"extraction_status"`
}

func splitNonEmpty(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
