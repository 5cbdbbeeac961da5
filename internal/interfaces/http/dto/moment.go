// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"memora-api/internal/application/ingest"
	"memora-api/internal/domain/entity"
)

// GeoPointRequest 地理位置入参
type GeoPointRequest struct {
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// CreateMomentRequest 建档请求
type CreateMomentRequest struct {
	Timestamp time.Time        `json:"timestamp"`
	Type      string           `json:"type,omitempty"`
	Language  string           `json:"language,omitempty"`
	Title     string           `json:"title,omitempty" binding:"max=200"`
	Text      string           `json:"text" binding:"required,max=10000"`
	TextEn    string           `json:"text_en,omitempty"`
	Entities  []string         `json:"entities,omitempty"`
	Geo       *GeoPointRequest `json:"geo,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
}

// ToMomentInput 转换为摄取入参
func (r *CreateMomentRequest) ToMomentInput() *ingest.MomentInput {
	in := &ingest.MomentInput{
		Timestamp: r.Timestamp,
		Type:      r.Type,
		Language:  r.Language,
		Title:     r.Title,
		Text:      r.Text,
		TextEn:    r.TextEn,
		Entities:  r.Entities,
		Tags:      r.Tags,
	}
	if r.Geo != nil {
		in.Geo = &entity.GeoPoint{
			City:    r.Geo.City,
			Country: r.Geo.Country,
			Lat:     r.Geo.Lat,
			Lon:     r.Geo.Lon,
		}
	}
	return in
}

// ArtifactResponse 附件引用
type ArtifactResponse struct {
	ArtifactID string `json:"artifact_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name,omitempty"`
	Mime       string `json:"mime,omitempty"`
	Size       int64  `json:"size,omitempty"`
	HasContent bool   `json:"has_content"`
}

// MomentResponse 时刻档案响应，从不携带向量字段
type MomentResponse struct {
	MomentID      string             `json:"moment_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Type          string             `json:"type,omitempty"`
	Language      string             `json:"language,omitempty"`
	Title         string             `json:"title,omitempty"`
	Text          string             `json:"text,omitempty"`
	Entities      []string           `json:"entities,omitempty"`
	Geo           *GeoPointResponse  `json:"geo,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	Artifacts     []ArtifactResponse `json:"artifacts,omitempty"`
	ArtifactCount int                `json:"artifact_count"`
	TotalFileSize int64              `json:"total_file_size"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ToMomentResponse 转换时刻档案
func ToMomentResponse(m *entity.Moment) *MomentResponse {
	resp := &MomentResponse{
		MomentID:      m.MomentID,
		Timestamp:     m.Timestamp,
		Type:          m.Type,
		Language:      m.Language,
		Title:         m.Title,
		Text:          m.Text,
		Entities:      m.Entities,
		Geo:           toGeoPointResponse(m.Geo),
		Tags:          m.Tags,
		ArtifactCount: m.ArtifactCount,
		TotalFileSize: m.TotalFileSize,
		CreatedAt:     m.CreatedAt,
	}
	for _, ref := range m.Artifacts {
		resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
			ArtifactID: ref.ArtifactID,
			Kind:       string(ref.Kind),
			Name:       ref.Name,
			Mime:       ref.Mime,
			Size:       ref.Size,
			HasContent: ref.HasContent,
		})
	}
	return resp
}

// AttachFileItem 单个待附加文件
type AttachFileItem struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	Description string `json:"description,omitempty" binding:"max=1000"`
	Category    string `json:"category,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	GCSPath     string `json:"gcs_path" binding:"required"`
	ThumbPath   string `json:"thumb_path,omitempty"`
}

// AttachFilesRequest 附加文件请求
type AttachFilesRequest struct {
	Files []AttachFileItem `json:"files" binding:"required,min=1,max=20,dive"`
}

// ToFileInputs 转换为摄取入参
func (r *AttachFilesRequest) ToFileInputs() []*ingest.FileInput {
	inputs := make([]*ingest.FileInput, 0, len(r.Files))
	for _, f := range r.Files {
		inputs = append(inputs, &ingest.FileInput{
			FileName:    f.FileName,
			Description: f.Description,
			Category:    entity.FileCategory(f.Category),
			MimeType:    f.MimeType,
			Size:        f.Size,
			GCSPath:     f.GCSPath,
			ThumbPath:   f.ThumbPath,
		})
	}
	return inputs
}

// AttachFilesResponse 附加文件响应
type AttachFilesResponse struct {
	MomentID string                `json:"moment_id"`
	Attached int                   `json:"attached"`
	Files    []FileContentResponse `json:"files"`
}
