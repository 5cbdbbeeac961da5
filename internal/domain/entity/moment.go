// Package entity 定义领域实体
package entity

import (
	"time"
)

// MaxSurfacedArtifacts 单次查询最多返回的附件引用数
const MaxSurfacedArtifacts = 8

// ArtifactKind 附件类别
type ArtifactKind string

const (
	ArtifactKindPhoto    ArtifactKind = "photo"
	ArtifactKindDocument ArtifactKind = "document"
	ArtifactKindAudio    ArtifactKind = "audio"
	ArtifactKindVideo    ArtifactKind = "video"
	ArtifactKindFile     ArtifactKind = "file"
	ArtifactKindLink     ArtifactKind = "link"
)

// GeoPoint 地理位置
type GeoPoint struct {
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// ArtifactReference 轻量附件引用，内嵌在 Moment 文档中
type ArtifactReference struct {
	ArtifactID      string       `json:"artifact_id"`
	Kind            ArtifactKind `json:"kind"`
	Name            string       `json:"name,omitempty"`
	Mime            string       `json:"mime,omitempty"`
	Size            int64        `json:"size,omitempty"`
	GCSPath         string       `json:"gcs_path"`
	ThumbPath       string       `json:"thumb_path,omitempty"`
	HasContent      bool         `json:"has_content"`
	ContentLanguage string       `json:"content_language,omitempty"`
}

// Moment 一条生活记忆的父文档
type Moment struct {
	MomentID  string     `json:"moment_id"`
	UserID    string     `json:"user_id"`
	Timestamp time.Time  `json:"timestamp"`
	Type      string     `json:"type,omitempty"`
	Language  string     `json:"language,omitempty"`
	Title     string     `json:"title,omitempty"`
	Text      string     `json:"text,omitempty"`
	TextEn    string     `json:"text_en,omitempty"`
	Entities  []string   `json:"entities,omitempty"`
	Geo       *GeoPoint  `json:"geo,omitempty"`
	Tags      []string   `json:"tags,omitempty"`

	// 附件聚合信息：附件追加时一并更新
	Artifacts     []ArtifactReference `json:"artifacts,omitempty"`
	ArtifactCount int                 `json:"artifact_count,omitempty"`
	TotalFileSize int64               `json:"total_file_size,omitempty"`

	Vector []float32 `json:"vector,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// AppendArtifact 追加附件引用并更新聚合信息。
// 首个携带 GPS 信息的附件会把坐标写回 Moment。
func (m *Moment) AppendArtifact(ref ArtifactReference, lat, lon float64) {
	m.Artifacts = append(m.Artifacts, ref)
	m.ArtifactCount = len(m.Artifacts)
	m.TotalFileSize += ref.Size

	if lat != 0 || lon != 0 {
		if m.Geo == nil {
			m.Geo = &GeoPoint{Lat: lat, Lon: lon}
		} else if m.Geo.Lat == 0 && m.Geo.Lon == 0 {
			m.Geo.Lat = lat
			m.Geo.Lon = lon
		}
	}
}

// SurfacedArtifacts 返回最多 MaxSurfacedArtifacts 条附件引用
func (m *Moment) SurfacedArtifacts() []ArtifactReference {
	if len(m.Artifacts) <= MaxSurfacedArtifacts {
		return m.Artifacts
	}
	return m.Artifacts[:MaxSurfacedArtifacts]
}
