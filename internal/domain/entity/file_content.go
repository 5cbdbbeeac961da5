// Package entity 定义领域实体
package entity

import (
	"fmt"
	"time"
)

// ExtractionStatus 内容提取状态
type ExtractionStatus string

const (
	ExtractionStatusPending       ExtractionStatus = "pending"
	ExtractionStatusSuccess       ExtractionStatus = "success"
	ExtractionStatusFailed        ExtractionStatus = "failed"
	ExtractionStatusNotApplicable ExtractionStatus = "not_applicable"
)

// extractionRank 状态单调性：只允许向更终态迁移，禁止 success -> pending 之类的回退
func extractionRank(s ExtractionStatus) int {
	switch s {
	case ExtractionStatusPending:
		return 0
	case ExtractionStatusFailed:
		return 1
	case ExtractionStatusSuccess, ExtractionStatusNotApplicable:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo 校验状态迁移是否合法
func (s ExtractionStatus) CanTransitionTo(next ExtractionStatus) bool {
	from := extractionRank(s)
	to := extractionRank(next)
	if from < 0 || to < 0 {
		return false
	}
	return to >= from
}

// FileCategory 文件大类
type FileCategory string

const (
	FileCategoryImage    FileCategory = "image"
	FileCategoryDocument FileCategory = "document"
	FileCategoryAudio    FileCategory = "audio"
	FileCategoryVideo    FileCategory = "video"
	FileCategoryOther    FileCategory = "other"
)

// KindForCategory 文件大类到附件类别的映射
func KindForCategory(category FileCategory) ArtifactKind {
	switch category {
	case FileCategoryImage:
		return ArtifactKindPhoto
	case FileCategoryDocument:
		return ArtifactKindDocument
	case FileCategoryAudio:
		return ArtifactKindAudio
	case FileCategoryVideo:
		return ArtifactKindVideo
	default:
		return ArtifactKindFile
	}
}

// FileMetadata 提取过程产生的文件元数据
type FileMetadata struct {
	PageCount int    `json:"page_count,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Author    string `json:"author,omitempty"`

	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Transcript      string  `json:"transcript,omitempty"`
	OCRText         string  `json:"ocr_text,omitempty"`

	CameraMake   string     `json:"camera_make,omitempty"`
	CameraModel  string     `json:"camera_model,omitempty"`
	DateTaken    *time.Time `json:"date_taken,omitempty"`
	GPSLatitude  float64    `json:"gps_latitude,omitempty"`
	GPSLongitude float64    `json:"gps_longitude,omitempty"`
	GPSAltitude  float64    `json:"gps_altitude,omitempty"`
}

// FileContentDocument 单个文件的可检索内容文档。
// moment_id 是未被存储端约束的外键：读取时必须容忍父 Moment 缺失。
type FileContentDocument struct {
	ContentID  string `json:"content_id"`
	ArtifactID string `json:"artifact_id"`
	MomentID   string `json:"moment_id"`
	UserID     string `json:"user_id"`

	FileName     string       `json:"file_name"`
	Description  string       `json:"description,omitempty"`
	FileType     string       `json:"file_type,omitempty"`
	FileCategory FileCategory `json:"file_category,omitempty"`
	MimeType     string       `json:"mime_type,omitempty"`
	FileSize     int64        `json:"file_size,omitempty"`

	GCSPath   string `json:"gcs_path"`
	ThumbPath string `json:"thumb_path,omitempty"`

	ExtractedText   string `json:"extracted_text,omitempty"`
	ExtractedTextEn string `json:"extracted_text_en,omitempty"`

	Metadata FileMetadata `json:"metadata,omitempty"`

	ContentVector []float32 `json:"content_vector,omitempty"`

	ExtractionStatus    ExtractionStatus `json:"extraction_status"`
	ExtractionTimestamp *time.Time       `json:"extraction_timestamp,omitempty"`
	ExtractionError     string           `json:"extraction_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetExtractionStatus 应用单调状态迁移
func (d *FileContentDocument) SetExtractionStatus(next ExtractionStatus) error {
	if d.ExtractionStatus == "" {
		d.ExtractionStatus = next
		return nil
	}
	if !d.ExtractionStatus.CanTransitionTo(next) {
		return fmt.Errorf("invalid extraction status transition: %s -> %s", d.ExtractionStatus, next)
	}
	d.ExtractionStatus = next
	return nil
}
