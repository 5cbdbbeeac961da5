// Package ingest 实现时刻与文件的摄取：建档、内容提取、向量化与索引写入。
package ingest

import (
	"context"

	"memora-api/internal/domain/entity"
)

// MomentRepository 定义摄取侧对时刻索引的写入依赖（port）。
type MomentRepository interface {
	IndexMoment(ctx context.Context, moment *entity.Moment) error
	UpdateMoment(ctx context.Context, moment *entity.Moment) error
	GetByMomentID(ctx context.Context, userID, momentID string) (*entity.Moment, error)
}

// FileContentRepository 定义摄取侧对文件内容索引的写入依赖（port）。
type FileContentRepository interface {
	IndexFileContent(ctx context.Context, doc *entity.FileContentDocument) error
}

// Extraction 是一次内容提取的产出。
type Extraction struct {
	Text     string
	TextEn   string
	Language string
	Metadata entity.FileMetadata
	// Applicable 为假表示该类文件不做内容提取（例如无文本的压缩包）
	Applicable bool
}

// Extractor 定义文件内容提取依赖（port）。
// 具体实现（OCR、PDF 解析、转写）属于外部协作方。
type Extractor interface {
	Extract(ctx context.Context, in *FileInput) (*Extraction, error)
}
