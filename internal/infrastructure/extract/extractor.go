// Package extract 提供文件内容提取实现。
// 当前仅支持文本类文件：从对象存储读取正文并建立可检索文本。
// OCR、转写等重型提取属于外部协作方，不在进程内实现。
package extract

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"memora-api/internal/application/ingest"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/logger"
)

// 单文件读取上限，超出部分截断
const defaultMaxBytes = 2 << 20

// ObjectReader 定义提取侧对对象存储的读取依赖
type ObjectReader interface {
	ReadObject(ctx context.Context, objectPath string, maxBytes int64) ([]byte, error)
}

// TextExtractor 文本类文件的内容提取器
type TextExtractor struct {
	store    ObjectReader
	maxBytes int64
}

// NewTextExtractor 创建文本提取器
func NewTextExtractor(store ObjectReader) *TextExtractor {
	return &TextExtractor{
		store:    store,
		maxBytes: defaultMaxBytes,
	}
}

// Extract 读取对象正文并产出可检索文本。
// 非文本类文件返回 Applicable=false，由调用方标记为 not_applicable。
func (e *TextExtractor) Extract(ctx context.Context, in *ingest.FileInput) (*ingest.Extraction, error) {
	if !textual(in.MimeType, in.FileName) {
		return &ingest.Extraction{Applicable: false}, nil
	}

	data, err := e.store.ReadObject(ctx, in.GCSPath, e.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", in.FileName, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return &ingest.Extraction{Applicable: false}, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%s is not valid utf-8 text", in.FileName)
	}

	if int64(len(data)) >= e.maxBytes {
		logger.Warn(ctx, "extracted text truncated",
			"file_name", in.FileName,
			"max_bytes", e.maxBytes,
		)
	}

	return &ingest.Extraction{
		Text:       text,
		Applicable: true,
		Metadata: entity.FileMetadata{
			WordCount: len(strings.Fields(text)),
		},
	}, nil
}

// textual 判断文件是否为可直接读取的文本类型
func textual(mimeType, fileName string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "text/"):
		return true
	case mt == "application/json", mt == "application/xml", mt == "application/x-yaml":
		return true
	}

	switch strings.ToLower(path.Ext(fileName)) {
	case ".txt", ".md", ".csv", ".json", ".xml", ".yaml", ".yml", ".log":
		return true
	}
	return false
}
