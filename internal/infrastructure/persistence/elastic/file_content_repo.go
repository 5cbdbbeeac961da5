package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"memora-api/internal/application/ask"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/errors"
)

// fileSearchFields 文件内容检索的字段权重
var fileSearchFields = []string{"extracted_text^2", "extracted_text_en", "file_name^1.5", "description"}

// FileContentRepository 文件内容集合的检索与写入
type FileContentRepository struct {
	client *Client
}

func NewFileContentRepository(client *Client) *FileContentRepository {
	return &FileContentRepository{client: client}
}

// SearchFileContents 混合检索文件内容集合。
// 只命中提取成功的文档；排序先看相关性分数，再看创建时间。
func (r *FileContentRepository) SearchFileContents(ctx context.Context, params *ask.FileSearchParams) ([]*ask.FileHit, error) {
	size := params.Size
	if size <= 0 {
		size = 1
	}

	queryText := strings.TrimSpace(params.QueryText)
	var must []map[string]any
	if queryText != "" {
		must = append(must, fuzzyMultiMatch(queryText, fileSearchFields))
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	filter := []map[string]any{
		termQuery("user_id", params.UserID),
		termQuery("extraction_status", string(entity.ExtractionStatusSuccess)),
	}
	if params.DateRange != nil {
		filter = append(filter, rangeQuery("created_at", params.DateRange))
	}

	query := map[string]any{"bool": map[string]any{"must": must, "filter": filter}}

	body := map[string]any{
		"size":      size,
		"query":     withSimilarityBoost(query, "content_vector", params.Vector),
		"highlight": fileHighlight(),
		"sort": []any{
			map[string]any{"_score": map[string]any{"order": "desc"}},
			map[string]any{"created_at": map[string]any{"order": "desc"}},
		},
		"_source": map[string]any{
			"excludes": []string{"content_vector"},
		},
	}

	res, err := r.client.search(ctx, r.client.FileContentIndex(), body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSearchStoreError, "file contents search failed")
	}
	return decodeFileHits(res)
}

// SearchByText 词法检索文件内容，供文件检索接口直接使用。
func (r *FileContentRepository) SearchByText(ctx context.Context, userID, query string, categories []string, momentIDs []string, limit int) ([]*ask.FileHit, error) {
	if limit <= 0 {
		limit = 10
	}

	must := []map[string]any{termQuery("user_id", userID)}
	if len(categories) > 0 {
		must = append(must, termsQuery("file_category", categories))
	}
	if len(momentIDs) > 0 {
		must = append(must, termsQuery("moment_id", momentIDs))
	}
	must = append(must, fuzzyMultiMatch(query, fileSearchFields))

	body := map[string]any{
		"size":      limit,
		"query":     map[string]any{"bool": map[string]any{"must": must}},
		"highlight": fileHighlight(),
		"_source": map[string]any{
			"excludes": []string{"content_vector"},
		},
	}

	res, err := r.client.search(ctx, r.client.FileContentIndex(), body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSearchStoreError, "file contents search failed")
	}
	return decodeFileHits(res)
}

// IndexFileContent 写入文件内容索引。
func (r *FileContentRepository) IndexFileContent(ctx context.Context, doc *entity.FileContentDocument) error {
	if err := r.client.indexDoc(ctx, r.client.FileContentIndex(), doc.ContentID, doc); err != nil {
		return errors.Wrap(err, errors.CodeSearchStoreError, "failed to index file content")
	}
	return nil
}

// CategoryBucket 单个分桶的聚合结果
type CategoryBucket struct {
	Key       string `json:"key"`
	Count     int64  `json:"doc_count"`
	TotalSize int64  `json:"total_size,omitempty"`
}

// StorageStats 用户文件存储统计
type StorageStats struct {
	TotalFiles       int64            `json:"total_files"`
	TotalSize        int64            `json:"total_size"`
	ByCategory       []CategoryBucket `json:"by_category"`
	ExtractionStatus []CategoryBucket `json:"extraction_status"`
}

// UserStorageStats 聚合统计用户的文件数量与体积分布。
func (r *FileContentRepository) UserStorageStats(ctx context.Context, userID string) (*StorageStats, error) {
	body := map[string]any{
		"size":  0,
		"query": termQuery("user_id", userID),
		"aggs": map[string]any{
			"total_size": map[string]any{"sum": map[string]any{"field": "file_size"}},
			"by_category": map[string]any{
				"terms": map[string]any{"field": "file_category"},
				"aggs": map[string]any{
					"total_size": map[string]any{"sum": map[string]any{"field": "file_size"}},
				},
			},
			"extraction_status": map[string]any{
				"terms": map[string]any{"field": "extraction_status"},
			},
		},
	}

	res, err := r.client.search(ctx, r.client.FileContentIndex(), body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSearchStoreError, "storage stats query failed")
	}

	stats := &StorageStats{TotalFiles: res.Hits.Total.Value}
	if raw, ok := res.Aggregations["total_size"]; ok {
		var agg struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &agg); err == nil {
			stats.TotalSize = int64(agg.Value)
		}
	}
	stats.ByCategory = decodeBuckets(res.Aggregations["by_category"])
	stats.ExtractionStatus = decodeBuckets(res.Aggregations["extraction_status"])
	return stats, nil
}

func decodeFileHits(res *searchResponse) ([]*ask.FileHit, error) {
	hits := make([]*ask.FileHit, 0, len(res.Hits.Hits))
	for i := range res.Hits.Hits {
		hit := &res.Hits.Hits[i]
		var doc entity.FileContentDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode file content document: %w", err)
		}
		hits = append(hits, &ask.FileHit{
			Doc:        &doc,
			Score:      hitScore(hit),
			Highlights: flattenHighlights(hit, "extracted_text", "extracted_text_en", "file_name"),
		})
	}
	return hits, nil
}

func decodeBuckets(raw json.RawMessage) []CategoryBucket {
	if len(raw) == 0 {
		return nil
	}
	var agg struct {
		Buckets []struct {
			Key      string `json:"key"`
			DocCount int64  `json:"doc_count"`
			Total    *struct {
				Value float64 `json:"value"`
			} `json:"total_size"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &agg); err != nil {
		return nil
	}
	out := make([]CategoryBucket, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		bucket := CategoryBucket{Key: b.Key, Count: b.DocCount}
		if b.Total != nil {
			bucket.TotalSize = int64(b.Total.Value)
		}
		out = append(out, bucket)
	}
	return out
}
