package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EnsureIndices 建立当月的时刻索引与文件内容索引（幂等）。
func (c *Client) EnsureIndices(ctx context.Context) error {
	momentIndex := c.MomentWriteIndex(time.Now())
	if err := c.createIndexIfNotExists(ctx, momentIndex, momentMapping(c.config.VectorDims)); err != nil {
		return err
	}
	return c.createIndexIfNotExists(ctx, c.FileContentIndex(), fileContentMapping(c.config.VectorDims))
}

func (c *Client) createIndexIfNotExists(ctx context.Context, index string, mapping map[string]any) error {
	ctx, span := tracer.Start(ctx, "elasticsearch.CreateIndex")
	defer span.End()

	exists, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check index %s: %w", index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(mapping); err != nil {
		return fmt.Errorf("failed to encode mapping for %s: %w", index, err)
	}
	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		err := responseError(res)
		span.RecordError(err)
		return err
	}
	return nil
}

func momentMapping(vectorDims int) map[string]any {
	if vectorDims <= 0 {
		vectorDims = 768
	}
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"moment_id": map[string]any{"type": "keyword"},
				"user_id":   map[string]any{"type": "keyword"},
				"timestamp": map[string]any{"type": "date"},
				"type":      map[string]any{"type": "keyword"},
				"language":  map[string]any{"type": "keyword"},

				"title":   map[string]any{"type": "text"},
				"text":    map[string]any{"type": "text"},
				"text_en": map[string]any{"type": "text", "analyzer": "english"},

				"entities": map[string]any{"type": "keyword"},
				"tags":     map[string]any{"type": "keyword"},
				"geo": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"city":    map[string]any{"type": "keyword"},
						"country": map[string]any{"type": "keyword"},
						"lat":     map[string]any{"type": "float"},
						"lon":     map[string]any{"type": "float"},
					},
				},

				"artifacts": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"artifact_id":      map[string]any{"type": "keyword"},
						"kind":             map[string]any{"type": "keyword"},
						"name":             map[string]any{"type": "text", "fields": map[string]any{"keyword": map[string]any{"type": "keyword"}}},
						"mime":             map[string]any{"type": "keyword"},
						"size":             map[string]any{"type": "long"},
						"gcs_path":         map[string]any{"type": "keyword"},
						"thumb_path":       map[string]any{"type": "keyword"},
						"has_content":      map[string]any{"type": "boolean"},
						"content_language": map[string]any{"type": "keyword"},
					},
				},
				"artifact_count":  map[string]any{"type": "integer"},
				"total_file_size": map[string]any{"type": "long"},

				"vector": map[string]any{"type": "dense_vector", "dims": vectorDims, "similarity": "cosine"},

				"created_at": map[string]any{"type": "date"},
				"updated_at": map[string]any{"type": "date"},
			},
		},
	}
}

func fileContentMapping(vectorDims int) map[string]any {
	if vectorDims <= 0 {
		vectorDims = 768
	}
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 1,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"content_analyzer": map[string]any{
						"type":      "standard",
						"stopwords": "_english_",
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"content_id":  map[string]any{"type": "keyword"},
				"artifact_id": map[string]any{"type": "keyword"},
				"moment_id":   map[string]any{"type": "keyword"},
				"user_id":     map[string]any{"type": "keyword"},

				"file_name":     map[string]any{"type": "text", "fields": map[string]any{"keyword": map[string]any{"type": "keyword"}}},
				"description":   map[string]any{"type": "text"},
				"file_type":     map[string]any{"type": "keyword"},
				"file_category": map[string]any{"type": "keyword"},
				"mime_type":     map[string]any{"type": "keyword"},
				"file_size":     map[string]any{"type": "long"},

				"gcs_path":   map[string]any{"type": "keyword"},
				"thumb_path": map[string]any{"type": "keyword"},

				"extracted_text":    map[string]any{"type": "text", "analyzer": "content_analyzer"},
				"extracted_text_en": map[string]any{"type": "text", "analyzer": "english"},

				"metadata": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"page_count":       map[string]any{"type": "integer"},
						"word_count":       map[string]any{"type": "integer"},
						"author":           map[string]any{"type": "keyword"},
						"width":            map[string]any{"type": "integer"},
						"height":           map[string]any{"type": "integer"},
						"duration_seconds": map[string]any{"type": "float"},
						"transcript":       map[string]any{"type": "text"},
						"ocr_text":         map[string]any{"type": "text"},
						"camera_make":      map[string]any{"type": "keyword"},
						"camera_model":     map[string]any{"type": "keyword"},
						"date_taken":       map[string]any{"type": "date"},
						"gps_latitude":     map[string]any{"type": "float"},
						"gps_longitude":    map[string]any{"type": "float"},
						"gps_altitude":     map[string]any{"type": "float"},
					},
				},

				"content_vector": map[string]any{"type": "dense_vector", "dims": vectorDims, "similarity": "cosine"},

				"extraction_status":    map[string]any{"type": "keyword"},
				"extraction_timestamp": map[string]any{"type": "date"},
				"extraction_error":     map[string]any{"type": "text"},

				"created_at": map[string]any{"type": "date"},
				"updated_at": map[string]any{"type": "date"},
			},
		},
	}
}
