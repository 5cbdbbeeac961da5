// Package elastic 提供 Elasticsearch 检索存储访问层实现
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"memora-api/internal/config"
)

var tracer = otel.Tracer("elasticsearch")

// Client Elasticsearch 客户端
type Client struct {
	es     *elasticsearch.Client
	config *config.ElasticsearchConfig
}

// NewClient 创建 Elasticsearch 客户端
func NewClient(cfg *config.ElasticsearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Client{es: es, config: cfg}, nil
}

// ES 获取底层 Elasticsearch 客户端
func (c *Client) ES() *elasticsearch.Client {
	return c.es
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "elasticsearch.HealthCheck")
	defer span.End()

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("health check failed: %s", res.Status())
	}
	return nil
}

// MomentWriteIndex 按月滚动的写入索引名：<prefix>-YYYY-MM
func (c *Client) MomentWriteIndex(t time.Time) string {
	return fmt.Sprintf("%s-%04d-%02d", c.config.MomentIndexPrefix, t.UTC().Year(), int(t.UTC().Month()))
}

// MomentSearchIndex 检索时用通配符覆盖全部月份索引
func (c *Client) MomentSearchIndex() string {
	return c.config.MomentIndexPrefix + "-*"
}

// FileContentIndex 文件内容索引名
func (c *Client) FileContentIndex() string {
	return c.config.FileContentIndex
}

// searchHit 单条检索命中
type searchHit struct {
	ID        string                    `json:"_id"`
	Score     *float64                  `json:"_score"`
	Source    json.RawMessage           `json:"_source"`
	Highlight map[string][]string       `json:"highlight"`
	InnerHits map[string]innerHitsBlock `json:"inner_hits"`
}

type innerHitsBlock struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// search 执行一次检索并解析响应
func (c *Client) search(ctx context.Context, index string, body map[string]any) (*searchResponse, error) {
	ctx, span := tracer.Start(ctx, "elasticsearch.Search")
	defer span.End()
	span.SetAttributes(attribute.String("es.index", index))

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		err := responseError(res)
		span.RecordError(err)
		return nil, err
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	span.SetAttributes(attribute.Int("es.hits", len(out.Hits.Hits)))
	return &out, nil
}

// indexDoc 按文档 ID 写入（已存在则覆盖）
func (c *Client) indexDoc(ctx context.Context, index, id string, doc any) error {
	ctx, span := tracer.Start(ctx, "elasticsearch.Index")
	defer span.End()
	span.SetAttributes(
		attribute.String("es.index", index),
		attribute.String("es.doc_id", id),
	)

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	res, err := c.es.Index(
		index,
		bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		err := responseError(res)
		span.RecordError(err)
		return err
	}
	return nil
}

func responseError(res *esapi.Response) error {
	raw, _ := io.ReadAll(res.Body)
	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Type != "" {
		return fmt.Errorf("elasticsearch error [%s] %s: %s", res.Status(), payload.Error.Type, payload.Error.Reason)
	}
	return fmt.Errorf("elasticsearch error [%s]: %s", res.Status(), bytes.TrimSpace(raw))
}
