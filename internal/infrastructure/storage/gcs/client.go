// Package gcs 提供 Google Cloud Storage 访问：签名 URL 与对象读取
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"

	"memora-api/internal/config"
)

var tracer = otel.Tracer("gcs")

// Client 封装 GCS 客户端与默认桶
type Client struct {
	client *storage.Client
	bucket string
}

// NewClient 创建 GCS 客户端。
// 未配置凭证文件时回落到应用默认凭证（ADC）。
func NewClient(ctx context.Context, cfg *config.GCSConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Client{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Close 关闭存储客户端
func (c *Client) Close() error {
	return c.client.Close()
}

// SignRead 签发带时限的 V4 读取 URL。
// objectPath 支持 gs://bucket/path 全路径与相对于默认桶的对象键两种形式。
func (c *Client) SignRead(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	_, span := tracer.Start(ctx, "gcs.SignRead")
	defer span.End()

	bucket, object, err := c.resolve(objectPath)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(
		attribute.String("gcs.bucket", bucket),
		attribute.String("gcs.object", object),
	)

	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	url, err := c.client.Bucket(bucket).SignedURL(object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to sign url for %s: %w", objectPath, err)
	}
	return url, nil
}

// ReadObject 读取对象内容，maxBytes > 0 时截断读取
func (c *Client) ReadObject(ctx context.Context, objectPath string, maxBytes int64) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "gcs.ReadObject")
	defer span.End()

	bucket, object, err := c.resolve(objectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("gcs.bucket", bucket),
		attribute.String("gcs.object", object),
	)

	reader, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to open object %s: %w", objectPath, err)
	}
	defer reader.Close()

	var src io.Reader = reader
	if maxBytes > 0 {
		src = io.LimitReader(reader, maxBytes)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read object %s: %w", objectPath, err)
	}
	return data, nil
}

// HealthCheck 健康检查：读取默认桶属性
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "gcs.HealthCheck")
	defer span.End()

	if _, err := c.client.Bucket(c.bucket).Attrs(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// resolve 解析对象路径：gs:// 前缀带桶名，否则落到默认桶
func (c *Client) resolve(objectPath string) (bucket, object string, err error) {
	path := strings.TrimSpace(objectPath)
	if path == "" {
		return "", "", fmt.Errorf("object path is empty")
	}

	if rest, ok := strings.CutPrefix(path, "gs://"); ok {
		bucket, object, ok = strings.Cut(rest, "/")
		if !ok || bucket == "" || object == "" {
			return "", "", fmt.Errorf("invalid gcs path: %s", objectPath)
		}
		return bucket, object, nil
	}

	return c.bucket, strings.TrimPrefix(path, "/"), nil
}
