// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"memora-api/internal/infrastructure/persistence/elastic"
	"memora-api/internal/infrastructure/persistence/postgres"
	"memora-api/internal/infrastructure/persistence/redis"
	"memora-api/internal/infrastructure/storage/gcs"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	es     *elastic.Client
	pg     *postgres.Client
	redis  *redis.Client
	signer *gcs.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(es *elastic.Client, pg *postgres.Client, redisClient *redis.Client, signer *gcs.Client) *HealthHandler {
	return &HealthHandler{
		es:     es,
		pg:     pg,
		redis:  redisClient,
		signer: signer,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{}
	ready := true

	// Elasticsearch（必需：检索与建档都依赖它）
	checks["elasticsearch"] = runCheck(ctx, h.es != nil, func(ctx context.Context) error {
		return h.es.HealthCheck(ctx)
	})
	if checks["elasticsearch"].Status != "ok" {
		ready = false
	}

	// Postgres（可选：问答流水是尽力而为的）
	checks["postgres"] = runOptionalCheck(ctx, h.pg != nil, func(ctx context.Context) error {
		return h.pg.HealthCheck(ctx)
	})

	// Redis（可选：缓存与限流降级后仍可服务）
	checks["redis"] = runOptionalCheck(ctx, h.redis != nil, func(ctx context.Context) error {
		return h.redis.HealthCheck(ctx)
	})

	// GCS（可选：签名失败时证据条目被跳过）
	checks["gcs"] = runOptionalCheck(ctx, h.signer != nil, func(ctx context.Context) error {
		return h.signer.HealthCheck(ctx)
	})

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

func runCheck(ctx context.Context, configured bool, check func(context.Context) error) *readinessCheck {
	if !configured {
		return &readinessCheck{Status: "missing", Error: "not configured"}
	}
	start := time.Now()
	err := check(ctx)
	result := &readinessCheck{LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
		return result
	}
	result.Status = "ok"
	return result
}

func runOptionalCheck(ctx context.Context, configured bool, check func(context.Context) error) *readinessCheck {
	if !configured {
		return &readinessCheck{Status: "disabled"}
	}
	result := runCheck(ctx, true, check)
	if result.Status == "error" {
		result.Status = "degraded"
	}
	return result
}
