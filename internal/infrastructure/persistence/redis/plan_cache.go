package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"memora-api/internal/domain/entity"
	"memora-api/pkg/logger"
)

// PlanCache 缓存同一问题文本的查询计划。
// 缓存故障只打日志：规划器会直接回源。
type PlanCache struct {
	cache *Cache
	ttl   time.Duration
}

func NewPlanCache(cache *Cache, ttl time.Duration) *PlanCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PlanCache{cache: cache, ttl: ttl}
}

// GetPlan 查询缓存的计划，未命中或解码失败都按 miss 处理。
func (c *PlanCache) GetPlan(ctx context.Context, userID, question string) (*entity.QueryPlan, bool) {
	raw, err := c.cache.Get(ctx, planCacheKey(userID, question))
	if err != nil {
		if !IsNil(err) {
			logger.Warn(ctx, "plan cache read failed", "error", err.Error())
		}
		return nil, false
	}

	var plan entity.QueryPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		logger.Warn(ctx, "plan cache entry corrupt", "error", err.Error())
		return nil, false
	}
	return &plan, true
}

// SetPlan 写入计划缓存。
func (c *PlanCache) SetPlan(ctx context.Context, userID, question string, plan *entity.QueryPlan) {
	if plan == nil {
		return
	}
	if err := c.cache.Set(ctx, planCacheKey(userID, question), plan, c.ttl); err != nil {
		logger.Warn(ctx, "plan cache write failed", "error", err.Error())
	}
}

// planCacheKey 问题文本做摘要，避免把自由文本直接当键
func planCacheKey(userID, question string) string {
	sum := sha256.Sum256([]byte(question))
	return fmt.Sprintf("plan:%s:%s", userID, hex.EncodeToString(sum[:16]))
}
