// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"memora-api/internal/domain/entity"
)

// AskLogRepository 问答流水的持久化实现
type AskLogRepository struct {
	client *Client
}

func NewAskLogRepository(client *Client) *AskLogRepository {
	return &AskLogRepository{client: client}
}

func (r *AskLogRepository) Create(ctx context.Context, record *entity.AskLog) error {
	ctx, span := tracer.Start(ctx, "postgres.AskLogRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create ask log: %w", err)
	}
	return nil
}

// RecentByUser 返回用户最近的问答流水（时间倒序）。
func (r *AskLogRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]*entity.AskLog, error) {
	ctx, span := tracer.Start(ctx, "postgres.AskLogRepository.RecentByUser")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	var records []*entity.AskLog
	if err := r.client.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list ask logs: %w", err)
	}
	return records, nil
}

// CountByStatus 按状态统计用户的问答次数。
func (r *AskLogRepository) CountByStatus(ctx context.Context, userID, status string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.AskLogRepository.CountByStatus")
	defer span.End()

	var total int64
	if err := r.client.db.WithContext(ctx).
		Model(&entity.AskLog{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count ask logs: %w", err)
	}
	return total, nil
}
