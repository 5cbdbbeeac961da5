// Package entity 定义领域实体
package entity

import "time"

// AskLog 问答流水记录，用于排障与用量审计。
// 写入是尽力而为的：记录失败不影响请求本身。
type AskLog struct {
	ID       string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID   string `json:"user_id" gorm:"type:varchar(64);index;not null"`
	Question string `json:"question" gorm:"type:text;not null"`
	Answer   string `json:"answer" gorm:"type:text"`

	// Status: answered / empty / failed
	Status string `json:"status" gorm:"type:varchar(16);index;not null"`

	TopOrigin string `json:"top_origin,omitempty" gorm:"type:varchar(16)"`
	TopID     string `json:"top_id,omitempty" gorm:"type:varchar(64)"`

	PlanDegraded   bool   `json:"plan_degraded" gorm:"not null;default:false"`
	DegradeReasons string `json:"degrade_reasons,omitempty" gorm:"type:text"`

	LatencyMs int64     `json:"latency_ms" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (AskLog) TableName() string {
	return "ask_logs"
}
