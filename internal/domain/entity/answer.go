// Package entity 定义领域实体
package entity

import "time"

// EvidenceItem 面向展示的证据条目。
// 仅在签名 URL 的有效期内可用，从不持久化。
type EvidenceItem struct {
	Kind      ArtifactKind `json:"kind"`
	Name      string       `json:"name"`
	SignedURL string       `json:"signed_url"`
	ThumbURL  string       `json:"thumb_url,omitempty"`
	Mime      string       `json:"mime,omitempty"`
	Highlight string       `json:"highlight,omitempty"`
}

// GroundedAnswer 基于证据约束生成的最终回答
type GroundedAnswer struct {
	Question   string         `json:"question"`
	AnswerText string         `json:"answer_text"`
	When       *time.Time     `json:"when,omitempty"`
	Location   *GeoPoint      `json:"location,omitempty"`
	Evidence   []EvidenceItem `json:"evidence"`
	Highlights []string       `json:"highlights,omitempty"`
}
