// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"memora-api/internal/application/ask"
	"memora-api/internal/domain/entity"
)

// AskRequest 问答请求
type AskRequest struct {
	Question string `json:"question" binding:"required,max=2000"`
}

// EvidenceItemResponse 证据条目
type EvidenceItemResponse struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	SignedURL string `json:"signed_url"`
	ThumbURL  string `json:"thumb_url,omitempty"`
	Mime      string `json:"mime,omitempty"`
	Highlight string `json:"highlight,omitempty"`
}

// GeoPointResponse 地理位置
type GeoPointResponse struct {
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// AskResponse 问答响应
type AskResponse struct {
	Question       string                 `json:"question"`
	Answer         string                 `json:"answer"`
	When           *time.Time             `json:"when,omitempty"`
	Location       *GeoPointResponse      `json:"location,omitempty"`
	Evidence       []EvidenceItemResponse `json:"evidence"`
	Highlights     []string               `json:"highlights,omitempty"`
	Empty          bool                   `json:"empty,omitempty"`
	Degraded       bool                   `json:"degraded,omitempty"`
	DegradeReasons []string               `json:"degrade_reasons,omitempty"`
}

// ToAskResponse 转换问答结果
func ToAskResponse(result *ask.AskResult) *AskResponse {
	resp := &AskResponse{
		Empty:          result.Empty,
		Degraded:       result.PlanDegraded || len(result.Degradations) > 0,
		DegradeReasons: result.Degradations,
		Evidence:       []EvidenceItemResponse{},
	}

	answer := result.Answer
	if answer == nil {
		return resp
	}

	resp.Question = answer.Question
	resp.Answer = answer.AnswerText
	resp.When = answer.When
	resp.Location = toGeoPointResponse(answer.Location)
	resp.Highlights = answer.Highlights
	for _, item := range answer.Evidence {
		resp.Evidence = append(resp.Evidence, EvidenceItemResponse{
			Kind:      string(item.Kind),
			Name:      item.Name,
			SignedURL: item.SignedURL,
			ThumbURL:  item.ThumbURL,
			Mime:      item.Mime,
			Highlight: item.Highlight,
		})
	}
	return resp
}

// AskLogResponse 问答流水记录
type AskLogResponse struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer,omitempty"`
	Status    string    `json:"status"`
	TopOrigin string    `json:"top_origin,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// ToAskLogResponses 转换问答流水列表
func ToAskLogResponses(records []*entity.AskLog) []AskLogResponse {
	out := make([]AskLogResponse, 0, len(records))
	for _, r := range records {
		out = append(out, AskLogResponse{
			ID:        r.ID,
			Question:  r.Question,
			Answer:    r.Answer,
			Status:    r.Status,
			TopOrigin: r.TopOrigin,
			LatencyMs: r.LatencyMs,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

func toGeoPointResponse(geo *entity.GeoPoint) *GeoPointResponse {
	if geo == nil {
		return nil
	}
	return &GeoPointResponse{
		City:    geo.City,
		Country: geo.Country,
		Lat:     geo.Lat,
		Lon:     geo.Lon,
	}
}
