// Package entity 定义领域实体
package entity

// TimeIntent 查询的时间意图
type TimeIntent string

const (
	TimeIntentLast  TimeIntent = "last"
	TimeIntentFirst TimeIntent = "first"
	TimeIntentRange TimeIntent = "range"
)

// SortOrder 排序方向
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DateRange 时间范围过滤（ISO8601 字符串，开闭语义交由存储端 range 查询处理）
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// PlanFilters 结构化过滤条件
type PlanFilters struct {
	TypeAnyOf []string   `json:"type_any_of,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
}

// QueryPlan 由规划器产出的结构化查询计划。
// 每个问题只产出一次，产出后不可变，仅被混合检索器消费。
type QueryPlan struct {
	TimeIntent TimeIntent   `json:"time_intent"`
	Entities   []string     `json:"entities"`
	Filters    *PlanFilters `json:"filters,omitempty"`
	MustText   string       `json:"must_text,omitempty"`
	Sort       SortOrder    `json:"sort"`
	Size       int          `json:"size"`
}

// DefaultQueryPlan 规划失败时使用的兜底计划
func DefaultQueryPlan() QueryPlan {
	return QueryPlan{
		TimeIntent: TimeIntentLast,
		Entities:   []string{},
		Sort:       SortDesc,
		Size:       1,
	}
}

// Normalize 对规划输出做字段级矫正：
// sort 仅允许 asc/desc，size 必须为正数，entities 必须为数组。
func (p *QueryPlan) Normalize(maxSize int) {
	switch p.TimeIntent {
	case TimeIntentLast, TimeIntentFirst, TimeIntentRange:
	default:
		p.TimeIntent = TimeIntentLast
	}
	if p.Sort != SortAsc {
		p.Sort = SortDesc
	}
	if p.Size <= 0 {
		p.Size = 1
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	if p.Entities == nil {
		p.Entities = []string{}
	}
}
