package ask

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"

	"memora-api/internal/domain/entity"
)

// MomentStore 定义应用层对"时刻集合"检索的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Elasticsearch）。
type MomentStore interface {
	// SearchMoments 执行词法 + 可选向量加权的混合检索。
	SearchMoments(ctx context.Context, params *MomentSearchParams) ([]*MomentHit, error)
	// GetByMomentID 按 moment_id 精确查找（父记录解析用，size=1）。
	GetByMomentID(ctx context.Context, userID, momentID string) (*entity.Moment, error)
}

// FileContentStore 定义应用层对"文件内容集合"检索的最小依赖（port）。
type FileContentStore interface {
	SearchFileContents(ctx context.Context, params *FileSearchParams) ([]*FileHit, error)
}

// Signer 定义应用层对对象存储签名读取的最小依赖（port）。
type Signer interface {
	SignRead(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
}

// ChatModelFactory 定义应用层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// PlanCache 缓存同一问题文本的查询计划，减少重复的规划调用。
// 缓存不可用时调用方直接回源。
type PlanCache interface {
	GetPlan(ctx context.Context, userID, question string) (*entity.QueryPlan, bool)
	SetPlan(ctx context.Context, userID, question string, plan *entity.QueryPlan)
}

// AskLogRepository 定义问答流水的持久化依赖（port），写入尽力而为。
type AskLogRepository interface {
	Create(ctx context.Context, log *entity.AskLog) error
}

// MomentSearchParams 是时刻集合检索的入参。
type MomentSearchParams struct {
	UserID    string
	QueryText string
	// MustText 是规划器抽取的文本约束，与 QueryText 并列参与匹配
	MustText  string
	Entities  []string
	TypeAnyOf []string
	DateRange *entity.DateRange
	Vector    []float32
	Sort      entity.SortOrder
	Size      int
}

// FileSearchParams 是文件内容集合检索的入参。
// 实现须额外限定 extraction_status = success。
type FileSearchParams struct {
	UserID    string
	QueryText string
	DateRange *entity.DateRange
	Vector    []float32
	Size      int
}

// MomentHit 是时刻集合的单条命中。
type MomentHit struct {
	Moment     *entity.Moment
	Score      float64
	Highlights []string
	// Artifacts 来自 inner_hits，最多 8 条。
	Artifacts []entity.ArtifactReference
}

// FileHit 是文件内容集合的单条命中。
type FileHit struct {
	Doc        *entity.FileContentDocument
	Score      float64
	Highlights []string
}
