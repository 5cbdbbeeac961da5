package ask

import "memora-api/internal/domain/entity"

// 候选来源标记
const (
	OriginMoment = "moment"
	OriginFile   = "file"
)

// RetrievalCandidate 是跨集合合并排序的最小单元（仅内存态，不落盘）。
type RetrievalCandidate struct {
	Origin     string
	Score      float64
	Moment     *entity.Moment
	File       *entity.FileContentDocument
	Highlights []string
	Artifacts  []entity.ArtifactReference
}

// ID 返回候选对应的主标识，用于日志与流水记录。
func (c *RetrievalCandidate) ID() string {
	switch {
	case c == nil:
		return ""
	case c.Origin == OriginFile && c.File != nil:
		return c.File.ContentID
	case c.Moment != nil:
		return c.Moment.MomentID
	}
	return ""
}

// RetrieveResult 是混合检索的产出。
// Empty 为真表示两个集合都没有候选，这是正常结果而非错误。
type RetrieveResult struct {
	// Moment 是用于作答的"命中"：moment 来源时即命中本身；
	// file 来源时是解析出的父记录，解析失败则为 nil（保留裸文件命中）。
	Moment      *entity.Moment
	FileContent *entity.FileContentDocument
	Highlights  []string
	Artifacts   []entity.ArtifactReference

	TopOrigin string
	TopID     string
	Empty     bool

	// Degradations 收集本次检索中的降级原因（向量缺失、父记录解析失败等）。
	Degradations []string
}

// AskResult 是问答管线的最终产出。
type AskResult struct {
	Answer *entity.GroundedAnswer
	// Empty 为真表示检索没有任何候选，Answer 仅含兜底文案。
	Empty        bool
	PlanDegraded bool
	Degradations []string
}
