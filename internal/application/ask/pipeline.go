package ask

import (
	"context"
	"strings"
	"time"

	"memora-api/internal/domain/entity"
	"memora-api/pkg/logger"
	"memora-api/pkg/metrics"
)

// 问答流水线状态
const (
	AskStatusAnswered = "answered"
	AskStatusEmpty    = "empty"
	AskStatusFailed   = "failed"
)

// emptyResultAnswer 两个集合都没有候选时的兜底文案
const emptyResultAnswer = "I can't tell from your memories — nothing matching was found."

// Pipeline 串起规划、检索、证据解析与作答四个阶段。
// 每个问题独立执行，阶段之间不共享可变状态。
type Pipeline struct {
	planner   *Planner
	retriever *Retriever
	evidence  *EvidenceResolver
	composer  *Composer
	askLogs   AskLogRepository
}

func NewPipeline(planner *Planner, retriever *Retriever, evidence *EvidenceResolver, composer *Composer, askLogs AskLogRepository) *Pipeline {
	return &Pipeline{
		planner:   planner,
		retriever: retriever,
		evidence:  evidence,
		composer:  composer,
		askLogs:   askLogs,
	}
}

// Ask 回答一个自然语言问题。
// 错误语义：规划失败静默降级；时刻查询失败与作答失败向上传播；
// 零候选返回空结果而非错误。
func (p *Pipeline) Ask(ctx context.Context, userID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	start := time.Now()

	planOutcome := p.planner.Plan(ctx, userID, question)
	plan := planOutcome.Value

	out := &AskResult{PlanDegraded: planOutcome.Degraded}
	if planOutcome.Degraded {
		out.Degradations = append(out.Degradations, "plan: "+planOutcome.Reason)
	}

	retrieved, err := p.retriever.Retrieve(ctx, userID, plan, question)
	if err != nil {
		p.observe(ctx, userID, question, out, nil, AskStatusFailed, start)
		return nil, err
	}
	out.Degradations = append(out.Degradations, retrieved.Degradations...)

	if retrieved.Empty {
		out.Empty = true
		out.Answer = &entity.GroundedAnswer{
			Question:   question,
			AnswerText: emptyResultAnswer,
			Evidence:   []entity.EvidenceItem{},
			Highlights: []string{},
		}
		p.observe(ctx, userID, question, out, retrieved, AskStatusEmpty, start)
		return out, nil
	}

	evidence := p.evidence.Resolve(ctx, retrieved.Artifacts)

	answer, err := p.composer.Compose(ctx, question, retrieved, evidence)
	if err != nil {
		p.observe(ctx, userID, question, out, retrieved, AskStatusFailed, start)
		return nil, err
	}
	out.Answer = answer

	p.observe(ctx, userID, question, out, retrieved, AskStatusAnswered, start)
	return out, nil
}

// observe 记录指标并尽力写入问答流水，失败只打日志。
func (p *Pipeline) observe(ctx context.Context, userID, question string, out *AskResult, retrieved *RetrieveResult, status string, start time.Time) {
	elapsed := time.Since(start)
	metrics.AskTotal.WithLabelValues(status).Inc()
	metrics.AskDuration.WithLabelValues(status).Observe(elapsed.Seconds())

	if p.askLogs == nil {
		return
	}

	record := &entity.AskLog{
		UserID:         userID,
		Question:       question,
		Status:         status,
		PlanDegraded:   out.PlanDegraded,
		DegradeReasons: strings.Join(out.Degradations, "; "),
		LatencyMs:      elapsed.Milliseconds(),
	}
	if out.Answer != nil {
		record.Answer = out.Answer.AnswerText
	}
	if retrieved != nil {
		record.TopOrigin = retrieved.TopOrigin
		record.TopID = retrieved.TopID
	}
	if err := p.askLogs.Create(context.WithoutCancel(ctx), record); err != nil {
		logger.Warn(ctx, "failed to record ask log", "error", err.Error())
	}
}
