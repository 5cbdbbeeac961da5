package ask

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"memora-api/internal/application/ask/askutil"
	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/logger"
	"memora-api/pkg/metrics"
)

const plannerSystemPrompt = `You output ONLY valid JSON for a QueryPlan. If unsure, return defaults.
The QueryPlan shape is:
{"time_intent":"last|first|range","entities":["..."],"filters":{"type_any_of":["..."],"date_range":{"from":"...","to":"..."}},"must_text":"...","sort":"asc|desc","size":1}
Defaults: {"time_intent":"last","entities":[],"sort":"desc","size":1}`

// Planner 把自由文本问题转换为结构化查询计划。
// 规划永远不向上抛错：任何失败都回退到默认计划。
type Planner struct {
	factory  ChatModelFactory
	cache    PlanCache
	provider string
	timeout  time.Duration
	maxSize  int
}

func NewPlanner(factory ChatModelFactory, cache PlanCache, cfg *config.Config) *Planner {
	provider := strings.TrimSpace(cfg.LLM.PlannerProvider)
	if provider == "" {
		provider = cfg.LLM.DefaultProvider
	}
	return &Planner{
		factory:  factory,
		cache:    cache,
		provider: provider,
		timeout:  cfg.Retrieval.CompleteTimeout,
		maxSize:  cfg.Retrieval.MaxPlanSize,
	}
}

// Plan 单次尽力而为地规划；失败时返回带原因的默认计划。
func (p *Planner) Plan(ctx context.Context, userID, text string) Outcome[entity.QueryPlan] {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback(entity.DefaultQueryPlan(), "empty question text")
	}

	if p.cache != nil {
		if cached, ok := p.cache.GetPlan(ctx, userID, text); ok && cached != nil {
			return Ok(*cached)
		}
	}

	plan, err := p.planOnce(ctx, text)
	if err != nil {
		metrics.PlanFallbackTotal.Inc()
		logger.Warn(ctx, "query planning degraded to defaults", "reason", err.Error())
		return Fallback(entity.DefaultQueryPlan(), err.Error())
	}

	if p.cache != nil {
		p.cache.SetPlan(ctx, userID, text, &plan)
	}
	return Ok(plan)
}

func (p *Planner) planOnce(ctx context.Context, text string) (entity.QueryPlan, error) {
	if p == nil || p.factory == nil {
		return entity.QueryPlan{}, errPlannerDisabled
	}

	chatModel, err := p.factory.Get(ctx, p.provider)
	if err != nil {
		return entity.QueryPlan{}, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msgs := []*schema.Message{
		schema.SystemMessage(plannerSystemPrompt),
		schema.UserMessage("Text: " + text),
	}
	opts := []model.Option{
		model.WithTemperature(0),
		openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}),
	}

	start := time.Now()
	outMsg, err := chatModel.Generate(ctx, msgs, opts...)
	metrics.LLMCallDuration.WithLabelValues(p.provider, "").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(p.provider, "", "error").Inc()
		return entity.QueryPlan{}, err
	}
	metrics.LLMCallTotal.WithLabelValues(p.provider, "", "success").Inc()
	if outMsg == nil {
		return entity.QueryPlan{}, errEmptyLLMResponse
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(p.provider, "", "prompt").Add(float64(outMsg.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(p.provider, "", "completion").Add(float64(outMsg.ResponseMeta.Usage.CompletionTokens))
	}

	raw := askutil.ExtractJSONObject(outMsg.Content)
	if raw == "" || !strings.HasPrefix(raw, "{") {
		return entity.QueryPlan{}, errNonObjectPlan
	}

	var plan entity.QueryPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return entity.QueryPlan{}, err
	}
	plan.Normalize(p.maxSize)
	return plan, nil
}
