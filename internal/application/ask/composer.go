package ask

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"memora-api/internal/application/ask/askutil"
	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/errors"
	"memora-api/pkg/metrics"
)

// MaxAnswerLength 回答文本长度上限
const MaxAnswerLength = 600

const composerSystemPrompt = "Answer strictly in 2 sentences. Use only provided facts. " +
	"If unknown, say you can't tell. If the answer comes from a file, quote the relevant content."

// composerFacts 是喂给补全模型的受限事实集。
type composerFacts struct {
	Title       string              `json:"title,omitempty"`
	Text        string              `json:"text,omitempty"`
	TextEn      string              `json:"text_en,omitempty"`
	When        *time.Time          `json:"when,omitempty"`
	Location    *entity.GeoPoint    `json:"location,omitempty"`
	Highlights  []string            `json:"highlights,omitempty"`
	Evidence    []evidenceFact      `json:"evidence,omitempty"`
	FileContent *composerFileFacts  `json:"file_content,omitempty"`
}

type evidenceFact struct {
	Kind entity.ArtifactKind `json:"kind"`
	Name string              `json:"name"`
}

type composerFileFacts struct {
	FileName      string               `json:"file_name"`
	ExtractedText string               `json:"extracted_text,omitempty"`
	CreatedAt     time.Time            `json:"created_at,omitempty"`
	Metadata      *entity.FileMetadata `json:"metadata,omitempty"`
}

// Composer 基于事实集生成受限回答。
// 补全服务失败是致命错误：没有补全就没有回答。
type Composer struct {
	factory  ChatModelFactory
	provider string
	timeout  time.Duration
}

func NewComposer(factory ChatModelFactory, cfg *config.Config) *Composer {
	provider := strings.TrimSpace(cfg.LLM.AnswerProvider)
	if provider == "" {
		provider = cfg.LLM.DefaultProvider
	}
	return &Composer{
		factory:  factory,
		provider: provider,
		timeout:  cfg.Retrieval.CompleteTimeout,
	}
}

// Compose 组装事实集并发起单次补全调用。
func (c *Composer) Compose(ctx context.Context, question string, result *RetrieveResult, evidence []entity.EvidenceItem) (*entity.GroundedAnswer, error) {
	if c == nil || c.factory == nil {
		return nil, errors.New(errors.CodeAnswerUnavailable, "answer could not be composed").WithDetail("llm factory not configured")
	}

	facts := buildFacts(result, evidence)
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeAnswerUnavailable, "failed to encode facts")
	}

	chatModel, err := c.factory.Get(ctx, c.provider)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeAnswerUnavailable, "answer model unavailable")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msgs := []*schema.Message{
		schema.SystemMessage(composerSystemPrompt),
		schema.UserMessage("Question: " + question + "\nFacts: " + string(factsJSON)),
	}

	start := time.Now()
	outMsg, err := chatModel.Generate(ctx, msgs, []model.Option{model.WithTemperature(0.2)}...)
	metrics.LLMCallDuration.WithLabelValues(c.provider, "").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(c.provider, "", "error").Inc()
		return nil, errors.Wrap(err, errors.CodeAnswerUnavailable, "completion failed")
	}
	metrics.LLMCallTotal.WithLabelValues(c.provider, "", "success").Inc()
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return nil, errors.New(errors.CodeAnswerUnavailable, "answer could not be composed").WithDetail("empty completion")
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(c.provider, "", "prompt").Add(float64(outMsg.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(c.provider, "", "completion").Add(float64(outMsg.ResponseMeta.Usage.CompletionTokens))
	}

	answerText := askutil.TruncateByRunes(askutil.CollapseNewlines(outMsg.Content), MaxAnswerLength)

	answer := &entity.GroundedAnswer{
		Question:   question,
		AnswerText: answerText,
		Evidence:   evidence,
		Highlights: result.Highlights,
	}
	if result.Moment != nil {
		ts := result.Moment.Timestamp
		answer.When = &ts
		answer.Location = result.Moment.Geo
	}
	return answer, nil
}

func buildFacts(result *RetrieveResult, evidence []entity.EvidenceItem) composerFacts {
	facts := composerFacts{
		Highlights: result.Highlights,
	}
	if result.Moment != nil {
		facts.Title = result.Moment.Title
		facts.Text = result.Moment.Text
		facts.TextEn = result.Moment.TextEn
		ts := result.Moment.Timestamp
		facts.When = &ts
		facts.Location = result.Moment.Geo
	}
	for _, ev := range evidence {
		facts.Evidence = append(facts.Evidence, evidenceFact{Kind: ev.Kind, Name: ev.Name})
	}
	if fc := result.FileContent; fc != nil {
		fileFacts := &composerFileFacts{
			FileName:      fc.FileName,
			ExtractedText: fc.ExtractedText,
			CreatedAt:     fc.CreatedAt,
		}
		if fc.Metadata != (entity.FileMetadata{}) {
			meta := fc.Metadata
			fileFacts.Metadata = &meta
		}
		facts.FileContent = fileFacts
	}
	return facts
}
