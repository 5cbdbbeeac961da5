package ask

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memora-api/internal/domain/entity"
)

type memoryAskLogRepo struct {
	records []*entity.AskLog
	err     error
}

func (r *memoryAskLogRepo) Create(_ context.Context, log *entity.AskLog) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, log)
	return nil
}

func newTestPipeline(planChat, answerChat *fakeChatModel, embedder *fakeEmbedder, moments *fakeMomentStore, files *fakeFileStore, logs AskLogRepository) *Pipeline {
	cfg := newTestConfig()
	// 典型 nil 指针陷阱：*fakeEmbedder(nil) 装进接口后不再是 nil 接口，
	// 只有非 nil 桩才转换
	var emb embedding.Embedder
	if embedder != nil {
		emb = embedder
	}
	planner := NewPlanner(&fakeFactory{model: planChat}, nil, cfg)
	retriever := NewRetriever(emb, moments, files, cfg)
	evidence := NewEvidenceResolver(&fakeSigner{}, cfg)
	composer := NewComposer(&fakeFactory{model: answerChat}, cfg)
	return NewPipeline(planner, retriever, evidence, composer, logs)
}

func TestAsk_EiffelTowerScenario(t *testing.T) {
	// 一条 Paris Moment、没有任何文件：计划默认 size=1，
	// 最优候选是该 Moment，证据为空，when 取 Moment 时间戳。
	planChat := &fakeChatModel{reply: "not json at all"}
	answerChat := &fakeChatModel{reply: "You saw the Eiffel Tower on your Paris trip. That was on June 15, 2024."}
	moment := parisMoment()
	moments := &fakeMomentStore{hits: []*MomentHit{{
		Moment:     moment,
		Score:      3.5,
		Highlights: []string{"Visited the Eiffel Tower with Anna"},
	}}}
	logs := &memoryAskLogRepo{}

	p := newTestPipeline(planChat, answerChat, &fakeEmbedder{vec: []float64{0.1}}, moments, &fakeFileStore{}, logs)

	out, err := p.Ask(context.Background(), "u1", "Eiffel Tower")
	require.NoError(t, err)
	require.False(t, out.Empty)
	require.True(t, out.PlanDegraded)

	require.NotNil(t, out.Answer)
	assert.Contains(t, out.Answer.AnswerText, "Eiffel Tower")
	require.NotNil(t, out.Answer.When)
	assert.Equal(t, moment.Timestamp, *out.Answer.When)
	assert.Empty(t, out.Answer.Evidence)

	// 默认计划 size=1 传入检索
	require.NotNil(t, moments.lastParams)
	assert.Equal(t, 1, moments.lastParams.Size)

	require.Len(t, logs.records, 1)
	assert.Equal(t, AskStatusAnswered, logs.records[0].Status)
	assert.Equal(t, OriginMoment, logs.records[0].TopOrigin)
	assert.True(t, logs.records[0].PlanDegraded)
}

func TestAsk_LicenseRenewalScenario(t *testing.T) {
	planChat := &fakeChatModel{reply: `{"time_intent":"last","entities":["license"],"sort":"desc","size":1}`}
	answerChat := &fakeChatModel{reply: `Your driver license was renewed in 2024: "driver license renewed 2024" (license.pdf).`}

	doc := licenseFileDoc()
	parent := &entity.Moment{
		MomentID:  doc.MomentID,
		UserID:    "u1",
		Timestamp: doc.CreatedAt,
		Title:     "License renewal",
		Artifacts: []entity.ArtifactReference{{
			ArtifactID: doc.ArtifactID,
			Kind:       entity.ArtifactKindDocument,
			Name:       "license.pdf",
			GCSPath:    "u1/files/license.pdf",
		}},
	}
	moments := &fakeMomentStore{byID: map[string]*entity.Moment{doc.MomentID: parent}}
	files := &fakeFileStore{hits: []*FileHit{{
		Doc:        doc,
		Score:      8.0,
		Highlights: []string{"driver license renewed 2024 at the city office"},
	}}}
	logs := &memoryAskLogRepo{}

	p := newTestPipeline(planChat, answerChat, &fakeEmbedder{vec: []float64{0.2}}, moments, files, logs)

	out, err := p.Ask(context.Background(), "u1", "when did I renew my license")
	require.NoError(t, err)
	require.False(t, out.Empty)
	assert.False(t, out.PlanDegraded)

	require.NotNil(t, out.Answer)
	assert.Contains(t, out.Answer.Highlights[0], "driver license renewed 2024")
	require.Len(t, out.Answer.Evidence, 1)
	assert.Equal(t, "license.pdf", out.Answer.Evidence[0].Name)
	require.NotNil(t, out.Answer.When)
	assert.Equal(t, doc.CreatedAt, *out.Answer.When)

	require.Len(t, logs.records, 1)
	assert.Equal(t, OriginFile, logs.records[0].TopOrigin)
	assert.Equal(t, doc.ContentID, logs.records[0].TopID)
}

func TestAsk_EmbeddingOutageStillAnswers(t *testing.T) {
	planChat := &fakeChatModel{reply: `{"time_intent":"last","sort":"desc","size":1}`}
	answerChat := &fakeChatModel{reply: "You visited Paris in June 2024."}
	moments := &fakeMomentStore{hits: []*MomentHit{{Moment: parisMoment(), Score: 2.0}}}

	p := newTestPipeline(planChat, answerChat, &fakeEmbedder{err: errors.New("embedding down")}, moments, &fakeFileStore{}, nil)

	out, err := p.Ask(context.Background(), "u1", "Eiffel Tower")
	require.NoError(t, err)
	require.NotNil(t, out.Answer)
	assert.NotEmpty(t, out.Degradations)
	require.NotNil(t, moments.lastParams)
	assert.Nil(t, moments.lastParams.Vector)
}

func TestAsk_ZeroCandidatesIsEmptyNotError(t *testing.T) {
	planChat := &fakeChatModel{reply: `{"time_intent":"last","sort":"desc","size":1}`}
	answerChat := &fakeChatModel{reply: "should not be called"}
	moments := &fakeMomentStore{}
	logs := &memoryAskLogRepo{}

	// 没有配置 embedder 时整条链路走纯词法检索，不能崩
	p := newTestPipeline(planChat, answerChat, nil, moments, &fakeFileStore{}, logs)

	out, err := p.Ask(context.Background(), "u1", "something that never happened")
	require.NoError(t, err)
	require.True(t, out.Empty)

	require.NotNil(t, moments.lastParams)
	assert.Nil(t, moments.lastParams.Vector)

	require.NotNil(t, out.Answer)
	assert.NotEmpty(t, out.Answer.AnswerText)
	assert.Empty(t, out.Answer.Evidence)
	assert.Zero(t, answerChat.calls)

	require.Len(t, logs.records, 1)
	assert.Equal(t, AskStatusEmpty, logs.records[0].Status)
}

func TestAsk_ComposerFailurePropagates(t *testing.T) {
	planChat := &fakeChatModel{reply: `{"time_intent":"last","sort":"desc","size":1}`}
	answerChat := &fakeChatModel{err: errors.New("provider down")}
	moments := &fakeMomentStore{hits: []*MomentHit{{Moment: parisMoment(), Score: 1.0}}}
	logs := &memoryAskLogRepo{}

	p := newTestPipeline(planChat, answerChat, nil, moments, &fakeFileStore{}, logs)

	out, err := p.Ask(context.Background(), "u1", "Paris")
	require.Error(t, err)
	assert.Nil(t, out)

	require.Len(t, logs.records, 1)
	assert.Equal(t, AskStatusFailed, logs.records[0].Status)
}

func TestAsk_LogFailureDoesNotAffectAnswer(t *testing.T) {
	planChat := &fakeChatModel{reply: `{"time_intent":"last","sort":"desc","size":1}`}
	answerChat := &fakeChatModel{reply: "Paris, June 2024."}
	moments := &fakeMomentStore{hits: []*MomentHit{{Moment: parisMoment(), Score: 1.0}}}
	logs := &memoryAskLogRepo{err: errors.New("database down")}

	p := newTestPipeline(planChat, answerChat, nil, moments, &fakeFileStore{}, logs)

	out, err := p.Ask(context.Background(), "u1", "Paris")
	require.NoError(t, err)
	require.NotNil(t, out.Answer)
}
