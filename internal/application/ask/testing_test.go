package ask

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
)

// ---- 测试桩 ----

type fakeChatModel struct {
	reply   string
	err     error
	lastMsg []*schema.Message
	calls   int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.lastMsg = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in tests")
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(_ context.Context, _ string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

type fakeEmbedder struct {
	vec   []float64
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, 0, len(texts))
	for range texts {
		out = append(out, f.vec)
	}
	return out, nil
}

type fakeMomentStore struct {
	hits       []*MomentHit
	searchErr  error
	byID       map[string]*entity.Moment
	getErr     error
	lastParams *MomentSearchParams
}

func (f *fakeMomentStore) SearchMoments(_ context.Context, params *MomentSearchParams) ([]*MomentHit, error) {
	f.lastParams = params
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeMomentStore) GetByMomentID(_ context.Context, _, momentID string) (*entity.Moment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if m, ok := f.byID[momentID]; ok {
		return m, nil
	}
	return nil, errors.New("moment not found")
}

type fakeFileStore struct {
	hits       []*FileHit
	searchErr  error
	lastParams *FileSearchParams
}

func (f *fakeFileStore) SearchFileContents(_ context.Context, params *FileSearchParams) ([]*FileHit, error) {
	f.lastParams = params
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

type fakeSigner struct {
	failPaths map[string]bool
	calls     int
}

func (f *fakeSigner) SignRead(_ context.Context, objectPath string, _ time.Duration) (string, error) {
	f.calls++
	if f.failPaths[objectPath] {
		return "", errors.New("signing failed")
	}
	return "https://signed.example.com/" + objectPath, nil
}

// ---- 测试配置与数据 ----

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LLM.DefaultProvider = "openai"
	cfg.LLM.PlannerProvider = "openai"
	cfg.LLM.AnswerProvider = "openai"
	cfg.Retrieval.MaxPlanSize = 25
	cfg.Evidence.SignTTLMinutes = 10
	return cfg
}

func parisMoment() *entity.Moment {
	return &entity.Moment{
		MomentID:  "m-paris",
		UserID:    "u1",
		Timestamp: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
		Title:     "Paris Trip",
		Text:      "Visited the Eiffel Tower with Anna",
		Geo:       &entity.GeoPoint{City: "Paris", Country: "France", Lat: 48.8584, Lon: 2.2945},
	}
}

func licenseFileDoc() *entity.FileContentDocument {
	return &entity.FileContentDocument{
		ContentID:        "c-license",
		ArtifactID:       "a-license",
		MomentID:         "m-license",
		UserID:           "u1",
		FileName:         "license.pdf",
		GCSPath:          "gs://memora-files/u1/license.pdf",
		ExtractedText:    "driver license renewed 2024 at the city office",
		ExtractionStatus: entity.ExtractionStatusSuccess,
		CreatedAt:        time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}
