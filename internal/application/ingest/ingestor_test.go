package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
)

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, 0, len(texts))
	for range texts {
		out = append(out, f.vec)
	}
	return out, nil
}

type fakeMomentRepo struct {
	mu      sync.Mutex
	indexed []*entity.Moment
	updated []*entity.Moment
	byID    map[string]*entity.Moment
	getErr  error
}

func (f *fakeMomentRepo) IndexMoment(_ context.Context, m *entity.Moment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, m)
	return nil
}

func (f *fakeMomentRepo) UpdateMoment(_ context.Context, m *entity.Moment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, m)
	return nil
}

func (f *fakeMomentRepo) GetByMomentID(_ context.Context, _, momentID string) (*entity.Moment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if m, ok := f.byID[momentID]; ok {
		return m, nil
	}
	return nil, errors.New("moment not found")
}

type fakeFileRepo struct {
	mu       sync.Mutex
	indexed  []*entity.FileContentDocument
	failName string
}

func (f *fakeFileRepo) IndexFileContent(_ context.Context, doc *entity.FileContentDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failName != "" && doc.FileName == f.failName {
		return errors.New("index write rejected")
	}
	f.indexed = append(f.indexed, doc)
	return nil
}

type fakeExtractor struct {
	byName map[string]*Extraction
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, in *FileInput) (*Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if out, ok := f.byName[in.FileName]; ok {
		return out, nil
	}
	return &Extraction{Applicable: false}, nil
}

func newTestIngestor(embedder embedding.Embedder, moments *fakeMomentRepo, files *fakeFileRepo, extractor Extractor) *Ingestor {
	cfg := &config.Config{}
	return NewIngestor(embedder, moments, files, extractor, cfg)
}

func TestCreateMoment_EmbedsAndIndexes(t *testing.T) {
	moments := &fakeMomentRepo{}
	s := newTestIngestor(&fakeEmbedder{vec: []float64{0.5, 0.5}}, moments, &fakeFileRepo{}, nil)

	m, err := s.CreateMoment(context.Background(), "u1", &MomentInput{
		Title: "Paris Trip",
		Text:  "Visited the Eiffel Tower",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, m.MomentID)
	assert.Equal(t, "u1", m.UserID)
	assert.False(t, m.Timestamp.IsZero())
	assert.Len(t, m.Vector, 2)
	require.Len(t, moments.indexed, 1)
}

func TestCreateMoment_EmbeddingFailureStillIndexes(t *testing.T) {
	moments := &fakeMomentRepo{}
	s := newTestIngestor(&fakeEmbedder{err: errors.New("embedding down")}, moments, &fakeFileRepo{}, nil)

	m, err := s.CreateMoment(context.Background(), "u1", &MomentInput{Text: "a note"})
	require.NoError(t, err)
	assert.Nil(t, m.Vector)
	require.Len(t, moments.indexed, 1)
}

func TestCreateMoment_RequiresContent(t *testing.T) {
	s := newTestIngestor(nil, &fakeMomentRepo{}, &fakeFileRepo{}, nil)

	_, err := s.CreateMoment(context.Background(), "u1", &MomentInput{})
	assert.Error(t, err)

	_, err = s.CreateMoment(context.Background(), "", &MomentInput{Text: "x"})
	assert.Error(t, err)
}

func TestAttachFiles_SuccessfulExtraction(t *testing.T) {
	moment := &entity.Moment{MomentID: "m1", UserID: "u1"}
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{"m1": moment}}
	files := &fakeFileRepo{}
	extractor := &fakeExtractor{byName: map[string]*Extraction{
		"license.pdf": {
			Text:       "driver license renewed 2024",
			Applicable: true,
			Metadata:   entity.FileMetadata{PageCount: 2},
		},
	}}
	s := newTestIngestor(&fakeEmbedder{vec: []float64{0.1}}, moments, files, extractor)

	docs, err := s.AttachFiles(context.Background(), "u1", "m1", []*FileInput{{
		FileName: "license.pdf",
		Category: entity.FileCategoryDocument,
		MimeType: "application/pdf",
		Size:     2048,
		GCSPath:  "u1/files/license.pdf",
	}})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.NotEmpty(t, doc.ContentID)
	assert.NotEmpty(t, doc.ArtifactID)
	assert.Equal(t, "m1", doc.MomentID)
	assert.Equal(t, entity.ExtractionStatusSuccess, doc.ExtractionStatus)
	assert.Equal(t, "driver license renewed 2024", doc.ExtractedText)
	assert.Len(t, doc.ContentVector, 1)
	assert.Equal(t, 2, doc.Metadata.PageCount)

	// 附件引用写回了父时刻
	require.Len(t, moments.updated, 1)
	require.Len(t, moment.Artifacts, 1)
	assert.Equal(t, entity.ArtifactKindDocument, moment.Artifacts[0].Kind)
	assert.True(t, moment.Artifacts[0].HasContent)
	assert.Equal(t, int64(2048), moment.TotalFileSize)
}

func TestAttachFiles_ExtractionFailureIndexedAsFailed(t *testing.T) {
	moment := &entity.Moment{MomentID: "m1", UserID: "u1"}
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{"m1": moment}}
	files := &fakeFileRepo{}
	s := newTestIngestor(nil, moments, files, &fakeExtractor{err: errors.New("ocr crashed")})

	docs, err := s.AttachFiles(context.Background(), "u1", "m1", []*FileInput{{
		FileName: "scan.jpg",
		Category: entity.FileCategoryImage,
		GCSPath:  "u1/files/scan.jpg",
	}})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, entity.ExtractionStatusFailed, docs[0].ExtractionStatus)
	assert.Contains(t, docs[0].ExtractionError, "ocr crashed")
	assert.False(t, moment.Artifacts[0].HasContent)
}

func TestAttachFiles_NotApplicableCategory(t *testing.T) {
	moment := &entity.Moment{MomentID: "m1", UserID: "u1"}
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{"m1": moment}}
	s := newTestIngestor(nil, moments, &fakeFileRepo{}, &fakeExtractor{})

	docs, err := s.AttachFiles(context.Background(), "u1", "m1", []*FileInput{{
		FileName: "backup.zip",
		Category: entity.FileCategoryOther,
		GCSPath:  "u1/files/backup.zip",
	}})
	require.NoError(t, err)
	assert.Equal(t, entity.ExtractionStatusNotApplicable, docs[0].ExtractionStatus)
	assert.Empty(t, docs[0].ExtractedText)
}

func TestAttachFiles_GeoPropagatesFromFirstGPSFile(t *testing.T) {
	moment := &entity.Moment{MomentID: "m1", UserID: "u1"}
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{"m1": moment}}
	extractor := &fakeExtractor{byName: map[string]*Extraction{
		"photo.jpg": {
			Text:       "ocr text",
			Applicable: true,
			Metadata:   entity.FileMetadata{GPSLatitude: 48.8584, GPSLongitude: 2.2945},
		},
	}}
	s := newTestIngestor(nil, moments, &fakeFileRepo{}, extractor)

	_, err := s.AttachFiles(context.Background(), "u1", "m1", []*FileInput{{
		FileName: "photo.jpg",
		Category: entity.FileCategoryImage,
		GCSPath:  "u1/files/photo.jpg",
	}})
	require.NoError(t, err)

	require.NotNil(t, moment.Geo)
	assert.InDelta(t, 48.8584, moment.Geo.Lat, 1e-6)
	assert.InDelta(t, 2.2945, moment.Geo.Lon, 1e-6)
}

func TestAttachFiles_OneIndexFailureKeepsOthers(t *testing.T) {
	moment := &entity.Moment{MomentID: "m1", UserID: "u1"}
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{"m1": moment}}
	files := &fakeFileRepo{failName: "bad.pdf"}
	s := newTestIngestor(nil, moments, files, &fakeExtractor{})

	docs, err := s.AttachFiles(context.Background(), "u1", "m1", []*FileInput{
		{FileName: "good.pdf", Category: entity.FileCategoryDocument, GCSPath: "u1/files/good.pdf"},
		{FileName: "bad.pdf", Category: entity.FileCategoryDocument, GCSPath: "u1/files/bad.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.pdf", docs[0].FileName)
	assert.Len(t, moment.Artifacts, 1)
}

func TestAttachFiles_AllFailuresIsError(t *testing.T) {
	moment := &entity.Moment{MomentID: "m1", UserID: "u1"}
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{"m1": moment}}
	files := &fakeFileRepo{failName: "only.pdf"}
	s := newTestIngestor(nil, moments, files, &fakeExtractor{})

	_, err := s.AttachFiles(context.Background(), "u1", "m1", []*FileInput{
		{FileName: "only.pdf", Category: entity.FileCategoryDocument, GCSPath: "u1/files/only.pdf"},
	})
	assert.Error(t, err)
	assert.Empty(t, moments.updated)
}

func TestAttachFiles_UnknownMoment(t *testing.T) {
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{}}
	s := newTestIngestor(nil, moments, &fakeFileRepo{}, &fakeExtractor{})

	_, err := s.AttachFiles(context.Background(), "u1", "missing", []*FileInput{
		{FileName: "x.pdf", GCSPath: "u1/files/x.pdf"},
	})
	assert.Error(t, err)
}

func TestAttachFiles_BatchBoundedConcurrency(t *testing.T) {
	moment := &entity.Moment{MomentID: "m1", UserID: "u1"}
	moments := &fakeMomentRepo{byID: map[string]*entity.Moment{"m1": moment}}

	var mu sync.Mutex
	inFlight, peak := 0, 0
	extractor := extractorFunc(func(_ context.Context, _ *FileInput) (*Extraction, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return &Extraction{Text: "t", Applicable: true}, nil
	})
	s := newTestIngestor(nil, moments, &fakeFileRepo{}, extractor)

	inputs := make([]*FileInput, 0, 10)
	for i := 0; i < 10; i++ {
		inputs = append(inputs, &FileInput{
			FileName: "f.pdf",
			Category: entity.FileCategoryDocument,
			GCSPath:  "u1/files/f.pdf",
		})
	}
	docs, err := s.AttachFiles(context.Background(), "u1", "m1", inputs)
	require.NoError(t, err)
	assert.Len(t, docs, 10)
	assert.LessOrEqual(t, peak, maxExtractConcurrency)
}

type extractorFunc func(ctx context.Context, in *FileInput) (*Extraction, error)

func (f extractorFunc) Extract(ctx context.Context, in *FileInput) (*Extraction, error) {
	return f(ctx, in)
}
