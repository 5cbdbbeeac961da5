package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/errors"
	"memora-api/pkg/logger"
	"memora-api/pkg/metrics"
)

// maxExtractConcurrency 单批文件提取的并发上限
const maxExtractConcurrency = 3

// MomentInput 是建档入参。
type MomentInput struct {
	Timestamp time.Time
	Type      string
	Language  string
	Title     string
	Text      string
	TextEn    string
	Entities  []string
	Geo       *entity.GeoPoint
	Tags      []string
}

// FileInput 是单个待摄取文件的描述，对象本体已由上传侧写入存储。
type FileInput struct {
	FileName    string
	Description string
	Category    entity.FileCategory
	MimeType    string
	Size        int64
	GCSPath     string
	ThumbPath   string
}

// Ingestor 负责时刻建档与文件附加。
type Ingestor struct {
	embedder embedding.Embedder
	moments  MomentRepository
	files    FileContentRepository
	extract  Extractor

	embedTimeout time.Duration
}

func NewIngestor(embedder embedding.Embedder, moments MomentRepository, files FileContentRepository, extractor Extractor, cfg *config.Config) *Ingestor {
	return &Ingestor{
		embedder:     embedder,
		moments:      moments,
		files:        files,
		extract:      extractor,
		embedTimeout: cfg.Retrieval.EmbedTimeout,
	}
}

// CreateMoment 建一条时刻档案。向量化失败只降级，不阻塞建档。
func (s *Ingestor) CreateMoment(ctx context.Context, userID string, in *MomentInput) (*entity.Moment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "invalid parameter").WithDetail("user id is required")
	}
	if in == nil || (strings.TrimSpace(in.Text) == "" && strings.TrimSpace(in.Title) == "") {
		return nil, errors.New(errors.CodeInvalidParam, "invalid parameter").WithDetail("moment text or title is required")
	}

	now := time.Now().UTC()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}

	moment := &entity.Moment{
		MomentID:  uuid.NewString(),
		UserID:    userID,
		Timestamp: ts,
		Type:      in.Type,
		Language:  in.Language,
		Title:     strings.TrimSpace(in.Title),
		Text:      strings.TrimSpace(in.Text),
		TextEn:    strings.TrimSpace(in.TextEn),
		Entities:  in.Entities,
		Geo:       in.Geo,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if vec, err := s.embedText(ctx, embeddableText(moment)); err != nil {
		logger.Warn(ctx, "moment embedding skipped", "moment_id", moment.MomentID, "error", err.Error())
	} else {
		moment.Vector = vec
	}

	if err := s.moments.IndexMoment(ctx, moment); err != nil {
		return nil, errors.Wrap(err, errors.CodeIngestionFailed, "failed to index moment")
	}
	logger.Info(ctx, "moment created", "moment_id", moment.MomentID, "user_id", userID)
	return moment, nil
}

// AttachFiles 把一批已上传的文件附加到指定时刻。
// 提取与索引按文件并发执行，单文件失败不影响其余文件。
func (s *Ingestor) AttachFiles(ctx context.Context, userID, momentID string, inputs []*FileInput) ([]*entity.FileContentDocument, error) {
	if len(inputs) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "invalid parameter").WithDetail("no files supplied")
	}

	moment, err := s.moments.GetByMomentID(ctx, userID, momentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMomentNotFound, "moment not found")
	}

	type attachResult struct {
		doc *entity.FileContentDocument
		ref entity.ArtifactReference
		lat float64
		lon float64
	}

	var mu sync.Mutex
	results := make([]attachResult, 0, len(inputs))
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxExtractConcurrency)
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			doc, err := s.ingestOne(gctx, userID, momentID, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger.Error(gctx, "file ingestion failed", err, "file_name", in.FileName, "moment_id", momentID)
				return nil
			}
			results = append(results, attachResult{
				doc: doc,
				ref: artifactRef(doc),
				lat: doc.Metadata.GPSLatitude,
				lon: doc.Metadata.GPSLongitude,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, errors.New(errors.CodeIngestionFailed, "all files failed to ingest").
			WithDetail(fmt.Sprintf("%d of %d files failed", failed, len(inputs)))
	}

	docs := make([]*entity.FileContentDocument, 0, len(results))
	for _, r := range results {
		moment.AppendArtifact(r.ref, r.lat, r.lon)
		docs = append(docs, r.doc)
	}
	moment.UpdatedAt = time.Now().UTC()

	if err := s.moments.UpdateMoment(ctx, moment); err != nil {
		return nil, errors.Wrap(err, errors.CodeIngestionFailed, "failed to update moment artifacts")
	}
	return docs, nil
}

// ingestOne 处理单个文件：提取 -> 向量化（可降级）-> 写入文件内容索引。
func (s *Ingestor) ingestOne(ctx context.Context, userID, momentID string, in *FileInput) (*entity.FileContentDocument, error) {
	if in == nil || strings.TrimSpace(in.GCSPath) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "invalid parameter").WithDetail("file storage path is required")
	}

	now := time.Now().UTC()
	doc := &entity.FileContentDocument{
		ContentID:    uuid.NewString(),
		ArtifactID:   uuid.NewString(),
		MomentID:     momentID,
		UserID:       userID,
		FileName:     in.FileName,
		Description:  in.Description,
		FileType:     in.MimeType,
		FileCategory: in.Category,
		MimeType:     in.MimeType,
		FileSize:     in.Size,
		GCSPath:      in.GCSPath,
		ThumbPath:    in.ThumbPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	status := entity.ExtractionStatusSuccess
	extraction, err := s.extractContent(ctx, in)
	switch {
	case err != nil:
		status = entity.ExtractionStatusFailed
		doc.ExtractionError = err.Error()
		logger.Warn(ctx, "content extraction failed", "file_name", in.FileName, "error", err.Error())
	case !extraction.Applicable:
		status = entity.ExtractionStatusNotApplicable
	default:
		doc.ExtractedText = extraction.Text
		doc.ExtractedTextEn = extraction.TextEn
		doc.Metadata = extraction.Metadata
	}
	if err := doc.SetExtractionStatus(status); err != nil {
		return nil, err
	}
	doc.ExtractionTimestamp = &now

	// 向量化失败只降级为纯词法可检索
	if doc.ExtractedText != "" {
		if vec, err := s.embedText(ctx, doc.ExtractedText); err != nil {
			logger.Warn(ctx, "file embedding skipped", "content_id", doc.ContentID, "error", err.Error())
		} else {
			doc.ContentVector = vec
		}
	}

	if err := s.files.IndexFileContent(ctx, doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeIngestionFailed, "failed to index file content")
	}
	metrics.IngestFilesTotal.WithLabelValues(string(in.Category), string(doc.ExtractionStatus)).Inc()
	return doc, nil
}

func (s *Ingestor) extractContent(ctx context.Context, in *FileInput) (*Extraction, error) {
	if s.extract == nil {
		return &Extraction{Applicable: false}, nil
	}
	out, err := s.extract.Extract(ctx, in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return &Extraction{Applicable: false}, nil
	}
	return out, nil
}

func (s *Ingestor) embedText(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if s.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.embedTimeout)
		defer cancel()
	}
	v64, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(v64) == 0 || len(v64[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	vec := make([]float32, 0, len(v64[0]))
	for _, x := range v64[0] {
		vec = append(vec, float32(x))
	}
	return vec, nil
}

func embeddableText(m *entity.Moment) string {
	parts := make([]string, 0, 2)
	if m.Title != "" {
		parts = append(parts, m.Title)
	}
	if m.Text != "" {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}

func artifactRef(doc *entity.FileContentDocument) entity.ArtifactReference {
	return entity.ArtifactReference{
		ArtifactID:      doc.ArtifactID,
		Kind:            entity.KindForCategory(doc.FileCategory),
		Name:            doc.FileName,
		Mime:            doc.MimeType,
		Size:            doc.FileSize,
		GCSPath:         doc.GCSPath,
		ThumbPath:       doc.ThumbPath,
		HasContent:      doc.ExtractionStatus == entity.ExtractionStatusSuccess,
		ContentLanguage: contentLanguage(doc),
	}
}

func contentLanguage(doc *entity.FileContentDocument) string {
	if doc.ExtractedTextEn != "" && doc.ExtractedText != doc.ExtractedTextEn {
		return "mixed"
	}
	if doc.ExtractedText != "" {
		return "original"
	}
	return ""
}
