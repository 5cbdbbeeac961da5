package ask

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"golang.org/x/sync/errgroup"

	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/errors"
	"memora-api/pkg/logger"
	"memora-api/pkg/metrics"
)

// Retriever 执行混合检索：两个集合并发查询、跨集合按分数合并、父记录解析。
type Retriever struct {
	embedder embedding.Embedder
	moments  MomentStore
	files    FileContentStore

	embedTimeout  time.Duration
	searchTimeout time.Duration
}

func NewRetriever(embedder embedding.Embedder, moments MomentStore, files FileContentStore, cfg *config.Config) *Retriever {
	return &Retriever{
		embedder:      embedder,
		moments:       moments,
		files:         files,
		embedTimeout:  cfg.Retrieval.EmbedTimeout,
		searchTimeout: cfg.Retrieval.SearchTimeout,
	}
}

// Retrieve 按查询计划检索单个最优候选。
// 时刻集合查询失败是致命错误；文件集合查询失败按零结果处理。
func (r *Retriever) Retrieve(ctx context.Context, userID string, plan entity.QueryPlan, queryText string) (*RetrieveResult, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		queryText = strings.TrimSpace(plan.MustText)
	}

	result := &RetrieveResult{}

	// 1) 向量化，失败仅降级为纯词法检索
	var vector []float32
	if queryText != "" {
		vec := r.embedQuery(ctx, queryText)
		vector = vec.Value
		if vec.Degraded {
			result.Degradations = append(result.Degradations, vec.Reason)
			logger.Warn(ctx, "embedding unavailable, lexical-only retrieval", "reason", vec.Reason)
		}
	}

	// 2) 两个集合的查询体共享 owner 过滤与时间范围
	var dateRange *entity.DateRange
	var typeAnyOf []string
	if plan.Filters != nil {
		dateRange = plan.Filters.DateRange
		typeAnyOf = plan.Filters.TypeAnyOf
	}

	momentParams := &MomentSearchParams{
		UserID:    userID,
		QueryText: queryText,
		MustText:  strings.TrimSpace(plan.MustText),
		Entities:  plan.Entities,
		TypeAnyOf: typeAnyOf,
		DateRange: dateRange,
		Vector:    vector,
		Sort:      plan.Sort,
		Size:      plan.Size,
	}
	fileParams := &FileSearchParams{
		UserID:    userID,
		QueryText: queryText,
		DateRange: dateRange,
		Vector:    vector,
		Size:      plan.Size,
	}

	// 3) 并发扇出
	var momentHits []*MomentHit
	var fileHits []*FileHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.searchMoments(gctx, momentParams)
		if err != nil {
			return errors.Wrap(err, errors.CodeRetrievalFailed, "moments query failed")
		}
		momentHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := r.searchFiles(gctx, fileParams)
		if err != nil {
			// 文件集合失败不拖垮整个请求
			logger.Warn(gctx, "file-contents query degraded to empty", "error", err.Error())
			result.Degradations = append(result.Degradations, fmt.Sprintf("file-contents query failed: %v", err))
			return nil
		}
		fileHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 4) 合并：按分数降序，并保持集合内原有次序作为平局次序
	candidates := make([]*RetrievalCandidate, 0, len(momentHits)+len(fileHits))
	for _, h := range momentHits {
		if h == nil || h.Moment == nil {
			continue
		}
		candidates = append(candidates, &RetrievalCandidate{
			Origin:     OriginMoment,
			Score:      h.Score,
			Moment:     h.Moment,
			Highlights: h.Highlights,
			Artifacts:  h.Artifacts,
		})
	}
	for _, h := range fileHits {
		if h == nil || h.Doc == nil {
			continue
		}
		candidates = append(candidates, &RetrievalCandidate{
			Origin:     OriginFile,
			Score:      h.Score,
			File:       h.Doc,
			Highlights: h.Highlights,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	// 5) 零候选是正常结果
	if len(candidates) == 0 {
		result.Empty = true
		result.Highlights = []string{}
		result.Artifacts = []entity.ArtifactReference{}
		return result, nil
	}

	top := candidates[0]
	result.TopOrigin = top.Origin
	result.TopID = top.ID()
	result.Highlights = top.Highlights

	switch top.Origin {
	case OriginFile:
		result.FileContent = top.File
		parent, err := r.resolveParent(ctx, userID, top.File.MomentID)
		if err != nil {
			// 解析失败回退为裸文件命中，候选仍然非空
			result.Degradations = append(result.Degradations,
				fmt.Sprintf("parent moment %s unresolved: %v", top.File.MomentID, err))
			logger.Warn(ctx, "parent moment resolution failed, returning raw file hit",
				"moment_id", top.File.MomentID, "content_id", top.File.ContentID)
		} else {
			result.Moment = parent
			result.Artifacts = parent.SurfacedArtifacts()
		}
	default:
		result.Moment = top.Moment
		result.Artifacts = capArtifacts(top.Artifacts)
	}

	return result, nil
}

func (r *Retriever) embedQuery(ctx context.Context, text string) Outcome[[]float32] {
	if r.embedder == nil {
		return Fallback[[]float32](nil, "embedder not configured")
	}
	if r.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
	}
	v64, err := r.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return Fallback[[]float32](nil, fmt.Sprintf("embedding failed: %v", err))
	}
	if len(v64) == 0 || len(v64[0]) == 0 {
		return Fallback[[]float32](nil, "empty embedding result")
	}
	vec := make([]float32, 0, len(v64[0]))
	for _, x := range v64[0] {
		vec = append(vec, float32(x))
	}
	return Ok(vec)
}

func (r *Retriever) searchMoments(ctx context.Context, params *MomentSearchParams) ([]*MomentHit, error) {
	if r.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.searchTimeout)
		defer cancel()
	}
	start := time.Now()
	hits, err := r.moments.SearchMoments(ctx, params)
	metrics.SearchDuration.WithLabelValues("moments").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchTotal.WithLabelValues("moments", "error").Inc()
		return nil, err
	}
	metrics.SearchTotal.WithLabelValues("moments", "success").Inc()
	return hits, nil
}

func (r *Retriever) searchFiles(ctx context.Context, params *FileSearchParams) ([]*FileHit, error) {
	if r.files == nil {
		return nil, nil
	}
	if r.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.searchTimeout)
		defer cancel()
	}
	start := time.Now()
	hits, err := r.files.SearchFileContents(ctx, params)
	metrics.SearchDuration.WithLabelValues("file_contents").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchTotal.WithLabelValues("file_contents", "error").Inc()
		return nil, err
	}
	metrics.SearchTotal.WithLabelValues("file_contents", "success").Inc()
	return hits, nil
}

func (r *Retriever) resolveParent(ctx context.Context, userID, momentID string) (*entity.Moment, error) {
	if strings.TrimSpace(momentID) == "" {
		return nil, errors.ErrMomentNotFound
	}
	if r.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.searchTimeout)
		defer cancel()
	}
	m, err := r.moments.GetByMomentID(ctx, userID, momentID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.ErrMomentNotFound
	}
	return m, nil
}

func capArtifacts(refs []entity.ArtifactReference) []entity.ArtifactReference {
	if len(refs) <= entity.MaxSurfacedArtifacts {
		return refs
	}
	return refs[:entity.MaxSurfacedArtifacts]
}
