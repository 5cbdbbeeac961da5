package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"memora-api/internal/application/ask"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/errors"
)

// MomentRepository 时刻集合的检索与写入
type MomentRepository struct {
	client *Client
}

func NewMomentRepository(client *Client) *MomentRepository {
	return &MomentRepository{client: client}
}

// SearchMoments 混合检索时刻集合。
// 无向量时按时间戳排序；有向量时由加权后的综合分数决定次序。
func (r *MomentRepository) SearchMoments(ctx context.Context, params *ask.MomentSearchParams) ([]*ask.MomentHit, error) {
	body := buildMomentSearchBody(params)

	res, err := r.client.search(ctx, r.client.MomentSearchIndex(), body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSearchStoreError, "moments search failed")
	}

	hits := make([]*ask.MomentHit, 0, len(res.Hits.Hits))
	for i := range res.Hits.Hits {
		hit := &res.Hits.Hits[i]
		moment, err := decodeMoment(hit.Source)
		if err != nil {
			return nil, err
		}
		hits = append(hits, &ask.MomentHit{
			Moment:     moment,
			Score:      hitScore(hit),
			Highlights: flattenHighlights(hit, "text", "title"),
			Artifacts:  decodeArtifactInnerHits(hit),
		})
	}
	return hits, nil
}

// buildMomentSearchBody 组装时刻集合的查询体。
// 附件 inner_hits 放在 should 里：它只负责带出附件引用，
// 放进 must 会把没有任何附件的时刻整体排除掉。
func buildMomentSearchBody(params *ask.MomentSearchParams) map[string]any {
	size := params.Size
	if size <= 0 {
		size = 1
	}

	var must []map[string]any
	textFields := []string{"text^2", "title^3", "text_en", "entities"}
	queryText := strings.TrimSpace(params.QueryText)
	mustText := strings.TrimSpace(params.MustText)
	if mustText == queryText {
		mustText = ""
	}
	switch {
	case queryText != "" && mustText != "":
		// 问题原文与规划器抽取的约束任一命中即可
		must = append(must, map[string]any{"bool": map[string]any{
			"should": []map[string]any{
				fuzzyMultiMatch(queryText, textFields),
				fuzzyMultiMatch(mustText, textFields),
			},
			"minimum_should_match": 1,
		}})
	case queryText != "":
		must = append(must, fuzzyMultiMatch(queryText, textFields))
	case mustText != "":
		must = append(must, fuzzyMultiMatch(mustText, textFields))
	}
	if len(params.Entities) > 0 {
		must = append(must, boostedTermsQuery("entities", params.Entities, 2.0))
	}
	if len(params.TypeAnyOf) > 0 {
		must = append(must, termsQuery("type", params.TypeAnyOf))
	}
	// 没有任何文本/实体约束时退化为 match_all
	if len(must) == 0 {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	filter := []map[string]any{termQuery("user_id", params.UserID)}
	if params.DateRange != nil {
		filter = append(filter, rangeQuery("timestamp", params.DateRange))
	}

	query := map[string]any{"bool": map[string]any{
		"must":   must,
		"filter": filter,
		"should": []map[string]any{artifactsInnerHits()},
	}}

	body := map[string]any{
		"size":      size,
		"query":     withSimilarityBoost(query, "vector", params.Vector),
		"highlight": momentHighlight(),
		"_source": map[string]any{
			"excludes": []string{"vector"},
		},
	}
	// 向量加权存在时综合分数决定排序，否则按时间戳。
	// 字段排序下 ES 默认不算 _score，跨集合合并仍要分数，显式打开。
	if len(params.Vector) == 0 {
		order := "desc"
		if params.Sort == entity.SortAsc {
			order = "asc"
		}
		body["sort"] = []map[string]any{{"timestamp": map[string]any{"order": order}}}
		body["track_scores"] = true
	}
	return body
}

// GetByMomentID 精确查找父时刻（size=1）。
func (r *MomentRepository) GetByMomentID(ctx context.Context, userID, momentID string) (*entity.Moment, error) {
	body := map[string]any{
		"size": 1,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					termQuery("moment_id", momentID),
					termQuery("user_id", userID),
				},
			},
		},
		"_source": map[string]any{"excludes": []string{"vector"}},
	}

	res, err := r.client.search(ctx, r.client.MomentSearchIndex(), body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSearchStoreError, "moment lookup failed")
	}
	if len(res.Hits.Hits) == 0 {
		return nil, errors.ErrMomentNotFound
	}
	return decodeMoment(res.Hits.Hits[0].Source)
}

// IndexMoment 写入按月滚动的时刻索引。
func (r *MomentRepository) IndexMoment(ctx context.Context, moment *entity.Moment) error {
	index := r.client.MomentWriteIndex(moment.Timestamp)
	if err := r.client.indexDoc(ctx, index, moment.MomentID, moment); err != nil {
		return errors.Wrap(err, errors.CodeSearchStoreError, "failed to index moment")
	}
	return nil
}

// UpdateMoment 覆盖写同一文档（附件追加等聚合更新）。
func (r *MomentRepository) UpdateMoment(ctx context.Context, moment *entity.Moment) error {
	return r.IndexMoment(ctx, moment)
}

func decodeMoment(raw json.RawMessage) (*entity.Moment, error) {
	var m entity.Moment
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode moment document: %w", err)
	}
	return &m, nil
}

// decodeArtifactInnerHits 从 inner_hits 解出附件引用，解码失败的单条直接跳过。
func decodeArtifactInnerHits(hit *searchHit) []entity.ArtifactReference {
	block, ok := hit.InnerHits["artifacts"]
	if !ok {
		return nil
	}
	refs := make([]entity.ArtifactReference, 0, len(block.Hits.Hits))
	for _, inner := range block.Hits.Hits {
		var ref entity.ArtifactReference
		if err := json.Unmarshal(inner.Source, &ref); err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	if len(refs) > entity.MaxSurfacedArtifacts {
		refs = refs[:entity.MaxSurfacedArtifacts]
	}
	return refs
}
