package elastic

import (
	"fmt"

	"memora-api/internal/domain/entity"
)

// fuzzyMultiMatch 多字段模糊匹配
func fuzzyMultiMatch(query string, fields []string) map[string]any {
	return map[string]any{
		"multi_match": map[string]any{
			"query":     query,
			"fields":    fields,
			"type":      "best_fields",
			"fuzziness": "AUTO",
		},
	}
}

func termQuery(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

func termsQuery(field string, values []string) map[string]any {
	return map[string]any{"terms": map[string]any{field: values}}
}

func boostedTermsQuery(field string, values []string, boost float64) map[string]any {
	return map[string]any{
		"terms": map[string]any{
			field:   values,
			"boost": boost,
		},
	}
}

// rangeQuery 时间范围过滤，from/to 为空时省略对应边界
func rangeQuery(field string, dr *entity.DateRange) map[string]any {
	bounds := map[string]any{}
	if dr.From != "" {
		bounds["gte"] = dr.From
	}
	if dr.To != "" {
		bounds["lte"] = dr.To
	}
	return map[string]any{"range": map[string]any{field: bounds}}
}

// artifactsInnerHits 通过 nested 查询带出最多 8 条附件引用
func artifactsInnerHits() map[string]any {
	return map[string]any{
		"nested": map[string]any{
			"path":  "artifacts",
			"query": map[string]any{"match_all": map[string]any{}},
			"inner_hits": map[string]any{
				"size":    entity.MaxSurfacedArtifacts,
				"_source": map[string]any{"includes": []string{"artifacts.*"}},
			},
		},
	}
}

// withSimilarityBoost 给查询套一层加法式向量相似度加权。
// 没有向量的文档该项贡献为 0，绝不会因此被排除；两个集合共用同一策略，
// 仅向量字段不同。
func withSimilarityBoost(query map[string]any, field string, vector []float32) map[string]any {
	if len(vector) == 0 {
		return query
	}
	source := fmt.Sprintf(
		"_score + (doc['%s'].size() == 0 ? 0 : cosineSimilarity(params.query_vector, '%s') + 1.0)",
		field, field,
	)
	return map[string]any{
		"script_score": map[string]any{
			"query": query,
			"script": map[string]any{
				"source": source,
				"params": map[string]any{"query_vector": vector},
			},
		},
	}
}

// momentHighlight 时刻文本高亮：不加标签，直接取片段原文
func momentHighlight() map[string]any {
	return map[string]any{
		"fields": map[string]any{
			"text":  map[string]any{},
			"title": map[string]any{},
		},
		"pre_tags":  []string{""},
		"post_tags": []string{""},
	}
}

// fileHighlight 文件内容高亮：多片段，围绕命中位置截取
func fileHighlight() map[string]any {
	fragment := map[string]any{
		"fragment_size":       150,
		"number_of_fragments": 3,
	}
	return map[string]any{
		"fields": map[string]any{
			"extracted_text":    fragment,
			"extracted_text_en": fragment,
			"file_name":         map[string]any{},
		},
		"pre_tags":  []string{""},
		"post_tags": []string{""},
	}
}

func hitScore(hit *searchHit) float64 {
	if hit.Score == nil {
		return 0
	}
	return *hit.Score
}

func flattenHighlights(hit *searchHit, fields ...string) []string {
	var out []string
	for _, f := range fields {
		out = append(out, hit.Highlight[f]...)
	}
	return out
}
