package elastic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memora-api/internal/application/ask"
)

func momentBodyQuery(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	q, ok := body["query"].(map[string]any)
	require.True(t, ok)
	if ss, ok := q["script_score"].(map[string]any); ok {
		q = ss["query"].(map[string]any)
	}
	return q["bool"].(map[string]any)
}

func TestMomentSearchBody_ArtifactsClauseDoesNotConstrain(t *testing.T) {
	body := buildMomentSearchBody(&ask.MomentSearchParams{
		UserID:    "u1",
		QueryText: "Eiffel Tower",
		Size:      1,
	})
	boolQ := momentBodyQuery(t, body)

	// 附件 inner_hits 只出现在 should 中，没有附件的时刻照常命中
	should := boolQ["should"].([]map[string]any)
	require.Len(t, should, 1)
	assert.Contains(t, should[0], "nested")

	must := boolQ["must"].([]map[string]any)
	for _, clause := range must {
		assert.NotContains(t, clause, "nested")
	}
}

func TestMomentSearchBody_TimestampSortKeepsScores(t *testing.T) {
	body := buildMomentSearchBody(&ask.MomentSearchParams{
		UserID:    "u1",
		QueryText: "Paris",
	})

	// 无向量时按时间戳排序，但跨集合合并仍需要 _score
	require.Contains(t, body, "sort")
	assert.Equal(t, true, body["track_scores"])

	withVector := buildMomentSearchBody(&ask.MomentSearchParams{
		UserID:    "u1",
		QueryText: "Paris",
		Vector:    []float32{0.1},
	})
	assert.NotContains(t, withVector, "sort")
	assert.NotContains(t, withVector, "track_scores")
}

func TestMomentSearchBody_MustTextFoldedIntoMatch(t *testing.T) {
	body := buildMomentSearchBody(&ask.MomentSearchParams{
		UserID:    "u1",
		QueryText: "when did I renew my license",
		MustText:  "driver license",
	})
	boolQ := momentBodyQuery(t, body)
	must := boolQ["must"].([]map[string]any)
	require.Len(t, must, 1)

	folded := must[0]["bool"].(map[string]any)
	assert.Equal(t, 1, folded["minimum_should_match"])
	branches := folded["should"].([]map[string]any)
	require.Len(t, branches, 2)
	queries := []string{
		branches[0]["multi_match"].(map[string]any)["query"].(string),
		branches[1]["multi_match"].(map[string]any)["query"].(string),
	}
	assert.Contains(t, queries, "when did I renew my license")
	assert.Contains(t, queries, "driver license")
}

func TestMomentSearchBody_DuplicateMustTextCollapses(t *testing.T) {
	body := buildMomentSearchBody(&ask.MomentSearchParams{
		UserID:    "u1",
		QueryText: "Paris",
		MustText:  "Paris",
	})
	boolQ := momentBodyQuery(t, body)
	must := boolQ["must"].([]map[string]any)
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "multi_match")
}

func TestMomentSearchBody_MustTextOnly(t *testing.T) {
	body := buildMomentSearchBody(&ask.MomentSearchParams{
		UserID:   "u1",
		MustText: "driver license",
	})
	boolQ := momentBodyQuery(t, body)
	must := boolQ["must"].([]map[string]any)
	require.Len(t, must, 1)
	mm := must[0]["multi_match"].(map[string]any)
	assert.Equal(t, "driver license", mm["query"])
}
