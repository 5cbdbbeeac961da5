package elastic

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
)

func TestFuzzyMultiMatch(t *testing.T) {
	q := fuzzyMultiMatch("eiffel tower", []string{"text^2", "title^3"})

	mm := q["multi_match"].(map[string]any)
	assert.Equal(t, "eiffel tower", mm["query"])
	assert.Equal(t, []string{"text^2", "title^3"}, mm["fields"])
	assert.Equal(t, "best_fields", mm["type"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
}

func TestRangeQuery_OmitsMissingBounds(t *testing.T) {
	q := rangeQuery("timestamp", &entity.DateRange{From: "2024-01-01"})
	bounds := q["range"].(map[string]any)["timestamp"].(map[string]any)
	assert.Equal(t, "2024-01-01", bounds["gte"])
	_, hasTo := bounds["lte"]
	assert.False(t, hasTo)

	q = rangeQuery("timestamp", &entity.DateRange{To: "2024-12-31"})
	bounds = q["range"].(map[string]any)["timestamp"].(map[string]any)
	assert.Equal(t, "2024-12-31", bounds["lte"])
	_, hasFrom := bounds["gte"]
	assert.False(t, hasFrom)
}

func TestArtifactsInnerHits_CapsAtEight(t *testing.T) {
	q := artifactsInnerHits()
	nested := q["nested"].(map[string]any)
	assert.Equal(t, "artifacts", nested["path"])
	innerHits := nested["inner_hits"].(map[string]any)
	assert.Equal(t, entity.MaxSurfacedArtifacts, innerHits["size"])
}

func TestWithSimilarityBoost_NoVectorIsPassthrough(t *testing.T) {
	base := map[string]any{"bool": map[string]any{}}
	assert.Equal(t, base, withSimilarityBoost(base, "vector", nil))
	assert.Equal(t, base, withSimilarityBoost(base, "vector", []float32{}))
}

func TestWithSimilarityBoost_WrapsWithAdditiveScript(t *testing.T) {
	base := map[string]any{"bool": map[string]any{}}
	boosted := withSimilarityBoost(base, "content_vector", []float32{0.1, 0.2})

	ss := boosted["script_score"].(map[string]any)
	assert.Equal(t, base, ss["query"])

	script := ss["script"].(map[string]any)
	source := script["source"].(string)
	// 加法混合：无向量文档贡献 0，绝不会被排除
	assert.Contains(t, source, "_score +")
	assert.Contains(t, source, "doc['content_vector'].size() == 0 ? 0")
	assert.Contains(t, source, "cosineSimilarity(params.query_vector, 'content_vector')")

	params := script["params"].(map[string]any)
	assert.Equal(t, []float32{0.1, 0.2}, params["query_vector"])
}

func TestWithSimilarityBoost_ParameterizedPerField(t *testing.T) {
	base := map[string]any{"match_all": map[string]any{}}

	momentScript := withSimilarityBoost(base, "vector", []float32{0.5})["script_score"].(map[string]any)["script"].(map[string]any)["source"].(string)
	fileScript := withSimilarityBoost(base, "content_vector", []float32{0.5})["script_score"].(map[string]any)["script"].(map[string]any)["source"].(string)

	assert.Contains(t, momentScript, "'vector'")
	assert.Contains(t, fileScript, "'content_vector'")
}

func TestMomentHighlight_EmptyTags(t *testing.T) {
	h := momentHighlight()
	assert.Equal(t, []string{""}, h["pre_tags"])
	assert.Equal(t, []string{""}, h["post_tags"])

	fields := h["fields"].(map[string]any)
	assert.Contains(t, fields, "text")
	assert.Contains(t, fields, "title")
}

func TestFileHighlightFragments(t *testing.T) {
	h := fileHighlight()
	fields := h["fields"].(map[string]any)
	fragment := fields["extracted_text"].(map[string]any)
	assert.Equal(t, 150, fragment["fragment_size"])
	assert.Equal(t, 3, fragment["number_of_fragments"])
}

func TestFlattenHighlights(t *testing.T) {
	hit := &searchHit{Highlight: map[string][]string{
		"text":  {"fragment a", "fragment b"},
		"title": {"fragment c"},
	}}
	got := flattenHighlights(hit, "text", "title")
	assert.Equal(t, []string{"fragment a", "fragment b", "fragment c"}, got)
}

func TestDecodeArtifactInnerHits(t *testing.T) {
	hit := &searchHit{InnerHits: map[string]innerHitsBlock{}}
	assert.Empty(t, decodeArtifactInnerHits(hit))

	var block innerHitsBlock
	raw := `{"hits":{"hits":[
		{"_source":{"artifact_id":"a1","kind":"photo","gcs_path":"u1/p.jpg"}},
		{"_source":{"artifact_id":"a2","kind":"document","gcs_path":"u1/d.pdf"}}
	]}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &block))
	hit = &searchHit{InnerHits: map[string]innerHitsBlock{"artifacts": block}}

	refs := decodeArtifactInnerHits(hit)
	require.Len(t, refs, 2)
	assert.Equal(t, "a1", refs[0].ArtifactID)
	assert.Equal(t, entity.ArtifactKindPhoto, refs[0].Kind)
	assert.Equal(t, entity.ArtifactKindDocument, refs[1].Kind)
}

func TestMomentIndexNames(t *testing.T) {
	c := &Client{config: &config.ElasticsearchConfig{
		MomentIndexPrefix: "life-moments",
		FileContentIndex:  "file-contents",
	}}

	assert.Equal(t, "life-moments-*", c.MomentSearchIndex())
	assert.Equal(t, "file-contents", c.FileContentIndex())

	ts := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "life-moments-2024-03", c.MomentWriteIndex(ts))
}
