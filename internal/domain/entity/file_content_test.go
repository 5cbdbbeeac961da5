package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionStatusTransitions(t *testing.T) {
	cases := []struct {
		from    ExtractionStatus
		to      ExtractionStatus
		allowed bool
	}{
		{ExtractionStatusPending, ExtractionStatusSuccess, true},
		{ExtractionStatusPending, ExtractionStatusFailed, true},
		{ExtractionStatusPending, ExtractionStatusNotApplicable, true},
		{ExtractionStatusFailed, ExtractionStatusSuccess, true},
		{ExtractionStatusSuccess, ExtractionStatusPending, false},
		{ExtractionStatusNotApplicable, ExtractionStatusPending, false},
		{ExtractionStatusSuccess, ExtractionStatusNotApplicable, true},
		{"bogus", ExtractionStatusSuccess, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSetExtractionStatus(t *testing.T) {
	doc := &FileContentDocument{}

	require.NoError(t, doc.SetExtractionStatus(ExtractionStatusPending))
	require.NoError(t, doc.SetExtractionStatus(ExtractionStatusSuccess))

	err := doc.SetExtractionStatus(ExtractionStatusPending)
	require.Error(t, err)
	assert.Equal(t, ExtractionStatusSuccess, doc.ExtractionStatus)
}

func TestKindForCategory(t *testing.T) {
	assert.Equal(t, ArtifactKindPhoto, KindForCategory(FileCategoryImage))
	assert.Equal(t, ArtifactKindDocument, KindForCategory(FileCategoryDocument))
	assert.Equal(t, ArtifactKindAudio, KindForCategory(FileCategoryAudio))
	assert.Equal(t, ArtifactKindVideo, KindForCategory(FileCategoryVideo))
	assert.Equal(t, ArtifactKindFile, KindForCategory(FileCategoryOther))
	assert.Equal(t, ArtifactKindFile, KindForCategory("unknown"))
}

func TestAppendArtifactAggregates(t *testing.T) {
	m := &Moment{}

	m.AppendArtifact(ArtifactReference{ArtifactID: "a1", Size: 100}, 0, 0)
	m.AppendArtifact(ArtifactReference{ArtifactID: "a2", Size: 50}, 48.85, 2.35)

	assert.Equal(t, 2, m.ArtifactCount)
	assert.EqualValues(t, 150, m.TotalFileSize)
	require.NotNil(t, m.Geo)
	assert.InDelta(t, 48.85, m.Geo.Lat, 1e-9)
	assert.InDelta(t, 2.35, m.Geo.Lon, 1e-9)
}

func TestAppendArtifactKeepsExistingCoordinates(t *testing.T) {
	m := &Moment{Geo: &GeoPoint{Lat: 40.0, Lon: -3.7}}

	m.AppendArtifact(ArtifactReference{ArtifactID: "a1"}, 48.85, 2.35)

	assert.InDelta(t, 40.0, m.Geo.Lat, 1e-9)
	assert.InDelta(t, -3.7, m.Geo.Lon, 1e-9)
}

func TestSurfacedArtifactsCap(t *testing.T) {
	m := &Moment{}
	for i := 0; i < MaxSurfacedArtifacts+4; i++ {
		m.Artifacts = append(m.Artifacts, ArtifactReference{ArtifactID: "a"})
	}

	assert.Len(t, m.SurfacedArtifacts(), MaxSurfacedArtifacts)
}
