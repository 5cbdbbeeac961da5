package ask

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memora-api/internal/domain/entity"
)

func TestResolve_SignsPrimaryAndThumb(t *testing.T) {
	signer := &fakeSigner{}
	resolver := NewEvidenceResolver(signer, newTestConfig())

	items := resolver.Resolve(context.Background(), []entity.ArtifactReference{{
		ArtifactID: "a1",
		Kind:       entity.ArtifactKindPhoto,
		Name:       "beach.jpg",
		Mime:       "image/jpeg",
		GCSPath:    "u1/photos/beach.jpg",
		ThumbPath:  "u1/thumbs/beach.jpg",
	}})

	require.Len(t, items, 1)
	assert.Equal(t, entity.ArtifactKindPhoto, items[0].Kind)
	assert.Equal(t, "beach.jpg", items[0].Name)
	assert.Equal(t, "https://signed.example.com/u1/photos/beach.jpg", items[0].SignedURL)
	assert.Equal(t, "https://signed.example.com/u1/thumbs/beach.jpg", items[0].ThumbURL)
	assert.Equal(t, "image/jpeg", items[0].Mime)
}

func TestResolve_CapsAtEightItems(t *testing.T) {
	refs := make([]entity.ArtifactReference, 0, 20)
	for i := 0; i < 20; i++ {
		refs = append(refs, entity.ArtifactReference{
			ArtifactID: fmt.Sprintf("a%d", i),
			GCSPath:    fmt.Sprintf("u1/files/%d.pdf", i),
		})
	}
	resolver := NewEvidenceResolver(&fakeSigner{}, newTestConfig())

	items := resolver.Resolve(context.Background(), refs)
	assert.Len(t, items, entity.MaxSurfacedArtifacts)
}

func TestResolve_OneFailureDoesNotBlockOthers(t *testing.T) {
	signer := &fakeSigner{failPaths: map[string]bool{"u1/files/bad.pdf": true}}
	resolver := NewEvidenceResolver(signer, newTestConfig())

	items := resolver.Resolve(context.Background(), []entity.ArtifactReference{
		{ArtifactID: "a1", GCSPath: "u1/files/good.pdf"},
		{ArtifactID: "a2", GCSPath: "u1/files/bad.pdf"},
		{ArtifactID: "a3", GCSPath: "u1/files/also-good.pdf"},
	})

	require.Len(t, items, 2)
	assert.Equal(t, "good.pdf", items[0].Name)
	assert.Equal(t, "also-good.pdf", items[1].Name)
}

func TestResolve_ThumbFailureKeepsItem(t *testing.T) {
	signer := &fakeSigner{failPaths: map[string]bool{"u1/thumbs/x.jpg": true}}
	resolver := NewEvidenceResolver(signer, newTestConfig())

	items := resolver.Resolve(context.Background(), []entity.ArtifactReference{{
		ArtifactID: "a1",
		GCSPath:    "u1/photos/x.jpg",
		ThumbPath:  "u1/thumbs/x.jpg",
	}})

	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].SignedURL)
	assert.Empty(t, items[0].ThumbURL)
}

func TestResolve_NameDefaultsToLastPathSegment(t *testing.T) {
	resolver := NewEvidenceResolver(&fakeSigner{}, newTestConfig())

	items := resolver.Resolve(context.Background(), []entity.ArtifactReference{
		{ArtifactID: "a1", GCSPath: "u1/documents/2024/receipt.pdf"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, "receipt.pdf", items[0].Name)
}

func TestResolve_EmptyInput(t *testing.T) {
	resolver := NewEvidenceResolver(&fakeSigner{}, newTestConfig())

	items := resolver.Resolve(context.Background(), nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestResolve_SkipsArtifactsWithoutStoragePath(t *testing.T) {
	resolver := NewEvidenceResolver(&fakeSigner{}, newTestConfig())

	items := resolver.Resolve(context.Background(), []entity.ArtifactReference{
		{ArtifactID: "a1"},
		{ArtifactID: "a2", GCSPath: "u1/files/kept.pdf"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, "kept.pdf", items[0].Name)
}
