package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFullPath(t *testing.T) {
	c := &Client{bucket: "default-bucket"}

	bucket, object, err := c.resolve("gs://media-bucket/users/u1/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "media-bucket", bucket)
	assert.Equal(t, "users/u1/photo.jpg", object)
}

func TestResolveRelativePath(t *testing.T) {
	c := &Client{bucket: "default-bucket"}

	bucket, object, err := c.resolve("/users/u1/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "default-bucket", bucket)
	assert.Equal(t, "users/u1/photo.jpg", object)
}

func TestResolveInvalidPath(t *testing.T) {
	c := &Client{bucket: "default-bucket"}

	cases := []string{"", "   ", "gs://", "gs://bucket-only", "gs://bucket-only/"}
	for _, path := range cases {
		_, _, err := c.resolve(path)
		assert.Error(t, err, "path %q", path)
	}
}
