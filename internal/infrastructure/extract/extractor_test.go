package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memora-api/internal/application/ingest"
)

type fakeReader struct {
	data map[string][]byte
	err  error
}

func (f *fakeReader) ReadObject(_ context.Context, objectPath string, maxBytes int64) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[objectPath]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", objectPath)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		data = data[:maxBytes]
	}
	return data, nil
}

func TestExtractPlainText(t *testing.T) {
	reader := &fakeReader{data: map[string][]byte{
		"users/u1/notes.txt": []byte("driver license renewed in March 2024"),
	}}
	extractor := NewTextExtractor(reader)

	out, err := extractor.Extract(context.Background(), &ingest.FileInput{
		FileName: "notes.txt",
		MimeType: "text/plain",
		GCSPath:  "users/u1/notes.txt",
	})
	require.NoError(t, err)
	assert.True(t, out.Applicable)
	assert.Equal(t, "driver license renewed in March 2024", out.Text)
	assert.Equal(t, 6, out.Metadata.WordCount)
}

func TestExtractByExtensionWhenMimeMissing(t *testing.T) {
	reader := &fakeReader{data: map[string][]byte{
		"u1/readme.md": []byte("# hello"),
	}}
	extractor := NewTextExtractor(reader)

	out, err := extractor.Extract(context.Background(), &ingest.FileInput{
		FileName: "readme.md",
		GCSPath:  "u1/readme.md",
	})
	require.NoError(t, err)
	assert.True(t, out.Applicable)
	assert.Equal(t, "# hello", out.Text)
}

func TestExtractNonTextualNotApplicable(t *testing.T) {
	extractor := NewTextExtractor(&fakeReader{})

	out, err := extractor.Extract(context.Background(), &ingest.FileInput{
		FileName: "photo.jpg",
		MimeType: "image/jpeg",
		GCSPath:  "u1/photo.jpg",
	})
	require.NoError(t, err)
	assert.False(t, out.Applicable)
}

func TestExtractEmptyContentNotApplicable(t *testing.T) {
	reader := &fakeReader{data: map[string][]byte{
		"u1/empty.txt": []byte("   \n  "),
	}}
	extractor := NewTextExtractor(reader)

	out, err := extractor.Extract(context.Background(), &ingest.FileInput{
		FileName: "empty.txt",
		MimeType: "text/plain",
		GCSPath:  "u1/empty.txt",
	})
	require.NoError(t, err)
	assert.False(t, out.Applicable)
}

func TestExtractReadFailure(t *testing.T) {
	extractor := NewTextExtractor(&fakeReader{err: fmt.Errorf("bucket unavailable")})

	_, err := extractor.Extract(context.Background(), &ingest.FileInput{
		FileName: "notes.txt",
		MimeType: "text/plain",
		GCSPath:  "u1/notes.txt",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.txt")
}

func TestExtractMimeWithCharsetParameter(t *testing.T) {
	reader := &fakeReader{data: map[string][]byte{
		"u1/data.bin": []byte("csv,data,here"),
	}}
	extractor := NewTextExtractor(reader)

	out, err := extractor.Extract(context.Background(), &ingest.FileInput{
		FileName: "data.bin",
		MimeType: "text/csv; charset=utf-8",
		GCSPath:  "u1/data.bin",
	})
	require.NoError(t, err)
	assert.True(t, out.Applicable)
}
