package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursebrain/coursebrain/pkg/types"
)

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry(NewManualAdapter(), NewYouTubeAdapter("en"))

	adapter, err := registry.Get(types.SOURCE_TYPE_MANUAL)
	require.NoError(t, err)
	assert.Equal(t, types.SOURCE_TYPE_MANUAL, adapter.Type())

	_, err = registry.Get(types.SOURCE_TYPE_FILE)
	assert.Error(t, err)

	_, err = registry.Get(types.SOURCE_TYPE_UNKNOWN)
	assert.Error(t, err)
}

func TestManualAdapterValidate(t *testing.T) {
	adapter := NewManualAdapter()
	ctx := context.Background()

	assert.NoError(t, adapter.Validate(ctx, IngestArgs{Title: "notes", Content: "body"}))
	assert.Error(t, adapter.Validate(ctx, IngestArgs{Title: "notes", Content: "  "}))
	assert.Error(t, adapter.Validate(ctx, IngestArgs{Content: "body"}))
}

func TestManualAdapterResolve(t *testing.T) {
	adapter := NewManualAdapter()

	drafts, err := adapter.Resolve(context.Background(), IngestArgs{
		Title:   "notes",
		Content: "pasted text",
	})
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	assert.Equal(t, "pasted text", drafts[0].Content)
	assert.Equal(t, "text/plain", drafts[0].ContentType)
}

func TestURLAdapterValidate(t *testing.T) {
	adapter := NewURLAdapter(nil)
	ctx := context.Background()

	assert.NoError(t, adapter.Validate(ctx, IngestArgs{SourceID: "https://example.com/lesson"}))
	assert.NoError(t, adapter.Validate(ctx, IngestArgs{SourceID: "http://example.com"}))
	assert.Error(t, adapter.Validate(ctx, IngestArgs{SourceID: "ftp://example.com/file"}))
	assert.Error(t, adapter.Validate(ctx, IngestArgs{SourceID: "not a url"}))
	assert.Error(t, adapter.Validate(ctx, IngestArgs{SourceID: ""}))
}

func TestYouTubeAdapterVideoID(t *testing.T) {
	adapter := NewYouTubeAdapter("en")

	id, err := adapter.videoID("dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	id, err = adapter.videoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	id, err = adapter.videoID("https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	_, err = adapter.videoID("https://example.com/video")
	assert.Error(t, err)
}

func TestGitHubAdapterParseSourceID(t *testing.T) {
	adapter := NewGitHubAdapter("")

	owner, repo, ref, err := adapter.parseSourceID("golang/go")
	require.NoError(t, err)
	assert.Equal(t, "golang", owner)
	assert.Equal(t, "go", repo)
	assert.Empty(t, ref)

	owner, repo, ref, err = adapter.parseSourceID("golang/go@release-branch.go1.23")
	require.NoError(t, err)
	assert.Equal(t, "golang", owner)
	assert.Equal(t, "go", repo)
	assert.Equal(t, "release-branch.go1.23", ref)

	_, _, _, err = adapter.parseSourceID("golang")
	assert.Error(t, err)
	_, _, _, err = adapter.parseSourceID("a/b/c")
	assert.Error(t, err)
}

func TestURLFileIDRoundTrip(t *testing.T) {
	meta := types.RawJSON(`{"url":"https://example.com","file_id":"url/abc123","content_type":"text/html"}`)
	assert.Equal(t, "url/abc123", FileIDFromMetadata(meta))
	assert.Empty(t, FileIDFromMetadata(types.RawJSON(`not json`)))
}
