package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursebrain/coursebrain/pkg/filestore"
	"github.com/coursebrain/coursebrain/pkg/types"
)

func TestResolveMethod(t *testing.T) {
	cases := []struct {
		mime   string
		method types.ExtractionMethod
	}{
		{"application/pdf", types.EXTRACTION_METHOD_PDF},
		{"image/png", types.EXTRACTION_METHOD_OCR},
		{"image/jpeg", types.EXTRACTION_METHOD_OCR},
		{"audio/mpeg", types.EXTRACTION_METHOD_SPEECH},
		{"video/mp4", types.EXTRACTION_METHOD_SPEECH},
		{"text/html", types.EXTRACTION_METHOD_HTML},
		{"text/html; charset=utf-8", types.EXTRACTION_METHOD_HTML},
		{"text/markdown", types.EXTRACTION_METHOD_MARKDOWN},
		{"text/plain", types.EXTRACTION_METHOD_PLAINTEXT},
	}

	for _, c := range cases {
		method, err := ResolveMethod(c.mime)
		require.NoError(t, err, c.mime)
		assert.Equal(t, c.method, method, c.mime)
	}

	_, err := ResolveMethod("application/x-msdownload")
	assert.Error(t, err)
	assert.False(t, SupportedMimeType("application/x-msdownload"))
	assert.True(t, SupportedMimeType("application/pdf"))
}

func TestPlainTextEngine(t *testing.T) {
	engine := NewPlainTextEngine()

	result, err := engine.Extract(context.Background(), &filestore.File{
		MimeType: "text/plain",
		Buffer:   []byte("hello\r\nworld\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", result.Content)
	assert.Equal(t, float64(1), result.Confidence)
}

func TestMarkdownEngine(t *testing.T) {
	engine := NewMarkdownEngine()

	raw := "# Course Intro\n\nSome **bold** text.\n\n```\ncode kept as is\n```\n\n- item one\n"
	result, err := engine.Extract(context.Background(), &filestore.File{
		MimeType: "text/markdown",
		Buffer:   []byte(raw),
	})
	require.NoError(t, err)

	assert.Equal(t, "Course Intro", result.Title)
	assert.Contains(t, result.Content, "Some bold text.")
	assert.Contains(t, result.Content, "code kept as is")
	assert.Contains(t, result.Content, "item one")
	assert.NotContains(t, result.Content, "**")
}

func TestHTMLEngine(t *testing.T) {
	engine := NewHTMLEngine()

	raw := `<html><head><title>Lesson 1</title>
<meta name="description" content="intro lesson">
<script>var hidden = 1;</script></head>
<body><h1>Welcome</h1><p>This is the lesson body.</p>
<script>console.log("skip me")</script></body></html>`

	result, err := engine.Extract(context.Background(), &filestore.File{
		MimeType: "text/html",
		Buffer:   []byte(raw),
	})
	require.NoError(t, err)

	assert.Equal(t, "Lesson 1", result.Title)
	assert.Equal(t, "intro lesson", result.Description)
	assert.Contains(t, result.Content, "Welcome")
	assert.Contains(t, result.Content, "This is the lesson body.")
	assert.NotContains(t, result.Content, "hidden")
	assert.NotContains(t, result.Content, "skip me")
}

func TestCoordinatorDispatch(t *testing.T) {
	coordinator := NewCoordinator(time.Second*5, 0.5)
	coordinator.RegisterEngine(types.EXTRACTION_METHOD_PLAINTEXT, NewPlainTextEngine())

	file := &filestore.File{MimeType: "text/plain", Buffer: []byte("some course notes")}

	result, method, err := coordinator.Extract(context.Background(), file, "")
	require.NoError(t, err)
	assert.Equal(t, types.EXTRACTION_METHOD_PLAINTEXT, method)
	assert.Equal(t, "some course notes", result.Content)

	// no engine registered for pdf
	_, _, err = coordinator.Extract(context.Background(), &filestore.File{MimeType: "application/pdf"}, "")
	assert.Error(t, err)
}

func TestCoordinatorRejectsEmptyContent(t *testing.T) {
	coordinator := NewCoordinator(time.Second*5, 0.5)
	coordinator.RegisterEngine(types.EXTRACTION_METHOD_PLAINTEXT, NewPlainTextEngine())

	_, _, err := coordinator.Extract(context.Background(), &filestore.File{
		MimeType: "text/plain",
		Buffer:   []byte("   \n  "),
	}, "")
	assert.Error(t, err)
}
