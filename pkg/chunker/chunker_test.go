package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	text := strings.Repeat("a", 300)

	chunks, err := Split(text, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 300, chunks[0].End)
	assert.Equal(t, text, chunks[0].Text)
}

func TestSplitOverlappingWindows(t *testing.T) {
	text := strings.Repeat("a", 1100)

	chunks, err := Split(text, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 500, chunks[0].End)
	assert.Equal(t, 450, chunks[1].Start)
	assert.Equal(t, 950, chunks[1].End)
	assert.Equal(t, 900, chunks[2].Start)
	assert.Equal(t, 1100, chunks[2].End)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, c.End-c.Start, len([]rune(c.Text)))
	}
}

func TestSplitMergesUndersizedTail(t *testing.T) {
	// 520 runes: the second window would only be 70 runes, below the
	// minimum, so it folds into the first.
	text := strings.Repeat("b", 520)

	chunks, err := Split(text, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 520, chunks[0].End)
	assert.Equal(t, text, chunks[0].Text)
}

func TestSplitTailMergesPastMaxChunkSize(t *testing.T) {
	// the second window would be 70 runes, below the minimum of 100. It
	// folds into the first chunk even though that pushes it past the
	// 500 rune cap: an undersized trailing chunk is never emitted.
	opts := Options{
		ChunkSize:    500,
		Overlap:      50,
		MinChunkSize: 100,
		MaxChunkSize: 500,
	}
	text := strings.Repeat("c", 520)

	chunks, err := Split(text, opts)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 520, chunks[0].End)
	assert.Equal(t, text, chunks[0].Text)
}

func TestSplitNeverEmitsUndersizedTail(t *testing.T) {
	opts := Options{
		ChunkSize:    500,
		Overlap:      50,
		MinChunkSize: 100,
		MaxChunkSize: 500,
	}

	for _, total := range []int{501, 520, 549, 960, 999, 1400} {
		chunks, err := Split(strings.Repeat("x", total), opts)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		last := chunks[len(chunks)-1]
		assert.GreaterOrEqual(t, last.End-last.Start, opts.MinChunkSize, "total %d", total)
		assert.Equal(t, total, last.End, "total %d", total)
	}
}

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split("", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitRuneOffsets(t *testing.T) {
	opts := Options{ChunkSize: 4, Overlap: 1, MinChunkSize: 1, MaxChunkSize: 8}
	text := "日本語のテキストです"

	chunks, err := Split(text, opts)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	runes := []rune(text)
	for _, c := range chunks {
		assert.Equal(t, string(runes[c.Start:c.End]), c.Text)
	}
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("deterministic input ", 200)

	first, err := Split(text, DefaultOptions())
	require.NoError(t, err)
	second, err := Split(text, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSplitCoversWholeText(t *testing.T) {
	text := strings.Repeat("coverage ", 500)
	runes := []rune(text)

	chunks, err := Split(text, DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
	for i := 1; i < len(chunks); i++ {
		// each window starts inside the previous one
		assert.Less(t, chunks[i].Start, chunks[i-1].End)
	}
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.Overlap = bad.ChunkSize
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.ChunkSize = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.MaxChunkSize = 100
	assert.Error(t, bad.Validate())

	// a minimum above the window size would make non-final windows
	// merge and silently drop the rest of the text
	bad = DefaultOptions()
	bad.MinChunkSize = bad.ChunkSize + 1
	assert.Error(t, bad.Validate())

	_, err := Split("text", Options{ChunkSize: 10, Overlap: 10})
	assert.Error(t, err)

	_, err = Split(strings.Repeat("x", 100), Options{ChunkSize: 10, Overlap: 2, MinChunkSize: 50, MaxChunkSize: 100})
	assert.Error(t, err)
}
