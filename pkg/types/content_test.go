package types

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
)

func TestSourceTypeFromString(t *testing.T) {
	assert.Equal(t, SOURCE_TYPE_FILE, SourceTypeFromString("file"))
	assert.Equal(t, SOURCE_TYPE_YOUTUBE, SourceTypeFromString("YouTube"))
	assert.Equal(t, SOURCE_TYPE_GITHUB, SourceTypeFromString("GITHUB"))
	assert.Equal(t, SOURCE_TYPE_UNKNOWN, SourceTypeFromString("ftp"))
	assert.Equal(t, SOURCE_TYPE_UNKNOWN, SourceTypeFromString(""))
}

func TestSourceTypePrefillsContent(t *testing.T) {
	assert.True(t, SOURCE_TYPE_MANUAL.PrefillsContent())
	assert.True(t, SOURCE_TYPE_YOUTUBE.PrefillsContent())
	assert.True(t, SOURCE_TYPE_GITHUB.PrefillsContent())
	assert.False(t, SOURCE_TYPE_FILE.PrefillsContent())
	assert.False(t, SOURCE_TYPE_URL.PrefillsContent())
}

func TestProcessingStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ProcessingStatus
		allowed  bool
	}{
		{PROCESSING_STATUS_PENDING, PROCESSING_STATUS_EXTRACTING, true},
		// prefilled sources skip extraction
		{PROCESSING_STATUS_PENDING, PROCESSING_STATUS_PROCESSING, true},
		{PROCESSING_STATUS_EXTRACTING, PROCESSING_STATUS_PROCESSING, true},
		{PROCESSING_STATUS_PROCESSING, PROCESSING_STATUS_CHUNKING, true},
		// embedding-only reprocessing keeps the chunk set
		{PROCESSING_STATUS_PROCESSING, PROCESSING_STATUS_EMBEDDING, true},
		{PROCESSING_STATUS_CHUNKING, PROCESSING_STATUS_EMBEDDING, true},
		{PROCESSING_STATUS_EMBEDDING, PROCESSING_STATUS_COMPLETED, true},

		{PROCESSING_STATUS_PENDING, PROCESSING_STATUS_CHUNKING, false},
		{PROCESSING_STATUS_PENDING, PROCESSING_STATUS_COMPLETED, false},
		{PROCESSING_STATUS_EXTRACTING, PROCESSING_STATUS_EMBEDDING, false},
		{PROCESSING_STATUS_CHUNKING, PROCESSING_STATUS_COMPLETED, false},
		{PROCESSING_STATUS_EMBEDDING, PROCESSING_STATUS_PENDING, false},
		{PROCESSING_STATUS_COMPLETED, PROCESSING_STATUS_EMBEDDING, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestProcessingStatusFailedEdges(t *testing.T) {
	for _, from := range []ProcessingStatus{
		PROCESSING_STATUS_PENDING,
		PROCESSING_STATUS_EXTRACTING,
		PROCESSING_STATUS_PROCESSING,
		PROCESSING_STATUS_CHUNKING,
		PROCESSING_STATUS_EMBEDDING,
	} {
		assert.True(t, from.CanTransition(PROCESSING_STATUS_FAILED), "%s -> Failed", from)
	}

	// terminal states never move again without a reprocess
	assert.False(t, PROCESSING_STATUS_COMPLETED.CanTransition(PROCESSING_STATUS_FAILED))
	assert.False(t, PROCESSING_STATUS_FAILED.CanTransition(PROCESSING_STATUS_FAILED))
}

func TestProcessingStatusClasses(t *testing.T) {
	assert.True(t, PROCESSING_STATUS_COMPLETED.IsTerminal())
	assert.True(t, PROCESSING_STATUS_FAILED.IsTerminal())
	assert.False(t, PROCESSING_STATUS_EMBEDDING.IsTerminal())

	assert.True(t, PROCESSING_STATUS_PENDING.IsActive())
	assert.True(t, PROCESSING_STATUS_EMBEDDING.IsActive())
	assert.False(t, PROCESSING_STATUS_COMPLETED.IsActive())
	assert.False(t, PROCESSING_STATUS_FAILED.IsActive())
	assert.False(t, PROCESSING_STATUS_NONE.IsActive())
}

func TestGetContentItemOptionsApply(t *testing.T) {
	query := sq.Select("id").From("coursebrain_content_item").PlaceholderFormat(sq.Dollar)
	opts := GetContentItemOptions{
		SourceID:   "src-1",
		SourceType: SOURCE_TYPE_URL,
		CourseID:   "course-1",
		OnlyLatest: true,
	}
	opts.Apply(&query)

	sql, args, err := query.ToSql()
	assert.NoError(t, err)
	assert.Contains(t, sql, "source_id = $1")
	assert.Contains(t, sql, "source_type = $2")
	assert.Contains(t, sql, "course_id = $3")
	assert.Contains(t, sql, "is_latest = $4")
	assert.Contains(t, sql, "deleted_at = $5")
	assert.Equal(t, []interface{}{"src-1", SOURCE_TYPE_URL, "course-1", true, 0}, args)
}

func TestGetContentItemOptionsApplyStatuses(t *testing.T) {
	query := sq.Select("id").From("coursebrain_content_item").PlaceholderFormat(sq.Dollar)
	opts := GetContentItemOptions{
		Statuses:       []ProcessingStatus{PROCESSING_STATUS_PENDING, PROCESSING_STATUS_EMBEDDING},
		RetryTimesLess: 3,
		IncludeDeleted: true,
	}
	opts.Apply(&query)

	sql, _, err := query.ToSql()
	assert.NoError(t, err)
	assert.Contains(t, sql, "processing_status IN ($1,$2)")
	assert.Contains(t, sql, "retry_times < $3")
	assert.NotContains(t, sql, "deleted_at")
}
