package v1

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coursebrain/coursebrain/pkg/source"
	"github.com/coursebrain/coursebrain/pkg/types"
)

func TestEstimateDurationBySource(t *testing.T) {
	assert.Equal(t, (15 * time.Second).Milliseconds(), EstimateDuration(source.IngestArgs{SourceType: types.SOURCE_TYPE_MANUAL}))
	assert.Equal(t, (45 * time.Second).Milliseconds(), EstimateDuration(source.IngestArgs{SourceType: types.SOURCE_TYPE_YOUTUBE}))
	assert.Equal(t, (2 * time.Minute).Milliseconds(), EstimateDuration(source.IngestArgs{SourceType: types.SOURCE_TYPE_GITHUB}))
	assert.Equal(t, (30 * time.Second).Milliseconds(), EstimateDuration(source.IngestArgs{SourceType: types.SOURCE_TYPE_URL}))
}

func TestEstimateDurationByMimeType(t *testing.T) {
	file := func(mime string) source.IngestArgs {
		return source.IngestArgs{SourceType: types.SOURCE_TYPE_FILE, ContentType: mime}
	}

	assert.Equal(t, (2 * time.Minute).Milliseconds(), EstimateDuration(file("application/pdf")))
	assert.Equal(t, (1 * time.Minute).Milliseconds(), EstimateDuration(file("image/png")))
	assert.Equal(t, (5 * time.Minute).Milliseconds(), EstimateDuration(file("audio/mpeg")))
	assert.Equal(t, (5 * time.Minute).Milliseconds(), EstimateDuration(file("video/mp4")))
	assert.Equal(t, (30 * time.Second).Milliseconds(), EstimateDuration(file("text/plain")))
	assert.Equal(t, (30 * time.Second).Milliseconds(), EstimateDuration(file("")))
}

func TestEstimateDurationScalesWithPayloadSize(t *testing.T) {
	pdf := func(size int64) source.IngestArgs {
		return source.IngestArgs{
			SourceType:  types.SOURCE_TYPE_FILE,
			ContentType: "application/pdf",
			Size:        size,
		}
	}

	// floor plus one second of pipeline time per throughput-sized block
	assert.Equal(t, (2*time.Minute).Milliseconds()+1000, EstimateDuration(pdf(throughputPdfBps)))
	assert.Greater(t, EstimateDuration(pdf(10<<20)), EstimateDuration(pdf(64<<10)))

	// manual entries derive the size from the inline payload
	manual := source.IngestArgs{
		SourceType: types.SOURCE_TYPE_MANUAL,
		Content:    strings.Repeat("a", 2*throughputTextBps),
	}
	assert.Equal(t, (15*time.Second).Milliseconds()+2000, EstimateDuration(manual))

	// a same-size text file finishes well before an audio file
	text := source.IngestArgs{SourceType: types.SOURCE_TYPE_FILE, ContentType: "text/plain", Size: 1 << 20}
	audio := source.IngestArgs{SourceType: types.SOURCE_TYPE_FILE, ContentType: "audio/mpeg", Size: 1 << 20}
	assert.Less(t, EstimateDuration(text), EstimateDuration(audio))
}

func TestValidateIngestArgs(t *testing.T) {
	assert.Error(t, ValidateIngestArgs(source.IngestArgs{}))
	assert.Error(t, ValidateIngestArgs(source.IngestArgs{SourceType: types.SOURCE_TYPE_UNKNOWN}))
	assert.Error(t, ValidateIngestArgs(source.IngestArgs{
		SourceType:  types.SOURCE_TYPE_FILE,
		SourceID:    "file-1",
		ContentType: "application/x-msdownload",
	}))

	assert.NoError(t, ValidateIngestArgs(source.IngestArgs{
		SourceType: types.SOURCE_TYPE_MANUAL,
		Title:      "notes",
		Content:    "hello",
	}))
	assert.NoError(t, ValidateIngestArgs(source.IngestArgs{
		SourceType:  types.SOURCE_TYPE_FILE,
		SourceID:    "file-1",
		ContentType: "application/pdf",
	}))
}
