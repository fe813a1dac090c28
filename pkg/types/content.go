package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

type SourceType string

const (
	SOURCE_TYPE_FILE    SourceType = "file"
	SOURCE_TYPE_URL     SourceType = "url"
	SOURCE_TYPE_YOUTUBE SourceType = "youtube"
	SOURCE_TYPE_GITHUB  SourceType = "github"
	SOURCE_TYPE_MANUAL  SourceType = "manual"
	SOURCE_TYPE_UNKNOWN SourceType = "unknown"
)

func SourceTypeFromString(s string) SourceType {
	switch strings.ToLower(s) {
	case string(SOURCE_TYPE_FILE):
		return SOURCE_TYPE_FILE
	case string(SOURCE_TYPE_URL):
		return SOURCE_TYPE_URL
	case string(SOURCE_TYPE_YOUTUBE):
		return SOURCE_TYPE_YOUTUBE
	case string(SOURCE_TYPE_GITHUB):
		return SOURCE_TYPE_GITHUB
	case string(SOURCE_TYPE_MANUAL):
		return SOURCE_TYPE_MANUAL
	default:
		return SOURCE_TYPE_UNKNOWN
	}
}

func (t SourceType) String() string {
	return string(t)
}

// PrefillsContent reports whether drafts from this source arrive with
// text already populated, skipping the extraction stage entirely.
func (t SourceType) PrefillsContent() bool {
	switch t {
	case SOURCE_TYPE_YOUTUBE, SOURCE_TYPE_GITHUB, SOURCE_TYPE_MANUAL:
		return true
	default:
		return false
	}
}

type ProcessingStatus int8

const (
	PROCESSING_STATUS_NONE       ProcessingStatus = 0
	PROCESSING_STATUS_PENDING    ProcessingStatus = 1
	PROCESSING_STATUS_EXTRACTING ProcessingStatus = 2
	PROCESSING_STATUS_PROCESSING ProcessingStatus = 3
	PROCESSING_STATUS_CHUNKING   ProcessingStatus = 4
	PROCESSING_STATUS_EMBEDDING  ProcessingStatus = 5
	PROCESSING_STATUS_COMPLETED  ProcessingStatus = 6
	PROCESSING_STATUS_FAILED     ProcessingStatus = 7
)

var namesForProcessingStatus = map[ProcessingStatus]string{
	PROCESSING_STATUS_NONE:       "None",
	PROCESSING_STATUS_PENDING:    "Pending",
	PROCESSING_STATUS_EXTRACTING: "Extracting",
	PROCESSING_STATUS_PROCESSING: "Processing",
	PROCESSING_STATUS_CHUNKING:   "Chunking",
	PROCESSING_STATUS_EMBEDDING:  "Embedding",
	PROCESSING_STATUS_COMPLETED:  "Completed",
	PROCESSING_STATUS_FAILED:     "Failed",
}

func (v ProcessingStatus) String() string {
	if n, ok := namesForProcessingStatus[v]; ok {
		return n
	}
	return fmt.Sprintf("ProcessingStatus(%d)", v)
}

func (v ProcessingStatus) IsTerminal() bool {
	return v == PROCESSING_STATUS_COMPLETED || v == PROCESSING_STATUS_FAILED
}

// IsActive reports whether the item currently owns a pipeline run.
// Terminal states and the zero value are inactive.
func (v ProcessingStatus) IsActive() bool {
	return v >= PROCESSING_STATUS_PENDING && !v.IsTerminal()
}

// transitions holds the forward edges of the pipeline state machine.
// FAILED is reachable from every non-terminal state; regressions happen
// only through an explicit reprocessing request.
var transitions = map[ProcessingStatus][]ProcessingStatus{
	PROCESSING_STATUS_PENDING:    {PROCESSING_STATUS_EXTRACTING, PROCESSING_STATUS_PROCESSING},
	PROCESSING_STATUS_EXTRACTING: {PROCESSING_STATUS_PROCESSING},
	PROCESSING_STATUS_PROCESSING: {PROCESSING_STATUS_CHUNKING, PROCESSING_STATUS_EMBEDDING},
	PROCESSING_STATUS_CHUNKING:   {PROCESSING_STATUS_EMBEDDING},
	PROCESSING_STATUS_EMBEDDING:  {PROCESSING_STATUS_COMPLETED},
}

func (v ProcessingStatus) CanTransition(to ProcessingStatus) bool {
	if to == PROCESSING_STATUS_FAILED {
		return !v.IsTerminal()
	}
	for _, next := range transitions[v] {
		if next == to {
			return true
		}
	}
	return false
}

type ExtractionMethod string

const (
	EXTRACTION_METHOD_PDF       ExtractionMethod = "pdf_js"
	EXTRACTION_METHOD_OCR       ExtractionMethod = "ocr"
	EXTRACTION_METHOD_SPEECH    ExtractionMethod = "speech_to_text"
	EXTRACTION_METHOD_HTML      ExtractionMethod = "html_parser"
	EXTRACTION_METHOD_MARKDOWN  ExtractionMethod = "markdown_parser"
	EXTRACTION_METHOD_PLAINTEXT ExtractionMethod = "plain_text"
)

func (m ExtractionMethod) String() string {
	return string(m)
}

// ProcessingMetadata is persisted as a JSON column and records per-run
// diagnostics: stage durations, token counts, extraction confidence,
// the last failure and the chunk indices a resumed run still has to embed.
type ProcessingMetadata struct {
	ExtractionMs     int64   `json:"extraction_ms,omitempty"`
	ChunkingMs       int64   `json:"chunking_ms,omitempty"`
	EmbeddingMs      int64   `json:"embedding_ms,omitempty"`
	TokenCount       int     `json:"token_count,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	LowConfidence    bool    `json:"low_confidence,omitempty"`
	Error            string  `json:"error,omitempty"`
	FailedStage      string  `json:"failed_stage,omitempty"`
	UnembeddedChunks []int   `json:"unembedded_chunks,omitempty"`
}

func (m ProcessingMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *ProcessingMetadata) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		return json.Unmarshal(src, m)
	case string:
		return json.Unmarshal([]byte(src), m)
	case nil:
		return nil
	}
	return fmt.Errorf("pq: cannot convert %T to ProcessingMetadata", src)
}

// RawJSON round-trips arbitrary JSON between the API and a jsonb column.
type RawJSON json.RawMessage

func (m RawJSON) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *RawJSON) UnmarshalJSON(data []byte) error {
	*m = data
	return nil
}

func (m RawJSON) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return []byte(m), nil
}

func (m *RawJSON) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		*m = RawJSON(src)
		return nil
	case string:
		*m = RawJSON(src)
		return nil
	case nil:
		return nil
	}
	return fmt.Errorf("pq: cannot convert %T to RawJSON", src)
}

type ContentItem struct {
	ID                 string             `json:"id" db:"id"`
	SourceID           string             `json:"source_id" db:"source_id"`
	SourceType         SourceType         `json:"source_type" db:"source_type"`
	Title              string             `json:"title" db:"title"`
	Description        string             `json:"description" db:"description"`
	Content            string             `json:"content" db:"content"`
	ContentType        string             `json:"content_type" db:"content_type"`
	Language           string             `json:"language" db:"language"`
	ProcessingStatus   ProcessingStatus   `json:"processing_status" db:"processing_status"`
	ProcessingMetadata ProcessingMetadata `json:"processing_metadata" db:"processing_metadata"`
	ExtractionMethod   ExtractionMethod   `json:"extraction_method" db:"extraction_method"`
	TotalChunks        int                `json:"total_chunks" db:"total_chunks"`
	Tags               pq.StringArray     `json:"tags" db:"tags"`
	Categories         pq.StringArray     `json:"categories" db:"categories"`
	CourseID           string             `json:"course_id" db:"course_id"`
	ModuleID           string             `json:"module_id" db:"module_id"`
	SourceMetadata     RawJSON            `json:"source_metadata" db:"source_metadata"`
	Version            int                `json:"version" db:"version"`
	ParentID           string             `json:"parent_id" db:"parent_id"`
	IsLatest           bool               `json:"is_latest" db:"is_latest"`
	RetryTimes         int                `json:"retry_times" db:"retry_times"`
	CreatedAt          int64              `json:"created_at" db:"created_at"`
	UpdatedAt          int64              `json:"updated_at" db:"updated_at"`
	ProcessedAt        int64              `json:"processed_at" db:"processed_at"`
	DeletedAt          int64              `json:"deleted_at" db:"deleted_at"`
}

func (c *ContentItem) IsDeleted() bool {
	return c.DeletedAt > 0
}

type GetContentItemOptions struct {
	ID             string
	IDs            []string
	SourceID       string
	SourceType     SourceType
	CourseID       string
	ModuleID       string
	Status         ProcessingStatus
	Statuses       []ProcessingStatus
	Keywords       string
	RetryTimesLess int
	OnlyLatest     bool
	IncludeDeleted bool
}

func (opts GetContentItemOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	} else if len(opts.IDs) > 0 {
		*query = query.Where(sq.Eq{"id": opts.IDs})
	}
	if opts.SourceID != "" {
		*query = query.Where(sq.Eq{"source_id": opts.SourceID})
	}
	if opts.SourceType != "" {
		*query = query.Where(sq.Eq{"source_type": opts.SourceType})
	}
	if opts.CourseID != "" {
		*query = query.Where(sq.Eq{"course_id": opts.CourseID})
	}
	if opts.ModuleID != "" {
		*query = query.Where(sq.Eq{"module_id": opts.ModuleID})
	}
	if opts.Status > 0 {
		*query = query.Where(sq.Eq{"processing_status": opts.Status})
	}
	if len(opts.Statuses) > 0 {
		*query = query.Where(sq.Eq{"processing_status": opts.Statuses})
	}
	if opts.Keywords != "" {
		or := sq.Or{}
		if len(opts.Keywords) == 32 {
			or = append(or, sq.Eq{"id": opts.Keywords})
		}
		*query = query.Where(append(or, sq.Like{"title": fmt.Sprintf("%%%s%%", opts.Keywords)}))
	}
	if opts.RetryTimesLess > 0 {
		*query = query.Where(sq.Lt{"retry_times": opts.RetryTimesLess})
	}
	if opts.OnlyLatest {
		*query = query.Where(sq.Eq{"is_latest": true})
	}
	if !opts.IncludeDeleted {
		*query = query.Where(sq.Eq{"deleted_at": 0})
	}
}

// SetExtractionResultArgs carries the fields the extraction stage is
// allowed to write back. Title and Description are written only when
// the item does not already carry caller-supplied values.
type SetExtractionResultArgs struct {
	Content     string
	ContentType string
	Language    string
	Title       string
	Description string
	Method      ExtractionMethod
	Metadata    ProcessingMetadata
}

type UpdateContentItemArgs struct {
	Title       string
	Description string
	Tags        []string
	Categories  []string
	CourseID    string
	ModuleID    string
}

// IngestReceipt is returned synchronously from an ingestion request;
// the actual processing continues asynchronously.
type IngestReceipt struct {
	ContentID           string `json:"content_id"`
	Status              string `json:"status"`
	EstimatedDurationMs int64  `json:"estimated_duration_ms"`
	Message             string `json:"message"`
}

// GetCurrentTimestamp returns the current unix timestamp. Variable so
// tests can pin the clock.
var GetCurrentTimestamp = func() int64 {
	return time.Now().Unix()
}
