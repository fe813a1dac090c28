package v1

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/coursebrain/coursebrain/app/core"
	"github.com/coursebrain/coursebrain/app/logic/v1/process"
	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/extract"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/source"
	"github.com/coursebrain/coursebrain/pkg/types"
	"github.com/coursebrain/coursebrain/pkg/utils"
)

type ContentLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewContentLogic(ctx context.Context, core *core.Core) *ContentLogic {
	return &ContentLogic{
		ctx:  ctx,
		core: core,
	}
}

// Ingest validates the request synchronously, persists the item and
// hands it to the worker pool. The caller gets a receipt immediately;
// everything after acceptance is asynchronous.
func (l *ContentLogic) Ingest(args source.IngestArgs) (*types.IngestReceipt, error) {
	if args.SourceType == types.SOURCE_TYPE_UNKNOWN {
		return nil, errors.New("ContentLogic.Ingest.check", i18n.ERROR_UNSUPPORTED_SOURCE, nil).Code(http.StatusBadRequest)
	}

	adapter, err := l.core.Sources().Get(args.SourceType)
	if err != nil {
		return nil, errors.Trace("ContentLogic.Ingest.Sources.Get", err)
	}

	if err = adapter.Validate(l.ctx, args); err != nil {
		return nil, errors.Trace("ContentLogic.Ingest.Validate", err)
	}

	// same source submitted twice returns the active item instead of
	// starting a second run
	if args.SourceID != "" {
		existing, err := l.core.Store().ContentItemStore().List(l.ctx, types.GetContentItemOptions{
			SourceID:   args.SourceID,
			SourceType: args.SourceType,
			OnlyLatest: true,
		}, 1, 1)
		if err != nil && err != sql.ErrNoRows {
			return nil, errors.New("ContentLogic.Ingest.ContentItemStore.List", i18n.ERROR_INTERNAL, err)
		}
		if len(existing) > 0 && existing[0].ProcessingStatus.IsActive() {
			return &types.IngestReceipt{
				ContentID:           existing[0].ID,
				Status:              existing[0].ProcessingStatus.String(),
				EstimatedDurationMs: EstimateDuration(args),
				Message:             "content is already being processed",
			}, nil
		}
	}

	item := types.ContentItem{
		ID:          utils.GenRandomID(),
		SourceID:    args.SourceID,
		SourceType:  args.SourceType,
		Title:       args.Title,
		Description: args.Description,
		// manual text is carried on the item itself, other sources are
		// resolved inside the pipeline
		Content:          lo.Ternary(args.SourceType == types.SOURCE_TYPE_MANUAL, args.Content, ""),
		ContentType:      args.ContentType,
		ProcessingStatus: types.PROCESSING_STATUS_PENDING,
		ExtractionMethod: args.ExtractionMethod,
		Tags:             pq.StringArray(args.Tags),
		Categories:       pq.StringArray(args.Categories),
		CourseID:         args.CourseID,
		ModuleID:         args.ModuleID,
		SourceMetadata:   args.Metadata,
		Version:          1,
		IsLatest:         true,
	}

	if err = l.core.Store().ContentItemStore().Create(l.ctx, item); err != nil {
		return nil, errors.New("ContentLogic.Ingest.ContentItemStore.Create", i18n.ERROR_INTERNAL, err)
	}

	process.NewProcessRequest(item)

	return &types.IngestReceipt{
		ContentID:           item.ID,
		Status:              item.ProcessingStatus.String(),
		EstimatedDurationMs: EstimateDuration(args),
		Message:             "accepted",
	}, nil
}

// Pipeline throughput assumptions for duration estimates, in bytes of
// payload per second of processing.
const (
	throughputTextBps  = 64 << 10
	throughputPdfBps   = 16 << 10
	throughputImageBps = 8 << 10
	throughputMediaBps = 2 << 10
)

// EstimateDuration gives the caller a rough idea of how long the
// pipeline will take: a floor per source and content class, plus a
// payload-size term whenever the size is known. Manual entries carry
// their payload inline, so their size is always known.
func EstimateDuration(args source.IngestArgs) int64 {
	size := args.Size
	if args.SourceType == types.SOURCE_TYPE_MANUAL {
		size = int64(len(args.Content))
	}

	floor := time.Second * 30
	throughput := int64(throughputTextBps)

	switch args.SourceType {
	case types.SOURCE_TYPE_MANUAL:
		floor = time.Second * 15
	case types.SOURCE_TYPE_YOUTUBE:
		floor = time.Second * 45
	case types.SOURCE_TYPE_GITHUB:
		floor = time.Minute * 2
	case types.SOURCE_TYPE_URL:
		floor = time.Second * 30
	default:
		mt := strings.ToLower(args.ContentType)
		switch {
		case mt == "application/pdf":
			floor = time.Minute * 2
			throughput = throughputPdfBps
		case strings.HasPrefix(mt, "image/"):
			floor = time.Minute * 1
			throughput = throughputImageBps
		case strings.HasPrefix(mt, "audio/"), strings.HasPrefix(mt, "video/"):
			floor = time.Minute * 5
			throughput = throughputMediaBps
		}
	}

	estimate := floor.Milliseconds()
	if size > 0 {
		estimate += size * 1000 / throughput
	}
	return estimate
}

func (l *ContentLogic) GetContent(id string) (*types.ContentItem, error) {
	item, err := l.core.Store().ContentItemStore().Get(l.ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("ContentLogic.GetContent", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("ContentLogic.GetContent", i18n.ERROR_INTERNAL, err)
	}
	return item, nil
}

// ContentStatus is the polling view of an in-flight item.
type ContentStatus struct {
	ContentID          string                   `json:"content_id"`
	Status             string                   `json:"status"`
	TotalChunks        int                      `json:"total_chunks"`
	EmbeddedChunks     int                      `json:"embedded_chunks"`
	RetryTimes         int                      `json:"retry_times"`
	UpdatedAt          int64                    `json:"updated_at"`
	ProcessingMetadata types.ProcessingMetadata `json:"processing_metadata"`
}

func (l *ContentLogic) GetContentStatus(id string) (*ContentStatus, error) {
	item, err := l.GetContent(id)
	if err != nil {
		return nil, err
	}

	embedded, err := l.core.Store().ContentEmbeddingStore().ListEmbeddedChunkIndexes(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ContentLogic.GetContentStatus", i18n.ERROR_INTERNAL, err)
	}

	return &ContentStatus{
		ContentID:          item.ID,
		Status:             item.ProcessingStatus.String(),
		TotalChunks:        item.TotalChunks,
		EmbeddedChunks:     len(embedded),
		RetryTimes:         item.RetryTimes,
		UpdatedAt:          item.UpdatedAt,
		ProcessingMetadata: item.ProcessingMetadata,
	}, nil
}

type ListContentArgs struct {
	CourseID   string
	ModuleID   string
	SourceType string
	Status     types.ProcessingStatus
	Keywords   string
	Page       uint64
	PageSize   uint64
}

type ListContentResult struct {
	List  []*types.ContentItem `json:"list"`
	Total int64                `json:"total"`
}

func (l *ContentLogic) ListContents(args ListContentArgs) (*ListContentResult, error) {
	opts := types.GetContentItemOptions{
		CourseID:   args.CourseID,
		ModuleID:   args.ModuleID,
		Status:     args.Status,
		Keywords:   args.Keywords,
		OnlyLatest: true,
	}
	if args.SourceType != "" {
		opts.SourceType = types.SourceTypeFromString(args.SourceType)
	}

	list, err := l.core.Store().ContentItemStore().List(l.ctx, opts, args.Page, args.PageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ContentLogic.ListContents.List", i18n.ERROR_INTERNAL, err)
	}

	total, err := l.core.Store().ContentItemStore().Total(l.ctx, opts)
	if err != nil {
		return nil, errors.New("ContentLogic.ListContents.Total", i18n.ERROR_INTERNAL, err)
	}

	return &ListContentResult{
		List:  list,
		Total: total,
	}, nil
}

func (l *ContentLogic) ListChunks(contentID string, page, pageSize uint64) ([]*types.ContentChunk, error) {
	if _, err := l.GetContent(contentID); err != nil {
		return nil, err
	}

	chunks, err := l.core.Store().ContentChunkStore().List(l.ctx, types.GetContentChunkOptions{
		ContentID: contentID,
	}, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ContentLogic.ListChunks", i18n.ERROR_INTERNAL, err)
	}
	return chunks, nil
}

func (l *ContentLogic) UpdateContent(id string, args types.UpdateContentItemArgs) error {
	if _, err := l.GetContent(id); err != nil {
		return err
	}

	if err := l.core.Store().ContentItemStore().Update(l.ctx, id, args); err != nil {
		return errors.New("ContentLogic.UpdateContent", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// Delete soft-deletes the item and removes its chunks and vectors in
// one transaction.
func (l *ContentLogic) Delete(id string) error {
	item, err := l.GetContent(id)
	if err != nil {
		return err
	}

	if item.ProcessingStatus.IsActive() {
		return errors.New("ContentLogic.Delete.check", i18n.ERROR_CONTENT_ALREADY_RUNNING, nil).Code(http.StatusConflict)
	}

	err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().ContentEmbeddingStore().DeleteByContent(ctx, id); err != nil {
			return err
		}
		if err := l.core.Store().ContentChunkStore().DeleteByContent(ctx, id); err != nil {
			return err
		}
		return l.core.Store().ContentItemStore().SoftDelete(ctx, id)
	})
	if err != nil {
		return errors.New("ContentLogic.Delete.Transaction", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// ReprocessSteps controls how much of the pipeline a reprocess re-runs.
// Rerunning chunking always invalidates the embeddings too, so "chunking"
// and "all" behave the same.
const (
	REPROCESS_STEP_ALL       = "all"
	REPROCESS_STEP_CHUNKING  = "chunking"
	REPROCESS_STEP_EMBEDDING = "embedding"
)

// Reprocess re-runs a finished or failed item. "all" re-chunks from the
// stored content; "embedding" keeps the chunk set and only re-embeds.
func (l *ContentLogic) Reprocess(id string, step string) (*types.IngestReceipt, error) {
	item, err := l.GetContent(id)
	if err != nil {
		return nil, err
	}

	if item.ProcessingStatus.IsActive() {
		return nil, errors.New("ContentLogic.Reprocess.check", i18n.ERROR_CONTENT_ALREADY_RUNNING, nil).Code(http.StatusConflict)
	}
	// manual text lives only on the item itself, nothing to re-resolve
	if item.Content == "" && item.SourceType == types.SOURCE_TYPE_MANUAL {
		return nil, errors.New("ContentLogic.Reprocess.check", i18n.ERROR_CONTENT_NOT_REPROCESSABLE, nil).Code(http.StatusConflict)
	}

	embeddingOnly := step == REPROCESS_STEP_EMBEDDING
	if embeddingOnly && item.TotalChunks == 0 {
		return nil, errors.New("ContentLogic.Reprocess.check", i18n.ERROR_CONTENT_NOT_REPROCESSABLE, nil).Code(http.StatusConflict)
	}

	restart := types.PROCESSING_STATUS_PENDING
	if item.Content != "" {
		restart = types.PROCESSING_STATUS_PROCESSING
	}

	meta := item.ProcessingMetadata
	meta.Error = ""
	meta.FailedStage = ""
	if !embeddingOnly {
		meta.UnembeddedChunks = nil
	}

	if err = l.core.Store().ContentItemStore().SetMetadata(l.ctx, id, meta); err != nil {
		return nil, errors.New("ContentLogic.Reprocess.SetMetadata", i18n.ERROR_INTERNAL, err)
	}
	if err = l.core.Store().ContentItemStore().UpdateStatus(l.ctx, id, restart); err != nil {
		return nil, errors.New("ContentLogic.Reprocess.UpdateStatus", i18n.ERROR_INTERNAL, err)
	}
	if err = l.core.Store().ContentItemStore().SetRetryTimes(l.ctx, id, 0); err != nil {
		return nil, errors.New("ContentLogic.Reprocess.SetRetryTimes", i18n.ERROR_INTERNAL, err)
	}

	item.ProcessingStatus = restart
	item.ProcessingMetadata = meta
	if embeddingOnly {
		process.NewEmbeddingOnlyRequest(*item)
	} else {
		process.NewProcessRequest(*item)
	}

	return &types.IngestReceipt{
		ContentID: item.ID,
		Status:    restart.String(),
		Message:   "reprocessing",
	}, nil
}

// NewVersion snapshots the current item and ingests a replacement that
// supersedes it. The old record stays queryable but is no longer latest.
func (l *ContentLogic) NewVersion(id string, args source.IngestArgs) (*types.IngestReceipt, error) {
	prev, err := l.GetContent(id)
	if err != nil {
		return nil, err
	}

	if prev.ProcessingStatus.IsActive() {
		return nil, errors.New("ContentLogic.NewVersion.check", i18n.ERROR_CONTENT_ALREADY_RUNNING, nil).Code(http.StatusConflict)
	}

	adapter, err := l.core.Sources().Get(args.SourceType)
	if err != nil {
		return nil, errors.Trace("ContentLogic.NewVersion.Sources.Get", err)
	}
	if err = adapter.Validate(l.ctx, args); err != nil {
		return nil, errors.Trace("ContentLogic.NewVersion.Validate", err)
	}

	tags := prev.Tags
	if len(args.Tags) > 0 {
		tags = pq.StringArray(args.Tags)
	}
	categories := prev.Categories
	if len(args.Categories) > 0 {
		categories = pq.StringArray(args.Categories)
	}

	next := types.ContentItem{
		ID:               utils.GenRandomID(),
		SourceID:         args.SourceID,
		SourceType:       args.SourceType,
		Title:            lo.Ternary(args.Title != "", args.Title, prev.Title),
		Description:      lo.Ternary(args.Description != "", args.Description, prev.Description),
		ContentType:      args.ContentType,
		ProcessingStatus: types.PROCESSING_STATUS_PENDING,
		ExtractionMethod: args.ExtractionMethod,
		Tags:             tags,
		Categories:       categories,
		CourseID:         prev.CourseID,
		ModuleID:         prev.ModuleID,
		SourceMetadata:   args.Metadata,
		Version:          prev.Version + 1,
		ParentID:         prev.ID,
		IsLatest:         true,
	}

	err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().ContentItemStore().MarkNotLatest(ctx, prev.ID); err != nil {
			return err
		}
		return l.core.Store().ContentItemStore().Create(ctx, next)
	})
	if err != nil {
		return nil, errors.New("ContentLogic.NewVersion.Transaction", i18n.ERROR_INTERNAL, err)
	}

	process.NewProcessRequest(next)

	return &types.IngestReceipt{
		ContentID:           next.ID,
		Status:              next.ProcessingStatus.String(),
		EstimatedDurationMs: EstimateDuration(args),
		Message:             "accepted",
	}, nil
}

// ValidateIngestArgs rejects obviously bad requests before they reach
// the adapter, keeping transport-level checks out of the handlers.
func ValidateIngestArgs(args source.IngestArgs) error {
	if args.SourceType == types.SOURCE_TYPE_UNKNOWN || args.SourceType == "" {
		return errors.New("ContentLogic.ValidateIngestArgs", i18n.ERROR_UNSUPPORTED_SOURCE, nil).Code(http.StatusBadRequest)
	}
	if args.SourceType == types.SOURCE_TYPE_FILE && args.ContentType != "" && !extract.SupportedMimeType(args.ContentType) {
		return errors.New("ContentLogic.ValidateIngestArgs", i18n.ERROR_UNSUPPORTED_MIME_TYPE, nil).Code(http.StatusBadRequest)
	}
	return nil
}
