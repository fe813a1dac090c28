package process

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/coursebrain/coursebrain/app/core"
	"github.com/coursebrain/coursebrain/app/store"
	"github.com/coursebrain/coursebrain/pkg/ai"
	"github.com/coursebrain/coursebrain/pkg/chunker"
	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/safe"
	"github.com/coursebrain/coursebrain/pkg/source"
	"github.com/coursebrain/coursebrain/pkg/types"
	"github.com/coursebrain/coursebrain/pkg/utils"
)

var contentProcess *ContentProcess

// runTimeout bounds one pipeline run. It has to stay under core.LockTTL
// or the per-item lock could expire while the run is still going.
const runTimeout = time.Minute * 15

// StartContentProcess spins up the worker pool and the flush loop that
// requeues items left in an active state by a crash or restart.
func StartContentProcess(core *core.Core, concurrency int) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	contentProcess = &ContentProcess{
		concurrency: concurrency,
		ctx:         ctx,
		core:        core,
		ProcessChan: make(chan *ProcessRequest, 1000),
	}

	go safe.Run(contentProcess.Start)
	go safe.Run(func() {
		contentProcess.Flush()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				contentProcess.Flush()
			}
		}
	})
	return cancel
}

type ContentProcess struct {
	concurrency int
	ctx         context.Context
	core        *core.Core
	ProcessChan chan *ProcessRequest
}

type ProcessRequest struct {
	ctx      context.Context
	data     *types.ContentItem
	// SkipChunking resumes a run on the existing chunk set, used by
	// embedding-only reprocessing.
	SkipChunking bool
	response     chan ProcessResponse
}

type ProcessResponse struct {
	Err error
}

// NewProcessRequest enqueues an item for processing. The returned
// channel reports the run outcome; callers that don't care may ignore it.
func NewProcessRequest(data types.ContentItem) chan ProcessResponse {
	return newRequest(data, false)
}

// NewEmbeddingOnlyRequest enqueues a run that reuses the stored chunks.
func NewEmbeddingOnlyRequest(data types.ContentItem) chan ProcessResponse {
	return newRequest(data, true)
}

func newRequest(data types.ContentItem, skipChunking bool) chan ProcessResponse {
	if contentProcess == nil || contentProcess.ctx.Err() != nil {
		slog.Error("Content process not working", slog.String("content_id", data.ID))
		return nil
	}

	resp := make(chan ProcessResponse, 1)
	contentProcess.ProcessChan <- &ProcessRequest{
		ctx:          context.Background(),
		data:         &data,
		SkipChunking: skipChunking,
		response:     resp,
	}
	contentProcess.core.Metrics().SetQueueDepth(len(contentProcess.ProcessChan))
	return resp
}

func (p *ContentProcess) Start() {
	for range p.concurrency {
		go safe.RunWithComponent(func() {
			p.ProcessContent()
		}, "ContentProcess")
	}
}

func (p *ContentProcess) ProcessContent() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case req := <-p.ProcessChan:
			if req == nil {
				continue
			}

			p.core.Metrics().SetQueueDepth(len(p.ProcessChan))
			p.CheckProcess(req.data.ID, func() {
				p.run(req)
			})
		}
	}
}

// CheckProcess guards the single-active-run invariant: a distributed
// lock per content id plus the global run semaphore. Items that cannot
// start now stay in an active status and the flush loop retries them.
func (p *ContentProcess) CheckProcess(id string, handler func()) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	token, err := p.core.TryLock(ctx, fmt.Sprintf("content:process:%s", id))
	if err != nil {
		slog.Error("Failed to lock content process", slog.String("content_id", id), slog.String("error", err.Error()))
		return
	}
	if token == "" {
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		_ = p.core.Unlock(ctx, fmt.Sprintf("content:process:%s", id), token)
	}()

	if !p.core.Semaphores().Ingest().TryAcquire() {
		slog.Warn("Content process semaphore exhausted, deferring", slog.String("content_id", id))
		return
	}
	defer p.core.Semaphores().Ingest().Release()

	handler()
}

// Flush requeues items stuck in an active state, bounded by the retry
// budget so poison items don't loop forever.
func (p *ContentProcess) Flush() {
	ctx, cancel := context.WithTimeout(p.ctx, time.Second*10)
	defer cancel()

	list, err := p.core.Store().ContentItemStore().ListProcessing(ctx, types.MAX_RETRY_TIMES, 1, 20)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("Failed to list processing content items", slog.String("error", err.Error()))
		return
	}

	if len(list) > 0 {
		slog.Info("ContentProcess flush", slog.Int("length", len(list)))
	}

	for _, v := range list {
		if v.RetryTimes > types.MAX_RETRY_TIMES {
			continue
		}
		// a run interrupted mid-embedding resumes on its chunk set
		NewProcessRequestFor(v)
	}
}

// NewProcessRequestFor picks the right resume mode for a requeued item.
func NewProcessRequestFor(item *types.ContentItem) chan ProcessResponse {
	if item.ProcessingStatus == types.PROCESSING_STATUS_EMBEDDING {
		return NewEmbeddingOnlyRequest(*item)
	}
	return NewProcessRequest(*item)
}

func (p *ContentProcess) run(req *ProcessRequest) {
	logAttrs := []any{
		slog.String("content_id", req.data.ID),
		slog.String("source_type", req.data.SourceType.String()),
		slog.String("component", "ContentProcess.run"),
	}

	ctx, cancel := context.WithTimeout(req.ctx, runTimeout)
	defer cancel()

	item, err := p.core.Store().ContentItemStore().Get(ctx, req.data.ID)
	if err != nil {
		slog.Error("Failed to load content item", append(logAttrs, slog.String("error", err.Error()))...)
		p.respond(req, err)
		return
	}

	if item.ProcessingStatus.IsTerminal() {
		p.respond(req, nil)
		return
	}

	slog.Info("Content run started", append(logAttrs, slog.String("status", item.ProcessingStatus.String()))...)

	err = p.runStages(ctx, item, req.SkipChunking)
	if err != nil {
		p.core.Metrics().ItemProcessedInc("failed")
		retryCtx, retryCancel := context.WithTimeout(context.Background(), time.Second*10)
		defer retryCancel()
		if retryErr := p.core.Store().ContentItemStore().SetRetryTimes(retryCtx, item.ID, item.RetryTimes+1); retryErr != nil {
			slog.Error("Failed to bump content retry times", append(logAttrs, slog.String("error", retryErr.Error()))...)
		}
		slog.Error("Content run failed", append(logAttrs, slog.String("error", err.Error()))...)
	} else {
		p.core.Metrics().ItemProcessedInc("completed")
		slog.Info("Content run completed", logAttrs...)
	}

	p.respond(req, err)
}

func (p *ContentProcess) respond(req *ProcessRequest, err error) {
	if req.response != nil {
		req.response <- ProcessResponse{Err: err}
		close(req.response)
	}
}

func (p *ContentProcess) runStages(ctx context.Context, item *types.ContentItem, skipChunking bool) error {
	meta := item.ProcessingMetadata
	meta.Error = ""
	meta.FailedStage = ""

	if item.Content == "" {
		if err := p.runResolution(ctx, item, &meta); err != nil {
			return p.fail(ctx, item, meta, "extraction", err)
		}
	} else if item.ProcessingStatus == types.PROCESSING_STATUS_PENDING {
		if err := p.updateStatus(ctx, item, types.PROCESSING_STATUS_PROCESSING); err != nil {
			return p.fail(ctx, item, meta, "processing", err)
		}
	}

	if !skipChunking {
		if err := p.runChunking(ctx, item, &meta); err != nil {
			return p.fail(ctx, item, meta, "chunking", err)
		}
	} else if item.ProcessingStatus == types.PROCESSING_STATUS_PROCESSING {
		// embedding-only reprocess jumps straight over chunking
		if err := p.updateStatus(ctx, item, types.PROCESSING_STATUS_EMBEDDING); err != nil {
			return p.fail(ctx, item, meta, "embedding", err)
		}
	}

	if err := p.runEmbedding(ctx, item, &meta); err != nil {
		return p.fail(ctx, item, meta, "embedding", err)
	}

	totalChunks := item.TotalChunks
	if err := p.core.Store().ContentItemStore().FinishProcessing(ctx, item.ID, totalChunks, meta); err != nil {
		return p.fail(ctx, item, meta, "processing", err)
	}
	return nil
}

func (p *ContentProcess) fail(ctx context.Context, item *types.ContentItem, meta types.ProcessingMetadata, stage string, err error) error {
	p.core.Metrics().StageErrorInc(stage)

	meta.Error = err.Error()
	meta.FailedStage = stage

	failCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if markErr := p.core.Store().ContentItemStore().MarkFailed(failCtx, item.ID, meta); markErr != nil {
		slog.Error("Failed to mark content item failed",
			slog.String("content_id", item.ID), slog.String("error", markErr.Error()))
	}
	return err
}

func (p *ContentProcess) updateStatus(ctx context.Context, item *types.ContentItem, to types.ProcessingStatus) error {
	// resumed runs re-enter the stage they crashed in
	if item.ProcessingStatus == to {
		return nil
	}
	if !item.ProcessingStatus.CanTransition(to) {
		return fmt.Errorf("illegal status transition %s -> %s for content %s",
			item.ProcessingStatus.String(), to.String(), item.ID)
	}
	if err := p.core.Store().ContentItemStore().UpdateStatus(ctx, item.ID, to); err != nil {
		return err
	}
	item.ProcessingStatus = to
	return nil
}

// runResolution fills item.Content: prefilling sources take it from the
// adapter draft, file-backed sources go through the extraction engine.
// Extra drafts from multi-document sources become sibling items.
func (p *ContentProcess) runResolution(ctx context.Context, item *types.ContentItem, meta *types.ProcessingMetadata) error {
	adapter, err := p.core.Sources().Get(item.SourceType)
	if err != nil {
		return err
	}

	begin := time.Now()
	drafts, err := adapter.Resolve(ctx, source.IngestArgs{
		SourceType:  item.SourceType,
		SourceID:    item.SourceID,
		Title:       item.Title,
		Description: item.Description,
		ContentType: item.ContentType,
		Metadata:    item.SourceMetadata,
	})
	if err != nil {
		return err
	}

	first := drafts[0]
	if len(drafts) > 1 {
		p.spawnSiblings(ctx, item, drafts[1:])
	}

	if item.SourceType.PrefillsContent() {
		if err = p.applyDraft(ctx, item, first, types.EXTRACTION_METHOD_PLAINTEXT, meta); err != nil {
			return err
		}
		meta.ExtractionMs = time.Since(begin).Milliseconds()
		return p.updateStatus(ctx, item, types.PROCESSING_STATUS_PROCESSING)
	}

	if err = p.updateStatus(ctx, item, types.PROCESSING_STATUS_EXTRACTING); err != nil {
		return err
	}

	timer := p.core.Metrics().StageTimer("extraction")
	defer timer.ObserveDuration()

	fileID := item.SourceID
	if id := source.FileIDFromMetadata(first.Metadata); id != "" {
		fileID = id
	}

	file, err := p.core.FileStorage().GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if first.ContentType != "" {
		file.MimeType = first.ContentType
	}

	result, method, err := p.core.Extractor().Extract(ctx, file, item.ExtractionMethod)
	if err != nil {
		return err
	}

	meta.ExtractionMs = time.Since(begin).Milliseconds()
	meta.Confidence = result.Confidence
	meta.LowConfidence = result.Confidence > 0 && result.Confidence < p.core.Extractor().ConfidenceThreshold()

	args := types.SetExtractionResultArgs{
		Content:     result.Content,
		ContentType: result.ContentType,
		Language:    result.Language,
		Title:       result.Title,
		Description: result.Description,
		Method:      method,
		Metadata:    *meta,
	}
	if err = p.core.Store().ContentItemStore().SetExtractionResult(ctx, item.ID, args); err != nil {
		return err
	}
	item.Content = result.Content
	item.ExtractionMethod = method

	return p.updateStatus(ctx, item, types.PROCESSING_STATUS_PROCESSING)
}

func (p *ContentProcess) applyDraft(ctx context.Context, item *types.ContentItem, draft source.Draft, method types.ExtractionMethod, meta *types.ProcessingMetadata) error {
	args := types.SetExtractionResultArgs{
		Content:     draft.Content,
		ContentType: draft.ContentType,
		Language:    draft.Language,
		Title:       draft.Title,
		Description: draft.Description,
		Method:      method,
		Metadata:    *meta,
	}
	if err := p.core.Store().ContentItemStore().SetExtractionResult(ctx, item.ID, args); err != nil {
		return err
	}
	item.Content = draft.Content
	item.ExtractionMethod = method
	if draft.SourceID != "" {
		item.SourceID = draft.SourceID
	}
	return nil
}

// spawnSiblings persists the extra drafts a multi-document source
// yielded and enqueues a run for each. Failures here don't fail the
// primary item.
func (p *ContentProcess) spawnSiblings(ctx context.Context, parent *types.ContentItem, drafts []source.Draft) {
	for _, draft := range drafts {
		sibling := types.ContentItem{
			ID:               utils.GenRandomID(),
			SourceID:         draft.SourceID,
			SourceType:       parent.SourceType,
			Title:            draft.Title,
			Description:      draft.Description,
			Content:          draft.Content,
			ContentType:      draft.ContentType,
			Language:         draft.Language,
			ProcessingStatus: types.PROCESSING_STATUS_PENDING,
			Tags:             parent.Tags,
			Categories:       parent.Categories,
			CourseID:         parent.CourseID,
			ModuleID:         parent.ModuleID,
			SourceMetadata:   draft.Metadata,
			ParentID:         parent.ID,
			IsLatest:         true,
		}
		if err := p.core.Store().ContentItemStore().Create(ctx, sibling); err != nil {
			slog.Error("Failed to create sibling content item",
				slog.String("parent_id", parent.ID),
				slog.String("source_id", draft.SourceID),
				slog.String("error", err.Error()))
			continue
		}
		NewProcessRequest(sibling)
	}
}

// runChunking rewrites the chunk set from the current content inside
// one transaction, so a crash never leaves index gaps.
func (p *ContentProcess) runChunking(ctx context.Context, item *types.ContentItem, meta *types.ProcessingMetadata) error {
	if err := p.updateStatus(ctx, item, types.PROCESSING_STATUS_CHUNKING); err != nil {
		return err
	}

	timer := p.core.Metrics().StageTimer("chunking")
	defer timer.ObserveDuration()

	begin := time.Now()
	chunks, err := chunker.Split(item.Content, p.core.Cfg().Pipeline.ChunkerOptions())
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("content %s produced no chunks", item.ID)
	}

	model := p.core.Cfg().AI.Model.EmbeddingModel
	now := time.Now().Unix()
	tokenTotal := 0

	rows := make([]types.ContentChunk, 0, len(chunks))
	for _, c := range chunks {
		tokens, err := ai.NumTokens(c.Text, model)
		if err != nil {
			return err
		}
		tokenTotal += tokens
		rows = append(rows, types.ContentChunk{
			ID:            utils.GenRandomID(),
			ContentID:     item.ID,
			ChunkIndex:    c.Index,
			Text:          c.Text,
			Tokens:        tokens,
			StartPosition: c.Start,
			EndPosition:   c.End,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	err = p.core.Store().Transaction(ctx, func(ctx context.Context) error {
		if err := p.core.Store().ContentEmbeddingStore().DeleteByContent(ctx, item.ID); err != nil {
			return err
		}
		if err := p.core.Store().ContentChunkStore().DeleteByContent(ctx, item.ID); err != nil {
			return err
		}
		return p.core.Store().ContentChunkStore().BatchCreate(ctx, rows)
	})
	if err != nil {
		return err
	}

	meta.ChunkingMs = time.Since(begin).Milliseconds()
	meta.TokenCount = tokenTotal
	meta.UnembeddedChunks = nil
	item.TotalChunks = len(rows)

	return p.updateStatus(ctx, item, types.PROCESSING_STATUS_EMBEDDING)
}

// runEmbedding pushes the pending chunks through the provider in fixed
// batches. Finished batches stay committed: a mid-run failure records
// the remaining indexes so the next run resumes where this one stopped.
func (p *ContentProcess) runEmbedding(ctx context.Context, item *types.ContentItem, meta *types.ProcessingMetadata) error {
	cfg := p.core.Cfg().Pipeline

	chunks, err := p.core.Store().ContentChunkStore().List(ctx, types.GetContentChunkOptions{
		ContentID: item.ID,
	}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("content %s has no chunks to embed", item.ID)
	}
	item.TotalChunks = len(chunks)

	pending, err := p.pendingChunks(ctx, item, chunks, meta)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		meta.UnembeddedChunks = nil
		return nil
	}

	timer := p.core.Metrics().StageTimer("embedding")
	defer timer.ObserveDuration()

	model := p.core.Cfg().AI.Model.EmbeddingModel
	run := &embeddingRun{
		driver:     p.core.Srv().AI(),
		embeddings: p.core.Store().ContentEmbeddingStore(),
		items:      p.core.Store().ContentItemStore(),
		batchSize:  cfg.BatchSize(),
		batchDelay: cfg.BatchDelay(),
		timeout:    cfg.EmbeddingTimeout(),
		maxRetries: cfg.MaxRetries(),
		baseDelay:  cfg.RetryDelay(),
		newBatchTimer: func() *prometheus.Timer {
			return p.core.Metrics().EmbeddingBatchTimer(model)
		},
	}

	begin := time.Now()
	if err = run.embed(ctx, item, pending, meta); err != nil {
		return errors.New("ContentProcess.runEmbedding.embed", i18n.ERROR_EMBEDDING_FAILED, err)
	}

	meta.EmbeddingMs = time.Since(begin).Milliseconds()
	meta.UnembeddedChunks = nil
	return nil
}

// embeddingRun is one embedding pass over a pending chunk set, carrying
// only the collaborators the pass needs.
type embeddingRun struct {
	driver     ai.EmbeddingDriver
	embeddings store.ContentEmbeddingStore
	items      store.ContentItemStore

	batchSize  int
	batchDelay time.Duration
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration

	newBatchTimer func() *prometheus.Timer
}

func (r *embeddingRun) embed(ctx context.Context, item *types.ContentItem, pending []*types.ContentChunk, meta *types.ProcessingMetadata) error {
	limiter := rate.NewLimiter(rate.Every(r.batchDelay), 1)

	for start := 0; start < len(pending); start += r.batchSize {
		end := start + r.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		if err := r.embedBatch(ctx, item, pending[start:end]); err != nil {
			meta.UnembeddedChunks = chunkIndexes(pending[start:])
			if metaErr := r.items.SetMetadata(ctx, item.ID, *meta); metaErr != nil {
				slog.Error("Failed to record unembedded chunks",
					slog.String("content_id", item.ID), slog.String("error", metaErr.Error()))
			}
			return err
		}
	}
	return nil
}

// pendingChunks returns the chunks that still need a vector, honoring a
// recorded resume point and whatever is already stored.
func (p *ContentProcess) pendingChunks(ctx context.Context, item *types.ContentItem, chunks []*types.ContentChunk, meta *types.ProcessingMetadata) ([]*types.ContentChunk, error) {
	if len(meta.UnembeddedChunks) > 0 {
		wanted := make(map[int]bool, len(meta.UnembeddedChunks))
		for _, idx := range meta.UnembeddedChunks {
			wanted[idx] = true
		}
		var pending []*types.ContentChunk
		for _, c := range chunks {
			if wanted[c.ChunkIndex] {
				pending = append(pending, c)
			}
		}
		return pending, nil
	}

	embedded, err := p.core.Store().ContentEmbeddingStore().ListEmbeddedChunkIndexes(ctx, item.ID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	done := make(map[int]bool, len(embedded))
	for _, idx := range embedded {
		done[idx] = true
	}

	var pending []*types.ContentChunk
	for _, c := range chunks {
		if !done[c.ChunkIndex] {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

func (r *embeddingRun) embedBatch(ctx context.Context, item *types.ContentItem, batch []*types.ContentChunk) error {
	texts := make([]string, 0, len(batch))
	for _, c := range batch {
		texts = append(texts, c.Text)
	}

	var result ai.EmbeddingResult
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			if r.newBatchTimer != nil {
				defer r.newBatchTimer().ObserveDuration()
			}

			var err error
			result, err = r.driver.EmbedBatch(callCtx, texts)
			return err
		},
		retry.Attempts(uint(r.maxRetries)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return r.baseDelay * time.Duration(n+1)
		}),
	)
	if err != nil {
		return fmt.Errorf("embedding batch failed after %d attempts: %w", r.maxRetries, err)
	}

	if len(result.Data) != len(batch) {
		return fmt.Errorf("embedding result length mismatch, want %d got %d", len(batch), len(result.Data))
	}

	now := time.Now().Unix()
	rows := make([]types.ContentEmbedding, 0, len(batch))
	for i, c := range batch {
		rows = append(rows, types.ContentEmbedding{
			ID:         utils.GenRandomID(),
			ChunkID:    c.ID,
			ContentID:  item.ID,
			ChunkIndex: c.ChunkIndex,
			Embedding:  pgvector.NewVector(result.Data[i]),
			Model:      result.Model,
			Dimensions: len(result.Data[i]),
			EmbeddedAt: now,
			CreatedAt:  now,
		})
	}

	return r.embeddings.BatchCreate(ctx, rows)
}

func chunkIndexes(chunks []*types.ContentChunk) []int {
	out := make([]int, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.ChunkIndex)
	}
	return out
}
