package store

import (
	"context"

	"github.com/coursebrain/coursebrain/pkg/types"
)

type ContentItemStore interface {
	Create(ctx context.Context, data types.ContentItem) error
	Get(ctx context.Context, id string) (*types.ContentItem, error)
	List(ctx context.Context, opts types.GetContentItemOptions, page, pageSize uint64) ([]*types.ContentItem, error)
	Total(ctx context.Context, opts types.GetContentItemOptions) (int64, error)
	Update(ctx context.Context, id string, args types.UpdateContentItemArgs) error
	UpdateStatus(ctx context.Context, id string, status types.ProcessingStatus) error
	SetExtractionResult(ctx context.Context, id string, args types.SetExtractionResultArgs) error
	SetMetadata(ctx context.Context, id string, meta types.ProcessingMetadata) error
	FinishProcessing(ctx context.Context, id string, totalChunks int, meta types.ProcessingMetadata) error
	MarkFailed(ctx context.Context, id string, meta types.ProcessingMetadata) error
	SetRetryTimes(ctx context.Context, id string, times int) error
	MarkNotLatest(ctx context.Context, id string) error
	ListProcessing(ctx context.Context, maxRetryTimes int, page, pageSize uint64) ([]*types.ContentItem, error)
	SoftDelete(ctx context.Context, id string) error
}

type ContentChunkStore interface {
	BatchCreate(ctx context.Context, datas []types.ContentChunk) error
	Get(ctx context.Context, id string) (*types.ContentChunk, error)
	List(ctx context.Context, opts types.GetContentChunkOptions, page, pageSize uint64) ([]*types.ContentChunk, error)
	TotalByContent(ctx context.Context, contentID string) (int64, error)
	DeleteByContent(ctx context.Context, contentID string) error
}

type ContentEmbeddingStore interface {
	BatchCreate(ctx context.Context, datas []types.ContentEmbedding) error
	List(ctx context.Context, opts types.GetContentEmbeddingOptions, page, pageSize uint64) ([]*types.ContentEmbedding, error)
	ListEmbeddedChunkIndexes(ctx context.Context, contentID string) ([]int, error)
	DeleteByContent(ctx context.Context, contentID string) error
	DeleteByChunks(ctx context.Context, chunkIDs []string) error
}
