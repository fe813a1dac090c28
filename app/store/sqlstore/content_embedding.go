package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/coursebrain/coursebrain/pkg/register"
	"github.com/coursebrain/coursebrain/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ContentEmbeddingStore = NewContentEmbeddingStore(provider)
	})
}

type ContentEmbeddingStore struct {
	CommonFields
}

func NewContentEmbeddingStore(provider SqlProviderAchieve) *ContentEmbeddingStore {
	repo := &ContentEmbeddingStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONTENT_EMBEDDING)
	repo.SetAllColumns("id", "chunk_id", "content_id", "chunk_index", "embedding",
		"model", "dimensions", "embedded_at", "created_at")
	return repo
}

// BatchCreate persists one embedding batch. ON CONFLICT keeps retried
// batches idempotent: a chunk embedded by an earlier attempt is skipped.
func (s *ContentEmbeddingStore) BatchCreate(ctx context.Context, datas []types.ContentEmbedding) error {
	if len(datas) == 0 {
		return nil
	}

	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)

	now := time.Now().Unix()
	for _, data := range datas {
		if data.CreatedAt == 0 {
			data.CreatedAt = now
		}
		if data.EmbeddedAt == 0 {
			data.EmbeddedAt = now
		}
		query = query.Values(data.ID, data.ChunkID, data.ContentID, data.ChunkIndex,
			data.Embedding, data.Model, data.Dimensions, data.EmbeddedAt, data.CreatedAt)
	}
	query = query.Suffix("ON CONFLICT (chunk_id) DO NOTHING")

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ContentEmbeddingStore) List(ctx context.Context, opts types.GetContentEmbeddingOptions, page, pageSize uint64) ([]*types.ContentEmbedding, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("chunk_index ASC")
	opts.Apply(&query)

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.ContentEmbedding
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// ListEmbeddedChunkIndexes returns the chunk indexes that already have a
// stored embedding, so a resumed run can skip them.
func (s *ContentEmbeddingStore) ListEmbeddedChunkIndexes(ctx context.Context, contentID string) ([]int, error) {
	query := sq.Select("chunk_index").
		From(s.GetTable()).
		Where(sq.Eq{"content_id": contentID}).
		OrderBy("chunk_index ASC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []int
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ContentEmbeddingStore) DeleteByContent(ctx context.Context, contentID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"content_id": contentID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ContentEmbeddingStore) DeleteByChunks(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	query := sq.Delete(s.GetTable()).Where(sq.Eq{"chunk_id": chunkIDs})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
