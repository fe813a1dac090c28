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
		provider.stores.ContentChunkStore = NewContentChunkStore(provider)
	})
}

type ContentChunkStore struct {
	CommonFields
}

func NewContentChunkStore(provider SqlProviderAchieve) *ContentChunkStore {
	repo := &ContentChunkStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONTENT_CHUNK)
	repo.SetAllColumns("id", "content_id", "chunk_index", "chunk_text", "tokens",
		"start_position", "end_position", "metadata", "created_at", "updated_at")
	return repo
}

// BatchCreate inserts all chunks of one item in a single statement.
func (s *ContentChunkStore) BatchCreate(ctx context.Context, datas []types.ContentChunk) error {
	if len(datas) == 0 {
		return nil
	}

	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)

	now := time.Now().Unix()
	for _, data := range datas {
		if data.CreatedAt == 0 {
			data.CreatedAt = now
		}
		if data.UpdatedAt == 0 {
			data.UpdatedAt = now
		}
		query = query.Values(data.ID, data.ContentID, data.ChunkIndex, data.Text, data.Tokens,
			data.StartPosition, data.EndPosition, data.Metadata, data.CreatedAt, data.UpdatedAt)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ContentChunkStore) Get(ctx context.Context, id string) (*types.ContentChunk, error) {
	query := sq.Select(s.GetAllColumns()...).
		From(s.GetTable()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.ContentChunk
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns chunks ordered by chunk_index so callers can rely on
// document order.
func (s *ContentChunkStore) List(ctx context.Context, opts types.GetContentChunkOptions, page, pageSize uint64) ([]*types.ContentChunk, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("chunk_index ASC")
	opts.Apply(&query)

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.ContentChunk
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ContentChunkStore) TotalByContent(ctx context.Context, contentID string) (int64, error) {
	query := sq.Select("COUNT(*)").
		From(s.GetTable()).
		Where(sq.Eq{"content_id": contentID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var total int64
	if err = s.GetReplica(ctx).Get(&total, queryString, args...); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *ContentChunkStore) DeleteByContent(ctx context.Context, contentID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"content_id": contentID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
