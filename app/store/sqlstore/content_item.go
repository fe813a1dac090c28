package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/coursebrain/coursebrain/pkg/register"
	"github.com/coursebrain/coursebrain/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ContentItemStore = NewContentItemStore(provider)
	})
}

type ContentItemStore struct {
	CommonFields
}

func NewContentItemStore(provider SqlProviderAchieve) *ContentItemStore {
	repo := &ContentItemStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONTENT_ITEM)
	repo.SetAllColumns("id", "source_id", "source_type", "title", "description", "content", "content_type",
		"language", "processing_status", "processing_metadata", "extraction_method", "total_chunks",
		"tags", "categories", "course_id", "module_id", "source_metadata", "version", "parent_id",
		"is_latest", "retry_times", "created_at", "updated_at", "processed_at", "deleted_at")
	return repo
}

func (s *ContentItemStore) Create(ctx context.Context, data types.ContentItem) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = time.Now().Unix()
	}
	if data.Version == 0 {
		data.Version = 1
	}
	if data.Tags == nil {
		data.Tags = pq.StringArray{}
	}
	if data.Categories == nil {
		data.Categories = pq.StringArray{}
	}

	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.SourceID, data.SourceType, data.Title, data.Description, data.Content,
			data.ContentType, data.Language, data.ProcessingStatus, data.ProcessingMetadata,
			data.ExtractionMethod, data.TotalChunks, data.Tags, data.Categories, data.CourseID,
			data.ModuleID, data.SourceMetadata, data.Version, data.ParentID, data.IsLatest,
			data.RetryTimes, data.CreatedAt, data.UpdatedAt, data.ProcessedAt, data.DeletedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// Get returns the item by id. Soft-deleted rows are excluded from all
// read paths.
func (s *ContentItemStore) Get(ctx context.Context, id string) (*types.ContentItem, error) {
	query := sq.Select(s.GetAllColumns()...).
		From(s.GetTable()).
		Where(sq.Eq{"id": id, "deleted_at": 0})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.ContentItem
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *ContentItemStore) List(ctx context.Context, opts types.GetContentItemOptions, page, pageSize uint64) ([]*types.ContentItem, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	opts.Apply(&query)

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.ContentItem
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ContentItemStore) Total(ctx context.Context, opts types.GetContentItemOptions) (int64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())
	opts.Apply(&query)

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

func (s *ContentItemStore) Update(ctx context.Context, id string, args types.UpdateContentItemArgs) error {
	query := sq.Update(s.GetTable()).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	if args.Title != "" {
		query = query.Set("title", args.Title)
	}
	if args.Description != "" {
		query = query.Set("description", args.Description)
	}
	if args.Tags != nil {
		query = query.Set("tags", pq.StringArray(args.Tags))
	}
	if args.Categories != nil {
		query = query.Set("categories", pq.StringArray(args.Categories))
	}
	if args.CourseID != "" {
		query = query.Set("course_id", args.CourseID)
	}
	if args.ModuleID != "" {
		query = query.Set("module_id", args.ModuleID)
	}

	queryString, sqlArgs, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, sqlArgs...)
	return err
}

func (s *ContentItemStore) UpdateStatus(ctx context.Context, id string, status types.ProcessingStatus) error {
	query := sq.Update(s.GetTable()).
		Set("processing_status", status).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// SetExtractionResult writes the extracted text and the optional fields
// the engine produced. Title and description use COALESCE-like guards in
// the builder: they are written only when currently empty, extraction
// never overwrites caller-supplied values.
func (s *ContentItemStore) SetExtractionResult(ctx context.Context, id string, args types.SetExtractionResultArgs) error {
	query := sq.Update(s.GetTable()).
		Set("content", args.Content).
		Set("extraction_method", args.Method).
		Set("processing_metadata", args.Metadata).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	if args.ContentType != "" {
		query = query.Set("content_type", sq.Expr("CASE WHEN content_type = '' THEN ? ELSE content_type END", args.ContentType))
	}
	if args.Language != "" {
		query = query.Set("language", sq.Expr("CASE WHEN language = '' THEN ? ELSE language END", args.Language))
	}
	if args.Title != "" {
		query = query.Set("title", sq.Expr("CASE WHEN title = '' THEN ? ELSE title END", args.Title))
	}
	if args.Description != "" {
		query = query.Set("description", sq.Expr("CASE WHEN description = '' THEN ? ELSE description END", args.Description))
	}

	queryString, sqlArgs, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, sqlArgs...)
	return err
}

func (s *ContentItemStore) SetMetadata(ctx context.Context, id string, meta types.ProcessingMetadata) error {
	query := sq.Update(s.GetTable()).
		Set("processing_metadata", meta).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ContentItemStore) FinishProcessing(ctx context.Context, id string, totalChunks int, meta types.ProcessingMetadata) error {
	now := time.Now().Unix()
	query := sq.Update(s.GetTable()).
		Set("processing_status", types.PROCESSING_STATUS_COMPLETED).
		Set("processing_metadata", meta).
		Set("total_chunks", totalChunks).
		Set("retry_times", 0).
		Set("processed_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ContentItemStore) MarkFailed(ctx context.Context, id string, meta types.ProcessingMetadata) error {
	query := sq.Update(s.GetTable()).
		Set("processing_status", types.PROCESSING_STATUS_FAILED).
		Set("processing_metadata", meta).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ContentItemStore) SetRetryTimes(ctx context.Context, id string, times int) error {
	query := sq.Update(s.GetTable()).
		Set("retry_times", times).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ContentItemStore) MarkNotLatest(ctx context.Context, id string) error {
	query := sq.Update(s.GetTable()).
		Set("is_latest", false).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// ListProcessing returns items stuck in an active state, used by the
// flush loop to requeue work after a restart.
func (s *ContentItemStore) ListProcessing(ctx context.Context, maxRetryTimes int, page, pageSize uint64) ([]*types.ContentItem, error) {
	query := sq.Select(s.GetAllColumns()...).
		From(s.GetTable()).
		Where(sq.Eq{"processing_status": []types.ProcessingStatus{
			types.PROCESSING_STATUS_PENDING,
			types.PROCESSING_STATUS_EXTRACTING,
			types.PROCESSING_STATUS_PROCESSING,
			types.PROCESSING_STATUS_CHUNKING,
			types.PROCESSING_STATUS_EMBEDDING,
		}}).
		Where(sq.Eq{"deleted_at": 0}).
		Where(sq.LtOrEq{"retry_times": maxRetryTimes}).
		OrderBy("updated_at ASC")

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.ContentItem
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ContentItemStore) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().Unix()
	query := sq.Update(s.GetTable()).
		Set("deleted_at", now).
		Set("is_latest", false).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
