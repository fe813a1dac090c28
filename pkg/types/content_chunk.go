package types

import (
	sq "github.com/Masterminds/squirrel"
)

// ContentChunk is one ordered segment of a content item's extracted
// text. ChunkIndex values of one content item are contiguous and
// zero-based; StartPosition/EndPosition are rune offsets into the
// parent's content.
type ContentChunk struct {
	ID            string  `json:"id" db:"id"`
	ContentID     string  `json:"content_id" db:"content_id"`
	ChunkIndex    int     `json:"chunk_index" db:"chunk_index"`
	Text          string  `json:"text" db:"chunk_text"`
	Tokens        int     `json:"tokens" db:"tokens"`
	StartPosition int     `json:"start_position" db:"start_position"`
	EndPosition   int     `json:"end_position" db:"end_position"`
	Metadata      RawJSON `json:"metadata" db:"metadata"`
	CreatedAt     int64   `json:"created_at" db:"created_at"`
	UpdatedAt     int64   `json:"updated_at" db:"updated_at"`
}

type GetContentChunkOptions struct {
	ContentID  string
	ContentIDs []string
	FromIndex  *int
}

func (opts GetContentChunkOptions) Apply(query *sq.SelectBuilder) {
	if opts.ContentID != "" {
		*query = query.Where(sq.Eq{"content_id": opts.ContentID})
	} else if len(opts.ContentIDs) > 0 {
		*query = query.Where(sq.Eq{"content_id": opts.ContentIDs})
	}
	if opts.FromIndex != nil {
		*query = query.Where(sq.GtOrEq{"chunk_index": *opts.FromIndex})
	}
}
