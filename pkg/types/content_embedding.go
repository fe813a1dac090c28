package types

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/pgvector/pgvector-go"
)

// ContentEmbedding holds one chunk's vector. All embeddings written in
// the same run share Model and Dimensions.
type ContentEmbedding struct {
	ID         string          `json:"id" db:"id"`
	ChunkID    string          `json:"chunk_id" db:"chunk_id"`
	ContentID  string          `json:"content_id" db:"content_id"`
	ChunkIndex int             `json:"chunk_index" db:"chunk_index"`
	Embedding  pgvector.Vector `json:"embedding" db:"embedding"`
	Model      string          `json:"model" db:"model"`
	Dimensions int             `json:"dimensions" db:"dimensions"`
	EmbeddedAt int64           `json:"embedded_at" db:"embedded_at"`
	CreatedAt  int64           `json:"created_at" db:"created_at"`
}

type GetContentEmbeddingOptions struct {
	ContentID string
	ChunkID   string
	Model     string
}

func (opts GetContentEmbeddingOptions) Apply(query *sq.SelectBuilder) {
	if opts.ContentID != "" {
		*query = query.Where(sq.Eq{"content_id": opts.ContentID})
	}
	if opts.ChunkID != "" {
		*query = query.Where(sq.Eq{"chunk_id": opts.ChunkID})
	}
	if opts.Model != "" {
		*query = query.Where(sq.Eq{"model": opts.Model})
	}
}
