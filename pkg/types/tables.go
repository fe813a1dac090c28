package types

type TableName string

func (s TableName) Name() string {
	return TABLE_PREFIX + string(s)
}

const TABLE_PREFIX = "cb_"

const (
	TABLE_CONTENT_ITEM      = TableName("content_items")
	TABLE_CONTENT_CHUNK     = TableName("content_chunks")
	TABLE_CONTENT_EMBEDDING = TableName("content_embeddings")
)
