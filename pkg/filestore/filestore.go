// Package filestore abstracts where uploaded source files live. The
// pipeline reads and writes bytes through the Store interface and never
// touches the backing storage directly.
package filestore

import (
	"context"
)

// File is the payload handed to extraction: the raw bytes plus what we
// know about them.
type File struct {
	OriginalName string
	MimeType     string
	Size         int64
	Buffer       []byte
}

type Store interface {
	GetFile(ctx context.Context, fileID string) (*File, error)
	SaveFile(ctx context.Context, fileID string, content []byte) error
	DeleteFile(ctx context.Context, fileID string) error
}
