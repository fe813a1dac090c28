package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore keeps files on the local file system, for development and
// single node deployments.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

func (l *LocalStore) fullPath(fileID string) string {
	return filepath.Join(l.Root, filepath.Clean("/"+fileID))
}

func (l *LocalStore) GetFile(ctx context.Context, fileID string) (*File, error) {
	fullPath := l.fullPath(fileID)

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	return &File{
		OriginalName: filepath.Base(fullPath),
		MimeType:     detectMime(content),
		Size:         int64(len(content)),
		Buffer:       content,
	}, nil
}

func (l *LocalStore) SaveFile(ctx context.Context, fileID string, content []byte) error {
	fullPath := l.fullPath(fileID)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (l *LocalStore) DeleteFile(ctx context.Context, fileID string) error {
	return os.Remove(l.fullPath(fileID))
}
