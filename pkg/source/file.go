package source

import (
	"context"
	"net/http"
	"strings"

	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/extract"
	"github.com/coursebrain/coursebrain/pkg/filestore"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/types"
)

// FileAdapter handles files already uploaded to the file store. The
// request's SourceID is the file id; the draft stays empty so the
// extraction stage pulls the bytes itself.
type FileAdapter struct {
	files filestore.Store
}

func NewFileAdapter(files filestore.Store) *FileAdapter {
	return &FileAdapter{files: files}
}

func (a *FileAdapter) Type() types.SourceType {
	return types.SOURCE_TYPE_FILE
}

func (a *FileAdapter) Validate(ctx context.Context, args IngestArgs) error {
	if strings.TrimSpace(args.SourceID) == "" {
		return errors.New("source.FileAdapter.Validate", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	if args.ContentType != "" && !extract.SupportedMimeType(args.ContentType) {
		return errors.New("source.FileAdapter.Validate", i18n.ERROR_UNSUPPORTED_MIME_TYPE, nil).Code(http.StatusBadRequest)
	}
	return nil
}

func (a *FileAdapter) Resolve(ctx context.Context, args IngestArgs) ([]Draft, error) {
	file, err := a.files.GetFile(ctx, args.SourceID)
	if err != nil {
		return nil, errors.New("source.FileAdapter.Resolve", i18n.ERROR_FILE_NOT_FOUND, err).Code(http.StatusNotFound)
	}

	contentType := args.ContentType
	if contentType == "" {
		contentType = file.MimeType
	}

	return []Draft{{
		SourceID:    args.SourceID,
		Title:       args.Title,
		Description: args.Description,
		ContentType: contentType,
		Metadata:    args.Metadata,
	}}, nil
}
