package source

import (
	"context"
	"net/http"
	"strings"

	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/types"
)

// ManualAdapter accepts text pasted straight into the request. There is
// nothing to fetch, the draft carries the content as given.
type ManualAdapter struct{}

func NewManualAdapter() *ManualAdapter {
	return &ManualAdapter{}
}

func (a *ManualAdapter) Type() types.SourceType {
	return types.SOURCE_TYPE_MANUAL
}

func (a *ManualAdapter) Validate(ctx context.Context, args IngestArgs) error {
	if strings.TrimSpace(args.Content) == "" {
		return errors.New("source.ManualAdapter.Validate", i18n.ERROR_EMPTY_CONTENT, nil).Code(http.StatusBadRequest)
	}
	if strings.TrimSpace(args.Title) == "" {
		return errors.New("source.ManualAdapter.Validate", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	return nil
}

func (a *ManualAdapter) Resolve(ctx context.Context, args IngestArgs) ([]Draft, error) {
	if strings.TrimSpace(args.Content) == "" {
		return nil, errors.New("source.ManualAdapter.Resolve", i18n.ERROR_EMPTY_CONTENT, nil)
	}

	contentType := args.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}

	return []Draft{{
		SourceID:    args.SourceID,
		Title:       args.Title,
		Description: args.Description,
		Content:     args.Content,
		ContentType: contentType,
		Metadata:    args.Metadata,
	}}, nil
}
