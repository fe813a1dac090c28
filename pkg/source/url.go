package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/filestore"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/types"
	"github.com/coursebrain/coursebrain/pkg/utils"
)

const urlFetchLimit = 32 << 20 // 32MB

// URLAdapter downloads the page and stashes the bytes in the file store
// so extraction reads them through the same path as uploaded files. The
// stored file id travels in the draft metadata.
type URLAdapter struct {
	files  filestore.Store
	client *http.Client
}

func NewURLAdapter(files filestore.Store) *URLAdapter {
	return &URLAdapter{
		files: files,
		client: &http.Client{
			Timeout: time.Minute,
		},
	}
}

func (a *URLAdapter) Type() types.SourceType {
	return types.SOURCE_TYPE_URL
}

func (a *URLAdapter) Validate(ctx context.Context, args IngestArgs) error {
	u, err := url.Parse(args.SourceID)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("source.URLAdapter.Validate", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return nil
}

type urlDraftMeta struct {
	URL         string `json:"url"`
	FileID      string `json:"file_id"`
	ContentType string `json:"content_type"`
	FetchedAt   int64  `json:"fetched_at"`
}

func (a *URLAdapter) Resolve(ctx context.Context, args IngestArgs) ([]Draft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.SourceID, nil)
	if err != nil {
		return nil, errors.New("source.URLAdapter.Resolve", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	req.Header.Set("User-Agent", "coursebrain/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.New("source.URLAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("source.URLAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE,
			fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, args.SourceID))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, urlFetchLimit))
	if err != nil {
		return nil, errors.New("source.URLAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	fileID := "url/" + utils.GenRandomID()
	if err = a.files.SaveFile(ctx, fileID, body); err != nil {
		return nil, errors.New("source.URLAdapter.Resolve", i18n.ERROR_INTERNAL, err)
	}

	meta, _ := json.Marshal(urlDraftMeta{
		URL:         args.SourceID,
		FileID:      fileID,
		ContentType: contentType,
		FetchedAt:   types.GetCurrentTimestamp(),
	})

	return []Draft{{
		SourceID:    args.SourceID,
		Title:       args.Title,
		Description: args.Description,
		ContentType: contentType,
		Metadata:    types.RawJSON(meta),
	}}, nil
}

// FileIDFromMetadata recovers the stored file id written by Resolve.
func FileIDFromMetadata(meta types.RawJSON) string {
	var m urlDraftMeta
	if err := json.Unmarshal(meta, &m); err != nil {
		return ""
	}
	return m.FileID
}
