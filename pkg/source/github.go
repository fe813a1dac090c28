package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/types"
)

const (
	githubMaxFileSize = 1 << 20 // 1MB per file
	githubMaxFiles    = 50
)

// documentation and plain text files only, code stays out of the
// knowledge base
var githubIncludedExtensions = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".rst":      "text/plain",
	".adoc":     "text/plain",
}

// GitHubAdapter walks a repository tree and yields one draft per
// documentation file. SourceID is "owner/repo" with an optional
// "@ref" suffix.
type GitHubAdapter struct {
	client *gh.Client
}

func NewGitHubAdapter(token string) *GitHubAdapter {
	client := gh.NewClient(&http.Client{Timeout: time.Second * 30})
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubAdapter{client: client}
}

func (a *GitHubAdapter) Type() types.SourceType {
	return types.SOURCE_TYPE_GITHUB
}

func (a *GitHubAdapter) parseSourceID(sourceID string) (owner, repo, ref string, err error) {
	spec := sourceID
	if at := strings.Index(spec, "@"); at >= 0 {
		ref = spec[at+1:]
		spec = spec[:at]
	}

	parts := strings.Split(strings.Trim(spec, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("github source must be owner/repo, got %q", sourceID)
	}
	return parts[0], parts[1], ref, nil
}

func (a *GitHubAdapter) Validate(ctx context.Context, args IngestArgs) error {
	if _, _, _, err := a.parseSourceID(args.SourceID); err != nil {
		return errors.New("source.GitHubAdapter.Validate", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return nil
}

type githubDraftMeta struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Ref    string `json:"ref"`
	Path   string `json:"path"`
	SHA    string `json:"sha"`
	Size   int    `json:"size"`
	WebURL string `json:"web_url"`
}

func (a *GitHubAdapter) Resolve(ctx context.Context, args IngestArgs) ([]Draft, error) {
	owner, repo, ref, err := a.parseSourceID(args.SourceID)
	if err != nil {
		return nil, errors.New("source.GitHubAdapter.Resolve", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}

	if ref == "" {
		repository, _, err := a.client.Repositories.Get(ctx, owner, repo)
		if err != nil {
			return nil, errors.New("source.GitHubAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE, err)
		}
		ref = repository.GetDefaultBranch()
	}

	tree, _, err := a.client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, errors.New("source.GitHubAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE, err)
	}

	var drafts []Draft
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}

		filePath := entry.GetPath()
		contentType, ok := githubIncludedExtensions[strings.ToLower(path.Ext(filePath))]
		if !ok {
			continue
		}
		if entry.GetSize() > githubMaxFileSize {
			continue
		}

		content, err := a.fetchBlob(ctx, owner, repo, entry.GetSHA())
		if err != nil {
			// unreadable files are skipped, not fatal for the run
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		meta, _ := json.Marshal(githubDraftMeta{
			Owner:  owner,
			Repo:   repo,
			Ref:    ref,
			Path:   filePath,
			SHA:    entry.GetSHA(),
			Size:   entry.GetSize(),
			WebURL: fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", owner, repo, ref, filePath),
		})

		drafts = append(drafts, Draft{
			SourceID:    fmt.Sprintf("%s/%s@%s:%s", owner, repo, ref, filePath),
			Title:       filePath,
			Content:     content,
			ContentType: contentType,
			Metadata:    types.RawJSON(meta),
		})

		if len(drafts) >= githubMaxFiles {
			break
		}
	}

	if len(drafts) == 0 {
		return nil, errors.New("source.GitHubAdapter.Resolve", i18n.ERROR_EMPTY_CONTENT, nil)
	}

	return drafts, nil
}

func (a *GitHubAdapter) fetchBlob(ctx context.Context, owner, repo, sha string) (string, error) {
	blob, _, err := a.client.Git.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return "", err
	}

	if blob.GetEncoding() == "base64" {
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return blob.GetContent(), nil
}
