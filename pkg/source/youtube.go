package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/types"
)

var youtubeVideoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTubeAdapter pulls the video transcript through the timedtext
// endpoint and prefills the draft with it, so the pipeline skips
// extraction entirely.
type YouTubeAdapter struct {
	client   *http.Client
	endpoint string
	lang     string
}

func NewYouTubeAdapter(lang string) *YouTubeAdapter {
	if lang == "" {
		lang = "en"
	}
	return &YouTubeAdapter{
		client: &http.Client{
			Timeout: time.Minute,
		},
		endpoint: "https://www.youtube.com/api/timedtext",
		lang:     lang,
	}
}

func (a *YouTubeAdapter) Type() types.SourceType {
	return types.SOURCE_TYPE_YOUTUBE
}

// videoID accepts a bare 11-char id or a watch/short URL.
func (a *YouTubeAdapter) videoID(sourceID string) (string, error) {
	if youtubeVideoIDPattern.MatchString(sourceID) {
		return sourceID, nil
	}

	u, err := url.Parse(sourceID)
	if err != nil {
		return "", err
	}

	if v := u.Query().Get("v"); youtubeVideoIDPattern.MatchString(v) {
		return v, nil
	}
	if id := strings.TrimPrefix(u.Path, "/"); youtubeVideoIDPattern.MatchString(id) {
		return id, nil
	}

	return "", fmt.Errorf("cannot resolve youtube video id from %q", sourceID)
}

func (a *YouTubeAdapter) Validate(ctx context.Context, args IngestArgs) error {
	if _, err := a.videoID(args.SourceID); err != nil {
		return errors.New("source.YouTubeAdapter.Validate", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return nil
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Value string `xml:",chardata"`
	} `xml:"text"`
}

type youtubeDraftMeta struct {
	VideoID  string `json:"video_id"`
	Lang     string `json:"lang"`
	Segments int    `json:"segments"`
}

func (a *YouTubeAdapter) Resolve(ctx context.Context, args IngestArgs) ([]Draft, error) {
	videoID, err := a.videoID(args.SourceID)
	if err != nil {
		return nil, errors.New("source.YouTubeAdapter.Resolve", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}

	endpoint := fmt.Sprintf("%s?lang=%s&v=%s", a.endpoint, url.QueryEscape(a.lang), url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.New("source.YouTubeAdapter.Resolve", i18n.ERROR_INTERNAL, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.New("source.YouTubeAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("source.YouTubeAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE,
			fmt.Errorf("timedtext returned status %d for video %s", resp.StatusCode, videoID))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New("source.YouTubeAdapter.Resolve", i18n.ERROR_SOURCE_UNREACHABLE, err)
	}

	var transcript timedText
	if err = xml.Unmarshal(raw, &transcript); err != nil {
		return nil, errors.New("source.YouTubeAdapter.Resolve", i18n.ERROR_EXTRACTION_FAILED, err)
	}

	var sb strings.Builder
	for _, t := range transcript.Texts {
		text := strings.TrimSpace(t.Value)
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, errors.New("source.YouTubeAdapter.Resolve", i18n.ERROR_EMPTY_CONTENT, nil)
	}

	meta, _ := json.Marshal(youtubeDraftMeta{
		VideoID:  videoID,
		Lang:     a.lang,
		Segments: len(transcript.Texts),
	})

	return []Draft{{
		SourceID:    videoID,
		Title:       args.Title,
		Description: args.Description,
		Content:     content,
		ContentType: "text/plain",
		Language:    a.lang,
		Metadata:    types.RawJSON(meta),
	}}, nil
}
