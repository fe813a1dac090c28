package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/coursebrain/coursebrain/pkg/filestore"
)

// RemoteEngine calls an external extraction service for formats that
// need heavy tooling, such as PDF parsing, OCR and speech to text. The
// file travels base64 encoded in the request body.
type RemoteEngine struct {
	name   string
	apiURL string
	token  string
	client *http.Client
}

type RemoteEngineConfig struct {
	APIURL string `toml:"api_url"`
	Token  string `toml:"token"`
}

func NewRemoteEngine(name string, config RemoteEngineConfig) *RemoteEngine {
	return &RemoteEngine{
		name:   name,
		apiURL: config.APIURL,
		token:  config.Token,
		client: &http.Client{},
	}
}

func (e *RemoteEngine) Name() string {
	return e.name
}

type remoteExtractRequest struct {
	File     string `json:"file"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Method   string `json:"method"`
}

type remoteExtractResponse struct {
	Content     string              `json:"content"`
	ContentType string              `json:"content_type,omitempty"`
	Language    string              `json:"language,omitempty"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Confidence  float64             `json:"confidence"`
	Error       *remoteExtractError `json:"error,omitempty"`
}

type remoteExtractError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteEngine) Extract(ctx context.Context, file *filestore.File) (Result, error) {
	slog.Debug("Remote extraction", slog.String("engine", e.name), slog.String("mime", file.MimeType))

	reqBody, err := json.Marshal(remoteExtractRequest{
		File:     base64.StdEncoding.EncodeToString(file.Buffer),
		FileName: file.OriginalName,
		MimeType: file.MimeType,
		Method:   e.name,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("token %s", e.token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read extraction response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(raw))
	}

	var body remoteExtractResponse
	if err = json.Unmarshal(raw, &body); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal extraction response: %w", err)
	}

	if body.Error != nil {
		return Result{}, fmt.Errorf("extraction engine error %d: %s", body.Error.Code, body.Error.Message)
	}

	return Result{
		Content:     body.Content,
		ContentType: body.ContentType,
		Language:    body.Language,
		Title:       body.Title,
		Description: body.Description,
		Confidence:  body.Confidence,
	}, nil
}
