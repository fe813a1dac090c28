package openai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/coursebrain/coursebrain/pkg/ai"
)

const (
	NAME = "openai"
)

type Driver struct {
	client *openai.Client
	model  ai.ModelName
}

func New(token, proxy string, model ai.ModelName) *Driver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	if model.EmbeddingModel == "" {
		model.EmbeddingModel = string(openai.LargeEmbedding3)
	}

	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *Driver) Lang() string {
	return ai.MODEL_BASE_LANGUAGE_EN
}

func (s *Driver) EmbedBatch(ctx context.Context, texts []string) (ai.EmbeddingResult, error) {
	slog.Debug("Embedding", slog.String("driver", NAME), slog.Int("texts", len(texts)))

	r := ai.EmbeddingResult{
		Usage: &openai.Usage{},
	}
	if len(texts) == 0 {
		return r, nil
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(s.model.EmbeddingModel),
		Dimensions: ai.EmbeddingDimensions,
		Input:      texts,
	})
	if err != nil {
		return r, fmt.Errorf("Error creating embedding: %w", err)
	}

	for _, v := range resp.Data {
		r.Data = append(r.Data, v.Embedding)
	}

	r.Usage.PromptTokens = resp.Usage.PromptTokens
	r.Usage.TotalTokens = resp.Usage.TotalTokens
	r.Model = string(resp.Model)

	if len(r.Data) != len(texts) {
		return r, fmt.Errorf("embedding result length mismatch, want %d got %d", len(texts), len(r.Data))
	}

	return r, nil
}
