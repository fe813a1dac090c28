package ai

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

const (
	MODEL_BASE_LANGUAGE_EN = "en"

	// EmbeddingDimensions is the fixed output width requested from every
	// driver, matching the vector column width.
	EmbeddingDimensions = 1024
)

type ModelName struct {
	EmbeddingModel string `toml:"embedding_model"`
}

type EmbeddingResult struct {
	Model string
	Usage *openai.Usage
	Data  [][]float32
}

// EmbeddingDriver produces vectors for a batch of texts. Implementations
// must return one vector per input, in input order.
type EmbeddingDriver interface {
	Lang() string
	EmbedBatch(ctx context.Context, texts []string) (EmbeddingResult, error)
}

// NumTokens counts tokens the way the embedding models do. Unknown
// models fall back to cl100k_base.
func NumTokens(text string, model string) (int, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	return len(tkm.Encode(text, nil, nil)), nil
}
