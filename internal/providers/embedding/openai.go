package embedding

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hearsay-labs/hearsay/internal/utils"
)

const (
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultDimension      = 1536
)

// OpenAI embeds text through the OpenAI embeddings API via langchaingo.
type OpenAI struct {
	embedder  embeddings.Embedder
	dimension int
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	const op = "embedding.NewOpenAI"

	if apiKey == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "api key is required", nil)
	}
	if model == "" {
		model = defaultEmbeddingModel
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to create openai client", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to create embedder", err)
	}

	return &OpenAI{embedder: embedder, dimension: defaultDimension}, nil
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "embedding.OpenAI.Embed"

	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "text is empty", nil)
	}

	vec, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "embedding request failed", err)
	}
	return vec, nil
}

func (o *OpenAI) Dimension() int { return o.dimension }
