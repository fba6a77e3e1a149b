package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIEmbedModel = "text-embedding-3-small"

// OpenAIEmbedder calls an OpenAI-compatible /v1/embeddings endpoint, one
// request per batch.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

// NewOpenAIEmbedder builds an embedder. baseURL may point at any compatible
// server; empty uses the OpenAI API.
func NewOpenAIEmbedder(apiKey, baseURL, model string) *OpenAIEmbedder {
	if model == "" {
		model = defaultOpenAIEmbedModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are handled by Policy.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEmbedder{client: openai.NewClient(opts...), model: model}
}

func (e *OpenAIEmbedder) Model() string { return e.model }

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode) {
			return nil, &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vecs[d.Index] = vec
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("openai embeddings: missing vector for input %d", i)
		}
	}
	return vecs, nil
}
