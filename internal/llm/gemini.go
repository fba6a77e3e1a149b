package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultGeminiEmbedModel = "text-embedding-004"
)

// Gemini wraps the Gemini API for generation and embeddings.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
}

func NewGemini(ctx context.Context, apiKey, model, embedModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if embedModel == "" {
		embedModel = defaultGeminiEmbedModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: c, model: model, embedModel: embedModel}, nil
}

func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", classifyGemini("gemini generate", err)
	}
	return res.Text(), nil
}

// Embedder exposes the embedding side under its own model name.
func (g *Gemini) Embedder() Embedder { return geminiEmbedder{g} }

type geminiEmbedder struct{ g *Gemini }

func (e geminiEmbedder) Model() string { return e.g.embedModel }

func (e geminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	res, err := e.g.client.Models.EmbedContent(ctx, e.g.embedModel, contents, nil)
	if err != nil {
		return nil, classifyGemini("gemini embed", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d vectors for %d texts", len(res.Embeddings), len(texts))
	}
	vecs := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb != nil {
			vecs[i] = emb.Values
		}
	}
	return vecs, nil
}

func classifyGemini(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && retryableStatus(apiErr.Code) {
		return &RetryableError{StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", op, err)
}
