// Package app assembles the analysis stack from configuration. The CLI and
// the server share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/headings"
	"github.com/dgallion1/docinsight/internal/insights"
	"github.com/dgallion1/docinsight/internal/llm"
	"github.com/dgallion1/docinsight/internal/ocr"
	"github.com/dgallion1/docinsight/internal/retrieval"
)

// App holds the assembled analyzer and the clients behind it.
type App struct {
	Analyzer *insights.Analyzer
	Stats    *llm.Stats

	closers []func()
}

// New builds the analyzer described by cfg. The caller must Close the app.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	a := &App{Stats: llm.NewStats(cfg.JobTTL)}

	policy := llm.DefaultPolicy(cfg.ServiceTimeout)
	policy.Log = log

	var gemini *llm.Gemini
	if cfg.EmbedProvider == "gemini" || cfg.GenerateProvider == "gemini" {
		embedModel := cfg.EmbedModel
		if embedModel == config.Defaults().EmbedModel {
			embedModel = ""
		}
		g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GenerateModel, embedModel)
		if err != nil {
			return nil, err
		}
		gemini = g
	}

	var emb llm.Embedder
	switch cfg.EmbedProvider {
	case "openai":
		emb = llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedBaseURL, cfg.EmbedModel)
	case "gemini":
		emb = gemini.Embedder()
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown embed provider %q", cfg.EmbedProvider)
	}

	var gen llm.Generator
	switch cfg.GenerateProvider {
	case "gemini":
		gen = gemini
	case "claude":
		claude := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		a.closers = append(a.closers, claude.Close)
		gen = claude
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown generate provider %q", cfg.GenerateProvider)
	}

	retriever, err := retrieval.NewHybridRetriever(llm.TimeEmbedder(emb, a.Stats), retrieval.Options{
		SparseWeight:   cfg.SparseWeight,
		PositionBoost:  cfg.PositionBoost,
		MaxEmbedTokens: cfg.MaxEmbedTokens,
		Policy:         policy,
	}, log)
	if err != nil {
		return nil, err
	}

	summarizer := llm.NewSummarizer(llm.TimeGenerator(gen, a.Stats), llm.SummarizerConfig{
		MaxWords: cfg.SummaryMaxLength,
		Policy:   policy,
	}, log)

	ocrCfg := headings.OCRConfig{
		DPI:         cfg.OCRDPI,
		Concurrency: cfg.MaxConcurrentOCR,
		Timeout:     cfg.ServiceTimeout,
	}
	if cfg.OCREnabled {
		ocrCfg.Recognizer = ocr.NewTesseract(cfg.TesseractPath)
	}

	a.Analyzer = insights.NewAnalyzer(
		headings.NewDefaultExtractor(log, ocrCfg),
		retriever,
		summarizer,
		insights.Config{
			TopK:             cfg.TopK,
			Expand:           cfg.ExpandQuery,
			MaxConcurrentLLM: cfg.MaxConcurrentLLM,
		},
		log,
	)
	log.Info("analyzer ready",
		"embed_provider", providerName(cfg.EmbedProvider),
		"generate_provider", providerName(cfg.GenerateProvider),
		"ocr", cfg.OCREnabled,
		"sparse_weight", cfg.SparseWeight,
	)
	return a, nil
}

// Close releases client resources.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

func providerName(p string) string {
	if p == "" {
		return "none"
	}
	return p
}
