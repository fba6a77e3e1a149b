package llm

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgallion1/docinsight/internal/chunker"
	"github.com/dgallion1/docinsight/internal/doctree"
)

const (
	defaultSummaryWords = 150
	defaultInputTokens  = 1024
	generalReader       = "general reader"
)

// personaKeywords drives the extractive stage. Keys are matched as
// case-insensitive substrings of the persona, in personaOrder.
var personaKeywords = map[string][]string{
	"student": {"learn", "study", "education", "academic", "school", "university",
		"knowledge", "course", "assignment", "research", "project"},
	"researcher": {"research", "study", "analysis", "data", "method", "result",
		"finding", "conclusion", "evidence", "hypothesis", "experiment"},
	"business professional": {"business", "market", "strategy", "company", "industry",
		"profit", "revenue", "customer", "product", "service",
		"management", "investment", "growth"},
	generalReader: {"overview", "summary", "important", "key", "main",
		"highlight", "essential", "significant", "notable"},
}

var personaOrder = []string{"student", "researcher", "business professional", generalReader}

// PersonaKeywords returns the keyword list for the best matching persona,
// falling back to the general reader.
func PersonaKeywords(persona string) []string {
	p := strings.ToLower(persona)
	for _, key := range personaOrder {
		if strings.Contains(p, key) {
			return personaKeywords[key]
		}
	}
	return personaKeywords[generalReader]
}

// Summarizer produces persona-aware summaries in two stages: keyword-scored
// sentence extraction, then abstractive generation. With no generator the
// extractive text is the summary.
type Summarizer struct {
	gen         Generator
	policy      Policy
	maxWords    int
	inputTokens int
	log         *slog.Logger
}

// SummarizerConfig tunes a Summarizer.
type SummarizerConfig struct {
	MaxWords    int // summary length cap
	InputTokens int // cap on text sent to the generator
	Policy      Policy
}

func NewSummarizer(gen Generator, cfg SummarizerConfig, log *slog.Logger) *Summarizer {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = defaultSummaryWords
	}
	if cfg.InputTokens <= 0 {
		cfg.InputTokens = defaultInputTokens
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cfg.Policy.Log = log
	return &Summarizer{
		gen:         gen,
		policy:      cfg.Policy,
		maxWords:    cfg.MaxWords,
		inputTokens: cfg.InputTokens,
		log:         log,
	}
}

// Summarize returns a summary of text for persona. doc names the source in
// errors.
func (s *Summarizer) Summarize(ctx context.Context, doc, text, persona string) (string, error) {
	extract := Extractive(text, persona)
	if extract == "" {
		return "", nil
	}
	if s.gen == nil {
		return PostProcess(extract, s.maxWords), nil
	}

	prompt := BuildSummaryPrompt(persona, chunker.Head(extract, s.inputTokens))
	var out string
	err := s.policy.Call(ctx, "summarize", func(ctx context.Context) error {
		var err error
		out, err = s.gen.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		return "", &doctree.StageError{Stage: doctree.StageGenerate, Document: doc, Err: err}
	}
	return PostProcess(stripCodeBlock(out), s.maxWords), nil
}

// Extractive keeps the third of the sentences (at least one) with the most
// persona keyword hits, in their original order.
func Extractive(text, persona string) string {
	sentences := chunker.Sentences(strings.TrimSpace(text))
	if len(sentences) == 0 {
		return ""
	}
	keywords := PersonaKeywords(persona)

	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, len(sentences))
	for i, sent := range sentences {
		lower := strings.ToLower(sent)
		n := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				n++
			}
		}
		ranked[i] = scored{idx: i, score: n}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	keep := max(len(sentences)/3, 1)
	idx := make([]int, 0, keep)
	for _, r := range ranked[:keep] {
		idx = append(idx, r.idx)
	}
	sort.Ints(idx)

	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = sentences[j]
	}
	return strings.Join(parts, " ")
}

// PostProcess drops repeated sentences, caps the word count and ensures
// terminal punctuation.
func PostProcess(summary string, maxWords int) string {
	seen := map[string]bool{}
	var kept []string
	for _, sent := range chunker.Sentences(strings.TrimSpace(summary)) {
		key := strings.ToLower(strings.TrimRight(sent, ".!? "))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, sent)
	}
	out := strings.Join(kept, " ")

	if maxWords > 0 {
		if words := strings.Fields(out); len(words) > maxWords {
			out = strings.Join(words[:maxWords], " ")
		}
	}
	out = strings.TrimSpace(out)
	if out != "" && !strings.HasSuffix(out, ".") && !strings.HasSuffix(out, "!") && !strings.HasSuffix(out, "?") {
		out = strings.TrimRight(out, ",;: ") + "."
	}
	return out
}
