package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/evaluation"
	"github.com/dgallion1/docinsight/internal/headings"
	"github.com/dgallion1/docinsight/internal/llm"
	"github.com/dgallion1/docinsight/internal/retrieval"
	"github.com/dgallion1/docinsight/internal/structure"
)

// DefaultPersona is used when a caller names none.
const DefaultPersona = "general reader"

const defaultLLMConcurrency = 5

// Phase is a step of document analysis, reported through Options.Progress.
type Phase string

const (
	PhaseExtracting  Phase = "extracting"
	PhaseSegmenting  Phase = "segmenting"
	PhaseRanking     Phase = "ranking"
	PhaseSummarizing Phase = "summarizing"
)

// Config tunes an Analyzer.
type Config struct {
	TopK             int
	Expand           bool
	MaxConcurrentLLM int // bound on summaries in flight
}

// Options are per-call analysis settings.
type Options struct {
	Personas []string
	TopK     int // overrides Config.TopK when positive
	Progress func(Phase)
}

// Document is a processed document: its headings, outline and page text.
type Document struct {
	Name       string
	Title      string
	Headings   []doctree.Heading
	Tier       doctree.Tier
	Scanned    bool
	Structure  []*doctree.Node
	Content    string
	Pages      []string
	Properties backend.Properties
}

// Analyzer runs heading extraction, segmentation, persona ranking and
// summarization over documents.
type Analyzer struct {
	extractor  *headings.Extractor
	retriever  *retrieval.HybridRetriever
	summarizer *llm.Summarizer
	cfg        Config
	llmSem     chan struct{}
	log        *slog.Logger
}

func NewAnalyzer(extractor *headings.Extractor, retriever *retrieval.HybridRetriever, summarizer *llm.Summarizer, cfg Config, log *slog.Logger) *Analyzer {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxConcurrentLLM <= 0 {
		cfg.MaxConcurrentLLM = defaultLLMConcurrency
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{
		extractor:  extractor,
		retriever:  retriever,
		summarizer: summarizer,
		cfg:        cfg,
		llmSem:     make(chan struct{}, cfg.MaxConcurrentLLM),
		log:        log,
	}
}

// Process extracts headings and the outline tree and collects page text.
func (a *Analyzer) Process(ctx context.Context, doc backend.Document) (*Document, error) {
	res, err := a.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract headings: %w", err)
	}

	pages := make([]string, doc.PageCount())
	for i := range pages {
		text, err := doc.PageText(i + 1)
		if err != nil {
			a.log.Warn("page text unavailable", "doc", doc.Name(), "page", i+1, "error", err)
			continue
		}
		pages[i] = text
	}

	props := doc.Properties()
	title := props.Metadata["title"]
	if title == "" {
		title = filepath.Base(doc.Name())
	}

	hs := res.Headings
	if hs == nil {
		hs = []doctree.Heading{}
	}
	tree := structure.Build(hs)
	a.log.Debug("outline built", "doc", doc.Name(), "tier", res.Tier, "tree", structure.Describe(tree))
	return &Document{
		Name:       doc.Name(),
		Title:      title,
		Headings:   hs,
		Tier:       res.Tier,
		Scanned:    res.Scanned,
		Structure:  tree,
		Content:    strings.Join(pages, "\n\n"),
		Pages:      pages,
		Properties: props,
	}, nil
}

// ExtractSections splits the document into one section per heading.
func ExtractSections(d *Document) []doctree.Section {
	return structure.Segment(d.Headings, d.Pages)
}

// Index builds the retrieval index over sections. The index is read-only and
// shared by every persona query for the document.
func (a *Analyzer) Index(ctx context.Context, d *Document, sections []doctree.Section) (*retrieval.Index, error) {
	corpus := make([]string, len(sections))
	meta := make([]retrieval.Metadata, len(sections))
	for i, s := range sections {
		corpus[i] = s.Content
		meta[i] = retrieval.Metadata{ID: s.ID, Heading: s.Heading, Level: s.Level, Page: s.Page}
	}
	return a.retriever.IndexCorpus(ctx, d.Name, corpus, meta)
}

// MatchPersona ranks sections for persona. Results whose id does not map
// back to a section are dropped.
func (a *Analyzer) MatchPersona(ctx context.Context, ix *retrieval.Index, sections []doctree.Section, persona string, topK int) ([]MatchedSection, error) {
	if topK <= 0 {
		topK = a.cfg.TopK
	}
	results, err := ix.Retrieve(ctx, persona, topK, a.cfg.Expand)
	if err != nil {
		return nil, err
	}

	matched := make([]MatchedSection, 0, len(results))
	for _, r := range results {
		idx, ok := structure.SectionIndex(r.Metadata.ID)
		if !ok || idx >= len(sections) {
			continue
		}
		s := sections[idx]
		matched = append(matched, MatchedSection{
			ID:          s.ID,
			Heading:     s.Heading,
			Level:       s.Level,
			Page:        s.Page,
			Score:       r.Score,
			SparseScore: r.SparseScore,
			DenseScore:  r.DenseScore,
		})
	}
	return matched, nil
}

// GenerateInsights summarizes each matched section for persona. Summaries
// run concurrently; the result keeps rank order.
func (a *Analyzer) GenerateInsights(ctx context.Context, doc string, matched []MatchedSection, sections []doctree.Section, persona string) ([]Insight, error) {
	insights := make([]Insight, len(matched))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range matched {
		idx, ok := structure.SectionIndex(m.ID)
		if !ok || idx >= len(sections) {
			return nil, fmt.Errorf("matched section %q not in document", m.ID)
		}
		content := sections[idx].Content
		g.Go(func() error {
			select {
			case a.llmSem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-a.llmSem }()

			summary, err := a.summarizer.Summarize(gctx, doc, content, persona)
			if err != nil {
				return err
			}
			insights[i] = Insight{
				Heading:        m.Heading,
				Page:           m.Page,
				Summary:        summary,
				RelevanceScore: m.Score,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return insights, nil
}

// Analyze runs the full pipeline for each persona. A persona that fails is
// recorded on the report; Analyze fails only when the document cannot be
// processed or every persona failed.
func (a *Analyzer) Analyze(ctx context.Context, doc backend.Document, opts Options) (*Report, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(Phase) {}
	}
	log := a.log.With("doc", doc.Name())

	progress(PhaseExtracting)
	d, err := a.Process(ctx, doc)
	if err != nil {
		return nil, err
	}
	report := &Report{
		PDF:        d.Name,
		Title:      d.Title,
		Tier:       d.Tier,
		Headings:   d.Headings,
		Structure:  d.Structure,
		Content:    d.Content,
		Properties: d.Properties,
	}
	if len(opts.Personas) == 0 {
		return report, nil
	}

	progress(PhaseSegmenting)
	sections := ExtractSections(d)
	log.Info("document segmented", "headings", len(d.Headings), "sections", len(sections), "tier", d.Tier)

	progress(PhaseRanking)
	ix, err := a.Index(ctx, d, sections)
	if err != nil {
		return nil, fmt.Errorf("index sections: %w", err)
	}
	report.Personas = make([]PersonaResult, len(opts.Personas))
	for i, p := range opts.Personas {
		report.Personas[i].Persona = p
	}

	progress(PhaseSummarizing)
	var g errgroup.Group
	for i, persona := range opts.Personas {
		g.Go(func() error {
			pr := &report.Personas[i]
			matched, err := a.MatchPersona(ctx, ix, sections, persona, opts.TopK)
			if err == nil {
				pr.MatchedSections = matched
				pr.Insights, err = a.GenerateInsights(ctx, d.Name, matched, sections, persona)
			}
			if err != nil {
				log.Error("persona failed", "persona", persona, "error", err)
				pr.Error = err.Error()
				return nil
			}
			log.Info("persona analysed", "persona", persona, "matched", len(matched))
			return nil
		})
	}
	_ = g.Wait()

	if report.Failed() == len(report.Personas) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		return report, errors.New("all personas failed: " + report.Personas[0].Error)
	}
	return report, nil
}

// AnalyzeFile opens path with the matching backend and analyses it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, bopts backend.Options, opts Options) (*Report, error) {
	doc, err := backend.Open(path, bopts)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return a.Analyze(ctx, doc, opts)
}

// Evaluate analyses doc for every persona in the ground truth and scores
// the outcome.
func (a *Analyzer) Evaluate(ctx context.Context, doc backend.Document, gt evaluation.GroundTruth) (evaluation.Result, error) {
	personas := make([]string, 0, len(gt.Personas))
	for p := range gt.Personas {
		personas = append(personas, p)
	}
	report, err := a.Analyze(ctx, doc, Options{Personas: personas})
	if err != nil {
		return evaluation.Result{}, err
	}
	return EvaluateReport(report, gt), nil
}
