package headings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/ocr"
)

const (
	minOCRConfidence   = 70.0
	ocrHeightFactor    = 1.3
	defaultOCRDPI      = 150
	defaultConcurrency = 4
)

// OCRConfig configures the OCR tier.
type OCRConfig struct {
	Recognizer  ocr.Recognizer
	DPI         int
	Concurrency int
	Timeout     time.Duration // per page, render plus recognition; 0 disables
}

// OCRStrategy renders scanned pages and picks tall, confident tokens as
// headings. A page that times out is skipped; any other service failure
// aborts extraction.
type OCRStrategy struct {
	cfg OCRConfig
	log *slog.Logger
}

func NewOCRStrategy(cfg OCRConfig, log *slog.Logger) *OCRStrategy {
	if cfg.DPI <= 0 {
		cfg.DPI = defaultOCRDPI
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &OCRStrategy{cfg: cfg, log: log}
}

func (s *OCRStrategy) Tier() doctree.Tier { return doctree.TierOCR }
func (s *OCRStrategy) Gate() Gate         { return ScannedOnly }

func (s *OCRStrategy) Extract(ctx context.Context, doc backend.Document) ([]doctree.Heading, error) {
	raster, ok := doc.(backend.Rasterizer)
	if !ok {
		s.log.Warn("document cannot be rendered for ocr", "doc", doc.Name())
		return nil, nil
	}

	type pageResult struct {
		headings []doctree.Heading
		err      error
	}
	n := doc.PageCount()
	results := make([]pageResult, n)
	done := make(chan struct{}, n)
	sem := make(chan struct{}, s.cfg.Concurrency)

	for i := range n {
		sem <- struct{}{}
		go func(page int) {
			defer func() { <-sem; done <- struct{}{} }()
			hs, err := s.page(ctx, raster, doc.Name(), page)
			results[page-1] = pageResult{headings: hs, err: err}
		}(i + 1)
	}
	for range n {
		<-done
	}

	var headings []doctree.Heading
	for i, r := range results {
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
				s.log.Warn("ocr page timed out, skipping", "doc", doc.Name(), "page", i+1)
				continue
			}
			return nil, r.err
		}
		headings = append(headings, r.headings...)
	}
	return headings, nil
}

func (s *OCRStrategy) page(ctx context.Context, raster backend.Rasterizer, name string, page int) ([]doctree.Heading, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	img, err := raster.RenderPage(ctx, page, s.cfg.DPI)
	if err != nil {
		return nil, stageErr(ctx, doctree.StageRender, name, page, err)
	}
	tokens, err := s.cfg.Recognizer.Recognize(ctx, img)
	if err != nil {
		return nil, stageErr(ctx, doctree.StageOCR, name, page, err)
	}
	return HeadingsFromTokens(tokens, page), nil
}

// stageErr keeps deadline errors recognizable after wrapping.
func stageErr(ctx context.Context, stage doctree.Stage, name string, page int, err error) error {
	if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		err = errors.Join(err, ctx.Err())
	}
	return &doctree.StageError{Stage: stage, Document: name, Page: page, Err: err}
}

// HeadingsFromTokens applies the OCR heading rule to one page's tokens:
// confidence above 70, under 100 characters, and taller than 1.3 times the
// page's mean token height.
func HeadingsFromTokens(tokens []ocr.Token, page int) []doctree.Heading {
	if len(tokens) == 0 {
		return nil
	}
	heights := make([]float64, len(tokens))
	var sum float64
	for i, t := range tokens {
		heights[i] = t.Height
		sum += t.Height
	}
	mean := sum / float64(len(tokens))

	var out []doctree.Heading
	for _, t := range tokens {
		text := strings.TrimSpace(t.Text)
		if text == "" || t.Confidence <= minOCRConfidence || utf8.RuneCountInString(text) >= maxHeadingRunes {
			continue
		}
		if t.Height <= ocrHeightFactor*mean {
			continue
		}
		conf := t.Confidence
		out = append(out, doctree.Heading{
			Text:       text,
			Page:       page,
			Level:      OCRLevel(t.Height, heights),
			Y:          t.Top,
			Confidence: &conf,
			Tier:       doctree.TierOCR,
		})
	}
	return out
}
