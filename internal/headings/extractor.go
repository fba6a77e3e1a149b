package headings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/doctree"
)

// Gate restricts a strategy to text-native or scanned documents.
type Gate int

const (
	Always Gate = iota
	TextOnly
	ScannedOnly
)

// Strategy is one tier of heading extraction. An empty result hands over to
// the next tier.
type Strategy interface {
	Tier() doctree.Tier
	Gate() Gate
	Extract(ctx context.Context, doc backend.Document) ([]doctree.Heading, error)
}

// Result is the winning tier's output.
type Result struct {
	Headings []doctree.Heading
	Tier     doctree.Tier
	Scanned  bool
}

// Extractor runs strategies in order and keeps the first non-empty result.
type Extractor struct {
	strategies []Strategy
	log        *slog.Logger
}

func NewExtractor(log *slog.Logger, strategies ...Strategy) *Extractor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Extractor{strategies: strategies, log: log}
}

// NewDefaultExtractor chains the outline and font tiers, plus the OCR tier
// when cfg carries a recognizer.
func NewDefaultExtractor(log *slog.Logger, cfg OCRConfig) *Extractor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	strategies := []Strategy{
		&OutlineStrategy{Log: log},
		&FontStrategy{Log: log},
	}
	if cfg.Recognizer != nil {
		strategies = append(strategies, NewOCRStrategy(cfg, log))
	}
	return NewExtractor(log, strategies...)
}

// Extract returns the headings of the first tier that finds any. Scan
// detection runs only when a gated tier is reached.
func (e *Extractor) Extract(ctx context.Context, doc backend.Document) (Result, error) {
	var res Result
	scanned := sync.OnceValue(func() bool {
		pages, err := MeasurePages(doc)
		if err != nil {
			e.log.Warn("scan detection failed, treating as text", "doc", doc.Name(), "error", err)
			return false
		}
		s := IsScanned(pages)
		e.log.Debug("scan detection", "doc", doc.Name(), "scanned", s)
		return s
	})

	for _, s := range e.strategies {
		switch s.Gate() {
		case TextOnly:
			if scanned() {
				continue
			}
		case ScannedOnly:
			if !scanned() {
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		hs, err := s.Extract(ctx, doc)
		if err != nil {
			return res, err
		}
		if len(hs) > 0 {
			res.Headings = hs
			res.Tier = s.Tier()
			if s.Gate() != Always {
				res.Scanned = scanned()
			}
			e.log.Info("headings extracted", "doc", doc.Name(), "tier", s.Tier(), "count", len(hs))
			return res, nil
		}
	}
	e.log.Info("no headings found", "doc", doc.Name())
	return res, nil
}
