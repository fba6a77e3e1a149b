package headings

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/doctree"
)

const (
	sizeThresholdFactor = 1.2
	defaultMeanSize     = 12.0
	maxHeadingRunes     = 100
)

var (
	headingPrefixes  = []string{"Chapter", "Section", "Part"}
	rejectedPrefixes = []string{"http", "www", "Figure", "Table"}
)

// FontStrategy finds headings in text-native documents from font size,
// weight and textual cues.
type FontStrategy struct {
	Log *slog.Logger
}

func (s *FontStrategy) Tier() doctree.Tier { return doctree.TierFont }
func (s *FontStrategy) Gate() Gate         { return TextOnly }

type pageLines struct {
	page  int
	lines []backend.Line
}

func (s *FontStrategy) Extract(ctx context.Context, doc backend.Document) ([]doctree.Heading, error) {
	// Pass 1: every span's size across the document.
	var pages []pageLines
	var sizes []float64
	for i := 1; i <= doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines, err := doc.PageLines(i)
		if err != nil {
			if s.Log != nil {
				s.Log.Warn("page layout unavailable", "doc", doc.Name(), "page", i, "error", err)
			}
			continue
		}
		for _, l := range lines {
			for _, sp := range l.Spans {
				sizes = append(sizes, sp.Size)
			}
		}
		pages = append(pages, pageLines{page: i, lines: lines})
	}

	mean := defaultMeanSize
	if len(sizes) > 0 {
		var sum float64
		for _, sz := range sizes {
			sum += sz
		}
		mean = sum / float64(len(sizes))
	}
	threshold := mean * sizeThresholdFactor

	// Pass 2: classify whole lines.
	var headings []doctree.Heading
	for _, p := range pages {
		for _, l := range p.lines {
			text := strings.TrimSpace(l.Text())
			if text == "" {
				continue
			}
			var lineSize float64
			var bold bool
			for _, sp := range l.Spans {
				lineSize = max(lineSize, sp.Size)
				bold = bold || sp.Bold
			}
			if !isHeadingLine(text, lineSize, bold, mean, threshold) {
				continue
			}
			size, b := lineSize, bold
			headings = append(headings, doctree.Heading{
				Text:  text,
				Page:  p.page,
				Level: FontLevel(lineSize, bold, sizes),
				Y:     l.Y,
				Size:  &size,
				Bold:  &b,
				Tier:  doctree.TierFont,
			})
		}
	}
	return headings, nil
}

func isHeadingLine(text string, size float64, bold bool, mean, threshold float64) bool {
	for _, p := range rejectedPrefixes {
		if strings.HasPrefix(text, p) {
			return false
		}
	}
	switch {
	case size > threshold:
		return true
	case bold && size > mean:
		return true
	case utf8.RuneCountInString(text) < maxHeadingRunes && strings.HasSuffix(text, ":"):
		return true
	}
	for _, p := range headingPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
