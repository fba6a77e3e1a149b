package headings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/doctree"
)

// OutlineStrategy maps the document's own bookmarks to headings. Read
// failures are logged and reported as "no outline".
type OutlineStrategy struct {
	Log *slog.Logger
}

func (s *OutlineStrategy) Tier() doctree.Tier { return doctree.TierOutline }
func (s *OutlineStrategy) Gate() Gate         { return Always }

func (s *OutlineStrategy) Extract(_ context.Context, doc backend.Document) ([]doctree.Heading, error) {
	entries, err := readOutline(doc)
	if err != nil {
		if s.Log != nil {
			s.Log.Warn("outline unavailable", "doc", doc.Name(), "error", err)
		}
		return nil, nil
	}

	headings := make([]doctree.Heading, 0, len(entries))
	for _, e := range entries {
		page := e.Page
		if page < 1 {
			page = 1
		}
		headings = append(headings, doctree.Heading{
			Text:  e.Title,
			Page:  page,
			Level: doctree.ClampLevel(e.Level),
			Tier:  doctree.TierOutline,
		})
	}
	return headings, nil
}

func readOutline(doc backend.Document) (entries []backend.OutlineEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("outline read panicked: %v", r)
		}
	}()
	return doc.Outline()
}
