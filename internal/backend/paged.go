package backend

import (
	"fmt"
	"strings"
)

// pagedDocument holds a fully parsed text document in memory. Formats without
// a page model put everything on page 1 unless they carry form feeds.
type pagedDocument struct {
	name    string
	title   string
	pages   []string
	outline []OutlineEntry
}

func (d *pagedDocument) Name() string   { return d.name }
func (d *pagedDocument) PageCount() int { return len(d.pages) }
func (d *pagedDocument) Close() error   { return nil }

func (d *pagedDocument) Outline() ([]OutlineEntry, error) {
	out := make([]OutlineEntry, len(d.outline))
	copy(out, d.outline)
	return out, nil
}

func (d *pagedDocument) PageText(page int) (string, error) {
	if err := d.check(page); err != nil {
		return "", err
	}
	return d.pages[page-1], nil
}

// PageLines reports one line per text line. There is no font information, so
// sizes are zero and only the textual heading cues can fire.
func (d *pagedDocument) PageLines(page int) ([]Line, error) {
	if err := d.check(page); err != nil {
		return nil, err
	}
	var lines []Line
	for i, l := range strings.Split(d.pages[page-1], "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		y := float64(i)
		lines = append(lines, Line{Y: y, Spans: []Span{{Text: l, Y: y}}})
	}
	return lines, nil
}

func (d *pagedDocument) PageImages(page int) ([]Image, error) {
	if err := d.check(page); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *pagedDocument) PageDimensions(page int) (float64, float64, error) {
	if err := d.check(page); err != nil {
		return 0, 0, err
	}
	return 0, 0, nil
}

func (d *pagedDocument) Properties() Properties {
	meta := map[string]string{}
	if d.title != "" {
		meta["title"] = d.title
	}
	return Properties{
		PageCount:   len(d.pages),
		Metadata:    meta,
		Permissions: -1,
	}
}

func (d *pagedDocument) check(page int) error {
	if page < 1 || page > len(d.pages) {
		return fmt.Errorf("page %d out of range [1,%d]", page, len(d.pages))
	}
	return nil
}
