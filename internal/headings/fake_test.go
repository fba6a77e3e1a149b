package headings

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/docinsight/internal/backend"
)

type fakeDoc struct {
	pages      []string
	lines      [][]backend.Line
	outline    []backend.OutlineEntry
	outlineErr error
	images     [][]backend.Image
	width      float64
	height     float64
	render     func(ctx context.Context, page int) ([]byte, error)
}

func (d *fakeDoc) Name() string { return "fake.pdf" }
func (d *fakeDoc) PageCount() int {
	return max(len(d.pages), len(d.lines), len(d.images))
}
func (d *fakeDoc) Close() error { return nil }
func (d *fakeDoc) Outline() ([]backend.OutlineEntry, error) {
	return d.outline, d.outlineErr
}
func (d *fakeDoc) PageText(i int) (string, error) {
	if i < 1 || i > len(d.pages) {
		return "", fmt.Errorf("no page %d", i)
	}
	return d.pages[i-1], nil
}
func (d *fakeDoc) PageLines(i int) ([]backend.Line, error) {
	if i < 1 || i > len(d.lines) {
		return nil, nil
	}
	return d.lines[i-1], nil
}
func (d *fakeDoc) PageImages(i int) ([]backend.Image, error) {
	if i < 1 || i > len(d.images) {
		return nil, nil
	}
	return d.images[i-1], nil
}
func (d *fakeDoc) PageDimensions(int) (float64, float64, error) {
	return d.width, d.height, nil
}
func (d *fakeDoc) Properties() backend.Properties {
	return backend.Properties{PageCount: d.PageCount(), Permissions: -1}
}

// rasterDoc adds page rendering to fakeDoc.
type rasterDoc struct {
	*fakeDoc
}

func (d rasterDoc) RenderPage(ctx context.Context, page, _ int) ([]byte, error) {
	if d.render != nil {
		return d.render(ctx, page)
	}
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

func line(y float64, spans ...backend.Span) backend.Line {
	for i := range spans {
		spans[i].Y = y
	}
	return backend.Line{Y: y, Spans: spans}
}

func span(text string, size float64, bold bool) backend.Span {
	return backend.Span{Text: text, Size: size, Bold: bold}
}

var errBoom = errors.New("boom")
