package headings

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/ocr"
)

type fakeRecognizer struct {
	byPage map[string][]ocr.Token
	err    error
	delay  map[string]time.Duration
}

func (r *fakeRecognizer) Recognize(ctx context.Context, image []byte) ([]ocr.Token, error) {
	if d := r.delay[string(image)]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.byPage[string(image)], nil
}

func sampleOutline() []backend.OutlineEntry {
	return []backend.OutlineEntry{
		{Level: 1, Title: "Introduction", Page: 1},
		{Level: 2, Title: "Background and Context", Page: 2},
		{Level: 1, Title: "Methodology", Page: 3},
		{Level: 1, Title: "Results", Page: 4},
		{Level: 2, Title: "Key Findings", Page: 4},
		{Level: 3, Title: "Statistical Analysis", Page: 4},
		{Level: 1, Title: "Conclusion", Page: 5},
	}
}

func TestExtract_OutlineTier(t *testing.T) {
	doc := &fakeDoc{pages: make([]string, 5), outline: sampleOutline()}
	res, err := NewDefaultExtractor(nil, OCRConfig{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != doctree.TierOutline {
		t.Errorf("expected outline tier, got %q", res.Tier)
	}
	want := []int{1, 2, 1, 1, 2, 3, 1}
	if len(res.Headings) != len(want) {
		t.Fatalf("expected %d headings, got %d", len(want), len(res.Headings))
	}
	for i, w := range want {
		if int(res.Headings[i].Level) != w {
			t.Errorf("heading %d: expected level %d, got %d", i, w, res.Headings[i].Level)
		}
	}
}

func TestExtract_OutlineLevelsClamped(t *testing.T) {
	doc := &fakeDoc{pages: []string{""}, outline: []backend.OutlineEntry{{Level: 9, Title: "Deep", Page: 0}}}
	res, _ := NewDefaultExtractor(nil, OCRConfig{}).Extract(context.Background(), doc)
	if len(res.Headings) != 1 {
		t.Fatalf("expected 1 heading, got %d", len(res.Headings))
	}
	if res.Headings[0].Level != 6 || res.Headings[0].Page != 1 {
		t.Errorf("expected level 6 on page 1, got %+v", res.Headings[0])
	}
}

func fontDoc() *fakeDoc {
	return &fakeDoc{
		pages: []string{"", ""},
		lines: [][]backend.Line{
			{
				line(10, span("Annual Report", 24, true)),
				line(40, span("This is ordinary body text.", 10, false)),
				line(60, span("More ordinary text here.", 10, false)),
				line(80, span("Key terms:", 10, false)),
				line(100, span("Figure 1: A chart", 24, false)),
			},
			{
				line(10, span("Chapter 2 Overview", 10, false)),
				line(30, span("Bold but small", 10, true)),
				line(50, span("Emphasis ", 10, false), span("inline", 16, true)),
				line(70, span("http://example.com", 30, false)),
			},
		},
		width:  612,
		height: 792,
	}
}

func TestExtract_FontTier(t *testing.T) {
	res, err := NewDefaultExtractor(nil, OCRConfig{}).Extract(context.Background(), fontDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != doctree.TierFont {
		t.Fatalf("expected font tier, got %q", res.Tier)
	}

	var texts []string
	for _, h := range res.Headings {
		texts = append(texts, h.Text)
		if h.Level < 1 || h.Level > 6 {
			t.Errorf("level out of range for %q: %d", h.Text, h.Level)
		}
		if h.Size == nil || h.Bold == nil {
			t.Errorf("expected size and bold on font heading %q", h.Text)
		}
	}
	want := []string{"Annual Report", "Key terms:", "Chapter 2 Overview", "Emphasis inline"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("expected %v, got %v", want, texts)
	}
	if res.Headings[0].Level != 1 {
		t.Errorf("expected largest text at level 1, got %d", res.Headings[0].Level)
	}
	if res.Headings[2].Page != 2 || res.Headings[2].Y != 10 {
		t.Errorf("expected page 2 at y=10, got page %d y=%v", res.Headings[2].Page, res.Headings[2].Y)
	}
	// 16pt bold sits above the mean but below the size threshold.
	if res.Headings[3].Level != 2 {
		t.Errorf("expected bold inline heading at level 2, got %d", res.Headings[3].Level)
	}
}

func TestExtract_OutlineErrorFallsThrough(t *testing.T) {
	doc := fontDoc()
	doc.outlineErr = errBoom
	res, err := NewDefaultExtractor(nil, OCRConfig{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("expected outline error to be swallowed, got %v", err)
	}
	if res.Tier != doctree.TierFont {
		t.Errorf("expected font tier, got %q", res.Tier)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	ex := NewDefaultExtractor(nil, OCRConfig{})
	doc := fontDoc()
	a, _ := ex.Extract(context.Background(), doc)
	b, _ := ex.Extract(context.Background(), doc)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical results on repeated extraction")
	}
}

func scannedDoc() *fakeDoc {
	full := []backend.Image{{Width: 100, Height: 100}}
	return &fakeDoc{
		pages:  []string{"", ""},
		images: [][]backend.Image{full, full},
		width:  100,
		height: 100,
	}
}

func pageTokens() []ocr.Token {
	return []ocr.Token{
		{Text: "SUMMARY", Confidence: 95, Height: 40, Top: 20},
		{Text: "body", Confidence: 90, Height: 10, Top: 80},
		{Text: "text", Confidence: 90, Height: 10, Top: 80},
		{Text: "words", Confidence: 90, Height: 10, Top: 80},
		{Text: "Blurry", Confidence: 50, Height: 40, Top: 120},
		{Text: "  ", Confidence: 99, Height: 40, Top: 140},
	}
}

func TestExtract_OCRTier(t *testing.T) {
	rec := &fakeRecognizer{byPage: map[string][]ocr.Token{"page-1": pageTokens(), "page-2": pageTokens()}}
	doc := rasterDoc{scannedDoc()}
	res, err := NewDefaultExtractor(nil, OCRConfig{Recognizer: rec}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != doctree.TierOCR || !res.Scanned {
		t.Fatalf("expected scanned ocr tier, got tier=%q scanned=%v", res.Tier, res.Scanned)
	}
	if len(res.Headings) != 2 {
		t.Fatalf("expected 2 headings, got %d", len(res.Headings))
	}
	for i, h := range res.Headings {
		if h.Text != "SUMMARY" || h.Page != i+1 || h.Level != 1 {
			t.Errorf("unexpected heading %d: %+v", i, h)
		}
		if h.Confidence == nil || *h.Confidence != 95 {
			t.Errorf("expected confidence 95, got %v", h.Confidence)
		}
	}
}

func TestExtract_OCRPageTimeoutSkipped(t *testing.T) {
	rec := &fakeRecognizer{
		byPage: map[string][]ocr.Token{"page-1": pageTokens(), "page-2": pageTokens()},
		delay:  map[string]time.Duration{"page-1": time.Second},
	}
	cfg := OCRConfig{Recognizer: rec, Timeout: 20 * time.Millisecond}
	res, err := NewDefaultExtractor(nil, cfg).Extract(context.Background(), rasterDoc{scannedDoc()})
	if err != nil {
		t.Fatalf("expected timeout to be recoverable, got %v", err)
	}
	if len(res.Headings) != 1 || res.Headings[0].Page != 2 {
		t.Fatalf("expected only page 2 heading, got %+v", res.Headings)
	}
}

func TestExtract_OCRFailureIsStageError(t *testing.T) {
	rec := &fakeRecognizer{err: errBoom}
	_, err := NewDefaultExtractor(nil, OCRConfig{Recognizer: rec}).Extract(context.Background(), rasterDoc{scannedDoc()})
	var se *doctree.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Stage != doctree.StageOCR || se.Page != 1 {
		t.Errorf("expected ocr stage on page 1, got %s page %d", se.Stage, se.Page)
	}
	if !errors.Is(err, errBoom) {
		t.Error("expected wrapped cause")
	}
}

func TestExtract_ScannedWithoutRecognizer(t *testing.T) {
	res, err := NewDefaultExtractor(nil, OCRConfig{}).Extract(context.Background(), rasterDoc{scannedDoc()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Headings) != 0 {
		t.Errorf("expected no headings, got %d", len(res.Headings))
	}
}

func TestHeadingsFromTokens_LongTextRejected(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	tokens := []ocr.Token{
		{Text: string(long), Confidence: 99, Height: 50},
		{Text: "a", Confidence: 99, Height: 5},
		{Text: "b", Confidence: 99, Height: 5},
	}
	if hs := HeadingsFromTokens(tokens, 1); len(hs) != 0 {
		t.Errorf("expected 100-char token to be rejected, got %+v", hs)
	}
}
