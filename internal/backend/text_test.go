package backend

import (
	"strings"
	"testing"
)

func TestText_FormFeedPages(t *testing.T) {
	input := "First page line one.\nFirst page line two.\fSecond page.\fThird page."
	d, err := Parse(strings.NewReader(input), "notes.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", d.PageCount())
	}

	want := []string{
		"First page line one.\nFirst page line two.",
		"Second page.",
		"Third page.",
	}
	for i, w := range want {
		got, err := d.PageText(i + 1)
		if err != nil {
			t.Fatalf("page %d: %v", i+1, err)
		}
		if got != w {
			t.Errorf("page %d: expected %q, got %q", i+1, w, got)
		}
	}
}

func TestText_EmptyInput(t *testing.T) {
	d, err := Parse(strings.NewReader(""), "empty.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.PageCount() != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", d.PageCount())
	}
	if d.Properties().Metadata["title"] != "empty" {
		t.Errorf("expected title %q, got %q", "empty", d.Properties().Metadata["title"])
	}
}

func TestText_PageLinesSkipBlank(t *testing.T) {
	d, err := Parse(strings.NewReader("Chapter 1\n\n   \nBody text."), "c.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines, err := d.PageLines(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text() != "Chapter 1" {
		t.Errorf("expected %q, got %q", "Chapter 1", lines[0].Text())
	}
	if lines[1].Y <= lines[0].Y {
		t.Errorf("expected lines ordered top to bottom, got y=%v then y=%v", lines[0].Y, lines[1].Y)
	}
}

func TestText_PageOutOfRange(t *testing.T) {
	d, err := Parse(strings.NewReader("only page"), "one.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.PageText(2); err == nil {
		t.Error("expected error for page 2")
	}
	if _, err := d.PageText(0); err == nil {
		t.Error("expected error for page 0")
	}
}

func TestParse_UnsupportedExtension(t *testing.T) {
	if _, err := Parse(strings.NewReader("a,b"), "data.csv", Options{}); err == nil {
		t.Error("expected error for .csv")
	}
	if IsSupportedExtension("data.csv") {
		t.Error("expected .csv to be unsupported")
	}
	if !IsSupportedExtension("Report.PDF") {
		t.Error("expected .PDF to be supported")
	}
}
