package structure

import (
	"strings"
	"testing"

	"github.com/dgallion1/docinsight/internal/doctree"
)

func TestSegment_Boundaries(t *testing.T) {
	pages := []string{
		"Cover\nIntroduction\nWelcome text.\nScope\nWhat we cover.",
		"More scope detail.",
		"Tail of scope.\nResults\nNumbers here.",
	}
	hs := []doctree.Heading{h("Introduction", 1, 1), h("Scope", 1, 2), h("Results", 3, 1)}
	secs := Segment(hs, pages)
	if len(secs) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(secs))
	}

	want := []string{
		"Introduction\n\n\nWelcome text.",
		"Scope\n\n\nWhat we cover.\nMore scope detail.\nTail of scope.",
		"Results\n\n\nNumbers here.",
	}
	for i, w := range want {
		if secs[i].Content != strings.TrimSpace(w) {
			t.Errorf("section %d: expected %q, got %q", i, strings.TrimSpace(w), secs[i].Content)
		}
		if secs[i].ID != SectionID(i) {
			t.Errorf("section %d: expected id %q, got %q", i, SectionID(i), secs[i].ID)
		}
		if !secs[i].Anchored {
			t.Errorf("section %d: expected anchored", i)
		}
	}
}

func TestSegment_UnanchoredHeading(t *testing.T) {
	pages := []string{"INTR0DUCTI0N body", "second page", "third page"}
	secs := Segment([]doctree.Heading{h("Introduction", 1, 1)}, pages)
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	s := secs[0]
	if s.Anchored {
		t.Error("expected section to be unanchored")
	}
	if s.Content != "Introduction\n\n\nsecond page\nthird page" {
		t.Errorf("unexpected content %q", s.Content)
	}
}

func TestSegment_OrderAndRoundTrip(t *testing.T) {
	hs := []doctree.Heading{h("B", 2, 1), h("A", 1, 1)}
	secs := Segment(hs, []string{"A text", "B text"})
	if secs[0].Heading != "A" || secs[1].Heading != "B" {
		t.Fatalf("expected sections in page order, got %q, %q", secs[0].Heading, secs[1].Heading)
	}
	for i, s := range secs {
		idx, ok := SectionIndex(s.ID)
		if !ok || idx != i {
			t.Errorf("expected id %q to round-trip to %d, got %d (ok=%v)", s.ID, i, idx, ok)
		}
	}
}

func TestSegment_HeadingPastLastPage(t *testing.T) {
	secs := Segment([]doctree.Heading{h("Ghost", 9, 1)}, []string{"only page"})
	if len(secs) != 1 || secs[0].Content != "Ghost" {
		t.Fatalf("expected heading-only section, got %+v", secs)
	}
}

func TestSegment_NoHeadings(t *testing.T) {
	if secs := Segment(nil, []string{"text"}); len(secs) != 0 {
		t.Errorf("expected no sections, got %d", len(secs))
	}
}

func TestSectionIndex_Invalid(t *testing.T) {
	for _, id := range []string{"", "section_", "section_x", "chunk_1", "section_-2"} {
		if _, ok := SectionIndex(id); ok {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestDescribe(t *testing.T) {
	out := Describe(Build([]doctree.Heading{h("Top", 1, 1), h("Child", 2, 2)}))
	want := "- Top (p.1)\n  - Child (p.2)\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}
