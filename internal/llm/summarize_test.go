package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docinsight/internal/doctree"
)

func TestPersonaKeywords(t *testing.T) {
	tests := []struct {
		persona string
		want    string
	}{
		{"Graduate Student", "learn"},
		{"PhD Researcher in biology", "research"},
		{"Business Professional", "business"},
		{"Travel Planner", "overview"},
		{"", "overview"},
	}
	for _, tt := range tests {
		got := PersonaKeywords(tt.persona)
		if len(got) == 0 || got[0] != tt.want {
			t.Errorf("persona %q: expected first keyword %q, got %v", tt.persona, tt.want, got)
		}
	}
}

func TestExtractiveKeepsTopThirdInOrder(t *testing.T) {
	text := "The weather was fine. Our research used a new method. Lunch was served. " +
		"The data supports the hypothesis. Nothing else happened. The end came."
	got := Extractive(text, "researcher")
	want := "Our research used a new method. The data supports the hypothesis."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExtractiveKeepsAtLeastOneSentence(t *testing.T) {
	got := Extractive("Only one sentence here", "student")
	if got != "Only one sentence here" {
		t.Fatalf("expected single sentence, got %q", got)
	}
	if got := Extractive("   ", "student"); got != "" {
		t.Fatalf("expected empty extract, got %q", got)
	}
}

func TestPostProcess(t *testing.T) {
	got := PostProcess("Key point here. key point here. Another idea", 0)
	if got != "Key point here. Another idea." {
		t.Fatalf("expected dedupe and punctuation, got %q", got)
	}

	got = PostProcess("one two three four five six", 4)
	if got != "one two three four." {
		t.Fatalf("expected truncation to 4 words, got %q", got)
	}
}

func TestSummarizeWithoutGeneratorIsExtractive(t *testing.T) {
	s := NewSummarizer(nil, SummarizerConfig{}, nil)
	got, err := s.Summarize(context.Background(), "doc.pdf", "An important overview of the plan", "general reader")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "An important overview of the plan." {
		t.Fatalf("expected extractive summary, got %q", got)
	}
}

func TestSummarizeUsesGenerator(t *testing.T) {
	gen := &stubGenerator{out: "```\nA concise summary\n```"}
	s := NewSummarizer(gen, SummarizerConfig{Policy: fastPolicy()}, nil)

	got, err := s.Summarize(context.Background(), "doc.pdf", "Market strategy drives growth. Lunch was late. The sky is blue.", "business professional")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A concise summary." {
		t.Fatalf("expected generated summary, got %q", got)
	}
	want := "Summarize the following text for a business professional: Market strategy drives growth."
	if gen.last != want {
		t.Fatalf("expected prompt %q, got %q", want, gen.last)
	}
}

func TestSummarizeWrapsGeneratorFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model unavailable")}
	s := NewSummarizer(gen, SummarizerConfig{Policy: fastPolicy()}, nil)

	_, err := s.Summarize(context.Background(), "doc.pdf", "Some text.", "student")
	var stageErr *doctree.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != doctree.StageGenerate || stageErr.Document != "doc.pdf" {
		t.Fatalf("unexpected stage error: %+v", stageErr)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected cause in message, got %q", err.Error())
	}
	if gen.calls != 1 {
		t.Fatalf("expected permanent error to be tried once, got %d", gen.calls)
	}
}
