package ocr

import (
	"strings"
	"testing"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t1240\t1754\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t100\t90\t400\t40\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t100\t90\t180\t40\t96.5\tINTRODUCTION\n" +
	"5\t1\t1\t1\t2\t1\t100\t160\t60\t18\t91\tThe\n" +
	"5\t1\t1\t1\t2\t2\t170\t160\t80\t18\t42.25\t\"quoted\n"

func TestParseTSV_WordRowsOnly(t *testing.T) {
	tokens, err := ParseTSV(strings.NewReader(sampleTSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 word tokens, got %d", len(tokens))
	}
	first := tokens[0]
	if first.Text != "INTRODUCTION" || first.Height != 40 || first.Confidence != 96.5 || first.Top != 90 {
		t.Errorf("unexpected first token: %+v", first)
	}
	if tokens[2].Text != "\"quoted" {
		t.Errorf("expected stray quote to survive, got %q", tokens[2].Text)
	}
}

func TestParseTSV_Empty(t *testing.T) {
	tokens, err := ParseTSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %d", len(tokens))
	}
}

func TestParseTSV_MissingColumn(t *testing.T) {
	if _, err := ParseTSV(strings.NewReader("level\ttext\n5\thi\n")); err == nil {
		t.Error("expected error for missing columns")
	}
}
