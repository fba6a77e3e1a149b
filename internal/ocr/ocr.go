package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Token is one recognized word.
type Token struct {
	Text       string
	Confidence float64 // 0..100, -1 when the engine reports none
	Height     float64
	Top        float64
}

// Recognizer turns a page image into word tokens.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]Token, error)
}

// Tesseract runs the tesseract binary with TSV output.
type Tesseract struct {
	Path     string
	Language string
}

// NewTesseract returns a recognizer using the given binary ("tesseract" when
// empty) and English models.
func NewTesseract(path string) *Tesseract {
	if path == "" {
		path = "tesseract"
	}
	return &Tesseract{Path: path, Language: "eng"}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) ([]Token, error) {
	lang := t.Language
	if lang == "" {
		lang = "eng"
	}
	cmd := exec.CommandContext(ctx, t.Path, "stdin", "stdout", "-l", lang, "--psm", "3", "tsv")
	cmd.Stdin = bytes.NewReader(image)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseTSV(bytes.NewReader(out))
}

// wordLevel is the TSV "level" value for word rows.
const wordLevel = "5"

// ParseTSV reads tesseract TSV output and returns its word rows in order.
// Fields are never quoted, so a stray quote character is literal text.
func ParseTSV(r io.Reader) ([]Token, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, scanner.Err()
	}
	col := map[string]int{}
	for i, h := range strings.Split(scanner.Text(), "\t") {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{"level", "top", "height", "conf", "text"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("tsv missing column %q", name)
		}
	}

	var tokens []Token
	for scanner.Scan() {
		rec := strings.Split(scanner.Text(), "\t")
		if len(rec) <= col["conf"] || rec[col["level"]] != wordLevel {
			continue
		}
		tok := Token{
			Top:        parseFloat(rec[col["top"]]),
			Height:     parseFloat(rec[col["height"]]),
			Confidence: parseFloat(rec[col["conf"]]),
		}
		if len(rec) > col["text"] {
			tok.Text = rec[col["text"]]
		}
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	return tokens, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
