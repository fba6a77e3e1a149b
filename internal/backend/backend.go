package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// OutlineEntry is one author-provided outline (bookmark) item.
type OutlineEntry struct {
	Level int
	Title string
	Page  int
}

// Span is a run of text sharing one font on one line.
type Span struct {
	Text string
	Size float64
	Bold bool
	X    float64
	Y    float64 // distance from page top
}

// Line groups the spans that share a baseline, in reading order.
type Line struct {
	Spans []Span
	Y     float64
}

// Text concatenates the span texts.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Image is a raster placed on a page, in the image's own pixel units.
type Image struct {
	Width  float64
	Height float64
}

// Properties describes document-level metadata.
type Properties struct {
	PageCount   int               `json:"page_count"`
	Metadata    map[string]string `json:"metadata"`
	IsEncrypted bool              `json:"is_encrypted"`
	Permissions int               `json:"permissions"`
}

// Document is the read-only view of a parsed file. Page numbers are 1-based.
type Document interface {
	Name() string
	PageCount() int
	Outline() ([]OutlineEntry, error)
	PageText(page int) (string, error)
	PageLines(page int) ([]Line, error)
	PageImages(page int) ([]Image, error)
	PageDimensions(page int) (width, height float64, err error)
	Properties() Properties
	Close() error
}

// Rasterizer is implemented by documents that can render a page to an image
// for text recognition.
type Rasterizer interface {
	RenderPage(ctx context.Context, page, dpi int) ([]byte, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
	".txt":      true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Options tunes backend behaviour.
type Options struct {
	PdftoppmPath string
}

// Open parses the file at path, choosing the backend by extension.
func Open(path string, opts Options) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		d, err := OpenPDF(path, opts.PdftoppmPath)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path), opts)
}

// Parse reads a document from r, choosing the backend by the extension of
// filename.
func Parse(r io.Reader, filename string, opts Options) (Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		d, err := ParsePDF(r, filename, opts.PdftoppmPath)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ".txt":
		return parseText(r, filename)
	case ".md", ".markdown":
		return parseMarkdown(r, filename)
	case ".html", ".htm":
		return parseHTML(r, filename)
	case ".docx":
		return parseDOCX(r, filename)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

func baseTitle(filename string) string {
	name := filepath.Base(filename)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
