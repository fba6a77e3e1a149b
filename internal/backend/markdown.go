package backend

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown treats the document as a single page whose headings form the
// outline.
func parseMarkdown(r io.Reader, filename string) (Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var outline []OutlineEntry
	var body bytes.Buffer
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		t := extractText(n, src)
		if h, ok := n.(*ast.Heading); ok && t != "" {
			outline = append(outline, OutlineEntry{Level: h.Level, Title: t, Page: 1})
		}
		if t == "" {
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(t)
	}

	d := &pagedDocument{
		name:    filename,
		title:   baseTitle(filename),
		outline: outline,
	}
	if body.Len() > 0 {
		d.pages = []string{body.String()}
	}
	return d, nil
}

// extractText gets the text content of a goldmark AST node. Blocks with
// inline children are rendered from the inlines, raw blocks (code, html) from
// their source lines.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			if t.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
