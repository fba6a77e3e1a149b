package structure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

const sectionPrefix = "section_"

// SectionID returns the id of the i-th section in sorted heading order.
func SectionID(i int) string {
	return sectionPrefix + strconv.Itoa(i)
}

// SectionIndex parses an id produced by SectionID.
func SectionIndex(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, sectionPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Segment produces one section per heading. pages holds the text of each
// page, page 1 first. A section runs from its heading to the next heading,
// or to the end of the document for the last one.
//
// When a heading's text does not occur verbatim on its page, the section
// holds the heading text plus the following pages and is marked unanchored.
func Segment(headings []doctree.Heading, pages []string) []doctree.Section {
	sorted := Sorted(headings)
	sections := make([]doctree.Section, 0, len(sorted))

	for i, h := range sorted {
		start, anchored := -1, false
		if text, ok := pageText(pages, h.Page); ok {
			if pos := strings.Index(text, h.Text); pos >= 0 {
				start, anchored = pos+len(h.Text), true
			}
		}

		endPage, endPos := len(pages), -1
		if i+1 < len(sorted) {
			next := sorted[i+1]
			endPage = next.Page
			from := 0
			if next.Page == h.Page && anchored {
				from = start
			}
			if text, ok := pageText(pages, next.Page); ok && from <= len(text) {
				if pos := strings.Index(text[from:], next.Text); pos >= 0 {
					endPos = from + pos
				}
			}
		}

		var b strings.Builder
		b.WriteString(h.Text)
		b.WriteString("\n\n")
		if anchored {
			text := pages[h.Page-1]
			stop := len(text)
			if endPage == h.Page && endPos >= start {
				stop = endPos
			}
			b.WriteString(text[start:stop])
		}
		for p := h.Page + 1; p <= endPage && p <= len(pages); p++ {
			text := pages[p-1]
			if p == endPage && endPos >= 0 {
				text = text[:endPos]
			}
			b.WriteString("\n")
			b.WriteString(text)
		}

		sections = append(sections, doctree.Section{
			ID:       SectionID(i),
			Heading:  h.Text,
			Level:    h.Level,
			Page:     h.Page,
			Content:  strings.TrimSpace(b.String()),
			Anchored: anchored,
		})
	}
	return sections
}

func pageText(pages []string, page int) (string, bool) {
	if page < 1 || page > len(pages) {
		return "", false
	}
	return pages[page-1], true
}

// Describe renders the outline as an indented list, one node per line.
func Describe(nodes []*doctree.Node) string {
	var b strings.Builder
	depth := make(map[*doctree.Node]int)
	Walk(nodes, func(n, parent *doctree.Node) {
		if parent != nil {
			depth[n] = depth[parent] + 1
		}
		fmt.Fprintf(&b, "%s- %s (p.%d)\n", strings.Repeat("  ", depth[n]), n.Text, n.Page)
	})
	return b.String()
}
