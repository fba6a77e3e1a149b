package backend

import (
	"bufio"
	"io"
	"strings"
)

// parseText reads plain text. Form feeds separate pages, as pdftotext emits.
func parseText(r io.Reader, filename string) (Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var body strings.Builder
	for scanner.Scan() {
		body.WriteString(scanner.Text())
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	pages := strings.Split(strings.TrimSuffix(body.String(), "\n"), "\f")
	if len(pages) == 1 && strings.TrimSpace(pages[0]) == "" {
		pages = nil
	}
	return &pagedDocument{
		name:  filename,
		title: baseTitle(filename),
		pages: pages,
	}, nil
}
