// Package chunker bounds the text sent to the embedding and summary
// services.
package chunker

import (
	"strings"
)

// Head returns the leading part of text that fits in maxTokens, cut at a
// paragraph or sentence boundary when one is available. Text that already
// fits is returned unchanged.
func Head(text string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text
	}
	parts := pack(text, maxTokens)
	if len(parts) == 0 {
		return ""
	}
	head := parts[0]
	// A single oversized sentence can still overflow.
	if words := strings.Fields(head); EstimateTokens(head) > maxTokens {
		n := max(int(float64(maxTokens)/1.33), 1)
		head = strings.Join(words[:min(n, len(words))], " ")
	}
	return head
}

// Sentences splits text at terminal punctuation followed by a space.
func Sentences(text string) []string {
	var out []string
	for _, s := range splitSentences(text) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// pack groups paragraphs into pieces of about targetTokens, falling back to
// sentences for paragraphs that are too large on their own.
func pack(text string, targetTokens int) []string {
	var result []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, para := range splitByParagraphs(text) {
		paraTokens := EstimateTokens(para)

		if paraTokens > targetTokens {
			flush()
			result = append(result, packSentences(para, targetTokens)...)
			continue
		}
		if currentTokens+paraTokens > targetTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	flush()
	return result
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func packSentences(text string, targetTokens int) []string {
	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range splitSentences(text) {
		sentTokens := EstimateTokens(sent)
		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}
	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}
