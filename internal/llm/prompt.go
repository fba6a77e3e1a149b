package llm

import (
	"regexp"
	"strings"
)

// BuildSummaryPrompt creates the abstractive-stage prompt.
func BuildSummaryPrompt(persona, text string) string {
	return "Summarize the following text for a " + persona + ": " + text
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:\\w+)?\\s*(.*?)\\s*```$")

// stripCodeBlock removes a fence some models wrap plain answers in.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
