package doctree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxLevel is the deepest heading level the pipeline emits.
const MaxLevel = 6

// Tier names the extraction strategy that produced a heading.
type Tier string

const (
	TierOutline Tier = "outline"
	TierFont    Tier = "font"
	TierOCR     Tier = "ocr"
)

// Level is a heading depth in [1, MaxLevel]. It marshals as an integer and
// unmarshals from either an integer or an "H<n>" tag.
type Level int

// ClampLevel bounds n to [1, MaxLevel].
func ClampLevel(n int) Level {
	if n < 1 {
		return 1
	}
	if n > MaxLevel {
		return MaxLevel
	}
	return Level(n)
}

// Tag returns the "H<n>" form of the level.
func (l Level) Tag() string {
	return "H" + strconv.Itoa(int(l))
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = ClampLevel(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("level must be an integer or H<n> string: %w", err)
	}
	parsed, err := ParseLevelTag(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevelTag parses "H3" (or "h3", or "3") into a Level.
func ParseLevelTag(s string) (Level, error) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToUpper(s)), "H")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid level tag %q", s)
	}
	return ClampLevel(n), nil
}

// Heading is a detected section title. Size and Bold are set by the font
// tier, Confidence by the OCR tier.
type Heading struct {
	Text       string   `json:"text"`
	Page       int      `json:"page"`
	Level      Level    `json:"level"`
	Y          float64  `json:"y,omitempty"` // distance from page top, 0 if unknown
	Size       *float64 `json:"size,omitempty"`
	Bold       *bool    `json:"bold,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Tier       Tier     `json:"source,omitempty"`
}

// Node is one entry of the nested outline. Each node owns its children.
type Node struct {
	Text     string  `json:"text"`
	Page     int     `json:"page"`
	Level    Level   `json:"-"`
	Children []*Node `json:"children"`
}

// Section is the text span governed by one heading.
type Section struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Level   Level  `json:"level"`
	Page    int    `json:"page"`
	Content string `json:"content"`
	// Anchored is false when the heading text was not found verbatim on its
	// page, so the section starts at the next page boundary instead.
	Anchored bool `json:"anchored"`
}
