package insights

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/evaluation"
)

// MatchedSection is a section ranked against a persona.
type MatchedSection struct {
	ID          string        `json:"id"`
	Heading     string        `json:"heading"`
	Level       doctree.Level `json:"level"`
	Page        int           `json:"page"`
	Score       float64       `json:"score"`
	SparseScore float64       `json:"sparse_score"`
	DenseScore  float64       `json:"dense_score"`
}

// Insight is a persona-specific summary of one matched section.
type Insight struct {
	Heading        string  `json:"heading"`
	Page           int     `json:"page"`
	Summary        string  `json:"summary"`
	RelevanceScore float64 `json:"relevance_score"`
}

// PersonaResult holds the ranking and insights for one persona. Error is set
// when the persona could not be served.
type PersonaResult struct {
	Persona         string           `json:"persona"`
	MatchedSections []MatchedSection `json:"matched_sections"`
	Insights        []Insight        `json:"insights"`
	Error           string           `json:"error,omitempty"`
}

// Report is the full analysis of one document.
type Report struct {
	PDF        string
	Title      string
	Tier       doctree.Tier
	Headings   []doctree.Heading
	Structure  []*doctree.Node
	Content    string
	Properties backend.Properties
	Personas   []PersonaResult
	Evaluation *evaluation.Result
}

// Failed counts personas that ended with an error.
func (r Report) Failed() int {
	n := 0
	for _, p := range r.Personas {
		if p.Error != "" {
			n++
		}
	}
	return n
}

// Persona looks up a persona result by name, ignoring case.
func (r Report) Persona(name string) (PersonaResult, bool) {
	for _, p := range r.Personas {
		if strings.EqualFold(p.Persona, name) {
			return p, true
		}
	}
	return PersonaResult{}, false
}

// OutlineShape reports whether the report is written in the outline form:
// the document's own outline was authoritative and no persona was ranked.
func (r Report) OutlineShape() bool {
	return r.Tier == doctree.TierOutline && len(r.Personas) == 0
}

type standardReport struct {
	PDF             string             `json:"pdf"`
	Title           string             `json:"title,omitempty"`
	Source          doctree.Tier       `json:"source,omitempty"`
	Persona         string             `json:"persona,omitempty"`
	Headings        []doctree.Heading  `json:"headings"`
	Structure       []*doctree.Node    `json:"structure"`
	Content         string             `json:"content"`
	Properties      backend.Properties `json:"properties"`
	MatchedSections []MatchedSection   `json:"matched_sections"`
	Insights        []Insight          `json:"insights"`
	Personas        []PersonaResult    `json:"personas,omitempty"`
	Evaluation      *evaluation.Result `json:"evaluation,omitempty"`
}

type outlineReport struct {
	Title      string             `json:"title"`
	Outline    []outlineItem      `json:"outline"`
	Content    string             `json:"content"`
	Properties backend.Properties `json:"properties"`
}

type outlineItem struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// MarshalJSON writes the standard shape, or a single-element array in the
// outline shape when OutlineShape is true.
func (r Report) MarshalJSON() ([]byte, error) {
	if r.OutlineShape() {
		out := outlineReport{
			Title:      r.Title,
			Outline:    make([]outlineItem, len(r.Headings)),
			Content:    r.Content,
			Properties: r.Properties,
		}
		for i, h := range r.Headings {
			out.Outline[i] = outlineItem{Level: h.Level.Tag(), Text: h.Text, Page: h.Page}
		}
		return json.Marshal([]outlineReport{out})
	}

	out := standardReport{
		PDF:             r.PDF,
		Title:           r.Title,
		Source:          r.Tier,
		Headings:        r.Headings,
		Structure:       r.Structure,
		Content:         r.Content,
		Properties:      r.Properties,
		MatchedSections: []MatchedSection{},
		Insights:        []Insight{},
		Evaluation:      r.Evaluation,
	}
	if out.Headings == nil {
		out.Headings = []doctree.Heading{}
	}
	if out.Structure == nil {
		out.Structure = []*doctree.Node{}
	}
	if len(r.Personas) > 0 {
		first := r.Personas[0]
		out.Persona = first.Persona
		if first.MatchedSections != nil {
			out.MatchedSections = first.MatchedSections
		}
		if first.Insights != nil {
			out.Insights = first.Insights
		}
	}
	if len(r.Personas) > 1 {
		out.Personas = r.Personas
	}
	return json.Marshal(out)
}

// DecodeReport reads either report shape.
func DecodeReport(data []byte) (*Report, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode report: empty input")
	}

	if trimmed[0] == '[' {
		var arr []outlineReport
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, fmt.Errorf("decode outline report: %w", err)
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("decode outline report: empty array")
		}
		o := arr[0]
		r := &Report{
			Title:      o.Title,
			PDF:        o.Title,
			Tier:       doctree.TierOutline,
			Content:    o.Content,
			Properties: o.Properties,
			Headings:   make([]doctree.Heading, 0, len(o.Outline)),
		}
		for _, item := range o.Outline {
			level, err := doctree.ParseLevelTag(item.Level)
			if err != nil {
				return nil, fmt.Errorf("decode outline report: %w", err)
			}
			r.Headings = append(r.Headings, doctree.Heading{
				Text:  item.Text,
				Page:  item.Page,
				Level: level,
				Tier:  doctree.TierOutline,
			})
		}
		return r, nil
	}

	var s standardReport
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	r := &Report{
		PDF:        s.PDF,
		Title:      s.Title,
		Tier:       s.Source,
		Headings:   s.Headings,
		Structure:  s.Structure,
		Content:    s.Content,
		Properties: s.Properties,
		Personas:   s.Personas,
		Evaluation: s.Evaluation,
	}
	if len(r.Personas) == 0 && (s.Persona != "" || len(s.MatchedSections) > 0) {
		r.Personas = []PersonaResult{{
			Persona:         s.Persona,
			MatchedSections: s.MatchedSections,
			Insights:        s.Insights,
		}}
	}
	return r, nil
}

// EvaluateReport scores a finished report against ground truth. Personas in
// the ground truth that the report does not cover score zero.
func EvaluateReport(r *Report, gt evaluation.GroundTruth) evaluation.Result {
	predicted := make([]string, len(r.Headings))
	for i, h := range r.Headings {
		predicted[i] = h.Text
	}
	res := evaluation.Result{
		HeadingExtraction: evaluation.HeadingExtraction(predicted, gt.HeadingTexts()),
		PersonaMatching:   make(map[string]evaluation.RankingMetrics, len(gt.Personas)),
	}
	for persona, relevant := range gt.Personas {
		p, _ := r.Persona(persona)
		res.PersonaMatching[persona] = evaluation.RelevanceRanking(rankedOf(p.MatchedSections), relevant)
	}
	return res
}

func rankedOf(matched []MatchedSection) []evaluation.Ranked {
	out := make([]evaluation.Ranked, len(matched))
	for i, m := range matched {
		out[i] = evaluation.Ranked{ID: m.ID, Score: m.Score}
	}
	return out
}
