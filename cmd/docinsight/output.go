package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dgallion1/docinsight/internal/evaluation"
	"github.com/dgallion1/docinsight/internal/insights"
)

const summaryWidth = 60

var (
	// titleStyle for bold section headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// errorStyle for failed personas
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// printReport renders the outline and each persona's ranked sections.
func printReport(w io.Writer, r *insights.Report, output string) {
	fmt.Fprintf(w, "%s %s  %s %s  %s %d\n",
		dimStyle.Render("Document:"), titleStyle.Render(r.PDF),
		dimStyle.Render("Tier:"), string(r.Tier),
		dimStyle.Render("Headings:"), len(r.Headings),
	)
	if output != "" {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Report:"), output)
	}

	if len(r.Personas) == 0 {
		t := newTable("Level", "Heading", "Page")
		for _, h := range r.Headings {
			t.Row(h.Level.Tag(), strings.Repeat("  ", max(int(h.Level)-1, 0))+h.Text, strconv.Itoa(h.Page))
		}
		fmt.Fprintln(w, t.Render())
		return
	}

	for _, p := range r.Personas {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Persona: "+p.Persona))
		if p.Error != "" {
			fmt.Fprintln(w, errorStyle.Render("failed: "+p.Error))
			continue
		}
		t := newTable("#", "Section", "Page", "Score", "Summary")
		for i, m := range p.MatchedSections {
			summary := ""
			if i < len(p.Insights) {
				summary = clip(p.Insights[i].Summary, summaryWidth)
			}
			t.Row(strconv.Itoa(i+1), m.Heading, strconv.Itoa(m.Page), fmt.Sprintf("%.3f", m.Score), summary)
		}
		fmt.Fprintln(w, t.Render())
	}
}

// printEvaluation renders heading metrics and per-persona ranking metrics.
func printEvaluation(w io.Writer, res evaluation.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Heading extraction"))
	h := res.HeadingExtraction
	t := newTable("Precision", "Recall", "F1", "TP", "FP", "FN")
	t.Row(ratio(h.Precision), ratio(h.Recall), ratio(h.F1),
		strconv.Itoa(h.TruePositives), strconv.Itoa(h.FalsePositives), strconv.Itoa(h.FalseNegatives))
	fmt.Fprintln(w, t.Render())

	if len(res.PersonaMatching) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Persona matching"))
	t = newTable("Persona", "Metric", "Value")
	personas := make([]string, 0, len(res.PersonaMatching))
	for p := range res.PersonaMatching {
		personas = append(personas, p)
	}
	slices.Sort(personas)
	for _, p := range personas {
		m := res.PersonaMatching[p]
		for _, k := range sortedKeys(m.PrecisionAt) {
			t.Row(p, fmt.Sprintf("precision@%d", k), ratio(m.PrecisionAt[k]))
			t.Row(p, fmt.Sprintf("recall@%d", k), ratio(m.RecallAt[k]))
		}
		t.Row(p, "map", ratio(m.MAP))
	}
	fmt.Fprintln(w, t.Render())
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
