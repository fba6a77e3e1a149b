package retrieval

import "strings"

// ExpandQuery appends persona synonyms to query. The first matching rule
// wins: student, then researcher, then business or professional.
func ExpandQuery(query string) string {
	q := strings.ToLower(query)
	var extra []string
	switch {
	case strings.Contains(q, "student"):
		extra = []string{"education", "learning", "academic", "study"}
	case strings.Contains(q, "researcher"):
		extra = []string{"research", "analysis", "investigation", "study"}
	case strings.Contains(q, "business"), strings.Contains(q, "professional"):
		extra = []string{"corporate", "enterprise", "commercial", "company"}
	default:
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
