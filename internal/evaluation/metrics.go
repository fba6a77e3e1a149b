package evaluation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultK is the cutoff list used when none is given.
var DefaultK = []int{1, 3, 5}

// HeadingMetrics compares predicted heading texts to ground truth as sets.
type HeadingMetrics struct {
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
}

// HeadingExtraction scores predicted against expected heading texts. Texts
// are compared trimmed and case-insensitively; repeats count once.
func HeadingExtraction(predicted, expected []string) HeadingMetrics {
	pred := textSet(predicted)
	gt := textSet(expected)

	var m HeadingMetrics
	for t := range pred {
		if gt[t] {
			m.TruePositives++
		} else {
			m.FalsePositives++
		}
	}
	for t := range gt {
		if !pred[t] {
			m.FalseNegatives++
		}
	}
	m.Precision = ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
	m.Recall = ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func textSet(texts []string) map[string]bool {
	set := make(map[string]bool, len(texts))
	for _, t := range texts {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return set
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Ranked is one scored prediction. It is identified by ID, or by Content
// when ID is empty.
type Ranked struct {
	ID      string  `json:"id,omitempty"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score"`
}

func (r Ranked) key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Content
}

// RankingMetrics holds precision@k and recall@k per cutoff plus MAP. It
// marshals to flat keys: "precision@1", "recall@1", ..., "map".
type RankingMetrics struct {
	PrecisionAt map[int]float64
	RecallAt    map[int]float64
	MAP         float64
}

// RelevanceRanking scores predictions, ordered by descending score, against
// the relevant set. Both sides are keyed by ID, falling back to Content, and
// repeated keys count once, so recall and MAP divide by the number of distinct
// relevant keys. Cutoffs beyond the number of distinct predictions are
// skipped.
func RelevanceRanking(predicted []Ranked, relevant []Ranked, ks ...int) RankingMetrics {
	if len(ks) == 0 {
		ks = DefaultK
	}
	sorted := append([]Ranked(nil), predicted...)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Score > sorted[b].Score })

	// Repeated predictions count once, at their best rank.
	var ids []string
	seen := map[string]bool{}
	for _, p := range sorted {
		if k := p.key(); !seen[k] {
			seen[k] = true
			ids = append(ids, k)
		}
	}
	gt := map[string]bool{}
	for _, r := range relevant {
		gt[r.key()] = true
	}

	m := RankingMetrics{PrecisionAt: map[int]float64{}, RecallAt: map[int]float64{}}
	for _, k := range ks {
		if k <= 0 || k > len(ids) {
			continue
		}
		hits := 0
		for _, id := range ids[:k] {
			if gt[id] {
				hits++
			}
		}
		m.PrecisionAt[k] = ratio(hits, k)
		m.RecallAt[k] = ratio(hits, len(gt))
	}

	var ap float64
	hits := 0
	for i, id := range ids {
		if gt[id] {
			hits++
			ap += float64(hits) / float64(i+1)
		}
	}
	if len(gt) > 0 {
		m.MAP = ap / float64(len(gt))
	}
	return m
}

func (m RankingMetrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, 2*len(m.PrecisionAt)+1)
	for k, v := range m.PrecisionAt {
		out["precision@"+strconv.Itoa(k)] = v
	}
	for k, v := range m.RecallAt {
		out["recall@"+strconv.Itoa(k)] = v
	}
	out["map"] = m.MAP
	return json.Marshal(out)
}

func (m *RankingMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.PrecisionAt = map[int]float64{}
	m.RecallAt = map[int]float64{}
	m.MAP = raw["map"]
	for key, v := range raw {
		name, kStr, ok := strings.Cut(key, "@")
		if !ok {
			continue
		}
		k, err := strconv.Atoi(kStr)
		if err != nil {
			return fmt.Errorf("invalid metric key %q", key)
		}
		switch name {
		case "precision":
			m.PrecisionAt[k] = v
		case "recall":
			m.RecallAt[k] = v
		}
	}
	return nil
}

// Result is a full evaluation of one analysed document.
type Result struct {
	HeadingExtraction HeadingMetrics            `json:"heading_extraction"`
	PersonaMatching   map[string]RankingMetrics `json:"persona_matching"`
}
