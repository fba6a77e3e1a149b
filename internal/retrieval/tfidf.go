package retrieval

import "math"

const (
	minDocFreq    = 2
	maxDocFreqPct = 0.85
)

// sparseVec is an L2-normalized term-weight vector keyed by vocabulary index.
type sparseVec map[int]float64

func (v sparseVec) dot(o sparseVec) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for k, x := range v {
		sum += x * o[k]
	}
	return sum
}

// vectorizer is a fitted TF-IDF model: raw term counts weighted by smoothed
// idf, ln((1+n)/(1+df)) + 1, then L2-normalized. Only terms seen in at least
// two documents and at most 85% of documents are kept.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

func fitTFIDF(corpus []string) (*vectorizer, []sparseVec) {
	n := len(corpus)
	docTerms := make([][]string, n)
	df := map[string]int{}
	for i, doc := range corpus {
		docTerms[i] = Terms(doc)
		seen := map[string]bool{}
		for _, t := range docTerms[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	v := &vectorizer{vocab: map[string]int{}}
	maxDF := maxDocFreqPct * float64(n)
	for term, d := range df {
		if d < minDocFreq || float64(d) > maxDF {
			continue
		}
		v.vocab[term] = len(v.idf)
		v.idf = append(v.idf, math.Log(float64(1+n)/float64(1+d))+1)
	}

	vecs := make([]sparseVec, n)
	for i, terms := range docTerms {
		vecs[i] = v.weigh(terms)
	}
	return v, vecs
}

func (v *vectorizer) transform(text string) sparseVec {
	return v.weigh(Terms(text))
}

func (v *vectorizer) weigh(terms []string) sparseVec {
	vec := sparseVec{}
	for _, t := range terms {
		if idx, ok := v.vocab[t]; ok {
			vec[idx]++
		}
	}
	var norm float64
	for idx, tf := range vec {
		w := tf * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

// cosine returns 0 when either vector has no magnitude.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
