package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/dgallion1/docinsight/internal/chunker"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/llm"
)

// ErrInvalidWeight is returned for a sparse weight outside [0, 1] or a
// negative position boost.
var ErrInvalidWeight = errors.New("retrieval: invalid weight")

const embedBatchSize = 64

// Options tunes score fusion.
type Options struct {
	SparseWeight   float64 // dense weight is 1 - SparseWeight
	PositionBoost  float64 // bonus for the first indexed document, falling to 0
	MaxEmbedTokens int     // texts are cut to this many tokens before embedding
	Policy         llm.Policy
}

// DefaultOptions returns the standard fusion settings.
func DefaultOptions() Options {
	return Options{
		SparseWeight:   0.3,
		PositionBoost:  0.1,
		MaxEmbedTokens: 2000,
		Policy:         llm.DefaultPolicy(0),
	}
}

// Metadata identifies the section behind an indexed document.
type Metadata struct {
	ID      string        `json:"id"`
	Heading string        `json:"heading"`
	Level   doctree.Level `json:"level"`
	Page    int           `json:"page"`
}

// Result is one ranked document. SparseScore and DenseScore are the raw
// similarities before fusion, boost and length penalty.
type Result struct {
	Content     string   `json:"content"`
	Metadata    Metadata `json:"metadata"`
	Score       float64  `json:"score"`
	SparseScore float64  `json:"sparse_score"`
	DenseScore  float64  `json:"dense_score"`
	Index       int      `json:"-"`
}

// HybridRetriever builds indexes that fuse TF-IDF and embedding similarity.
type HybridRetriever struct {
	emb  llm.Embedder
	opts Options
	log  *slog.Logger
}

func NewHybridRetriever(emb llm.Embedder, opts Options, log *slog.Logger) (*HybridRetriever, error) {
	if opts.SparseWeight < 0 || opts.SparseWeight > 1 || math.IsNaN(opts.SparseWeight) {
		return nil, fmt.Errorf("%w: sparse weight %v not in [0,1]", ErrInvalidWeight, opts.SparseWeight)
	}
	if opts.PositionBoost < 0 {
		return nil, fmt.Errorf("%w: position boost %v is negative", ErrInvalidWeight, opts.PositionBoost)
	}
	if emb == nil {
		emb = llm.NoopEmbedder{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts.Policy.Log = log
	return &HybridRetriever{emb: emb, opts: opts, log: log}, nil
}

// Weights returns the sparse and dense weights. They always sum to 1.
func (r *HybridRetriever) Weights() (sparse, dense float64) {
	return r.opts.SparseWeight, 1 - r.opts.SparseWeight
}

// Index is an immutable corpus snapshot. It is safe for concurrent
// Retrieve calls.
type Index struct {
	r        *HybridRetriever
	document string
	corpus   []string
	meta     []Metadata
	tfidf    *vectorizer
	sparse   []sparseVec
	dense    [][]float32
	penalty  []float64
}

// IndexCorpus builds a fresh index over corpus. meta may be nil; otherwise
// it must have one entry per document. document names the source in errors.
func (r *HybridRetriever) IndexCorpus(ctx context.Context, document string, corpus []string, meta []Metadata) (*Index, error) {
	if meta != nil && len(meta) != len(corpus) {
		return nil, fmt.Errorf("index corpus: %d metadata entries for %d documents", len(meta), len(corpus))
	}
	if meta == nil {
		meta = make([]Metadata, len(corpus))
	}

	ix := &Index{
		r:        r,
		document: document,
		corpus:   append([]string(nil), corpus...),
		meta:     append([]Metadata(nil), meta...),
		penalty:  make([]float64, len(corpus)),
	}
	ix.tfidf, ix.sparse = fitTFIDF(ix.corpus)
	for i, doc := range ix.corpus {
		ix.penalty[i] = 1 / math.Log(2+float64(chunker.WordCount(doc))/100)
	}

	dense, err := r.embed(ctx, document, ix.corpus)
	if err != nil {
		return nil, err
	}
	ix.dense = dense

	r.log.Debug("corpus indexed",
		"document", document,
		"documents", len(corpus),
		"vocabulary", len(ix.tfidf.vocab),
		"embed_model", r.emb.Model(),
	)
	return ix, nil
}

func (r *HybridRetriever) embed(ctx context.Context, document string, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch := make([]string, end-start)
		for i, t := range texts[start:end] {
			batch[i] = chunker.Head(t, r.opts.MaxEmbedTokens)
		}

		var vecs [][]float32
		err := r.opts.Policy.Call(ctx, "embed", func(ctx context.Context) error {
			var err error
			vecs, err = r.emb.EmbedBatch(ctx, batch)
			return err
		})
		if err == nil && len(vecs) != len(batch) {
			err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
		}
		if err != nil {
			return nil, &doctree.StageError{Stage: doctree.StageEmbed, Document: document, Err: err}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Len reports the number of indexed documents.
func (ix *Index) Len() int { return len(ix.corpus) }

// Retrieve ranks the corpus against query and returns at most topK results,
// best first. Ties keep corpus order.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int, expand bool) ([]Result, error) {
	n := len(ix.corpus)
	if n == 0 || topK <= 0 {
		return []Result{}, nil
	}
	if expand {
		query = ExpandQuery(query)
	}

	qSparse := ix.tfidf.transform(query)
	qDense, err := ix.r.embed(ctx, ix.document, []string{query})
	if err != nil {
		return nil, err
	}

	sw, dw := ix.r.Weights()
	results := make([]Result, n)
	for i := range ix.corpus {
		sparse := qSparse.dot(ix.sparse[i])
		dense := cosine(qDense[0], ix.dense[i])
		score := sw*sparse + dw*dense + positionBoost(ix.r.opts.PositionBoost, i, n)
		results[i] = Result{
			Content:     ix.corpus[i],
			Metadata:    ix.meta[i],
			Score:       score * ix.penalty[i],
			SparseScore: sparse,
			DenseScore:  dense,
			Index:       i,
		}
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	return results[:min(topK, n)], nil
}

// positionBoost spaces n values evenly from boost down to 0.
func positionBoost(boost float64, i, n int) float64 {
	if n == 1 {
		return boost
	}
	return boost * (1 - float64(i)/float64(n-1))
}
