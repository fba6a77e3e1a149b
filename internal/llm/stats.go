package llm

import (
	"context"
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// StatsSnapshot is a point-in-time aggregate of latency samples.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Stats tracks recent external-service call latencies per service within a
// rolling window.
type Stats struct {
	mu     sync.Mutex
	series map[string]*window
	maxAge time.Duration
}

type window struct {
	samples []sample
	errors  int
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		series: make(map[string]*window),
		maxAge: maxAge,
	}
}

// Observe records a call to service that started at start.
func (s *Stats) Observe(service string, start time.Time, err error) {
	s.Record(service, time.Since(start).Milliseconds())
	if err != nil {
		s.mu.Lock()
		s.seriesLocked(service).errors++
		s.mu.Unlock()
	}
}

func (s *Stats) seriesLocked(service string) *window {
	w, ok := s.series[service]
	if !ok {
		w = &window{samples: make([]sample, 0, 256)}
		s.series[service] = w
	}
	return w
}

func (s *Stats) Record(service string, durationMs int64) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.seriesLocked(service)
	w.prune(now.Add(-s.maxAge))
	w.samples = append(w.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
	})
}

// Snapshot aggregates every service seen so far.
func (s *Stats) Snapshot() map[string]StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StatsSnapshot, len(s.series))
	for name, w := range s.series {
		w.prune(now.Add(-s.maxAge))
		out[name] = w.snapshot()
	}
	return out
}

// Service aggregates one service.
func (s *Stats) Service(service string) StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.series[service]
	if !ok {
		return StatsSnapshot{}
	}
	w.prune(now.Add(-s.maxAge))
	return w.snapshot()
}

func (w *window) snapshot() StatsSnapshot {
	if len(w.samples) == 0 {
		return StatsSnapshot{Errors: w.errors}
	}

	values := make([]int64, 0, len(w.samples))
	var sum int64
	for _, sm := range w.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:  len(values),
		Errors: w.errors,
		MinMs:  values[0],
		MaxMs:  values[len(values)-1],
		AvgMs:  float64(sum) / float64(len(values)),
		P50Ms:  percentile(values, 50),
		P95Ms:  percentile(values, 95),
		P99Ms:  percentile(values, 99),
	}
}

func (w *window) prune(cutoff time.Time) {
	writeIdx := 0
	for _, sm := range w.samples {
		if !sm.timestamp.Before(cutoff) {
			w.samples[writeIdx] = sm
			writeIdx++
		}
	}
	w.samples = w.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	if lower == upper {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}

// Service names used by the instrumented clients.
const (
	ServiceEmbed    = "embed"
	ServiceGenerate = "generate"
)

type timedEmbedder struct {
	Embedder
	stats *Stats
}

func (t timedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := t.Embedder.EmbedBatch(ctx, texts)
	t.stats.Observe(ServiceEmbed, start, err)
	return vecs, err
}

type timedGenerator struct {
	Generator
	stats *Stats
}

func (t timedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := t.Generator.Generate(ctx, prompt)
	t.stats.Observe(ServiceGenerate, start, err)
	return out, err
}

// TimeEmbedder records every EmbedBatch call in stats.
func TimeEmbedder(e Embedder, stats *Stats) Embedder {
	if e == nil || stats == nil {
		return e
	}
	return timedEmbedder{Embedder: e, stats: stats}
}

// TimeGenerator records every Generate call in stats.
func TimeGenerator(g Generator, stats *Stats) Generator {
	if g == nil || stats == nil {
		return g
	}
	return timedGenerator{Generator: g, stats: stats}
}
