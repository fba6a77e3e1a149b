package headings

import (
	"sort"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// FontLevel ranks size among the distinct observed sizes, largest first.
// Bold text is promoted one level. Sizes never observed map to the deepest
// level.
func FontLevel(size float64, bold bool, observed []float64) doctree.Level {
	sizes := distinctDescending(observed)
	rank := indexOf(sizes, size)
	if rank < 0 {
		return doctree.MaxLevel
	}
	level := rank + 1
	if bold && level > 1 {
		level--
	}
	return doctree.ClampLevel(level)
}

// OCRLevel ranks height in the descending list of positive token heights.
// Duplicates are kept, so equal heights share the rank of their first
// occurrence.
func OCRLevel(height float64, observed []float64) doctree.Level {
	heights := make([]float64, 0, len(observed))
	for _, h := range observed {
		if h > 0 {
			heights = append(heights, h)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(heights)))
	rank := indexOf(heights, height)
	if rank < 0 {
		return doctree.MaxLevel
	}
	return doctree.ClampLevel(rank + 1)
}

func distinctDescending(vals []float64) []float64 {
	seen := make(map[float64]bool, len(vals))
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

func indexOf(vals []float64, v float64) int {
	for i, x := range vals {
		if x == v {
			return i
		}
	}
	return -1
}
