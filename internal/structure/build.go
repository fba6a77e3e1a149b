package structure

import (
	"sort"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// Sorted returns a copy of headings ordered by page, then vertical position.
// Equal keys keep their input order.
func Sorted(headings []doctree.Heading) []doctree.Heading {
	out := make([]doctree.Heading, len(headings))
	copy(out, headings)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// Build folds headings into a nested outline. A heading nests under the
// nearest preceding heading with a smaller level, so skipped levels (H1 then
// H3) nest directly.
func Build(headings []doctree.Heading) []*doctree.Node {
	type stackEntry struct {
		node  *doctree.Node
		level doctree.Level
	}

	// Root is level 0; all headings nest under it.
	root := &doctree.Node{}
	stack := []stackEntry{{node: root, level: 0}}

	for _, h := range Sorted(headings) {
		node := &doctree.Node{Text: h.Text, Page: h.Page, Level: h.Level, Children: []*doctree.Node{}}
		for len(stack) > 1 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, node)
		stack = append(stack, stackEntry{node: node, level: h.Level})
	}

	if root.Children == nil {
		return []*doctree.Node{}
	}
	return root.Children
}

// Walk visits nodes depth-first, passing each node's parent (nil at the top).
func Walk(nodes []*doctree.Node, fn func(node, parent *doctree.Node)) {
	var walk func(nodes []*doctree.Node, parent *doctree.Node)
	walk = func(nodes []*doctree.Node, parent *doctree.Node) {
		for _, n := range nodes {
			fn(n, parent)
			walk(n.Children, n)
		}
	}
	walk(nodes, nil)
}
