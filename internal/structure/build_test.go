package structure

import (
	"testing"

	"github.com/dgallion1/docinsight/internal/doctree"
)

func h(text string, page, level int) doctree.Heading {
	return doctree.Heading{Text: text, Page: page, Level: doctree.Level(level)}
}

func sampleHeadings() []doctree.Heading {
	return []doctree.Heading{
		h("Introduction", 1, 1),
		h("Background and Context", 2, 2),
		h("Methodology", 3, 1),
		h("Results", 4, 1),
		h("Key Findings", 4, 2),
		h("Statistical Analysis", 4, 3),
		h("Conclusion", 5, 1),
	}
}

func TestBuild_OutlineScenario(t *testing.T) {
	tree := Build(sampleHeadings())

	var top []string
	for _, n := range tree {
		top = append(top, n.Text)
	}
	want := []string{"Introduction", "Methodology", "Results", "Conclusion"}
	if len(top) != len(want) {
		t.Fatalf("expected top level %v, got %v", want, top)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("top[%d]: expected %q, got %q", i, want[i], top[i])
		}
	}

	results := tree[2]
	if len(results.Children) != 1 || results.Children[0].Text != "Key Findings" {
		t.Fatalf("expected Results -> [Key Findings], got %+v", results.Children)
	}
	kf := results.Children[0]
	if len(kf.Children) != 1 || kf.Children[0].Text != "Statistical Analysis" {
		t.Errorf("expected Key Findings -> [Statistical Analysis], got %+v", kf.Children)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].Text != "Background and Context" {
		t.Errorf("expected Introduction -> [Background and Context], got %+v", tree[0].Children)
	}
}

func TestBuild_SkippedLevels(t *testing.T) {
	tree := Build([]doctree.Heading{h("A", 1, 1), h("A.x", 1, 3), h("A.y", 1, 2), h("B", 2, 1)})
	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}
	a := tree[0]
	if len(a.Children) != 2 {
		t.Fatalf("expected H3 and H2 both under H1, got %d children", len(a.Children))
	}
	if a.Children[0].Text != "A.x" || a.Children[1].Text != "A.y" {
		t.Errorf("unexpected children order: %q, %q", a.Children[0].Text, a.Children[1].Text)
	}
}

func TestBuild_DescendantsAreDeeper(t *testing.T) {
	hs := []doctree.Heading{
		h("a", 1, 2), h("b", 1, 4), h("c", 1, 1), h("d", 2, 3), h("e", 2, 3), h("f", 2, 6), h("g", 3, 2), h("h", 3, 1),
	}
	Walk(Build(hs), func(node, parent *doctree.Node) {
		if parent != nil && node.Level <= parent.Level {
			t.Errorf("node %q (level %d) nested under %q (level %d)", node.Text, node.Level, parent.Text, parent.Level)
		}
	})
}

func TestBuild_SortsByPageThenPosition(t *testing.T) {
	hs := []doctree.Heading{
		{Text: "Second", Page: 2, Level: 1},
		{Text: "Lower", Page: 1, Level: 2, Y: 300},
		{Text: "Upper", Page: 1, Level: 1, Y: 50},
	}
	tree := Build(hs)
	if len(tree) != 2 || tree[0].Text != "Upper" || tree[1].Text != "Second" {
		t.Fatalf("unexpected roots: %+v", tree)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].Text != "Lower" {
		t.Errorf("expected Lower under Upper, got %+v", tree[0].Children)
	}
}

func TestBuild_Empty(t *testing.T) {
	tree := Build(nil)
	if tree == nil || len(tree) != 0 {
		t.Errorf("expected empty non-nil tree, got %#v", tree)
	}
}
