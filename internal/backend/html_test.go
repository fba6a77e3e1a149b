package backend

import (
	"strings"
	"testing"
)

func TestHTML_OutlineAndTitle(t *testing.T) {
	input := `<html><head><title>Field Guide</title><script>var x = 1;</script></head>
<body>
<nav>Home | About</nav>
<h1>Birds</h1>
<p>Birds are   warm-blooded.</p>
<h3>Owls</h3>
<p>Owls hunt at night.</p>
</body></html>`
	d, err := Parse(strings.NewReader(input), "guide.html", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Properties().Metadata["title"]; got != "Field Guide" {
		t.Errorf("expected title %q, got %q", "Field Guide", got)
	}

	outline, _ := d.Outline()
	if len(outline) != 2 {
		t.Fatalf("expected 2 outline entries, got %d", len(outline))
	}
	if outline[1].Level != 3 || outline[1].Title != "Owls" {
		t.Errorf("expected level 3 %q, got %+v", "Owls", outline[1])
	}

	text, _ := d.PageText(1)
	if strings.Contains(text, "Home | About") {
		t.Errorf("expected nav to be skipped, got %q", text)
	}
	if !strings.Contains(text, "Birds are warm-blooded.") {
		t.Errorf("expected collapsed whitespace in paragraph, got %q", text)
	}
}

func TestHeadingLevel(t *testing.T) {
	cases := map[string]int{"h1": 1, "h6": 6, "h7": 0, "hr": 0, "p": 0, "head": 0}
	for tag, want := range cases {
		if got := headingLevel(tag); got != want {
			t.Errorf("headingLevel(%q): expected %d, got %d", tag, want, got)
		}
	}
}
