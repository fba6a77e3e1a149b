package headings

import "testing"

func TestFontLevel(t *testing.T) {
	sizes := []float64{24, 12, 18, 12, 10, 24}
	tests := []struct {
		size float64
		bold bool
		want int
	}{
		{24, false, 1},
		{18, false, 2},
		{18, true, 1},
		{24, true, 1},
		{12, false, 3},
		{10, true, 3},
		{30, false, 6},
	}
	for _, tt := range tests {
		if got := FontLevel(tt.size, tt.bold, sizes); int(got) != tt.want {
			t.Errorf("FontLevel(%v, %v): expected %d, got %d", tt.size, tt.bold, tt.want, got)
		}
	}
}

func TestFontLevel_CapsAtSix(t *testing.T) {
	sizes := []float64{20, 19, 18, 17, 16, 15, 14, 13}
	if got := FontLevel(13, false, sizes); got != 6 {
		t.Errorf("expected level 6, got %d", got)
	}
}

func TestOCRLevel_FirstMatchPosition(t *testing.T) {
	heights := []float64{10, 40, 40, 25, 0, -3}
	if got := OCRLevel(40, heights); got != 1 {
		t.Errorf("expected level 1 for tallest, got %d", got)
	}
	// Sorted list is [40 40 25 10]; 25 first appears at index 2.
	if got := OCRLevel(25, heights); got != 3 {
		t.Errorf("expected level 3, got %d", got)
	}
	if got := OCRLevel(99, heights); got != 6 {
		t.Errorf("expected level 6 for unknown height, got %d", got)
	}
}
