package domain

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"Hello there", "  hello THERE ", 1},
		{"kitten", "sitting", 1 - 3.0/7.0},
		{"abc", "", 0},
		{"Is this flat still available?", "Is this flat still available", 1 - 1.0/29.0},
	}
	for _, tc := range tests {
		got := Similarity(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		if rev := Similarity(tc.b, tc.a); math.Abs(rev-got) > 1e-9 {
			t.Errorf("Similarity not symmetric for %q, %q", tc.a, tc.b)
		}
	}
}
