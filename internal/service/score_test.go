package service

import "testing"

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    float64
	}{
		{name: "zero total", correct: 0, total: 0, want: 0.0},
		{name: "all correct", correct: 10, total: 10, want: 100.0},
		{name: "none correct", correct: 0, total: 10, want: 0.0},
		{name: "half", correct: 5, total: 10, want: 50.0},
		{name: "one third rounds", correct: 1, total: 3, want: 33.33},
		{name: "two thirds rounds", correct: 2, total: 3, want: 66.67},
		{name: "one of seven", correct: 1, total: 7, want: 14.29},
		{name: "six of seven", correct: 6, total: 7, want: 85.71},
		{name: "single question correct", correct: 1, total: 1, want: 100.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeScore(tc.correct, tc.total); got != tc.want {
				t.Fatalf("ComputeScore(%d, %d) = %v, want %v", tc.correct, tc.total, got, tc.want)
			}
		})
	}
}

func TestComputeScoreBounds(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for correct := 0; correct <= total; correct++ {
			got := ComputeScore(correct, total)
			if got < 0 || got > 100 {
				t.Fatalf("ComputeScore(%d, %d) = %v, out of [0, 100]", correct, total, got)
			}
		}
	}
}
