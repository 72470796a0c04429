package service

import "math"

// ComputeScore returns the percentage of correct answers rounded to two
// decimal places. An attempt with zero answer rows scores 0.0.
func ComputeScore(correct, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}
