package service

import "math"

// roundScore rounds a percentage to two decimal places using round-half-up.
// Scores are non-negative, so half-up and half-away-from-zero coincide.
func roundScore(value float64) float64 {
	return math.Floor(value*100+0.5) / 100
}

// toCents converts a two-decimal percentage into integer hundredths so range
// arithmetic is exact.
func toCents(value float64) int {
	return int(math.Round(value * 100))
}

// clampPercentage bounds a value to the [0,100] score domain.
func clampPercentage(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
