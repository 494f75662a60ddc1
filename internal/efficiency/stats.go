package efficiency

import (
	"math"
	"slices"
)

// Median returns the middle value, or the mean of the two middle values for
// an even count. Empty input yields 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Stdev returns the sample standard deviation (n-1 denominator), or 0 for
// fewer than two values.
func Stdev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

func column(runs []RunRecord, pick func(RunRecord) float64) []float64 {
	out := make([]float64, len(runs))
	for i, r := range runs {
		out[i] = pick(r)
	}
	return out
}
