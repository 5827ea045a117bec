// Package stats holds the small statistical helpers shared by the matcher and
// the anomaly scorer.
package stats

import (
	"math"
	"sort"
)

// madScale converts a median absolute deviation to a standard-deviation
// estimate for normal data; meanADScale does the same for the mean absolute deviation.
const (
	madScale    = 0.6745
	meanADScale = 1.253314
)

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Median returns the median of xs without reordering it.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// MedianAbsDeviation returns median(|x - median(xs)|).
func MedianAbsDeviation(xs []float64, median float64) float64 {
	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - median)
	}
	return Median(dev)
}

// MeanAbsDeviation returns mean(|x - center|).
func MeanAbsDeviation(xs []float64, center float64) float64 {
	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - center)
	}
	return Mean(dev)
}

// ModifiedZScores returns the robust z-score of every element of xs, index-aligned.
//
// The median absolute deviation is used as the spread; when more than half of the
// values are identical it is zero and the mean absolute deviation stands in.
// When every value is identical all scores are zero. Fewer than two values
// also yield zeros.
func ModifiedZScores(xs []float64) []float64 {
	scores := make([]float64, len(xs))
	if len(xs) < 2 {
		return scores
	}
	median := Median(xs)
	if mad := MedianAbsDeviation(xs, median); mad > 0 {
		for i, x := range xs {
			scores[i] = madScale * (x - median) / mad
		}
		return scores
	}
	meanAD := MeanAbsDeviation(xs, median)
	if meanAD == 0 {
		return scores
	}
	for i, x := range xs {
		scores[i] = (x - median) / (meanADScale * meanAD)
	}
	return scores
}

// Bounded maps a non-negative magnitude onto [0,1) so that v == pivot lands on 0.5.
// It is monotonic in v.
func Bounded(v, pivot float64) float64 {
	v = math.Abs(v)
	if pivot <= 0 {
		if v == 0 {
			return 0
		}
		return 1
	}
	return v / (v + pivot)
}

// Clamp01 limits x to [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
