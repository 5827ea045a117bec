package stats

import "math"

// BenfordCritical is the chi-square critical value for 8 degrees of freedom at 0.05.
const BenfordCritical = 15.507

// BenfordExpected returns the expected share of leading digits 1..9 (index 0 is digit 1).
func BenfordExpected() [9]float64 {
	var p [9]float64
	for d := 1; d <= 9; d++ {
		p[d-1] = math.Log10(1 + 1/float64(d))
	}
	return p
}

// BenfordChiSquare compares observed leading-digit counts against Benford's
// distribution scaled to the same total. It returns the statistic and the
// expected counts. An all-zero observation returns 0.
func BenfordChiSquare(observed [9]int) (float64, [9]float64) {
	total := 0
	for _, c := range observed {
		total += c
	}
	var expected [9]float64
	if total == 0 {
		return 0, expected
	}
	shares := BenfordExpected()
	var chi float64
	for i := range observed {
		expected[i] = shares[i] * float64(total)
		diff := float64(observed[i]) - expected[i]
		chi += diff * diff / expected[i]
	}
	return chi, expected
}
