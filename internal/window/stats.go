package window

import "math"

// SampleMeanStd returns the mean and the sample standard deviation (n-1
// denominator) of values. ok is false when fewer than two values are given,
// since the sample deviation is undefined there.
func SampleMeanStd(values []float64) (mean, std float64, ok bool) {
	n := len(values)
	if n == 0 {
		return 0, 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0, false
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n-1)), true
}

// ZScores returns (v - mean) / std for every value using the sample standard
// deviation. ok is false when the deviation is undefined or zero, in which
// case no score is meaningful.
func ZScores(values []float64) (scores []float64, ok bool) {
	mean, std, ok := SampleMeanStd(values)
	if !ok || std == 0 {
		return nil, false
	}
	scores = make([]float64, len(values))
	for i, v := range values {
		scores[i] = (v - mean) / std
	}
	return scores, true
}
