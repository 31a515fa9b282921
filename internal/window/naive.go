package window

import (
	"time"

	"github.com/shopspring/decimal"
)

// NaiveStarts recomputes every event's window start with an independent
// backwards scan. It is quadratic and exists as the reference behaviour the
// two-pointer index is checked against.
func NaiveStarts(times []time.Time, width time.Duration) []int {
	starts := make([]int, len(times))
	for i := range times {
		lo := i
		for j := i; j >= 0; j-- {
			if times[i].Sub(times[j]) <= width {
				lo = j
			}
		}
		starts[i] = lo
	}
	return starts
}

// NaiveCounts is the reference for DurationIndex.Counts.
func NaiveCounts(times []time.Time, width time.Duration) []int {
	out := make([]int, len(times))
	for i := range times {
		for j := 0; j <= i; j++ {
			if times[i].Sub(times[j]) <= width {
				out[i]++
			}
		}
	}
	return out
}

// NaiveSums is the reference for DurationIndex.Sums.
func NaiveSums(times []time.Time, values []decimal.Decimal, width time.Duration) []decimal.Decimal {
	out := make([]decimal.Decimal, len(times))
	for i := range times {
		sum := decimal.Zero
		for j := 0; j <= i; j++ {
			if times[i].Sub(times[j]) <= width {
				sum = sum.Add(values[j])
			}
		}
		out[i] = sum
	}
	return out
}
