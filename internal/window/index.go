// Package window answers trailing-window questions over one user's
// chronologically ordered events.
//
// Duration windows are inclusive: for event i at t_i the window holds every
// j <= i with t_i - t_j <= W. Count windows hold the K most recent events.
package window

import (
	"time"

	"github.com/shopspring/decimal"
)

// DurationIndex holds, for every event, the index of the first event inside
// its trailing duration window.
type DurationIndex struct {
	width  time.Duration
	starts []int
}

// NewDurationIndex builds the index with a two-pointer sweep. times must be
// non-decreasing; the window start only ever moves forward, so the sweep is
// linear in len(times).
func NewDurationIndex(times []time.Time, width time.Duration) *DurationIndex {
	starts := make([]int, len(times))
	lo := 0
	for i, t := range times {
		for lo < i && t.Sub(times[lo]) > width {
			lo++
		}
		starts[i] = lo
	}
	return &DurationIndex{width: width, starts: starts}
}

// Width returns the window duration.
func (d *DurationIndex) Width() time.Duration {
	return d.width
}

// Len returns the number of indexed events.
func (d *DurationIndex) Len() int {
	return len(d.starts)
}

// Start returns the index of the oldest event in event i's window.
func (d *DurationIndex) Start(i int) int {
	return d.starts[i]
}

// Count returns the number of events in event i's window, i included.
func (d *DurationIndex) Count(i int) int {
	return i - d.starts[i] + 1
}

// Counts returns Count for every event.
func (d *DurationIndex) Counts() []int {
	out := make([]int, len(d.starts))
	for i := range d.starts {
		out[i] = d.Count(i)
	}
	return out
}

// Sums returns the exact windowed sum of values for every event. values must
// be aligned with the indexed times.
func (d *DurationIndex) Sums(values []decimal.Decimal) []decimal.Decimal {
	// prefix[k] is the sum of values[:k]; decimal addition is exact, so
	// differences of prefixes equal direct sums.
	prefix := make([]decimal.Decimal, len(values)+1)
	prefix[0] = decimal.Zero
	for i, v := range values {
		prefix[i+1] = prefix[i].Add(v)
	}

	out := make([]decimal.Decimal, len(d.starts))
	for i, lo := range d.starts {
		out[i] = prefix[i+1].Sub(prefix[lo])
	}
	return out
}

// CountSpan returns t_i - t_{i-k+1}, the time covered by the k most recent
// events ending at i. full is false while fewer than k events have been seen.
func CountSpan(times []time.Time, k, i int) (span time.Duration, full bool) {
	if k <= 0 || i-k+1 < 0 {
		return 0, false
	}
	return times[i].Sub(times[i-k+1]), true
}
