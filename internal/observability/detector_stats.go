// Package observability provides run metrics, detector tallies and tracing
// helpers for txnguard.
package observability

import (
	"sort"
	"sync"
)

// Tally is a hit count for one detector or one reason text.
type Tally struct {
	Key   string
	Count int64
}

// DetectorStats tallies detector hits and rendered reasons across runs.
// It is safe for concurrent use.
type DetectorStats struct {
	mu      sync.RWMutex
	hits    map[string]int64
	reasons map[string]int64
}

// NewDetectorStats creates an empty tally.
func NewDetectorStats() *DetectorStats {
	return &DetectorStats{
		hits:    make(map[string]int64),
		reasons: make(map[string]int64),
	}
}

// RecordHits adds n hits for detector.
func (d *DetectorStats) RecordHits(detector string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hits[detector] += int64(n)
}

// RecordReason counts one occurrence of a reason text. Templated reasons,
// such as merchant thresholds, are tallied per rendered text.
func (d *DetectorStats) RecordReason(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reasons[reason]++
}

// Hits returns the hits recorded for detector.
func (d *DetectorStats) Hits(detector string) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hits[detector]
}

// TopDetectors returns the n detectors with the most hits.
func (d *DetectorStats) TopDetectors(n int) []Tally {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return top(d.hits, n)
}

// TopReasons returns the n most frequent reason texts.
func (d *DetectorStats) TopReasons(n int) []Tally {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return top(d.reasons, n)
}

// top sorts by count descending, then key ascending, and keeps n entries.
func top(m map[string]int64, n int) []Tally {
	if n <= 0 || len(m) == 0 {
		return []Tally{}
	}
	out := make([]Tally, 0, len(m))
	for k, c := range m {
		out = append(out, Tally{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}
