package partition

import (
	"time"
)

// StatsTracker summarises the streams of a run for logging and reporting.
type StatsTracker struct {
	rowCount  int64
	userCount int64

	// Longest stream seen
	maxStreamLen int
	maxStreamID  string

	// Time span covered by the input
	minTime *time.Time
	maxTime *time.Time
}

// NewStatsTracker creates a new statistics tracker.
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{}
}

// Update folds one stream into the statistics.
func (s *StatsTracker) Update(stream *UserStream) {
	if stream.Len() == 0 {
		return
	}
	s.userCount++
	s.rowCount += int64(stream.Len())

	if stream.Len() > s.maxStreamLen {
		s.maxStreamLen = stream.Len()
		s.maxStreamID = stream.UserID
	}

	// Streams are chronological, so the ends bound the span.
	first := stream.Txns[0].Timestamp
	last := stream.Txns[stream.Len()-1].Timestamp
	if s.minTime == nil || first.Before(*s.minTime) {
		s.minTime = &first
	}
	if s.maxTime == nil || last.After(*s.maxTime) {
		s.maxTime = &last
	}
}

// RowCount returns the number of transactions tracked.
func (s *StatsTracker) RowCount() int64 {
	return s.rowCount
}

// UserCount returns the number of non-empty streams tracked.
func (s *StatsTracker) UserCount() int64 {
	return s.userCount
}

// LongestStream returns the user with the most transactions and its length.
func (s *StatsTracker) LongestStream() (string, int) {
	return s.maxStreamID, s.maxStreamLen
}

// Span returns the earliest and latest timestamps seen. ok is false when no
// rows were tracked.
func (s *StatsTracker) Span() (from, to time.Time, ok bool) {
	if s.minTime == nil || s.maxTime == nil {
		return time.Time{}, time.Time{}, false
	}
	return *s.minTime, *s.maxTime, true
}
