// Package partition groups transactions into per-user chronological streams
// and spreads those streams over worker shards.
package partition

import (
	"fmt"
	"time"

	"github.com/txnguard/txnguard/pkg/types"
)

// UserStream is one user's transactions ordered by timestamp, ties broken by
// input ordinal. Txns point into the slice the stream was routed from, so
// annotating a stream annotates the caller's rows.
type UserStream struct {
	UserID string
	Txns   []*types.Transaction
}

// Len returns the number of transactions in the stream.
func (s *UserStream) Len() int {
	return len(s.Txns)
}

// Times returns the stream's timestamps in order.
func (s *UserStream) Times() []time.Time {
	out := make([]time.Time, len(s.Txns))
	for i, tx := range s.Txns {
		out[i] = tx.Timestamp
	}
	return out
}

// Validate checks the stream invariant: one user, non-decreasing timestamps.
func (s *UserStream) Validate() error {
	for i, tx := range s.Txns {
		if tx.UserID != s.UserID {
			return fmt.Errorf("partition: stream %q holds transaction of user %q at %d", s.UserID, tx.UserID, i)
		}
		if i > 0 && tx.Timestamp.Before(s.Txns[i-1].Timestamp) {
			return fmt.Errorf("partition: stream %q is not chronological at %d", s.UserID, i)
		}
	}
	return nil
}
