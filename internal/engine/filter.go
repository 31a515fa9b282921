package engine

import (
	"sort"

	"github.com/txnguard/txnguard/pkg/types"
)

// Filter returns the transactions carrying a fraud reason, ordered by
// ascending Ordinal. The input is not modified.
func Filter(txns []types.Transaction) []types.Transaction {
	out := make([]types.Transaction, 0)
	for _, tx := range txns {
		if tx.Flagged() {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}
