// Package sink persists flagged transactions.
package sink

import (
	"context"

	"github.com/txnguard/txnguard/pkg/types"
)

// Sink writes the flagged view of a run.
type Sink interface {
	// Write persists rows in the given order.
	Write(ctx context.Context, rows []types.Transaction) error

	// Describe names the destination for logs.
	Describe() string
}

// Fields renders a transaction as text in types.OutputSchema column order.
func Fields(tx types.Transaction) []string {
	return []string{
		tx.UserID,
		tx.Timestamp.UTC().Format(types.TimestampLayout),
		tx.MerchantName,
		tx.Amount.String(),
		tx.FraudReason,
	}
}
