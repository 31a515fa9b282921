// Package ingest reads transaction records from CSV files or SQL databases
// and turns them into validated transactions.
package ingest

import (
	"context"

	"github.com/txnguard/txnguard/pkg/types"
)

// Source reads raw transaction records.
type Source interface {
	// Read returns every record in source order.
	Read(ctx context.Context) ([]Record, error)

	// Describe names the source for logs.
	Describe() string
}

// Load reads src and parses its records.
func Load(ctx context.Context, src Source) ([]types.Transaction, error) {
	records, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(records)
}
