// Package types provides the core data types shared by txnguard packages.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single ingested payment record.
type Transaction struct {
	// Ordinal is the 0-based position of the record in the ingested input.
	// It is the row identity used to merge per-user results back in order.
	Ordinal int `json:"-"`

	// UserID identifies the user that made the payment (opaque)
	UserID string `json:"user_id"`

	// Timestamp is the instant the payment happened, in UTC
	Timestamp time.Time `json:"timestamp"`

	// MerchantName is the merchant the payment went to
	MerchantName string `json:"merchant_name"`

	// Amount is the non-negative payment amount in currency units
	Amount decimal.Decimal `json:"amount"`

	// FraudReason is the " | " separated list of reasons the transaction was
	// flagged for. Empty means not flagged.
	FraudReason string `json:"fraud_reason,omitempty"`
}

// Flagged reports whether the transaction carries at least one reason.
func (t *Transaction) Flagged() bool {
	return t.FraudReason != ""
}

// Clone returns a copy of txns so callers can annotate without touching the input.
func Clone(txns []Transaction) []Transaction {
	out := make([]Transaction, len(txns))
	copy(out, txns)
	return out
}
