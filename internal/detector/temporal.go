package detector

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/txnguard/txnguard/internal/partition"
	"github.com/txnguard/txnguard/internal/window"
	"github.com/txnguard/txnguard/pkg/types"
)

// HighFrequency flags Count consecutive transactions spanning at most Span.
// A hit marks every member of the triggering window, not only the newest.
type HighFrequency struct {
	Count int
	Span  time.Duration
}

func (d *HighFrequency) Name() string { return NameHighFrequency }

func (d *HighFrequency) Reason(*types.Transaction) string { return "high frequency" }

func (d *HighFrequency) Detect(s *partition.UserStream) Mask {
	mask := make(Mask, s.Len())
	times := s.Times()
	for i := range times {
		span, full := window.CountSpan(times, d.Count, i)
		if !full || span > d.Span {
			continue
		}
		for j := i - d.Count + 1; j <= i; j++ {
			mask[j] = true
		}
	}
	return mask
}

// MerchantDiversity flags a transaction when at least MinCount of the
// user's transactions, any merchant, fall in the trailing Window.
type MerchantDiversity struct {
	Window   time.Duration
	MinCount int
}

func (d *MerchantDiversity) Name() string { return NameMerchantDiversity }

func (d *MerchantDiversity) Reason(*types.Transaction) string {
	return fmt.Sprintf("multiple merchants in %s", formatWindow(d.Window))
}

func (d *MerchantDiversity) Detect(s *partition.UserStream) Mask {
	mask := make(Mask, s.Len())
	idx := window.NewDurationIndex(s.Times(), d.Window)
	for i := range mask {
		mask[i] = idx.Count(i) >= d.MinCount
	}
	return mask
}

// BurstSpending flags a transaction when the user's total spend over the
// trailing Window, rounded to Places decimals, exceeds Limit.
type BurstSpending struct {
	Window time.Duration
	Limit  decimal.Decimal
	Places int32
}

func (d *BurstSpending) Name() string { return NameBurstSpending }

func (d *BurstSpending) Reason(*types.Transaction) string {
	return fmt.Sprintf("burst spending > $%s in %s", d.Limit.String(), formatWindow(d.Window))
}

func (d *BurstSpending) Detect(s *partition.UserStream) Mask {
	mask := make(Mask, s.Len())
	amounts := make([]decimal.Decimal, s.Len())
	for i, tx := range s.Txns {
		amounts[i] = tx.Amount
	}
	sums := window.NewDurationIndex(s.Times(), d.Window).Sums(amounts)
	for i, sum := range sums {
		mask[i] = sum.Round(d.Places).GreaterThan(d.Limit)
	}
	return mask
}
