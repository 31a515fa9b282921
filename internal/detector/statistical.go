package detector

import (
	"math"

	"github.com/txnguard/txnguard/internal/partition"
	"github.com/txnguard/txnguard/internal/window"
	"github.com/txnguard/txnguard/pkg/types"
)

// SpendingSpike flags amounts above mean + Sigma*std of the user's amounts,
// using the sample standard deviation. Users with fewer than two
// transactions never spike.
type SpendingSpike struct {
	Sigma float64
}

func (d *SpendingSpike) Name() string { return NameSpendingSpike }

func (d *SpendingSpike) Reason(*types.Transaction) string { return "user spending spike" }

func (d *SpendingSpike) Detect(s *partition.UserStream) Mask {
	mask := make(Mask, s.Len())
	amounts := make([]float64, s.Len())
	for i, tx := range s.Txns {
		amounts[i] = tx.Amount.InexactFloat64()
	}
	mean, std, ok := window.SampleMeanStd(amounts)
	if !ok {
		return mask
	}
	limit := mean + d.Sigma*std
	for i, a := range amounts {
		mask[i] = a > limit
	}
	return mask
}

// UnusualHour flags transactions whose UTC hour of day is more than ZScore
// sample standard deviations from the user's mean hour. It needs MinCount
// transactions, and a user who always transacts in the same hour is never
// flagged.
type UnusualHour struct {
	MinCount int
	ZScore   float64
}

func (d *UnusualHour) Name() string { return NameUnusualHour }

func (d *UnusualHour) Reason(*types.Transaction) string { return "unusual hour" }

func (d *UnusualHour) Detect(s *partition.UserStream) Mask {
	mask := make(Mask, s.Len())
	if s.Len() < d.MinCount {
		return mask
	}
	hours := make([]float64, s.Len())
	for i, tx := range s.Txns {
		hours[i] = float64(tx.Timestamp.UTC().Hour())
	}
	scores, ok := window.ZScores(hours)
	if !ok {
		return mask
	}
	for i, z := range scores {
		mask[i] = math.Abs(z) > d.ZScore
	}
	return mask
}
