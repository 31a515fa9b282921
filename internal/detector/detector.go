// Package detector implements the independent heuristics that flag
// suspicious transactions within one user's chronological stream.
//
// Every detector reads only the original timestamps and amounts of the
// stream; none observes another detector's output.
package detector

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/txnguard/txnguard/internal/partition"
	"github.com/txnguard/txnguard/pkg/types"
)

// Mask is a per-transaction flag vector aligned with a stream's Txns.
type Mask []bool

// Count returns the number of set flags.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// Detector flags transactions of one user stream.
type Detector interface {
	// Name is a stable identifier used in stats and metrics.
	Name() string

	// Detect returns a mask aligned with s.Txns.
	Detect(s *partition.UserStream) Mask

	// Reason renders the annotation for a transaction the detector flagged.
	Reason(tx *types.Transaction) string
}

// Detector names.
const (
	NameHighFrequency     = "high_frequency"
	NameBlacklist         = "blacklisted_merchant"
	NameMerchantThreshold = "merchant_threshold"
	NameMerchantDiversity = "merchant_diversity"
	NameSpendingSpike     = "spending_spike"
	NameUnusualHour       = "unusual_hour"
	NameBurstSpending     = "burst_spending"
)

// Params configures the detector set.
type Params struct {
	Blacklist  *types.Blacklist
	Thresholds *types.ThresholdTable

	// HighFrequencyCount events spanning at most HighFrequencySpan trigger
	HighFrequencyCount int
	HighFrequencySpan  time.Duration

	// At least DiversityMinCount events within DiversityWindow trigger
	DiversityWindow   time.Duration
	DiversityMinCount int

	// Amounts above mean + SpikeSigma standard deviations trigger
	SpikeSigma float64

	// Hours with |z| > HourZScore trigger once a user has HourMinCount events
	HourMinCount int
	HourZScore   float64

	// A windowed sum above BurstLimit, rounded to BurstPlaces, triggers
	BurstWindow time.Duration
	BurstLimit  decimal.Decimal
	BurstPlaces int32
}

// DefaultParams returns the standard policy with the default blacklist and
// an empty threshold table.
func DefaultParams() Params {
	return Params{
		Blacklist:          types.NewBlacklist(types.DefaultBlacklist...),
		Thresholds:         types.NewThresholdTable(),
		HighFrequencyCount: 5,
		HighFrequencySpan:  60 * time.Second,
		DiversityWindow:    5 * time.Minute,
		DiversityMinCount:  3,
		SpikeSigma:         3,
		HourMinCount:       3,
		HourZScore:         2,
		BurstWindow:        10 * time.Minute,
		BurstLimit:         decimal.NewFromInt(5000),
		BurstPlaces:        2,
	}
}

// Validate checks that every parameter is usable.
func (p Params) Validate() error {
	switch {
	case p.HighFrequencyCount < 1:
		return fmt.Errorf("detector: high frequency count must be >= 1, got %d", p.HighFrequencyCount)
	case p.HighFrequencySpan < 0:
		return fmt.Errorf("detector: high frequency span must be >= 0, got %v", p.HighFrequencySpan)
	case p.DiversityWindow < 0:
		return fmt.Errorf("detector: diversity window must be >= 0, got %v", p.DiversityWindow)
	case p.DiversityMinCount < 1:
		return fmt.Errorf("detector: diversity min count must be >= 1, got %d", p.DiversityMinCount)
	case p.SpikeSigma < 0:
		return fmt.Errorf("detector: spike sigma must be >= 0, got %v", p.SpikeSigma)
	case p.HourMinCount < 2:
		return fmt.Errorf("detector: hour min count must be >= 2, got %d", p.HourMinCount)
	case p.HourZScore < 0:
		return fmt.Errorf("detector: hour z-score must be >= 0, got %v", p.HourZScore)
	case p.BurstWindow < 0:
		return fmt.Errorf("detector: burst window must be >= 0, got %v", p.BurstWindow)
	case p.BurstPlaces < 0:
		return fmt.Errorf("detector: burst places must be >= 0, got %d", p.BurstPlaces)
	}
	return nil
}

// Default returns the seven detectors in application order. The order fixes
// the order reasons appear in an annotation.
func Default(p Params) []Detector {
	return []Detector{
		&HighFrequency{Count: p.HighFrequencyCount, Span: p.HighFrequencySpan},
		&Blacklisted{List: p.Blacklist},
		&MerchantThreshold{Table: p.Thresholds},
		&MerchantDiversity{Window: p.DiversityWindow, MinCount: p.DiversityMinCount},
		&SpendingSpike{Sigma: p.SpikeSigma},
		&UnusualHour{MinCount: p.HourMinCount, ZScore: p.HourZScore},
		&BurstSpending{Window: p.BurstWindow, Limit: p.BurstLimit, Places: p.BurstPlaces},
	}
}

// Names returns the names of dets in order.
func Names(dets []Detector) []string {
	out := make([]string, len(dets))
	for i, d := range dets {
		out[i] = d.Name()
	}
	return out
}

// formatWindow renders a window as "<n>min" when it is whole minutes.
func formatWindow(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		return fmt.Sprintf("%dmin", int64(d/time.Minute))
	}
	return d.String()
}
