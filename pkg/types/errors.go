package types

import "errors"

// Policy errors
var (
	// ErrEmptyMerchant is returned when a threshold or blacklist entry has no merchant name
	ErrEmptyMerchant = errors.New("empty merchant name")

	// ErrNonPositiveLimit is returned when a threshold limit is zero or negative
	ErrNonPositiveLimit = errors.New("threshold limit must be positive")
)

// Validate checks that a threshold entry is usable.
func (t Threshold) Validate() error {
	if t.Merchant == "" {
		return ErrEmptyMerchant
	}
	if !t.Limit.IsPositive() {
		return ErrNonPositiveLimit
	}
	return nil
}
