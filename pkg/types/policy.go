package types

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultBlacklist lists the merchants that are always flagged unless the
// blacklist is overridden by configuration.
var DefaultBlacklist = []string{
	"Unknown Gift Cards",
	"Luxury Watches",
	"Crypto Exchange",
	"Fake Charity",
}

// Threshold is one merchant spending limit.
type Threshold struct {
	// Merchant is the exact merchant name the limit applies to
	Merchant string `json:"merchant" yaml:"merchant"`

	// Limit is the amount above which a single transaction is flagged
	Limit decimal.Decimal `json:"limit" yaml:"limit"`

	// Display is the limit as shown in reasons. Empty means Limit.String().
	Display string `json:"-" yaml:"-"`
}

// ThresholdTable maps merchant names to spending limits. Entries keep the
// order they were loaded in.
type ThresholdTable struct {
	entries []Threshold
	index   map[string]int
}

// NewThresholdTable builds a table from entries. A later entry for the same
// merchant replaces the earlier one but keeps its position.
func NewThresholdTable(entries ...Threshold) *ThresholdTable {
	t := &ThresholdTable{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		t.set(e)
	}
	return t
}

func (t *ThresholdTable) set(e Threshold) {
	if i, ok := t.index[e.Merchant]; ok {
		t.entries[i] = e
		return
	}
	t.index[e.Merchant] = len(t.entries)
	t.entries = append(t.entries, e)
}

// Lookup returns the limit for merchant, if any.
func (t *ThresholdTable) Lookup(merchant string) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Decimal{}, false
	}
	i, ok := t.index[merchant]
	if !ok {
		return decimal.Decimal{}, false
	}
	return t.entries[i].Limit, true
}

// Label returns the display form of merchant's limit, or "" when the
// merchant has no entry.
func (t *ThresholdTable) Label(merchant string) string {
	if t == nil {
		return ""
	}
	i, ok := t.index[merchant]
	if !ok {
		return ""
	}
	if e := t.entries[i]; e.Display != "" {
		return e.Display
	}
	return t.entries[i].Limit.String()
}

// Entries returns a copy of the table in load order.
func (t *ThresholdTable) Entries() []Threshold {
	if t == nil {
		return nil
	}
	out := make([]Threshold, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of merchants in the table.
func (t *ThresholdTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Blacklist is an exact-match (case-sensitive) set of merchant names.
type Blacklist struct {
	names map[string]struct{}
}

// NewBlacklist builds a blacklist from names.
func NewBlacklist(names ...string) *Blacklist {
	b := &Blacklist{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		b.names[n] = struct{}{}
	}
	return b
}

// Contains reports whether merchant is blacklisted.
func (b *Blacklist) Contains(merchant string) bool {
	if b == nil {
		return false
	}
	_, ok := b.names[merchant]
	return ok
}

// Names returns the blacklisted names sorted.
func (b *Blacklist) Names() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.names))
	for n := range b.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of blacklisted merchants.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.names)
}
