// Package reason folds detector outputs into a transaction's fraud reason.
package reason

import (
	"strings"

	"github.com/txnguard/txnguard/internal/detector"
	"github.com/txnguard/txnguard/internal/partition"
)

// Separator joins reasons in an annotation.
const Separator = " | "

// Combine appends next to an existing annotation. An empty existing value
// yields next unchanged.
func Combine(existing, next string) string {
	if existing == "" {
		return next
	}
	if next == "" {
		return existing
	}
	return existing + Separator + next
}

// Annotation is the ordered, duplicate-free list of reasons for one
// transaction. A reason may itself contain Separator (a merchant name can),
// so membership is decided on the rendered text, not on split pieces.
type Annotation struct {
	rendered string
	reasons  []string
}

// Parse rebuilds an annotation from its rendered form. Empty and repeated
// pieces are dropped.
func Parse(s string) *Annotation {
	a := &Annotation{}
	if s == "" {
		return a
	}
	for _, r := range strings.Split(s, Separator) {
		a.Add(r)
	}
	return a
}

// Add appends r unless it is empty or already present. It reports whether
// the annotation changed.
func (a *Annotation) Add(r string) bool {
	if r == "" || a.Contains(r) {
		return false
	}
	a.reasons = append(a.reasons, r)
	a.rendered = Combine(a.rendered, r)
	return true
}

// Contains reports whether r appears in the annotation as a whole run of
// reasons, bounded by separators or the ends of the text.
func (a *Annotation) Contains(r string) bool {
	if r == "" {
		return false
	}
	s := a.rendered
	return s == r ||
		strings.HasPrefix(s, r+Separator) ||
		strings.HasSuffix(s, Separator+r) ||
		strings.Contains(s, Separator+r+Separator)
}

// Reasons returns a copy of the reasons in the order they were added. Text
// given to Parse is split on Separator.
func (a *Annotation) Reasons() []string {
	out := make([]string, len(a.reasons))
	copy(out, a.reasons)
	return out
}

// Empty reports whether no reason has been added.
func (a *Annotation) Empty() bool {
	return len(a.reasons) == 0
}

// String renders the annotation as a left fold of Combine.
func (a *Annotation) String() string {
	return a.rendered
}

// Aggregator applies a fixed, ordered detector list to user streams.
type Aggregator struct {
	detectors []detector.Detector
}

// NewAggregator creates an aggregator applying dets in the given order.
func NewAggregator(dets ...detector.Detector) *Aggregator {
	return &Aggregator{detectors: dets}
}

// Detectors returns the detectors in application order.
func (a *Aggregator) Detectors() []detector.Detector {
	return a.detectors
}

// Apply runs every detector over s and writes the resulting annotation to
// each transaction's FraudReason. Existing reasons are kept and never
// duplicated, so applying twice leaves the strings unchanged. hits[k] is the
// number of transactions detector k flagged in s.
func (a *Aggregator) Apply(s *partition.UserStream) (hits []int) {
	notes := make([]*Annotation, s.Len())
	for i, tx := range s.Txns {
		notes[i] = Parse(tx.FraudReason)
	}

	hits = make([]int, len(a.detectors))
	for k, d := range a.detectors {
		mask := d.Detect(s)
		for i, flagged := range mask {
			if !flagged {
				continue
			}
			hits[k]++
			notes[i].Add(d.Reason(s.Txns[i]))
		}
	}

	for i, tx := range s.Txns {
		tx.FraudReason = notes[i].String()
	}
	return hits
}
