// Package partial implements the Partial-Solution Graph of spec.md §4.3: the
// progressively-bound form of each subscribed query, chained as triples
// satisfy its patterns one at a time.
package partial

import (
	"math"

	"github.com/sesamestream/sesamestream/internal/model"
)

// Never is the sentinel expiresAt value meaning "does not expire". It is
// deliberately math.MaxInt64 so that min(candidate, Never) == candidate for
// any real unix-second timestamp, letting callers fold the infinite case
// into the same min() used for finite TTLs.
const Never int64 = math.MaxInt64

// PartialSolution is a query in progress: the patterns it still needs
// satisfied, the bindings accumulated so far, and the earliest expiry of
// anything that contributed to it.
type PartialSolution struct {
	SubscriptionID string
	Patterns       *PatternSet
	Bindings       *model.Bindings
	ExpiresAt      int64
}

// NewRoot creates the initial partial solution spawned when a query is
// admitted: every one of its patterns still outstanding, no bindings yet.
func NewRoot(subscriptionID string, patterns []*model.Pattern, expiresAt int64) *PartialSolution {
	return &PartialSolution{
		SubscriptionID: subscriptionID,
		Patterns:       NewPatternSet(patterns...),
		Bindings:       nil,
		ExpiresAt:      expiresAt,
	}
}

// Terminal reports whether satisfying one more pattern completes ps (spec.md
// §4.3: "terminal when |patterns| = 1").
func (ps *PartialSolution) Terminal() bool {
	return ps.Patterns.Len() == 1
}

// Expired reports whether ps should be reaped at time now. Never never
// expires.
func (ps *PartialSolution) Expired(now int64) bool {
	return ps.ExpiresAt != Never && ps.ExpiresAt <= now
}

// MinExpiry folds a and b down to the earlier of the two, treating Never as
// positive infinity. Used wherever a child's expiresAt must be the minimum
// of everything that contributed to it (spec.md §3's PartialSolution
// invariant).
func MinExpiry(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
