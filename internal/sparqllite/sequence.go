package sparqllite

import (
	"sort"
	"strings"

	"github.com/sesamestream/sesamestream/pkg/query"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// SequenceModifier implements DISTINCT/REDUCED/OFFSET/LIMIT for one
// subscription, per spec.md §4.5 step 4. It is not safe for concurrent use
// from multiple goroutines, consistent with the rest of the engine: calls
// only ever happen on the index's single serialized execution path (see
// pkg/index's concurrency note).
//
// DISTINCT/REDUCED bookkeeping (the `seen` set) lives for exactly the
// subscription's lifetime — dropped in one shot when the subscription is
// cancelled or expires, never aged per-signature. This resolves spec.md
// §9's open ambiguity ("whether DISTINCT may evict long-ago-emitted
// solutions after reap... treat DISTINCT bookkeeping as subject to the same
// TTL as the subscription") the simplest way: one shared clock, not one per
// signature (see DESIGN.md).
type SequenceModifier struct {
	distinct bool
	reduced  bool
	limit    *int
	offset   int

	seen          map[string]struct{}
	offsetSkipped int
	delivered     int
}

// NewSequenceModifier builds a modifier. limit of nil means unbounded.
// reduced is honored identically to distinct: SesameStream makes no
// implementation-defined elision promises beyond exact dedup, so there is
// no weaker "may still produce duplicates" behavior to model.
func NewSequenceModifier(distinct, reduced bool, limit *int, offset int) *SequenceModifier {
	sm := &SequenceModifier{distinct: distinct, reduced: reduced, limit: limit, offset: offset}
	if distinct || reduced {
		sm.seen = make(map[string]struct{})
	}
	return sm
}

// TrySolution reports whether result should reach the handler, applying
// DISTINCT/REDUCED dedup, then OFFSET skipping, then LIMIT — in that order,
// matching standard SPARQL solution-modifier sequencing. It deactivates sub
// once LIMIT is reached, per spec.md §6's sequence-modifier contract.
func (sm *SequenceModifier) TrySolution(result map[string]rdf.Term, sub *query.Subscription) bool {
	if sm.limit != nil && sm.delivered >= *sm.limit {
		return false
	}

	if sm.seen != nil {
		sig := signature(result)
		if _, ok := sm.seen[sig]; ok {
			return false
		}
		sm.seen[sig] = struct{}{}
	}

	if sm.offsetSkipped < sm.offset {
		sm.offsetSkipped++
		return false
	}

	sm.delivered++
	if sm.limit != nil && sm.delivered >= *sm.limit {
		sub.SetActive(false)
	}
	return true
}

// signature renders result as a sorted-key comparable string for DISTINCT
// dedup: each name:value pair in sorted-name order, followed by '|'.
func signature(result map[string]rdf.Term) string {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(result[k].String())
		sb.WriteByte('|')
	}
	return sb.String()
}
