package sparqllite

import (
	"testing"

	"github.com/sesamestream/sesamestream/pkg/query"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

func result(x string) map[string]rdf.Term {
	return map[string]rdf.Term{"x": rdf.NewLiteral(x)}
}

func TestSequenceModifier_DistinctDropsDuplicates(t *testing.T) {
	sm := NewSequenceModifier(true, false, nil, 0)
	sub := query.NewSubscription(nil, &query.Query{}, nil)

	if !sm.TrySolution(result("a"), sub) {
		t.Fatal("expected first occurrence to pass")
	}
	if sm.TrySolution(result("a"), sub) {
		t.Error("expected duplicate to be dropped under DISTINCT")
	}
	if !sm.TrySolution(result("b"), sub) {
		t.Error("expected a new value to pass")
	}
}

func TestSequenceModifier_WithoutDistinctKeepsDuplicates(t *testing.T) {
	sm := NewSequenceModifier(false, false, nil, 0)
	sub := query.NewSubscription(nil, &query.Query{}, nil)

	if !sm.TrySolution(result("a"), sub) || !sm.TrySolution(result("a"), sub) {
		t.Error("expected duplicates to pass without DISTINCT")
	}
}

func TestSequenceModifier_OffsetSkipsLeadingResults(t *testing.T) {
	sm := NewSequenceModifier(false, false, nil, 2)
	sub := query.NewSubscription(nil, &query.Query{}, nil)

	if sm.TrySolution(result("a"), sub) {
		t.Error("expected first result to be skipped by OFFSET 2")
	}
	if sm.TrySolution(result("b"), sub) {
		t.Error("expected second result to be skipped by OFFSET 2")
	}
	if !sm.TrySolution(result("c"), sub) {
		t.Error("expected third result to pass after OFFSET 2")
	}
}

func TestSequenceModifier_LimitDeactivatesSubscription(t *testing.T) {
	limit := 2
	sm := NewSequenceModifier(false, false, &limit, 0)
	sub := query.NewSubscription(nil, &query.Query{}, nil)

	if !sm.TrySolution(result("a"), sub) {
		t.Fatal("expected first result within LIMIT to pass")
	}
	if !sub.Active() {
		t.Fatal("subscription should still be active before LIMIT is reached")
	}
	if !sm.TrySolution(result("b"), sub) {
		t.Fatal("expected second result to reach LIMIT and still pass")
	}
	if sub.Active() {
		t.Error("expected subscription to deactivate once LIMIT is reached")
	}
	if sm.TrySolution(result("c"), sub) {
		t.Error("expected no further results once LIMIT is reached")
	}
}
