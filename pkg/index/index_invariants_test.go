package index

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/pkg/rdf"
	"github.com/sesamestream/sesamestream/pkg/query"
)

// collectSolutions runs a fresh index over a fixed permutation of triples
// against one two-pattern join query and returns every emitted solution
// rendered as a comparable string, for order-independence comparisons
// (spec.md §8, property 2).
func collectSolutions(t *testing.T, triples []*model.Pattern) []string {
	t.Helper()
	idx := New(WithClock(newFixedClock(0)))

	var got []string
	q := &query.Query{
		OrderedProjectedNames: []string{"x", "y"},
		InitialPatterns: []*model.Pattern{
			pattern(variable("x"), constant(nn("knows")), variable("y")),
			pattern(variable("y"), constant(nn("age")), constant(lit("30"))),
		},
	}
	if _, err := idx.AddQuery(0, q, func(result map[string]rdf.Term) {
		got = append(got, result["x"].String()+"/"+result["y"].String())
	}); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	for _, triple := range triples {
		idx.AddStatement(0, triple)
	}
	sort.Strings(got)
	return got
}

func TestIndex_OrderIndependence(t *testing.T) {
	triples := []*model.Pattern{
		groundTuple(nn("A"), nn("knows"), nn("B")),
		groundTuple(nn("B"), nn("age"), lit("30")),
		groundTuple(nn("C"), nn("knows"), nn("D")),
		groundTuple(nn("D"), nn("age"), lit("30")),
	}

	baseline := collectSolutions(t, triples)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 5; trial++ {
		permuted := make([]*model.Pattern, len(triples))
		copy(permuted, triples)
		rng.Shuffle(len(permuted), func(i, j int) { permuted[i], permuted[j] = permuted[j], permuted[i] })

		got := collectSolutions(t, permuted)
		if len(got) != len(baseline) {
			t.Fatalf("trial %d: expected %d solutions, got %d", trial, len(baseline), len(got))
		}
		for i := range got {
			if got[i] != baseline[i] {
				t.Fatalf("trial %d: solution multiset differs: baseline=%v got=%v", trial, baseline, got)
			}
		}
	}
}

func TestIndex_MonotonicityBeforeExpiry(t *testing.T) {
	idx := New(WithClock(newFixedClock(0)))

	var results []map[string]rdf.Term
	q := &query.Query{
		OrderedProjectedNames: []string{"s"},
		InitialPatterns:       []*model.Pattern{pattern(variable("s"), constant(nn("p")), constant(nn("o")))},
	}
	if _, err := idx.AddQuery(0, q, func(result map[string]rdf.Term) {
		results = append(results, result)
	}); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}

	idx.AddStatement(0, groundTuple(nn("a"), nn("p"), nn("o")))
	if len(results) != 1 {
		t.Fatalf("expected 1 solution, got %d", len(results))
	}

	idx.AddStatement(0, groundTuple(nn("b"), nn("p"), nn("o")))
	if len(results) != 2 {
		t.Fatalf("adding a new matching triple must never retract prior solutions; got %d", len(results))
	}
}

func TestIndex_TTLSoundness_NoHandlerAfterReap(t *testing.T) {
	now := int64(0)
	clock := func() int64 { return now }
	idx := New(WithClock(clock))

	var results []map[string]rdf.Term
	q := &query.Query{
		OrderedProjectedNames: []string{"x", "y"},
		InitialPatterns: []*model.Pattern{
			pattern(variable("x"), constant(nn("knows")), variable("y")),
			pattern(variable("y"), constant(nn("age")), constant(lit("30"))),
		},
	}
	if _, err := idx.AddQuery(0, q, func(result map[string]rdf.Term) {
		results = append(results, result)
	}); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}

	idx.AddStatement(2, groundTuple(nn("A"), nn("knows"), nn("B")))

	now = 5
	evictedPS, _ := idx.Reap(now)
	if evictedPS == 0 {
		t.Fatalf("expected the expired partial solution to be reaped")
	}

	now = 6
	idx.AddStatement(0, groundTuple(nn("B"), nn("age"), lit("30")))
	if len(results) != 0 {
		t.Fatalf("no solution should derive from an input that expired before reap, got %v", results)
	}
}

func TestIndex_Canonicalization_SameShapeSharesRepresentative(t *testing.T) {
	idx := New(WithClock(newFixedClock(0)))

	q1 := &query.Query{
		OrderedProjectedNames: []string{"s"},
		InitialPatterns:       []*model.Pattern{pattern(variable("s"), constant(nn("p")), constant(nn("o")))},
	}
	q2 := &query.Query{
		OrderedProjectedNames: []string{"s"},
		InitialPatterns:       []*model.Pattern{pattern(variable("s"), constant(nn("p")), constant(nn("o")))},
	}
	if _, err := idx.AddQuery(0, q1, func(map[string]rdf.Term) {}); err != nil {
		t.Fatalf("AddQuery q1: %v", err)
	}
	if _, err := idx.AddQuery(0, q2, func(map[string]rdf.Term) {}); err != nil {
		t.Fatalf("AddQuery q2: %v", err)
	}

	if idx.store.Len() != 1 {
		t.Fatalf("expected the two structurally-equal patterns to share one canonical representative, store has %d", idx.store.Len())
	}
}

func TestIndex_ReverseIndexConsistency_AfterCancel(t *testing.T) {
	idx := New(WithClock(newFixedClock(0)))

	q := &query.Query{
		OrderedProjectedNames: []string{"s"},
		InitialPatterns:       []*model.Pattern{pattern(variable("s"), constant(nn("p")), constant(nn("o")))},
	}
	sub, err := idx.AddQuery(0, q, func(map[string]rdf.Term) {})
	if err != nil {
		t.Fatalf("AddQuery: %v", err)
	}

	if idx.store.Len() != 1 {
		t.Fatalf("expected one subscribed pattern before cancel, got %d", idx.store.Len())
	}

	sub.Cancel()

	if idx.store.Len() != 0 {
		t.Fatalf("cancelling the only subscription should reclaim its pattern subscription, store has %d left", idx.store.Len())
	}
}
