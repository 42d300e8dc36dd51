package sparqllite

import (
	"testing"

	"github.com/sesamestream/sesamestream/pkg/rdf"
)

func evalFilter(t *testing.T, filterBody string, bindings map[string]rdf.Term) (bool, error) {
	t.Helper()
	p := NewParser(filterBody)
	expr, err := p.parseFilterClause()
	if err != nil {
		t.Fatalf("parseFilterClause(%q): %v", filterBody, err)
	}
	fe := &filterEvaluator{expr: expr}
	return fe.Evaluate(bindings)
}

func TestFilter_Equality(t *testing.T) {
	ok, err := evalFilter(t, `(?x = "a")`, map[string]rdf.Term{"x": rdf.NewLiteral("a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected equal literals to pass the filter")
	}
}

func TestFilter_NumericComparison(t *testing.T) {
	bindings := map[string]rdf.Term{"age": rdf.NewLiteralWithDatatype("30", rdf.XSDInteger)}
	ok, err := evalFilter(t, `(?age > 18)`, bindings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected 30 > 18 to hold")
	}

	ok, err = evalFilter(t, `(?age < 18)`, bindings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected 30 < 18 to be false")
	}
}

func TestFilter_LogicalAndShortCircuits(t *testing.T) {
	ok, err := evalFilter(t, `(bound(?x) && ?x = "a")`, map[string]rdf.Term{})
	if err != nil {
		t.Fatalf("unexpected error evaluating bound-guarded expression: %v", err)
	}
	if ok {
		t.Error("expected short-circuited && to be false without evaluating the unbound right side")
	}
}

func TestFilter_LogicalOr(t *testing.T) {
	bindings := map[string]rdf.Term{"x": rdf.NewLiteral("a")}
	ok, err := evalFilter(t, `(?x = "b" || ?x = "a")`, bindings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected || to find the matching branch")
	}
}

func TestFilter_Negation(t *testing.T) {
	ok, err := evalFilter(t, `(!bound(?x))`, map[string]rdf.Term{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected !bound(?x) to be true when x is unbound")
	}
}

func TestFilter_UnboundVariableErrorsOutsideBound(t *testing.T) {
	_, err := evalFilter(t, `(?x = "a")`, map[string]rdf.Term{})
	if err == nil {
		t.Error("expected an error referencing an unbound variable directly")
	}
}
