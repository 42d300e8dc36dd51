package model

import (
	"strings"

	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// Arity is the fixed width of a Pattern/Tuple. The reference design fixes it
// at 3 (subject, predicate, object); nothing below this line assumes the
// value 3 specifically, so raising it is a local, single-constant change.
const Arity = 3

// Pattern is a fixed-arity tuple of terms. A Pattern is "ground" when every
// term is a constant, in which case it represents an ingested fact rather
// than a query fragment still to be satisfied.
//
// Patterns are canonicalized by the pattern store: two structurally-equal
// Patterns obtained from intern() are the same pointer, so callers may
// compare canonical patterns by identity. A freshly-constructed Pattern is
// not canonical until passed through intern().
type Pattern struct {
	Terms [Arity]Term
}

// NewPattern builds a pattern from its positional terms.
func NewPattern(terms ...Term) *Pattern {
	var p Pattern
	copy(p.Terms[:], terms)
	return &p
}

// TupleFromTriple lifts a ground RDF triple into a ground Pattern, ready to
// be unified against the store's patterns during ingestion.
func TupleFromTriple(t *rdf.Triple) *Pattern {
	return NewPattern(NewConstant(t.Subject), NewConstant(t.Predicate), NewConstant(t.Object))
}

// Ground reports whether every term of p is a constant.
func (p *Pattern) Ground() bool {
	for _, t := range p.Terms {
		if t.IsVariable() {
			return false
		}
	}
	return true
}

// Equals is structural equality: same terms in the same positions. The
// pattern store uses it to resolve hash collisions between candidates that
// share a canonicalization key; callers holding two canonical patterns
// should prefer pointer comparison.
func (p *Pattern) Equals(other *Pattern) bool {
	if p == other {
		return true
	}
	if other == nil {
		return false
	}
	for i := range p.Terms {
		if !p.Terms[i].Equals(other.Terms[i]) {
			return false
		}
	}
	return true
}

// String renders a pattern for logging. The pattern store also hashes this
// form to build its canonicalization key.
func (p *Pattern) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, t := range p.Terms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Unify matches a (possibly variable-bearing) pattern p against a ground
// tuple. It returns the bindings produced, or ok=false if some constant
// position disagrees or the same variable is bound to two different values
// within this single pattern.
func Unify(p *Pattern, tuple *Pattern) (*Bindings, bool) {
	var bindings *Bindings
	for i := range p.Terms {
		pt := p.Terms[i]
		tt := tuple.Terms[i]
		if !pt.IsVariable() {
			if !pt.Equals(tt) {
				return nil, false
			}
			continue
		}
		if existing, ok := bindings.Lookup(pt.Variable); ok {
			if !existing.Equals(tt.Constant) {
				return nil, false
			}
			continue
		}
		bindings = bindings.Prepend(pt.Variable, tt.Constant)
	}
	return bindings, true
}

// Substitute applies bindings to p, replacing every bound variable with its
// constant value. It returns (nil, false) when no term of p was rewritten,
// signaling the caller to keep p's canonical reference unchanged; otherwise
// it returns the rewritten pattern, not yet interned.
func Substitute(p *Pattern, bindings *Bindings) (*Pattern, bool) {
	changed := false
	var result Pattern
	for i, t := range p.Terms {
		if !t.IsVariable() {
			result.Terms[i] = t
			continue
		}
		if v, ok := bindings.Lookup(t.Variable); ok {
			result.Terms[i] = NewConstant(v)
			changed = true
			continue
		}
		result.Terms[i] = t
	}
	if !changed {
		return nil, false
	}
	return &result, true
}
