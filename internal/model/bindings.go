package model

import "github.com/sesamestream/sesamestream/pkg/rdf"

// Bindings is a persistent, prepend-only cons-list mapping variable name to
// constant value. Extending a Bindings never mutates the receiver; it
// returns a new head node pointing at the old list, so every partial
// solution that shares a prefix of bindings shares the same underlying
// nodes. A nil *Bindings is the empty binding set, and every method is safe
// to call on it.
type Bindings struct {
	name   string
	value  rdf.Term
	parent *Bindings
}

// Prepend returns a new Bindings with name ↦ value recorded ahead of b. It
// does not check for an existing binding of name; callers that need
// join-consistency checking (unification within one pattern) do that
// themselves before calling Prepend.
func (b *Bindings) Prepend(name string, value rdf.Term) *Bindings {
	return &Bindings{name: name, value: value, parent: b}
}

// Lookup walks the list from the most recently prepended entry looking for
// name. Because the algorithm only ever prepends mutually-consistent
// bindings, the first match found is authoritative.
func (b *Bindings) Lookup(name string) (rdf.Term, bool) {
	for n := b; n != nil; n = n.parent {
		if n.name == name {
			return n.value, true
		}
	}
	return nil, false
}

// PrependAll layers every pair in additions onto base, oldest-first, so the
// combined chain preserves additions' own internal precedence. Used by the
// matcher to fold the bindings produced by one unify() onto a partial
// solution's accumulated bindings.
func PrependAll(base *Bindings, additions *Bindings) *Bindings {
	if additions == nil {
		return base
	}
	result := PrependAll(base, additions.parent)
	return result.Prepend(additions.name, additions.value)
}

// ToMap materializes the binding chain into a plain map, suitable for
// projection or for handing to a filter evaluator. Later (closer to head)
// entries win on a name collision, matching Lookup's semantics.
func (b *Bindings) ToMap() map[string]rdf.Term {
	result := make(map[string]rdf.Term)
	for n := b; n != nil; n = n.parent {
		if _, seen := result[n.name]; !seen {
			result[n.name] = n.value
		}
	}
	return result
}
