// Package model holds the core data types shared by the matching engine:
// terms, patterns, and the persistent binding lists produced as patterns are
// progressively satisfied. Nothing here knows about SPARQL syntax, HTTP, or
// storage — it is the leaf layer the rest of the engine builds on.
package model

import "github.com/sesamestream/sesamestream/pkg/rdf"

// Term is a position in a Pattern: either a Constant carrying an opaque RDF
// value, or a Variable identified by a non-empty name. Never construct a
// zero Term directly; use NewConstant or NewVariable.
type Term struct {
	Variable string // non-empty for a variable term
	Constant rdf.Term
}

// NewConstant wraps an RDF value as a constant term.
func NewConstant(v rdf.Term) Term {
	return Term{Constant: v}
}

// NewVariable names a variable term. name must be non-empty.
func NewVariable(name string) Term {
	return Term{Variable: name}
}

// IsVariable reports whether t is a variable rather than a constant.
func (t Term) IsVariable() bool {
	return t.Variable != ""
}

// Equals is structural equality, matching spec: two constants are equal iff
// their underlying RDF values are equal; two variables are equal iff their
// names match; a variable never equals a constant.
func (t Term) Equals(other Term) bool {
	if t.IsVariable() != other.IsVariable() {
		return false
	}
	if t.IsVariable() {
		return t.Variable == other.Variable
	}
	if t.Constant == nil || other.Constant == nil {
		return t.Constant == other.Constant
	}
	return t.Constant.Equals(other.Constant)
}

// String renders a term for logging and pattern hashing.
func (t Term) String() string {
	if t.IsVariable() {
		return "?" + t.Variable
	}
	if t.Constant == nil {
		return "<nil>"
	}
	return t.Constant.String()
}
