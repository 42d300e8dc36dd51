// Package query holds the collaborator contracts the matching engine
// consumes (spec.md §6): the immutable Query record produced by a SPARQL
// front-end, the Subscription handle returned to callers, and the typed
// error kinds of spec.md §7. Nothing here knows how to parse SPARQL or
// evaluate a filter expression; internal/sparqllite supplies concrete
// implementations of FilterEvaluator and SequenceModifier.
package query

import (
	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// Handler receives one projected, filtered, sequence-modified solution per
// call. It runs on the calling goroutine (the one that called AddStatement
// or AddStatements) and may itself call back into the index.
type Handler func(result map[string]rdf.Term)

// FilterEvaluator applies a single front-end-compiled FILTER expression to
// the pre-projection binding set. A false result or an error both reject
// the candidate solution; an error is additionally logged at the index.
type FilterEvaluator interface {
	Evaluate(bindings map[string]rdf.Term) (bool, error)
}

// SequenceModifier implements DISTINCT/REDUCED/OFFSET/LIMIT for one
// subscription (spec.md §4.5 step 4). TrySolution reports whether result
// should be delivered to the handler; it may also deactivate sub, e.g. once
// a LIMIT is reached.
type SequenceModifier interface {
	TrySolution(result map[string]rdf.Term, sub *Subscription) bool
}

// Query is the immutable record a SPARQL front-end produces at parse time
// (spec.md §3). The core never interprets Filters, SequenceModifier, or
// Constants; it only calls into them.
type Query struct {
	// ID is an opaque identifier used for logging and metrics.
	ID string

	// OrderedProjectedNames lists the output variable names, in projection
	// order, that emit_solution copies out of the accumulated bindings.
	OrderedProjectedNames []string

	// NameRenames maps an output name to the source pattern variable name
	// it was bound under, for `?x AS ?y` projections. A name absent from
	// this map projects under its own name.
	NameRenames map[string]string

	// Constants are fixed output values folded into every emitted result
	// after filter evaluation (spec.md §4.5 step 2).
	Constants map[string]rdf.Term

	// Filters are evaluated, in order, against the pre-projection binding
	// set; any returning false or erroring rejects the candidate.
	Filters []FilterEvaluator

	// SequenceModifier applies DISTINCT/REDUCED/OFFSET/LIMIT.
	SequenceModifier SequenceModifier

	// InitialPatterns are the query's triple patterns, not yet interned
	// into the pattern store; the index interns them at admission time.
	InitialPatterns []*model.Pattern

	// ExpiresAt is the query's own TTL deadline in unix seconds, or
	// partial.Never for an infinite-TTL query.
	ExpiresAt int64
}

// ProjectedName resolves the source binding name for an output projection
// name, applying NameRenames where present.
func (q *Query) ProjectedName(outputName string) string {
	if source, ok := q.NameRenames[outputName]; ok {
		return source
	}
	return outputName
}
