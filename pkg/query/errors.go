package query

import "fmt"

// InvalidQueryError reports that query text could not be parsed at all.
type InvalidQueryError struct {
	Text  string
	Cause error
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %v", e.Cause)
}

func (e *InvalidQueryError) Unwrap() error { return e.Cause }

// IncompatibleQueryError reports that a query parsed but used a construct
// outside the supported subset (UNION, ORDER BY, EXISTS, ASK/CONSTRUCT/
// DESCRIBE/MODIFY, multiple roots, or any other unexpected algebra node).
type IncompatibleQueryError struct {
	Node string
}

func (e *IncompatibleQueryError) Error() string {
	return fmt.Sprintf("incompatible query: unsupported construct %q", e.Node)
}

// FilterEvaluationError is a runtime error from a FilterEvaluator. It is
// always locally suppressed: the candidate solution is rejected and the
// error is logged at SEVERE, never propagated to the handler.
type FilterEvaluationError struct {
	SubscriptionID string
	Cause          error
}

func (e *FilterEvaluationError) Error() string {
	return fmt.Sprintf("filter evaluation error for subscription %s: %v", e.SubscriptionID, e.Cause)
}

func (e *FilterEvaluationError) Unwrap() error { return e.Cause }

// FetcherError is an asynchronous Linked Data dereference failure; it is
// logged and otherwise has no effect on the index.
type FetcherError struct {
	URI   string
	Cause error
}

func (e *FetcherError) Error() string {
	return fmt.Sprintf("fetcher error for %s: %v", e.URI, e.Cause)
}

func (e *FetcherError) Unwrap() error { return e.Cause }

// InternalInvariantViolation indicates a bug: one of the five invariants of
// spec.md §3 was found to be violated. Callers should treat it as fatal.
type InternalInvariantViolation struct {
	Detail string
}

func (e *InternalInvariantViolation) Error() string {
	return fmt.Sprintf("internal invariant violation: %s", e.Detail)
}
