package reaper

// CleanupPolicy decides whether a reap cycle should run right now, given the
// seconds elapsed since the last run and the activity counters accumulated
// since then. Exposed so pkg/index.SetCleanupPolicy can inject it as a test
// hook (spec.md §6).
type CleanupPolicy func(secondsSinceLast int64, queriesAdded, statementsAdded int) bool

// DefaultCleanupPolicy runs a reap cycle once at least 30 seconds have
// elapsed since the last one, ignoring activity counts (spec.md §4.6's
// stated default).
func DefaultCleanupPolicy() CleanupPolicy {
	return func(secondsSinceLast int64, _ int, _ int) bool {
		return secondsSinceLast >= 30
	}
}
