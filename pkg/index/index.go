// Package index is the core façade of spec.md §5–§6: it owns the pattern
// store, the partial-solution graph (indirectly, through the matcher), and
// the subscription table, and exposes the external operations addQuery,
// addStatement(s), clear, shutDown, setCleanupPolicy, and setClock.
//
// Index is deliberately NOT internally synchronized. spec.md §5 states the
// simplest valid implementation is single-writer, "serialized by one lock or
// one task queue" — and leaves the choice of which to the implementer. A
// built-in mutex cannot satisfy spec.md §5's handler reentrancy requirement
// ("Handler invocation happens on the calling thread (reentrant)") together
// with scenario S6 (a handler calling Subscription.cancel() on itself):
// Go's sync.Mutex is not reentrant, so a handler-triggered cancel would
// deadlock against a lock held for the whole ingest call. Pushing
// serialization to the embedding application — a single goroutine (as
// cmd/sesamestream's server command uses for each connection's index), or a
// channel-backed actor loop —
// satisfies §5 without fighting Go's lock semantics. Index is therefore safe
// for reentrant same-goroutine use (the common case: a handler cancelling or
// renewing its own subscription) but callers must not invoke it
// concurrently from independent goroutines without external serialization.
package index

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/matcher"
	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/internal/partial"
	"github.com/sesamestream/sesamestream/internal/patternstore"
	"github.com/sesamestream/sesamestream/internal/reaper"
	"github.com/sesamestream/sesamestream/pkg/metrics"
	"github.com/sesamestream/sesamestream/pkg/query"
)

// Index wires the pattern store, the matcher, the reaper, and the
// subscription table into the one object applications talk to.
type Index struct {
	store         *patternstore.Store
	matcher       *matcher.Matcher
	subscriptions map[string]*query.Subscription

	reaper        *reaper.Reaper
	metrics       *metrics.Metrics
	logger        *zap.Logger
	clock         func() int64
	cleanupPolicy reaper.CleanupPolicy

	// OnPatternFirstSeen, if set, is called whenever a pattern gains its
	// first subscriber — the Linked Data collaborator's hook (spec.md §6:
	// "subscribes to pattern-first-seen events containing the constant URIs
	// of that pattern"). Assigned before any query is admitted.
	OnPatternFirstSeen func(p *model.Pattern)
}

// Option configures an Index at construction time.
type Option func(*Index)

// WithMetrics attaches a Metrics instance; without one, metrics calls are
// skipped.
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Index) { idx.metrics = m }
}

// WithLogger attaches a zap logger; the default is zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(idx *Index) { idx.logger = logger }
}

// WithClock overrides the wall clock used to stamp ingests and admissions;
// the default is time.Now().Unix(). Tests use this to control time
// deterministically (spec.md §6: setClock).
func WithClock(clock func() int64) Option {
	return func(idx *Index) { idx.clock = clock }
}

// WithCleanupPolicy overrides the reaper's default 30-second gate (spec.md
// §6: setCleanupPolicy).
func WithCleanupPolicy(policy reaper.CleanupPolicy) Option {
	return func(idx *Index) { idx.cleanupPolicy = policy }
}

// New builds an Index with its reaper stopped; call Start to begin periodic
// reaping, or call Reap directly for test-driven control.
func New(opts ...Option) *Index {
	idx := &Index{
		store:         patternstore.NewStore(),
		subscriptions: make(map[string]*query.Subscription),
		logger:        zap.NewNop(),
		clock:         func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(idx)
	}

	idx.store.OnFirstSeen = func(p *model.Pattern) {
		if idx.OnPatternFirstSeen != nil {
			idx.OnPatternFirstSeen(p)
		}
	}

	idx.matcher = matcher.New(idx.store, subscriptionLookup{idx}, idx.logger)
	idx.reaper = reaper.New(idx, idx.cleanupPolicy, func() int64 { return idx.clock() }, idx.metrics, idx.logger, time.Second)
	return idx
}

// subscriptionLookup adapts Index to matcher.SubscriptionLookup without
// exposing the whole Index surface to the matcher package.
type subscriptionLookup struct{ idx *Index }

func (s subscriptionLookup) Lookup(subscriptionID string) (*query.Subscription, bool) {
	sub, ok := s.idx.subscriptions[subscriptionID]
	return sub, ok
}

// Start begins the reaper's periodic ticking.
func (idx *Index) Start() {
	idx.reaper.Start()
}

// ShutDown terminates the reaper and runs one final synchronous reap
// (spec.md §5: "drops any in-flight fetches cleanly; no new solutions are
// produced thereafter" — the Linked Data fetcher's own shutdown is its own
// collaborator's responsibility, internal/linkeddata).
func (idx *Index) ShutDown() {
	idx.reaper.Shutdown()
	idx.reaper.RunNow()
}

// SetCleanupPolicy injects a new reaper policy (spec.md §6 test hook).
func (idx *Index) SetCleanupPolicy(policy reaper.CleanupPolicy) {
	idx.reaper.SetPolicy(policy)
}

// SetClock overrides the wall clock used by both the index and its reaper
// (spec.md §6 test hook).
func (idx *Index) SetClock(clock func() int64) {
	idx.clock = clock
}

func (idx *Index) now() int64 {
	return idx.clock()
}

// AddQuery admits a parsed query, interning its patterns and spawning its
// root partial solution. ttl of 0 means infinite.
func (idx *Index) AddQuery(ttl int64, q *query.Query, handler query.Handler) (*query.Subscription, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := idx.now()
	q.ExpiresAt = expiryFor(ttl, now)

	internedPatterns := make([]*model.Pattern, len(q.InitialPatterns))
	for i, p := range q.InitialPatterns {
		internedPatterns[i] = idx.store.Intern(p)
	}

	sub := query.NewSubscription(idx, q, handler)
	idx.subscriptions[q.ID] = sub

	root := partial.NewRoot(q.ID, internedPatterns, q.ExpiresAt)
	for _, p := range root.Patterns.All() {
		idx.store.Subscribe(p, root)
	}

	if idx.metrics != nil {
		idx.metrics.RecordQueryAdded()
	}
	return sub, nil
}

// AddStatement ingests one tuple. ttl of 0 means infinite. It returns
// whether any pattern matched (i.e. the index's state changed).
func (idx *Index) AddStatement(ttl int64, tuple *model.Pattern) bool {
	changed := idx.matcher.Ingest(tuple, ttl, idx.now())
	if idx.metrics != nil {
		idx.metrics.RecordStatementsAdded(1)
	}
	return changed
}

// AddStatements ingests every tuple in order, returning whether any of them
// matched.
func (idx *Index) AddStatements(ttl int64, tuples ...*model.Pattern) bool {
	changed := false
	for _, tuple := range tuples {
		if idx.AddStatement(ttl, tuple) {
			changed = true
		}
	}
	return changed
}

// Clear drops every pattern, partial solution, and subscription, returning
// the index to its freshly-constructed state.
func (idx *Index) Clear() {
	idx.store = patternstore.NewStore()
	idx.store.OnFirstSeen = func(p *model.Pattern) {
		if idx.OnPatternFirstSeen != nil {
			idx.OnPatternFirstSeen(p)
		}
	}
	idx.subscriptions = make(map[string]*query.Subscription)
	idx.matcher = matcher.New(idx.store, subscriptionLookup{idx}, idx.logger)
}

// CancelSubscription implements query.Owner. It deactivates sub immediately
// and eagerly reclaims its in-store partial solutions (spec.md §5 permits
// either eager or next-reap reclaim; eager keeps the store from
// accumulating dead entries between reaps under heavy cancel churn).
func (idx *Index) CancelSubscription(sub *query.Subscription) {
	if !sub.Active() {
		return
	}
	sub.SetActive(false)
	delete(idx.subscriptions, sub.Query.ID)
	idx.evictPartialSolutionsFor(sub.Query.ID)
}

// RenewSubscription implements query.Owner: it resets the subscription's
// query-level expiry. Already-spawned partial solutions keep the expiresAt
// they were clamped to at creation (DESIGN.md's Open Question decision).
func (idx *Index) RenewSubscription(sub *query.Subscription, ttlSeconds int64) {
	sub.Query.ExpiresAt = expiryFor(ttlSeconds, idx.now())
}

// Reap implements reaper.Target: it evicts expired partial solutions and
// deactivates subscriptions whose query-level TTL has passed.
func (idx *Index) Reap(now int64) (partialSolutionsEvicted int, subscriptionsEvicted int) {
	live := idx.livePartialSolutions()

	for ps := range live {
		if ps.Expired(now) {
			idx.unsubscribeAll(ps)
			partialSolutionsEvicted++
		}
	}

	for id, sub := range idx.subscriptions {
		if !sub.Active() {
			continue
		}
		if sub.Query.ExpiresAt != partial.Never && sub.Query.ExpiresAt <= now {
			sub.SetActive(false)
			delete(idx.subscriptions, id)
			idx.evictPartialSolutionsFor(id)
			subscriptionsEvicted++
		}
	}
	return partialSolutionsEvicted, subscriptionsEvicted
}

func (idx *Index) livePartialSolutions() map[*partial.PartialSolution]struct{} {
	live := make(map[*partial.PartialSolution]struct{})
	for _, p := range idx.store.Iterate() {
		for _, s := range idx.store.Subscribers(p) {
			if ps, ok := s.(*partial.PartialSolution); ok {
				live[ps] = struct{}{}
			}
		}
	}
	return live
}

func (idx *Index) evictPartialSolutionsFor(subscriptionID string) {
	for ps := range idx.livePartialSolutions() {
		if ps.SubscriptionID == subscriptionID {
			idx.unsubscribeAll(ps)
		}
	}
}

func (idx *Index) unsubscribeAll(ps *partial.PartialSolution) {
	for _, p := range ps.Patterns.All() {
		idx.store.Unsubscribe(p, ps)
	}
}

func expiryFor(ttlSeconds int64, now int64) int64 {
	if ttlSeconds == 0 {
		return partial.Never
	}
	return now + ttlSeconds
}
