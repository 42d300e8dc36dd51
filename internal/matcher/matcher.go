// Package matcher implements the core forward-chaining algorithm of
// spec.md §4.4: ingesting a new tuple, unifying it against every
// interesting pattern, and spawning or completing the partial solutions
// that were waiting on it.
package matcher

import (
	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/internal/partial"
	"github.com/sesamestream/sesamestream/internal/patternstore"
	"github.com/sesamestream/sesamestream/pkg/query"
)

// SubscriptionLookup resolves a subscription ID to its live Subscription.
// The index owns the subscription table (spec.md §5: "only the index may
// mutate them"); the matcher only reads through this seam.
type SubscriptionLookup interface {
	Lookup(subscriptionID string) (*query.Subscription, bool)
}

// Matcher runs ingest/extend/emit_solution against a shared pattern store.
// Callers (pkg/index) are responsible for serializing all calls into a
// Matcher; the matcher itself does no locking.
type Matcher struct {
	Store         *patternstore.Store
	Subscriptions SubscriptionLookup
	Logger        *zap.Logger
}

// New builds a Matcher. A nil logger is replaced with zap.NewNop().
func New(store *patternstore.Store, subscriptions SubscriptionLookup, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{Store: store, Subscriptions: subscriptions, Logger: logger}
}

// Ingest incorporates one ground tuple, per spec.md §4.4:
//
//	expiresAt := if ttl == INFINITE then SENTINEL_NEVER else now + ttl·1s
//	changed   := false
//	for each canonical pattern p in Store.snapshot():
//	    b := unify(p, tuple)
//	    if b is None: continue
//	    changed := true
//	    for each ps in Store.subscribers[p] (snapshot):
//	        extend(ps, p, b, min(expiresAt, ps.expiresAt))
//	return changed
//
// ttlSeconds of 0 means infinite, matching the external AddStatement
// contract. now is the caller's clock reading in unix seconds, injected so
// tests can control it deterministically.
func (m *Matcher) Ingest(tuple *model.Pattern, ttlSeconds int64, now int64) bool {
	expiresAt := partial.Never
	if ttlSeconds != 0 {
		expiresAt = now + ttlSeconds
	}

	changed := false
	for _, p := range m.Store.Iterate() {
		bindings, ok := model.Unify(p, tuple)
		if !ok {
			continue
		}
		changed = true
		for _, s := range m.Store.Subscribers(p) {
			ps, ok := s.(*partial.PartialSolution)
			if !ok {
				m.Logger.Error("pattern store subscriber is not a partial solution",
					zap.String("pattern", p.String()))
				continue
			}
			m.extend(ps, p, bindings, partial.MinExpiry(expiresAt, ps.ExpiresAt))
		}
	}
	return changed
}

// extend implements spec.md §4.4's extend(ps, satisfiedP, newBindings,
// childExpiresAt): fold newBindings onto ps, either emitting a final
// solution (ps was terminal) or spawning a rewritten child partial
// solution subscribed to its remaining patterns.
func (m *Matcher) extend(ps *partial.PartialSolution, satisfiedP *model.Pattern, newBindings *model.Bindings, childExpiresAt int64) {
	nextBindings := model.PrependAll(ps.Bindings, newBindings)

	if ps.Terminal() {
		m.emitSolution(ps.SubscriptionID, nextBindings)
		return
	}

	remaining := ps.Patterns.WithoutIdentity(satisfiedP)
	nextPatterns := make([]*model.Pattern, 0, len(remaining))
	for _, p2 := range remaining {
		rewritten, changed := model.Substitute(p2, newBindings)
		if !changed {
			// Identity preserved: p2 is still canonical and still a member.
			nextPatterns = append(nextPatterns, p2)
			continue
		}
		nextPatterns = append(nextPatterns, m.Store.Intern(rewritten))
	}

	child := &partial.PartialSolution{
		SubscriptionID: ps.SubscriptionID,
		Patterns:       partial.NewPatternSet(nextPatterns...),
		Bindings:       nextBindings,
		ExpiresAt:      childExpiresAt,
	}
	for _, p := range child.Patterns.All() {
		m.Store.Subscribe(p, child)
	}
}
