// Package patternstore implements the hash-consed pattern interner and its
// reverse index of pattern → subscribers (partial solutions awaiting that
// pattern). It is the single point at which "same pattern" becomes "same
// pointer" for the rest of the engine.
package patternstore

import (
	"encoding/binary"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/sesamestream/sesamestream/internal/model"
)

// hash128 computes a 128-bit xxhash3 digest of a pattern's canonical string
// form, used only as the representatives map key; structural equality is
// still checked on lookup to resolve the (extremely unlikely) collision.
func hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

// Store is the Pattern Store of spec.md §4.2: it interns patterns into a
// canonical representative and tracks, per canonical pattern, the set of
// subscribers (partial solutions) still awaiting it.
//
// Store assumes single-writer access, same as the rest of the index (see
// the concurrency notes on the owning Index): all mutation happens on the
// caller's serialized ingestion/admission/reap path. Iteration methods
// return snapshots so a handler invoked mid-ingest can safely register new
// queries or patterns without corrupting an in-progress iteration.
type Store struct {
	mu              sync.Mutex
	representatives map[[16]byte][]*model.Pattern
	subscribers     map[*model.Pattern][]any

	// OnFirstSeen, if set, is invoked synchronously the first time a
	// pattern gains a subscriber. The Linked Data collaborator hangs its
	// fetch-on-reference behavior off this hook; the store itself has no
	// knowledge of HTTP.
	OnFirstSeen func(p *model.Pattern)
	// OnForgotten, if set, is invoked synchronously when a pattern's last
	// subscriber is removed.
	OnForgotten func(p *model.Pattern)
}

// NewStore creates an empty pattern store.
func NewStore() *Store {
	return &Store{
		representatives: make(map[[16]byte][]*model.Pattern),
		subscribers:     make(map[*model.Pattern][]any),
	}
}

// Intern returns the canonical representative structurally equal to p,
// creating one if this is the first time p's structural shape is seen.
func (s *Store) Intern(p *model.Pattern) *model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intern(p)
}

func (s *Store) intern(p *model.Pattern) *model.Pattern {
	key := hash128(p.String())
	for _, candidate := range s.representatives[key] {
		if candidate.Equals(p) {
			return candidate
		}
	}
	s.representatives[key] = append(s.representatives[key], p)
	return p
}

// Subscribe records subscriber against canonicalP, which must already be a
// canonical reference obtained from Intern. Returns true if this is the
// pattern's first subscriber, in which case OnFirstSeen (if set) fires.
func (s *Store) Subscribe(canonicalP *model.Pattern, subscriber any) bool {
	s.mu.Lock()
	firstSeen := len(s.subscribers[canonicalP]) == 0
	s.subscribers[canonicalP] = append(s.subscribers[canonicalP], subscriber)
	onFirstSeen := s.OnFirstSeen
	s.mu.Unlock()

	if firstSeen && onFirstSeen != nil {
		onFirstSeen(canonicalP)
	}
	return firstSeen
}

// Unsubscribe removes subscriber from canonicalP's subscriber list. If the
// list becomes empty the entry is dropped entirely and OnForgotten (if set)
// fires. Unsubscribe is a no-op if subscriber was not present.
func (s *Store) Unsubscribe(canonicalP *model.Pattern, subscriber any) {
	s.mu.Lock()
	subs := s.subscribers[canonicalP]
	idx := -1
	for i, existing := range subs {
		if existing == subscriber {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return
	}
	subs = append(subs[:idx], subs[idx+1:]...)
	forgotten := len(subs) == 0
	if forgotten {
		delete(s.subscribers, canonicalP)
	} else {
		s.subscribers[canonicalP] = subs
	}
	onForgotten := s.OnForgotten
	s.mu.Unlock()

	if forgotten && onForgotten != nil {
		onForgotten(canonicalP)
	}
}

// Subscribers returns a snapshot copy of canonicalP's current subscribers,
// safe to iterate even if the callback re-enters Subscribe/Unsubscribe.
func (s *Store) Subscribers(canonicalP *model.Pattern) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subscribers[canonicalP]
	out := make([]any, len(subs))
	copy(out, subs)
	return out
}

// Iterate returns a snapshot of every canonical pattern that currently has
// at least one subscriber. Per spec.md §4.2 this must tolerate the store
// growing while the caller is mid-iteration, hence the eager copy.
func (s *Store) Iterate() []*model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Pattern, 0, len(s.subscribers))
	for p := range s.subscribers {
		out = append(out, p)
	}
	return out
}

// Len reports the number of patterns currently holding at least one
// subscriber; exposed for metrics and tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
