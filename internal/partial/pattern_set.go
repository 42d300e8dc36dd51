package partial

import "github.com/sesamestream/sesamestream/internal/model"

// PatternSet holds the canonical patterns a PartialSolution still has to
// satisfy. Per spec.md §9 ("most realistic queries have ≤ 4 patterns") it
// is backed by a plain slice rather than a map: linear scans over three or
// four pointers beat hashing for sets this small, and membership is always
// tested by pointer identity since every pattern here is canonical.
type PatternSet struct {
	patterns []*model.Pattern
}

// NewPatternSet builds a set from canonical patterns. Duplicate pointers
// (the same canonical pattern appearing twice in one query) are collapsed.
func NewPatternSet(patterns ...*model.Pattern) *PatternSet {
	s := &PatternSet{patterns: make([]*model.Pattern, 0, len(patterns))}
	for _, p := range patterns {
		s.add(p)
	}
	return s
}

func (s *PatternSet) add(p *model.Pattern) {
	for _, existing := range s.patterns {
		if existing == p {
			return
		}
	}
	s.patterns = append(s.patterns, p)
}

// Len reports how many distinct patterns remain.
func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Contains tests pointer identity against p, valid because every
// member is a canonical reference from the pattern store.
func (s *PatternSet) Contains(p *model.Pattern) bool {
	if s == nil {
		return false
	}
	for _, existing := range s.patterns {
		if existing == p {
			return true
		}
	}
	return false
}

// All returns the set's members. The caller must not mutate the returned
// slice.
func (s *PatternSet) All() []*model.Pattern {
	if s == nil {
		return nil
	}
	return s.patterns
}

// WithoutIdentity returns a new set containing every member of s except the
// one identical (by pointer) to satisfiedP. Used by extend() to drop the
// pattern that was just matched, per spec.md §4.4's identity-based skip.
func (s *PatternSet) WithoutIdentity(satisfiedP *model.Pattern) []*model.Pattern {
	if s == nil {
		return nil
	}
	out := make([]*model.Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		if p == satisfiedP {
			continue
		}
		out = append(out, p)
	}
	return out
}
