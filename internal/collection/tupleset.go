package collection

import "github.com/fluentlang/fluent/internal/value"

// TupleSet is a hash-deduplicated set of tuples: it never contains
// duplicates. Membership is keyed by the injected value.Family, not by Go
// map equality, since Tuple holds an interface-typed slice that isn't
// itself comparable.
type TupleSet struct {
	fam   value.Family
	items map[uint64]value.Tuple
}

// NewTupleSet creates an empty TupleSet using the given hash family.
func NewTupleSet(fam value.Family) *TupleSet {
	return &TupleSet{fam: fam, items: make(map[uint64]value.Tuple)}
}

// Add inserts t if not already present. Returns true if the set changed.
func (s *TupleSet) Add(t value.Tuple) bool {
	h := s.fam.Hash(t)
	if existing, ok := s.items[h]; ok && existing.Equal(t) {
		return false
	}
	s.items[h] = t
	return true
}

// Remove deletes t if present. Returns true if the set changed.
func (s *TupleSet) Remove(t value.Tuple) bool {
	h := s.fam.Hash(t)
	if existing, ok := s.items[h]; ok && existing.Equal(t) {
		delete(s.items, h)
		return true
	}
	return false
}

// Contains reports whether t is a member.
func (s *TupleSet) Contains(t value.Tuple) bool {
	existing, ok := s.items[s.fam.Hash(t)]
	return ok && existing.Equal(t)
}

// Len returns the number of distinct tuples.
func (s *TupleSet) Len() int { return len(s.items) }

// Each calls fn once per tuple, in unspecified order. Callers that need
// a deterministic order (lineage emission) should sort the returned
// slice from Slice() themselves.
func (s *TupleSet) Each(fn func(value.Tuple)) {
	for _, t := range s.items {
		fn(t)
	}
}

// HashOf returns the stable hash for t under this set's hash family,
// exposed so callers (lineage emission, derived-lineage linking) don't
// need a second Family reference.
func (s *TupleSet) HashOf(t value.Tuple) uint64 {
	return s.fam.Hash(t)
}

// Slice returns every tuple as a slice. Order is unspecified; the
// returned slice is a fresh copy safe to mutate.
func (s *TupleSet) Slice() []value.Tuple {
	out := make([]value.Tuple, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	return out
}

// ContentSignature folds the set's member hashes into one
// order-independent digest: two sets with identical members always
// produce the same signature, and any single added or removed tuple
// changes it. Used by the executor to detect a fixpoint pass that
// changed nothing.
func (s *TupleSet) ContentSignature() uint64 {
	var sig uint64
	for h := range s.items {
		sig += mix64(h)
	}
	return sig
}

// mix64 is a splitmix64 finalizer, spreading each member hash before
// the commutative sum so that structured hash values still produce
// well-distributed signatures.
func mix64(h uint64) uint64 {
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}

// Clear empties the set in place.
func (s *TupleSet) Clear() {
	s.items = make(map[uint64]value.Tuple)
}

// Clone returns an independent copy of the set.
func (s *TupleSet) Clone() *TupleSet {
	out := NewTupleSet(s.fam)
	for h, t := range s.items {
		out.items[h] = t
	}
	return out
}
