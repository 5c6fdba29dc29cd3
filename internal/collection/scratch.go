package collection

import "github.com/fluentlang/fluent/internal/value"

// Scratch is cleared at the end of every tick: useful for transient
// intermediate results a rule wants visible for exactly one tick.
type Scratch struct {
	base
}

// NewScratch constructs an empty Scratch with the given name and schema.
func NewScratch(name string, schema value.Schema, fam value.Family, sink ChangeSink) *Scratch {
	return &Scratch{base: newBase(name, KindScratch, schema, fam, sink)}
}

// Merge implements Collection.
func (s *Scratch) Merge(tuples *TupleSet, logicalTime int64) error {
	return s.mergeInto(s.tuples, tuples, logicalTime)
}

// Delete implements Collection.
func (s *Scratch) Delete(tuples *TupleSet, logicalTime int64) error {
	return s.deleteFrom(s.tuples, tuples, logicalTime)
}

// Clear empties the scratch; the executor calls this at the end of every
// tick, reporting a Deleted lineage event for each tuple that was live —
// clearing a scratch pairs its earlier InsertTuple with a DeleteTuple
// within the same tick.
func (s *Scratch) Clear(logicalTime int64) {
	if s.sink != nil {
		s.tuples.Each(func(t value.Tuple) {
			s.sink.Deleted(s.name, t, logicalTime)
		})
	}
	s.clear()
}
