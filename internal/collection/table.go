package collection

import "github.com/fluentlang/fluent/internal/value"

// Table is a persistent-across-ticks collection: it accumulates tuples
// until explicitly deleted, and is never cleared by the tick loop.
type Table struct {
	base
}

// NewTable constructs an empty Table with the given name and schema.
func NewTable(name string, schema value.Schema, fam value.Family, sink ChangeSink) *Table {
	return &Table{base: newBase(name, KindTable, schema, fam, sink)}
}

// Merge implements Collection.
func (t *Table) Merge(tuples *TupleSet, logicalTime int64) error {
	return t.mergeInto(t.tuples, tuples, logicalTime)
}

// Delete implements Collection.
func (t *Table) Delete(tuples *TupleSet, logicalTime int64) error {
	return t.deleteFrom(t.tuples, tuples, logicalTime)
}

// Clear is a documented no-op: tables retain state across ticks.
func (t *Table) Clear(logicalTime int64) {}
