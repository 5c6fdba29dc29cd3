package collection

import (
	"fmt"

	"github.com/fluentlang/fluent/internal/value"
)

// base implements the storage, merge/delete, and deferred-buffer
// mechanics shared by Table and Scratch (and by Channel's local state,
// which it embeds). Stdout/Stdin/Periodic have different enough shapes
// that they implement Collection directly instead of embedding base.
type base struct {
	name     string
	kind     Kind
	schema   value.Schema
	fam      value.Family
	tuples   *TupleSet
	deferred *TupleSet
	sink     ChangeSink
}

func newBase(name string, kind Kind, schema value.Schema, fam value.Family, sink ChangeSink) base {
	return base{
		name:     name,
		kind:     kind,
		schema:   schema,
		fam:      fam,
		tuples:   NewTupleSet(fam),
		deferred: NewTupleSet(fam),
		sink:     sink,
	}
}

func (b *base) Name() string          { return b.name }
func (b *base) CollKind() Kind        { return b.kind }
func (b *base) Schema() value.Schema  { return b.schema }
func (b *base) Get() *TupleSet        { return b.tuples }
func (b *base) TakeDeferred() *TupleSet {
	d := b.deferred
	b.deferred = NewTupleSet(b.fam)
	return d
}

func (b *base) DeferredMerge(tuples *TupleSet) {
	tuples.Each(func(t value.Tuple) {
		b.deferred.Add(t)
	})
}

// mergeInto validates each incoming tuple against the schema, adds it to
// tuples if new, and reports the insertion to sink.
func (b *base) mergeInto(tuples *TupleSet, incoming *TupleSet, logicalTime int64) error {
	var firstErr error
	incoming.Each(func(t value.Tuple) {
		if firstErr != nil {
			return
		}
		if err := b.schema.Validate(t); err != nil {
			firstErr = fmt.Errorf("collection %q: %w", b.name, err)
			return
		}
		if tuples.Add(t) {
			if b.sink != nil {
				b.sink.Inserted(b.name, t, logicalTime)
			}
		}
	})
	return firstErr
}

func (b *base) deleteFrom(tuples *TupleSet, incoming *TupleSet, logicalTime int64) error {
	incoming.Each(func(t value.Tuple) {
		if tuples.Remove(t) {
			if b.sink != nil {
				b.sink.Deleted(b.name, t, logicalTime)
			}
		}
	})
	return nil
}

func (b *base) clear() {
	b.tuples = NewTupleSet(b.fam)
	b.deferred = NewTupleSet(b.fam)
}

// DeferredLen reports how many tuples are currently staged in the
// deferred buffer, without consuming it.
func (b *base) DeferredLen() int { return b.deferred.Len() }

// DeferredSignature reports the staged buffer's content signature, used
// by the executor's fixpoint loop to detect when a pass produced no
// change to any collection.
func (b *base) DeferredSignature() uint64 { return b.deferred.ContentSignature() }

// Snapshot clones the collection's live tuple set, letting the executor
// roll a failed tick's table mutations back to their pre-tick state.
func (b *base) Snapshot() *TupleSet { return b.tuples.Clone() }

// Restore replaces the live tuple set with a previously taken Snapshot
// and discards any staged deferred buffer, undoing both the immediate
// (+=/-=) and deferred (<=) effects of an abandoned tick.
func (b *base) Restore(snapshot *TupleSet) {
	b.tuples = snapshot
	b.deferred = NewTupleSet(b.fam)
}
