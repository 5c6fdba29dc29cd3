package collection

import "github.com/fluentlang/fluent/internal/value"

// Kind names a collection's variant for lineage's AddCollection call:
// name, kind, column names, column SQL types.
type Kind string

const (
	// KindTable is a persistent-across-ticks collection.
	KindTable Kind = "Table"
	// KindScratch is cleared at the end of every tick.
	KindScratch Kind = "Scratch"
	// KindChannel is cleared at tick end after its contents are sent.
	KindChannel Kind = "Channel"
	// KindStdout is a write-only sink, cleared every tick.
	KindStdout Kind = "Stdout"
	// KindStdin is a read-only, asynchronously populated source.
	KindStdin Kind = "Stdin"
	// KindPeriodic is a read-only source emitting on elapsed deadlines.
	KindPeriodic Kind = "Periodic"
)

// Collection is the shared interface every variant implements:
// Get/Merge/DeferredMerge/Delete/Clear, plus identity.
type Collection interface {
	// Name is unique within the owning node.
	Name() string
	// CollKind reports the variant, for lineage.AddCollection.
	CollKind() Kind
	// Schema is the collection's fixed column list.
	Schema() value.Schema
	// Get returns a read-only view of the collection's current tuples.
	Get() *TupleSet
	// Merge adds tuples immediately, deduplicating against current
	// contents, stamped with the given logical time for lineage.
	Merge(tuples *TupleSet, logicalTime int64) error
	// DeferredMerge stages tuples for a Merge at tick commit (used by
	// the `<=` rule operator); it does not itself apply logicalTime
	// stamping — the executor calls Merge with the committing tick's
	// logical time when it flushes staged tuples.
	DeferredMerge(tuples *TupleSet)
	// Delete removes tuples immediately.
	Delete(tuples *TupleSet, logicalTime int64) error
	// Clear empties the collection, reporting any live tuples as deleted
	// lineage events stamped with logicalTime. Used by the executor at
	// tick end for scratches, channels, and stdout; Table.Clear is a
	// documented no-op since tables are never cleared.
	Clear(logicalTime int64)
	// TakeDeferred returns and clears the staged DeferredMerge buffer,
	// called once by the executor when committing a tick's `<=` rules.
	TakeDeferred() *TupleSet
	// DeferredLen reports the size of the staged buffer without
	// consuming it.
	DeferredLen() int
	// DeferredSignature reports the staged buffer's content signature
	// without consuming it, used alongside Get().ContentSignature() to
	// detect a no-op fixpoint pass.
	DeferredSignature() uint64
}

// ChangeSink receives per-tuple change notifications for lineage
// emission: every Insert/Delete during a tick is reported here so the
// executor can forward it to lineagedb.Client without each collection
// needing a lineagedb reference of its own.
type ChangeSink interface {
	Inserted(coll string, t value.Tuple, logicalTime int64)
	Deleted(coll string, t value.Tuple, logicalTime int64)
}

// Snapshotter is an optional capability every concrete variant provides
// (via the embedded base) letting the executor take an atomic-tick
// rollback point: Snapshot before a fixpoint attempt, Restore if that
// attempt exceeds the iteration ceiling.
type Snapshotter interface {
	Snapshot() *TupleSet
	Restore(*TupleSet)
}
